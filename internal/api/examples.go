package api

import "net/http"

// exampleQuestions mirror the starter prompts shown to first-time
// users of the employee dataset.
var exampleQuestions = []string{
	"Show all employees in IT department",
	"What is the average salary by department?",
	"Find the top 5 highest paid employees",
	"Count employees in each job level",
	"Show employees hired in the last 5 years",
	"What is the salary distribution by age?",
	"List all unique cities where employees live",
	"Find executives earning more than 100,000",
}

func handleListExamples(w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, "asker"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"examples": exampleQuestions})
}
