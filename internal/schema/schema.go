// Package schema derives a structured description of the live store's
// tables, columns, and sample rows. The description grounds query
// generation: the translator embeds it verbatim into the model prompt.
package schema

import (
	"fmt"
	"strings"
	"time"
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Table struct {
	Name       string           `json:"name"`
	Columns    []Column         `json:"columns"`
	SampleRows []map[string]any `json:"sample_rows"`
}

// Context is an immutable snapshot of the store's schema. A refresh
// builds a new Context and publishes it whole; readers never observe a
// partially built one.
type Context struct {
	Tables      []Table
	RefreshedAt time.Time
}

func (c *Context) Table(name string) (Table, bool) {
	for _, table := range c.Tables {
		if table.Name == name {
			return table, true
		}
	}
	return Table{}, false
}

func (c *Context) TableNames() []string {
	names := make([]string, 0, len(c.Tables))
	for _, table := range c.Tables {
		names = append(names, table.Name)
	}
	return names
}

// Prompt renders the schema context as generation input: every table,
// its columns with declared types, and its sample rows in column order.
func (c *Context) Prompt() string {
	var b strings.Builder
	b.WriteString("Database Schema:\n\n")
	for _, table := range c.Tables {
		fmt.Fprintf(&b, "Table: %s\n", table.Name)
		b.WriteString("  Columns:\n")
		for _, column := range table.Columns {
			fmt.Fprintf(&b, "    - %s (%s)\n", column.Name, column.Type)
		}
		if len(table.SampleRows) > 0 {
			b.WriteString("  Sample Data:\n")
			for i, row := range table.SampleRows {
				fmt.Fprintf(&b, "    %d. %s\n", i+1, renderRow(table.Columns, row))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderRow(columns []Column, row map[string]any) string {
	parts := make([]string, 0, len(columns))
	for _, column := range columns {
		value, ok := row[column.Name]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", column.Name, value))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
