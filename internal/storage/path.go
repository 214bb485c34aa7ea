package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var formatPattern = regexp.MustCompile(`^[a-z0-9]{1,16}$`)

// BuildArchivePath names one archived history snapshot. Objects are
// partitioned by export date so lifecycle rules can expire whole days:
//
//	date=2024-03-01/history-20240301T120000Z-42.csv
func BuildArchivePath(format string, exportedAt time.Time, entryCount int) (string, error) {
	if !formatPattern.MatchString(format) {
		return "", fmt.Errorf("invalid archive format: %q", format)
	}
	if entryCount < 0 {
		return "", fmt.Errorf("entry count must be >= 0")
	}

	ts := exportedAt.UTC()
	return path.Join(
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("history-%s-%d.%s", ts.Format("20060102T150405Z"), entryCount, format),
	), nil
}
