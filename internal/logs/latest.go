package logs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrNoRunLogs is returned when the log directory holds no run logs.
var ErrNoRunLogs = errors.New("no run logs found")

// LatestRunLog returns the newest file in dir matching pattern. Run log names
// embed a sortable UTC timestamp, so the lexically greatest name wins.
func LatestRunLog(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("list run logs: %w", err)
	}
	files := matches[:0]
	for _, match := range matches {
		if info, err := os.Stat(match); err == nil && !info.IsDir() {
			files = append(files, match)
		}
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoRunLogs, dir)
	}
	sort.Strings(files)
	return files[len(files)-1], nil
}
