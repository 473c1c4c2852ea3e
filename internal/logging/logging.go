package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds a per-run log file path using OS-appropriate path separators.
func LogFilePath(logsDir, prefix string, started time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", prefix, started.Format("20060102_150405")),
	)
}
