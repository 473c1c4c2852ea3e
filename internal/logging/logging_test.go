package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	started := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		prefix  string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "logs",
			prefix:  "handoff",
			want:    filepath.Join("logs", "handoff.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./logs",
			prefix:  "handoff",
			want:    filepath.Join(".", "logs", "handoff.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "handoff"),
			prefix:  "soak",
			want:    filepath.Join("/var", "log", "handoff", "soak.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, tt.prefix, started)
			assert.Equal(t, tt.want, got)
		})
	}
}
