package relay

import (
	"strings"
	"time"
)

// Level is the severity of a relay message.
type Level string

// Message levels, in increasing severity.
const (
	LevelDebug       Level = "Debug"
	LevelInformation Level = "Information"
	LevelWarning     Level = "Warning"
	LevelError       Level = "Error"
	LevelCritical    Level = "Critical"
)

// ParseLevel matches s case-insensitively against the known levels.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "information", "info":
		return LevelInformation, true
	case "warning", "warn":
		return LevelWarning, true
	case "error":
		return LevelError, true
	case "critical":
		return LevelCritical, true
	default:
		return "", false
	}
}

// Message is one status line sent to the observer.
type Message struct {
	Level     Level     `json:"level"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
