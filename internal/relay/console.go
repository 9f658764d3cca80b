package relay

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var levelColors = map[Level]*color.Color{
	LevelCritical:    color.New(color.FgRed),
	LevelError:       color.New(color.FgRed),
	LevelWarning:     color.New(color.FgYellow),
	LevelInformation: color.New(color.FgBlue),
	LevelDebug:       color.New(color.FgHiBlack),
}

var defaultColor = color.New(color.FgWhite)

// Console writes human-readable, coloured message lines. It is safe for
// concurrent use.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// FormatLine renders m as "[HH:MM:SS.mmm] [LEVEL] [source] message" using
// the timestamp in local time.
func FormatLine(m Message) string {
	return fmt.Sprintf("[%s] [%s] [%s] %s",
		m.Timestamp.Local().Format("15:04:05.000"),
		strings.ToUpper(string(m.Level)),
		m.Source,
		m.Message)
}

// NewConsole creates a Console writing to w. A nil w discards output.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Write prints m as one line coloured by level.
func (c *Console) Write(m Message) {
	if c.w == nil {
		return
	}

	col, ok := levelColors[m.Level]
	if !ok {
		col = defaultColor
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = col.Fprintln(c.w, FormatLine(m))
}
