package emitter

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/guidowb/rebel/pkg/resource"
)

// DefaultStatusWidth bounds the in-progress status line.
const DefaultStatusWidth = 100

const ellipsis = "..."

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorDim    = lipgloss.Color("#6b7280")
)

// ConsoleEmitter prints one line per event and keeps a single status line
// for resources in progress. On a terminal the status line is rewritten
// in place; elsewhere it is printed only when it changes.
type ConsoleEmitter struct {
	w     io.Writer
	tty   bool
	width int

	lastStatus string

	okStyle   lipgloss.Style
	failStyle lipgloss.Style
	busyStyle lipgloss.Style
	dimStyle  lipgloss.Style
}

// NewConsoleEmitter creates a console emitter writing to w. width bounds
// the status line; zero means DefaultStatusWidth.
func NewConsoleEmitter(w io.Writer, width int) *ConsoleEmitter {
	if width <= 0 {
		width = DefaultStatusWidth
	}
	tty := isTerminal(w)
	r := lipgloss.NewRenderer(w)
	if !tty {
		r.SetColorProfile(termenv.Ascii)
	}
	return &ConsoleEmitter{
		w:         w,
		tty:       tty,
		width:     width,
		okStyle:   r.NewStyle().Foreground(colorGreen),
		failStyle: r.NewStyle().Foreground(colorRed).Bold(true),
		busyStyle: r.NewStyle().Foreground(colorYellow),
		dimStyle:  r.NewStyle().Foreground(colorDim),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Event prints "[mm:ss] key type STATUS reason".
func (c *ConsoleEmitter) Event(_ context.Context, ev Event) error {
	if err := c.clearStatus(); err != nil {
		return err
	}

	r := ev.Change.Resource
	line := fmt.Sprintf("%s %s %s %s",
		c.dimStyle.Render(FormatElapsed(ev.Elapsed)),
		ev.Change.Key,
		c.dimStyle.Render(r.Type),
		c.statusStyle(r.Status).Render(r.Status),
	)
	if r.StatusReason != "" {
		line += " " + r.StatusReason
	}

	_, err := fmt.Fprintln(c.w, line)
	if err != nil {
		return err
	}
	return c.redrawStatus()
}

// Status replaces the in-progress line.
func (c *ConsoleEmitter) Status(_ context.Context, inProgress []string) error {
	line := StatusLine(inProgress, c.width)

	if !c.tty {
		if line != "" && line != c.lastStatus {
			if _, err := fmt.Fprintln(c.w, line); err != nil {
				return err
			}
		}
		c.lastStatus = line
		return nil
	}

	if err := c.clearStatus(); err != nil {
		return err
	}
	c.lastStatus = line
	return c.redrawStatus()
}

// Close ends the status line.
func (c *ConsoleEmitter) Close() error {
	return c.clearStatus()
}

func (c *ConsoleEmitter) clearStatus() error {
	if !c.tty || c.lastStatus == "" {
		return nil
	}
	_, err := fmt.Fprintf(c.w, "\r%s\r", strings.Repeat(" ", len(c.lastStatus)))
	return err
}

func (c *ConsoleEmitter) redrawStatus() error {
	if !c.tty || c.lastStatus == "" {
		return nil
	}
	_, err := fmt.Fprint(c.w, c.busyStyle.Render(c.lastStatus))
	return err
}

func (c *ConsoleEmitter) statusStyle(status string) lipgloss.Style {
	switch {
	case strings.HasSuffix(status, "_FAILED") || strings.Contains(status, "ROLLBACK"):
		return c.failStyle
	case resource.IsInProgress(status):
		return c.busyStyle
	default:
		return c.okStyle
	}
}

// FormatElapsed renders d as "[mm:ss]".
func FormatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("[%02d:%02d]", secs/60, secs%60)
}

// StatusLine renders the in-progress keys, truncated with an ellipsis to
// at most width characters. No keys render as "".
func StatusLine(keys []string, width int) string {
	if len(keys) == 0 {
		return ""
	}
	line := "in progress: " + strings.Join(keys, ", ")
	if width <= 0 || len(line) <= width {
		return line
	}
	if width <= len(ellipsis) {
		return ellipsis[:width]
	}
	return line[:width-len(ellipsis)] + ellipsis
}
