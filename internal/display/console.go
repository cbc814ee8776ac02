package display

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// consoleDisplay implements Display for plain, scriptable terminal output.
// Every message that matters for the stable stderr contract goes through
// Print, never through a redrawing progress widget, so piping raven's
// output through another program never loses a line.
type consoleDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	theme   *Theme
}

// NewConsole creates a Display that writes to standard error.
func NewConsole() Display {
	return &consoleDisplay{out: os.Stderr, theme: DefaultTheme()}
}

// NewWriterDisplay creates a Display that writes to an arbitrary writer,
// used by tests to capture output.
func NewWriterDisplay(w io.Writer) Display {
	return &consoleDisplay{out: w, theme: DefaultTheme()}
}

func (d *consoleDisplay) StartTask(name string) Task {
	d.Print(d.theme.Styled(d.theme.Cyan, d.theme.Arrow+" "+name))
	return &consoleTask{name: name, disp: d}
}

func (d *consoleDisplay) Log(msg string) {
	slog.Debug(msg)
}

func (d *consoleDisplay) Print(msg string) {
	d.mu.Lock()
	out := d.out
	d.mu.Unlock()
	fmt.Fprintln(out, msg)
}

func (d *consoleDisplay) SetVerbose(v bool) {
	d.mu.Lock()
	d.verbose = v
	d.mu.Unlock()
}

func (d *consoleDisplay) Close() {}

type consoleTask struct {
	name   string
	disp   *consoleDisplay
	stage  string
	target string
}

func (t *consoleTask) Log(msg string) {
	slog.Debug(msg, "task", t.name)
}

func (t *consoleTask) SetStage(name, target string) {
	t.stage = name
	t.target = target
	slog.Debug("stage", "task", t.name, "stage", name, "target", target)
	t.disp.Print(t.disp.theme.Styled(t.disp.theme.Dim, fmt.Sprintf("  %s: %s %s", t.name, name, target)))
}

// Progress is debug-only: rendering a live percentage bar is explicitly out
// of the core's scope (spec §1), so only SetStage/Done reach the colorized
// status line.
func (t *consoleTask) Progress(percent int, message string) {
	slog.Debug("progress", "task", t.name, "percent", percent, "message", message)
}

func (t *consoleTask) Done() {
	slog.Debug("done", "task", t.name)
	t.disp.Print(t.disp.theme.Styled(t.disp.theme.Green, t.disp.theme.Bullet+" done: "+t.name))
}
