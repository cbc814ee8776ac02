// Package display defines the interfaces for user feedback and progress tracking
// during build and transaction operations. It supports both simple logging and
// per-package task tracking for downloads, builds, and installs.
package display

// Task represents a unit of work that can be monitored for progress and status.
// Tasks are used for long-running operations such as downloads, builds, and
// sandbox execution.
type Task interface {
	// Log adds a log message associated with this specific task.
	Log(msg string)
	// SetStage updates the current stage of the task (e.g. "download", "build")
	// and optionally identifies the target file or component being worked on.
	SetStage(name string, target string)
	// Progress updates the completion percentage (0-100) and provides a status message.
	Progress(percent int, message string)
	// Done marks the task as completed, allowing the display to clean up its resources.
	Done()
}

// Display handles the visualization of global logs, command output, and tracked
// tasks. It is the single output coordinator used by the Planner, Sandbox and
// Transaction Manager.
type Display interface {
	// StartTask creates and returns a new tracked Task for monitoring progress.
	StartTask(name string) Task
	// Log adds a direct log message to the display (forwarded to slog at debug level).
	Log(msg string)
	// Print adds primary output, such as search results or plans, to the display.
	Print(msg string)
	// SetVerbose enables or disables high-verbosity output modes.
	SetVerbose(v bool)
	// Close flushes and releases any display resources.
	Close()
}
