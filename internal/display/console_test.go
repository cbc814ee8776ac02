package display

import (
	"bytes"
	"strings"
	"testing"
)

func TestStartTaskPrintsStyledName(t *testing.T) {
	buf := &bytes.Buffer{}
	d := NewWriterDisplay(buf)

	d.StartTask("libdummy")

	output := buf.String()
	if !strings.Contains(output, "libdummy") {
		t.Errorf("expected task name in output, got: %q", output)
	}
}

func TestTaskSetStageAndDonePrintStatusLines(t *testing.T) {
	buf := &bytes.Buffer{}
	d := NewWriterDisplay(buf)

	task := d.StartTask("hello")
	buf.Reset()

	task.SetStage("download", "https://example.invalid/hello.tar.gz")
	output := buf.String()
	if !strings.Contains(output, "download") || !strings.Contains(output, "hello.tar.gz") {
		t.Errorf("expected stage name and target in output, got: %q", output)
	}

	buf.Reset()
	task.Done()
	output = buf.String()
	if !strings.Contains(output, "done") || !strings.Contains(output, "hello") {
		t.Errorf("expected done status for task, got: %q", output)
	}
}

func TestPrintWritesDirectlyToWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	d := NewWriterDisplay(buf)

	d.Print("plan: libdummy, hello")

	if !strings.Contains(buf.String(), "plan: libdummy, hello") {
		t.Errorf("expected Print output, got: %q", buf.String())
	}
}
