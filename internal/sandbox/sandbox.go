// Package sandbox is the Sandbox Builder: it creates a hermetic build
// environment rooted at a scratch directory, downloads and verifies a
// recipe's source, executes its build and install commands inside a private
// mount namespace and chroot, and captures the set of files installed
// beneath a staging prefix.
//
// Because entering a new mount namespace only takes effect for the calling
// OS thread's descendants, the namespace/mount/chroot/exec sequence runs in
// a re-executed child process (the running binary invoked again with the
// SentinelArg argv), not in the main raven process. The parent constructs
// an execPlan, hands it to the child over a temp file, and waits.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"raven/internal/archive"
	"raven/internal/display"
	"raven/internal/recipe"
)

const (
	stagingDirName = "out"
	rootDirName    = "root"
	stderrTailMax  = 4096
)

var hostReadOnlyTrees = []string{"/usr", "/bin", "/lib", "/lib64", "/etc"}

// Result is returned by Build on success: the host-side path under which
// install_commands staged files (S/out), the absolute destination paths of
// every file found there, and a Cleanup func for the caller to run once the
// Transaction Manager has finished moving those files into the live root.
type Result struct {
	StagingRoot string
	Files       []string
	Cleanup     func() error
}

// Sandbox builds one package's recipe into a staged install tree.
type Sandbox struct {
	// CacheDir, if set, is checked for a pre-fetched, verified source
	// archive (keyed by sha256_sum) before Build attempts its own
	// download. The Planner populates this directory with a bounded-
	// concurrency pre-fetch pass ahead of the serial build loop (spec
	// §5: downloads may be parallel, builds may not).
	CacheDir string
}

// New returns a Sandbox. There is no persistent state: every Build call
// creates and destroys its own scratch directory.
func New() *Sandbox { return &Sandbox{} }

// NewWithCache returns a Sandbox that consults cacheDir for pre-fetched
// source archives before downloading.
func NewWithCache(cacheDir string) *Sandbox { return &Sandbox{CacheDir: cacheDir} }

// Build runs the full setup/download/execute/capture sequence for rec. On
// any failure the scratch directory is removed before the error is
// returned, matching the "on any failure, remove S entirely" rule.
func (s *Sandbox) Build(ctx context.Context, rec *recipe.Recipe, task display.Task) (*Result, error) {
	// Scratch root name matches spec's /tmp/raven-build-<rand> literally:
	// a uuid-derived suffix rather than os.MkdirTemp's own randomness, so
	// the directory name is stable to log and reason about across the
	// download/build/capture sequence.
	scratch := filepath.Join(os.TempDir(), "raven-build-"+uuid.NewString())
	if err := os.Mkdir(scratch, 0755); err != nil {
		return nil, &SetupError{Op: "create scratch dir", Cause: err}
	}
	cleanup := func() { os.RemoveAll(scratch) }

	root := filepath.Join(scratch, rootDirName)
	out := filepath.Join(scratch, stagingDirName)
	for _, d := range []string{root, out} {
		if err := os.MkdirAll(d, 0755); err != nil {
			cleanup()
			return nil, &SetupError{Op: "create scratch subdir", Cause: err}
		}
	}

	workDirHost := fmt.Sprintf("%s-%s", rec.Name, rec.Version)
	srcDir := filepath.Join(root, "src", workDirHost)
	if err := os.MkdirAll(srcDir, 0755); err != nil {
		cleanup()
		return nil, &SetupError{Op: "create source dir", Cause: err}
	}

	if task != nil {
		task.SetStage("download", rec.SourceURL)
	}
	archivePath := filepath.Join(scratch, "source"+guessExt(rec.SourceURL, rec.Filename))
	if err := s.fetchSource(ctx, rec, archivePath, task); err != nil {
		cleanup()
		return nil, err
	}

	if task != nil {
		task.SetStage("extract", archivePath)
	}
	extracted := 0
	onEntry := func(name string) {
		extracted++
		if task != nil {
			task.Progress(0, fmt.Sprintf("%d entries extracted (%s)", extracted, name))
		}
	}
	if err := archive.Extract(archivePath, srcDir, onEntry); err != nil {
		cleanup()
		return nil, fmt.Errorf("extract source: %w", err)
	}

	for _, d := range []string{filepath.Join(root, "proc"), filepath.Join(root, "dev"), filepath.Join(root, "sys"),
		filepath.Join(root, "out")} {
		if err := os.MkdirAll(d, 0755); err != nil {
			cleanup()
			return nil, &SetupError{Op: "create mount target", Cause: err}
		}
	}
	for _, t := range hostReadOnlyTrees {
		if _, err := os.Stat(t); err == nil {
			if err := os.MkdirAll(filepath.Join(root, t), 0755); err != nil {
				cleanup()
				return nil, &SetupError{Op: "create bind target " + t, Cause: err}
			}
		}
	}

	plan := execPlan{
		Root:    root,
		WorkDir: "/src/" + workDirHost,
	}
	for _, t := range hostReadOnlyTrees {
		if _, err := os.Stat(t); err == nil {
			plan.Binds = append(plan.Binds, bindSpec{Host: t, Sandbox: t, ReadOnly: true})
		}
	}
	plan.Binds = append(plan.Binds, bindSpec{Host: out, Sandbox: "/out", ReadOnly: false})

	for _, c := range rec.BuildCommands {
		plan.Commands = append(plan.Commands, planCmd{Phase: "build", Line: c})
	}
	for _, c := range rec.InstallCommands {
		plan.Commands = append(plan.Commands, planCmd{Phase: "install", Line: c})
	}

	if task != nil {
		task.SetStage("build", rec.Name)
	}
	if err := s.runInit(ctx, &plan); err != nil {
		cleanup()
		return nil, err
	}

	files, err := enumerateStaged(out)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("capture staged files: %w", err)
	}

	return &Result{StagingRoot: out, Files: files, Cleanup: func() error { return os.RemoveAll(scratch) }}, nil
}

// runInit re-executes the current binary with SentinelArg, passing the plan
// over a temp JSON file, and waits for it to run every command in the new
// mount namespace and chroot.
func (s *Sandbox) runInit(ctx context.Context, plan *execPlan) error {
	planFile, err := os.CreateTemp("", "raven-plan-")
	if err != nil {
		return &SetupError{Op: "create plan file", Cause: err}
	}
	defer os.Remove(planFile.Name())

	resultFile, err := os.CreateTemp("", "raven-result-")
	if err != nil {
		planFile.Close()
		return &SetupError{Op: "create result file", Cause: err}
	}
	resultPath := resultFile.Name()
	resultFile.Close()
	defer os.Remove(resultPath)

	plan.ResultPath = resultPath
	data, err := json.Marshal(plan)
	if err != nil {
		planFile.Close()
		return &SetupError{Op: "marshal plan", Cause: err}
	}
	if _, err := planFile.Write(data); err != nil {
		planFile.Close()
		return &SetupError{Op: "write plan", Cause: err}
	}
	planFile.Close()

	self, err := os.Executable()
	if err != nil {
		return &SetupError{Op: "resolve self executable", Cause: err}
	}

	cmd := exec.CommandContext(ctx, self, SentinelArg, planFile.Name())
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWNS,
	}

	if err := cmd.Run(); err != nil {
		// Prefer the structured result file, if the child managed to write
		// one before failing.
		if res, rerr := readResult(resultPath); rerr == nil && !res.OK {
			if res.SetupOp != "" {
				return &SetupError{Op: res.SetupOp, Cause: fmt.Errorf("%s", res.SetupErr)}
			}
			return &BuildError{Phase: res.Phase, Command: res.Command, ExitCode: res.ExitCode, Stderr: res.StderrTail}
		}
		return &SetupError{Op: "run sandbox init", Cause: err}
	}

	res, err := readResult(resultPath)
	if err != nil {
		return fmt.Errorf("read sandbox result: %w", err)
	}
	if !res.OK {
		if res.SetupOp != "" {
			return &SetupError{Op: res.SetupOp, Cause: fmt.Errorf("%s", res.SetupErr)}
		}
		return &BuildError{Phase: res.Phase, Command: res.Command, ExitCode: res.ExitCode, Stderr: res.StderrTail}
	}
	return nil
}

func readResult(path string) (*execResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var res execResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RunInit is the entry point for the re-executed child process. main()
// dispatches here when os.Args[1] == SentinelArg.
func RunInit(planPath string) int {
	data, err := os.ReadFile(planPath)
	if err != nil {
		return 1
	}
	var plan execPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return 1
	}

	writeResult := func(res execResult) int {
		if data, err := json.Marshal(res); err == nil {
			os.WriteFile(plan.ResultPath, data, 0644)
		}
		if res.OK {
			return 0
		}
		return 1
	}

	// The cloned namespace inherits the host's mount propagation; make it
	// private first so none of the mounts below leak back to the host.
	if err := syscall.Mount("", "/", "", syscall.MS_REC|syscall.MS_PRIVATE, ""); err != nil {
		return writeResult(execResult{SetupOp: "make mounts private", SetupErr: err.Error()})
	}
	if err := mountProc(filepath.Join(plan.Root, "proc")); err != nil {
		return writeResult(execResult{SetupOp: "mount proc", SetupErr: err.Error()})
	}
	if err := mountTmpfs(filepath.Join(plan.Root, "dev")); err != nil {
		return writeResult(execResult{SetupOp: "mount dev", SetupErr: err.Error()})
	}
	if _, err := os.Stat("/sys"); err == nil {
		if err := bindMount("/sys", filepath.Join(plan.Root, "sys"), true); err != nil {
			return writeResult(execResult{SetupOp: "bind /sys", SetupErr: err.Error()})
		}
	}
	for _, b := range plan.Binds {
		target := filepath.Join(plan.Root, b.Sandbox)
		if err := bindMount(b.Host, target, b.ReadOnly); err != nil {
			return writeResult(execResult{SetupOp: "bind " + b.Host, SetupErr: err.Error()})
		}
	}

	if err := doChroot(plan.Root); err != nil {
		return writeResult(execResult{SetupOp: "chroot", SetupErr: err.Error()})
	}
	if err := os.Chdir(plan.WorkDir); err != nil {
		return writeResult(execResult{SetupOp: "chdir " + plan.WorkDir, SetupErr: err.Error()})
	}

	for _, c := range plan.Commands {
		// One command per process invocation: no shared shell state across
		// build_commands / install_commands entries.
		cmd := exec.Command("/bin/sh", "-c", c.Line)
		var stderrBuf strings.Builder
		cmd.Stdout = os.Stdout
		cmd.Stderr = &tailWriter{limit: stderrTailMax, buf: &stderrBuf}
		if err := cmd.Run(); err != nil {
			exitCode := 1
			if ee, ok := err.(*exec.ExitError); ok {
				exitCode = ee.ExitCode()
			}
			return writeResult(execResult{
				Phase: c.Phase, Command: c.Line, ExitCode: exitCode, StderrTail: stderrBuf.String(),
			})
		}
	}

	return writeResult(execResult{OK: true})
}

// tailWriter keeps only the last `limit` bytes written to it, for
// BuildError's stderr_tail.
type tailWriter struct {
	limit int
	buf   *strings.Builder
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	if w.buf.Len() > w.limit {
		s := w.buf.String()
		w.buf.Reset()
		w.buf.WriteString(s[len(s)-w.limit:])
	}
	return len(p), nil
}

// enumerateStaged recursively lists every file under out, returning each as
// an absolute destination path with the staging prefix stripped.
func enumerateStaged(out string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(out, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(out, path)
		if err != nil {
			return err
		}
		files = append(files, "/"+filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func guessExt(url, filenameOverride string) string {
	name := filenameOverride
	if name == "" {
		name = url
	}
	for _, ext := range archive.SupportedExtensions() {
		if strings.HasSuffix(name, ext) {
			return ext
		}
	}
	return ".tar.gz"
}
