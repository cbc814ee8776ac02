package sandbox

// SentinelArg is the hidden argv[1] that tells a re-executed raven process
// to act as the sandbox init process instead of the normal CLI entry point.
const SentinelArg = "__raven_sandbox_init__"

// bindSpec describes one bind mount the init child must perform before
// chrooting.
type bindSpec struct {
	Host     string `json:"host"`
	Sandbox  string `json:"sandbox"` // path relative to the sandbox root
	ReadOnly bool   `json:"read_only"`
}

// execPlan is serialized to a temp file and handed to the re-executed init
// child via its single argument: the plan file path.
type execPlan struct {
	Root       string     `json:"root"`     // S/root, becomes "/" after chroot
	Binds      []bindSpec `json:"binds"`
	WorkDir    string     `json:"work_dir"` // cwd after chroot, e.g. /src/hello-2.10.0
	Commands   []planCmd  `json:"commands"`
	ResultPath string     `json:"result_path"`
}

type planCmd struct {
	Phase string `json:"phase"` // "build" or "install"
	Line  string `json:"line"`
}

// execResult is written by the init child to ResultPath and read back by
// the parent after the child exits.
type execResult struct {
	OK         bool   `json:"ok"`
	Phase      string `json:"phase,omitempty"`
	Command    string `json:"command,omitempty"`
	ExitCode   int    `json:"exit_code,omitempty"`
	StderrTail string `json:"stderr_tail,omitempty"`
	SetupOp    string `json:"setup_op,omitempty"`
	SetupErr   string `json:"setup_err,omitempty"`
}
