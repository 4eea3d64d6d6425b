package runner

import (
	"bytes"
	"context"
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"code-intelligence.com/crashtriage/pkg/log"
	"code-intelligence.com/crashtriage/util/executil"
	"code-intelligence.com/crashtriage/util/fileutil"
	"code-intelligence.com/crashtriage/util/stringutil"
)

// TimeoutExitCode is reported for executions which were terminated
// because they exceeded the timeout, like timeout(1) does.
const TimeoutExitCode = 124

// TimeoutMarker is appended to the output of timed out executions.
const TimeoutMarker = "\n[TIMEOUT]\n"

// Time the process group gets to exit after the SIGTERM before it's
// killed.
const terminationGracePeriod = time.Second

var (
	ErrTargetNotExecutable = errors.New("target is not an executable file")
	ErrInputNotFound       = errors.New("input file not found")
)

// Mode determines the command line a target is invoked with.
type Mode string

const (
	// ModeTiffcp invokes "target <input> <sink>"
	ModeTiffcp Mode = "tiffcp"
	// ModeTiff2pdf invokes "target -o <sink> <input>"
	ModeTiff2pdf Mode = "tiff2pdf"
	// ModePlain invokes "target <input>"
	ModePlain Mode = "plain"
)

// Modes lists all supported modes.
var Modes = []Mode{ModeTiffcp, ModeTiff2pdf, ModePlain}

func ParseMode(s string) (Mode, error) {
	for _, mode := range Modes {
		if string(mode) == s {
			return mode, nil
		}
	}
	return "", errors.Errorf("unsupported mode %q, supported modes: %v", s, Modes)
}

// Args returns the argv used to execute target on input. An empty sink
// is replaced by os.DevNull.
func Args(mode Mode, target, input, sink string) []string {
	if sink == "" {
		sink = os.DevNull
	}
	switch mode {
	case ModeTiff2pdf:
		return []string{target, "-o", sink, input}
	case ModePlain:
		return []string{target, input}
	default:
		return []string{target, input, sink}
	}
}

type Options struct {
	Target string
	Input  string
	Mode   Mode
	// Where the target writes its output file to, os.DevNull if empty
	Sink string
	// No timeout if zero
	Timeout time.Duration
	// The complete environment of the target process
	Env []string
}

// ExecutionOutcome is the result of one execution of the target.
type ExecutionOutcome struct {
	// The exit code, 128+signal if the process was killed by a signal
	// and TimeoutExitCode if it timed out
	ExitCode int
	// Everything the target wrote to stderr
	Output   string
	TimedOut bool
	Duration time.Duration
}

// ValidateTarget returns ErrTargetNotExecutable if path is not an
// executable regular file.
func ValidateTarget(path string) error {
	if !fileutil.IsExecutable(path) {
		return errors.Wrap(ErrTargetNotExecutable, path)
	}
	return nil
}

// Run executes the target once on the input. It returns an error if the
// input doesn't exist (ErrInputNotFound), if the process could not be
// started or if ctx was cancelled. Crashes and timeouts of the target
// are not errors.
func Run(ctx context.Context, opts *Options) (*ExecutionOutcome, error) {
	exists, err := fileutil.Exists(opts.Input)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Wrap(ErrInputNotFound, opts.Input)
	}

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	args := Args(opts.Mode, opts.Target, opts.Input, opts.Sink)
	var stderr bytes.Buffer
	cmd := executil.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Env = opts.Env
	// A nil stdout is connected to the null device
	cmd.Stdout = nil
	cmd.Stderr = &stderr
	cmd.TerminateProcessGroupWhenContextDone = true
	cmd.TerminationGracePeriod = terminationGracePeriod

	log.Debugf("Command: %s", cmd.String())
	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)

	if ctx.Err() != nil {
		// The whole batch was cancelled, the outcome is meaningless
		return nil, errors.WithStack(ctx.Err())
	}
	if cmd.ProcessState == nil {
		// The process was never started
		return nil, err
	}

	outcome := &ExecutionOutcome{
		ExitCode: exitCode(cmd.ProcessState),
		Output:   stringutil.DecodeLossy(stderr.Bytes()),
		Duration: duration,
	}
	if cmd.TerminatedAfterContextDone() {
		outcome.TimedOut = true
		outcome.ExitCode = TimeoutExitCode
		outcome.Output += TimeoutMarker
	}
	return outcome, nil
}

func exitCode(state *os.ProcessState) int {
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return state.ExitCode()
}
