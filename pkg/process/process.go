// pkg/process/process.go - external tool execution for installers and the
// configuration tool.

package process

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/windowsadmins/platformsetup/pkg/logging"
)

// ErrLaunch is returned when an executable cannot be started at all, as
// opposed to starting and exiting non-zero.
var ErrLaunch = errors.New("failed to launch external tool")

// Result holds the outcome of a completed external tool invocation. A
// non-zero ExitCode is not an error at this layer; the caller decides what it
// means for the operation at hand.
type Result struct {
	ExitCode int
	Output   string
}

// Succeeded reports whether the tool exited zero.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Runner launches external executables synchronously with combined
// stdout/stderr capture. The zero value is ready to use.
type Runner struct {
	// Output, when set, receives a live copy of the child's combined
	// output in addition to the captured Result.
	Output io.Writer
}

// Run starts exePath with args in workDir (the current directory when empty)
// and waits for it to exit. The returned error is non-nil only when the
// process could not be started; exit status is always reported via Result.
func (r *Runner) Run(exePath string, args []string, workDir string) (Result, error) {
	if _, err := os.Stat(exePath); err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrLaunch, exePath, err)
	}

	cmd := exec.Command(exePath, args...)
	cmd.Dir = workDir
	hideConsoleWindow(cmd)

	var combined bytes.Buffer
	var sink io.Writer = &combined
	if r.Output != nil {
		sink = io.MultiWriter(&combined, r.Output)
	}
	cmd.Stdout = sink
	cmd.Stderr = sink

	logging.Debug("Launching external tool", "exe", exePath, "workdir", workDir)

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrLaunch, exePath, err)
	}

	// Wait unconditionally; the tool must never be left orphaned.
	err := cmd.Wait()
	result := Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Output:   combined.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Non-zero exit: the tool ran to completion. Leave the
			// interpretation to the caller.
			logging.Debug("External tool exited non-zero",
				"exe", exePath,
				"exit_code", result.ExitCode,
			)
			return result, nil
		}
		return result, fmt.Errorf("%w: %s: %v", ErrLaunch, exePath, err)
	}

	return result, nil
}

func hideConsoleWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow: true,
	}
}
