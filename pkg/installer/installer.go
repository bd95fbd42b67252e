// pkg/installer/installer.go - the install/upgrade state machine.
//
// Probe -> Decide -> {Install|Upgrade: acquire artifact -> run installer ->
// exit 0 => success} ; Skip => no-op success ; Fail => fatal, nothing mutated.

package installer

import (
	"errors"
	"fmt"

	"github.com/windowsadmins/platformsetup/pkg/config"
	"github.com/windowsadmins/platformsetup/pkg/download"
	"github.com/windowsadmins/platformsetup/pkg/logging"
	"github.com/windowsadmins/platformsetup/pkg/platform"
	"github.com/windowsadmins/platformsetup/pkg/process"
	"github.com/windowsadmins/platformsetup/pkg/status"
)

// ErrInstallerFailed carries a non-zero installer exit.
var ErrInstallerFailed = errors.New("platform installer reported failure")

// ErrHigherVersionInstalled is the fatal decision outcome; no mutation has
// been attempted when it is returned.
var ErrHigherVersionInstalled = errors.New("higher version already installed")

// StateProber supplies the local installed state.
type StateProber interface {
	LocalState() (platform.InstallState, error)
}

// ToolRunner launches external executables. *process.Runner satisfies it.
type ToolRunner interface {
	Run(exePath string, args []string, workDir string) (process.Result, error)
}

// Report summarizes a completed EnsureInstalled run.
type Report struct {
	Action    platform.Action
	Version   platform.Version
	TargetDir string
	Output    string
}

// Orchestrator drives the install/upgrade state machine. Fetch and Record
// default to the download and registry implementations and exist as fields
// only so tests can substitute them.
type Orchestrator struct {
	Config *config.Configuration
	Prober StateProber
	Runner ToolRunner

	Fetch  func(*config.Configuration, platform.Version) (string, error)
	Record func(installDir string, ver platform.Version) error
}

// New returns an orchestrator wired to the real probe, runner, downloader,
// and registry recorder.
func New(cfg *config.Configuration) *Orchestrator {
	return &Orchestrator{
		Config: cfg,
		Prober: status.Probe{},
		Runner: &process.Runner{},
		Fetch:  download.FetchInstaller,
		Record: status.RecordInstall,
	}
}

// EnsureInstalled brings the host to the desired platform version.
// requestedDir is honored only for fresh installs; upgrades always stay in
// the existing install directory.
func (o *Orchestrator) EnsureInstalled(desired platform.Version, requestedDir string) (*Report, error) {
	current, err := o.Prober.LocalState()
	if err != nil {
		return nil, fmt.Errorf("unable to determine installed state: %w", err)
	}

	decision := platform.Decide(current, desired, requestedDir)
	logging.Info("Install decision",
		"action", decision.Action,
		"reason", decision.Reason,
	)

	switch decision.Action {
	case platform.ActionSkip:
		return &Report{
			Action:    platform.ActionSkip,
			Version:   desired,
			TargetDir: decision.TargetDir,
		}, nil
	case platform.ActionFail:
		return nil, fmt.Errorf("%w: %s", ErrHigherVersionInstalled, decision.Reason)
	default:
		return o.runInstaller(decision, desired)
	}
}

func (o *Orchestrator) runInstaller(decision platform.Decision, desired platform.Version) (*Report, error) {
	artifact, err := o.Fetch(o.Config, desired)
	if err != nil {
		return nil, fmt.Errorf("unable to acquire installer for %s: %w", desired, err)
	}

	// NSIS-style silent install into the decided target directory.
	args := []string{"/S", fmt.Sprintf("/D=%s", decision.TargetDir)}

	logging.Info("Running platform installer",
		"artifact", artifact,
		"target_dir", decision.TargetDir,
		"action", decision.Action,
	)

	result, err := o.Runner.Run(artifact, args, "")
	if err != nil {
		return nil, fmt.Errorf("installer could not be started: %w", err)
	}
	if !result.Succeeded() {
		logging.Error("Installer failed",
			"exit_code", result.ExitCode,
			"output", result.Output,
		)
		return nil, fmt.Errorf("%w: exit code %d: %s", ErrInstallerFailed, result.ExitCode, result.Output)
	}

	if err := o.Record(decision.TargetDir, desired); err != nil {
		// The install itself succeeded; a failed registry record is
		// worth surfacing but not worth failing the run over.
		logging.Warn("Failed to record installation", "error", err)
	}

	logging.Info("Platform installer completed",
		"version", desired,
		"target_dir", decision.TargetDir,
	)
	return &Report{
		Action:    decision.Action,
		Version:   desired,
		TargetDir: decision.TargetDir,
		Output:    result.Output,
	}, nil
}
