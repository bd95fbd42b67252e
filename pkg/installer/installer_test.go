package installer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowsadmins/platformsetup/pkg/config"
	"github.com/windowsadmins/platformsetup/pkg/platform"
	"github.com/windowsadmins/platformsetup/pkg/process"
)

type fakeProber struct {
	state platform.InstallState
	err   error
}

func (f fakeProber) LocalState() (platform.InstallState, error) {
	return f.state, f.err
}

type fakeRunner struct {
	result   process.Result
	err      error
	launched bool
	exePath  string
	args     []string
}

func (f *fakeRunner) Run(exePath string, args []string, workDir string) (process.Result, error) {
	f.launched = true
	f.exePath = exePath
	f.args = args
	return f.result, f.err
}

func newTestOrchestrator(prober fakeProber, runner *fakeRunner) *Orchestrator {
	return &Orchestrator{
		Config: config.GetDefaultConfig(),
		Prober: prober,
		Runner: runner,
		Fetch: func(_ *config.Configuration, v platform.Version) (string, error) {
			return `C:\cache\PlatformServer-` + v.String() + `.exe`, nil
		},
		Record: func(string, platform.Version) error { return nil },
	}
}

func TestEnsureInstalledFreshInstall(t *testing.T) {
	runner := &fakeRunner{result: process.Result{ExitCode: 0}}
	orch := newTestOrchestrator(fakeProber{}, runner)

	report, err := orch.EnsureInstalled(platform.MustParseVersion("10.0.823.0"), `D:\Platform`)
	require.NoError(t, err)

	assert.Equal(t, platform.ActionInstall, report.Action)
	assert.Equal(t, "10.0.823.0", report.Version.String())
	assert.Equal(t, `D:\Platform`, report.TargetDir)
	assert.True(t, runner.launched)
	assert.Equal(t, `C:\cache\PlatformServer-10.0.823.0.exe`, runner.exePath)
	assert.Equal(t, []string{"/S", `/D=D:\Platform`}, runner.args)
}

func TestEnsureInstalledUpgradeStaysInPlace(t *testing.T) {
	runner := &fakeRunner{result: process.Result{ExitCode: 0}}
	prober := fakeProber{state: platform.InstallState{
		InstallDir:       `C:\Program Files\Platform Server`,
		InstalledVersion: platform.MustParseVersion("10.0.500.0"),
	}}
	orch := newTestOrchestrator(prober, runner)

	report, err := orch.EnsureInstalled(platform.MustParseVersion("10.0.823.0"), `D:\Requested`)
	require.NoError(t, err)

	assert.Equal(t, platform.ActionUpgrade, report.Action)
	assert.Equal(t, `C:\Program Files\Platform Server`, report.TargetDir)
	assert.Contains(t, runner.args[1], `Program Files\Platform Server`)
}

func TestEnsureInstalledSkipIsNoOp(t *testing.T) {
	runner := &fakeRunner{}
	prober := fakeProber{state: platform.InstallState{
		InstallDir:       `C:\Program Files\Platform Server`,
		InstalledVersion: platform.MustParseVersion("10.0.823.0"),
	}}
	orch := newTestOrchestrator(prober, runner)

	report, err := orch.EnsureInstalled(platform.MustParseVersion("10.0.823.0"), "")
	require.NoError(t, err)

	assert.Equal(t, platform.ActionSkip, report.Action)
	assert.False(t, runner.launched, "skip must not invoke the installer")
}

func TestEnsureInstalledHigherVersionFailsWithoutMutation(t *testing.T) {
	runner := &fakeRunner{}
	prober := fakeProber{state: platform.InstallState{
		InstallDir:       `C:\Program Files\Platform Server`,
		InstalledVersion: platform.MustParseVersion("10.0.823.0"),
	}}
	orch := newTestOrchestrator(prober, runner)

	_, err := orch.EnsureInstalled(platform.MustParseVersion("10.0.500.0"), "")

	assert.ErrorIs(t, err, ErrHigherVersionInstalled)
	assert.False(t, runner.launched, "fail must not invoke the installer")
}

func TestEnsureInstalledNonZeroExitIsFatal(t *testing.T) {
	runner := &fakeRunner{result: process.Result{ExitCode: 1603, Output: "fatal error during installation"}}
	orch := newTestOrchestrator(fakeProber{}, runner)

	_, err := orch.EnsureInstalled(platform.MustParseVersion("10.0.823.0"), `D:\Platform`)

	require.ErrorIs(t, err, ErrInstallerFailed)
	assert.Contains(t, err.Error(), "1603")
	assert.Contains(t, err.Error(), "fatal error during installation")
}

func TestEnsureInstalledProbeErrorSurfaces(t *testing.T) {
	orch := newTestOrchestrator(fakeProber{err: errors.New("registry unreadable")}, &fakeRunner{})

	_, err := orch.EnsureInstalled(platform.MustParseVersion("10.0.823.0"), "")
	assert.ErrorContains(t, err, "registry unreadable")
}

func TestEnsureInstalledFetchErrorSurfaces(t *testing.T) {
	orch := newTestOrchestrator(fakeProber{}, &fakeRunner{})
	orch.Fetch = func(*config.Configuration, platform.Version) (string, error) {
		return "", errors.New("download failed")
	}

	_, err := orch.EnsureInstalled(platform.MustParseVersion("10.0.823.0"), `D:\Platform`)
	assert.ErrorContains(t, err, "download failed")
}

func TestEnsureInstalledRecordFailureDoesNotFailRun(t *testing.T) {
	runner := &fakeRunner{result: process.Result{ExitCode: 0}}
	orch := newTestOrchestrator(fakeProber{}, runner)
	orch.Record = func(string, platform.Version) error {
		return errors.New("registry write denied")
	}

	report, err := orch.EnsureInstalled(platform.MustParseVersion("10.0.823.0"), `D:\Platform`)
	require.NoError(t, err)
	assert.Equal(t, platform.ActionInstall, report.Action)
}
