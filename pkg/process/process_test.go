package process

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cmdExe(t *testing.T) string {
	t.Helper()
	winDir := os.Getenv("WINDIR")
	if winDir == "" {
		t.Skip("WINDIR not set")
	}
	return filepath.Join(winDir, "system32", "cmd.exe")
}

func TestRunCapturesOutputAndZeroExit(t *testing.T) {
	var r Runner
	result, err := r.Run(cmdExe(t), []string{"/c", "echo hello"}, "")
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Contains(t, result.Output, "hello")
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	var r Runner
	result, err := r.Run(cmdExe(t), []string{"/c", "exit 3"}, "")
	require.NoError(t, err)

	assert.False(t, result.Succeeded())
	assert.Equal(t, 3, result.ExitCode)
}

func TestRunMissingExecutableIsLaunchError(t *testing.T) {
	var r Runner
	_, err := r.Run(`C:\does\not\exist\tool.exe`, nil, "")
	assert.ErrorIs(t, err, ErrLaunch)
}

func TestRunHonorsWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	var r Runner
	result, err := r.Run(cmdExe(t), []string{"/c", "cd"}, dir)
	require.NoError(t, err)
	assert.Contains(t, result.Output, filepath.Base(dir))
}

func TestHideConsoleWindowAlwaysSet(t *testing.T) {
	cmd := exec.Command(cmdExe(t))
	hideConsoleWindow(cmd)

	require.NotNil(t, cmd.SysProcAttr)
	assert.True(t, cmd.SysProcAttr.HideWindow)
}

func TestRunMirrorsOutputToWriter(t *testing.T) {
	var mirror bytes.Buffer
	r := Runner{Output: &mirror}

	result, err := r.Run(cmdExe(t), []string{"/c", "echo mirrored"}, "")
	require.NoError(t, err)

	assert.Contains(t, result.Output, "mirrored")
	assert.Contains(t, mirror.String(), "mirrored")
}
