// pkg/preflight/preflight.go - environment checks run before any mutating
// operation.

package preflight

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	gopsprocess "github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/windows"

	"github.com/windowsadmins/platformsetup/pkg/config"
	"github.com/windowsadmins/platformsetup/pkg/logging"
)

// Installer processes that must not be running concurrently with ours.
var competingInstallers = []string{"msiexec.exe", "platformserver-setup.exe"}

// CheckAdmin verifies whether the current process has administrative privileges.
func CheckAdmin() (bool, error) {
	var adminSid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&adminSid)
	if err != nil {
		return false, err
	}
	defer windows.FreeSid(adminSid)
	token := windows.Token(0)
	isMember, err := token.IsMember(adminSid)
	return isMember, err
}

// CheckFreeSpace verifies the target volume has at least the configured
// minimum free space for an install or upgrade.
func CheckFreeSpace(targetDir string, minimumGB int) error {
	volume := filepath.VolumeName(targetDir)
	if volume == "" {
		volume = `C:`
	}

	usage, err := disk.Usage(volume + `\`)
	if err != nil {
		return fmt.Errorf("unable to check free space on %s: %v", volume, err)
	}

	required := uint64(minimumGB) * 1024 * 1024 * 1024
	if usage.Free < required {
		return fmt.Errorf("insufficient free space on %s: have %d GB, need %d GB",
			volume, usage.Free/(1024*1024*1024), minimumGB)
	}

	logging.Debug("Free space check passed",
		"volume", volume,
		"free_gb", usage.Free/(1024*1024*1024),
	)
	return nil
}

// CompetingInstallerRunning reports whether another installer process is
// active. Running two installers concurrently corrupts MSI state.
func CompetingInstallerRunning() (string, bool) {
	processes, err := gopsprocess.Processes()
	if err != nil {
		logging.Warn("Failed to get process list", "error", err)
		return "", false
	}

	for _, proc := range processes {
		name, err := proc.Name()
		if err != nil {
			continue
		}
		for _, blocked := range competingInstallers {
			if strings.EqualFold(name, blocked) {
				return name, true
			}
		}
	}
	return "", false
}

// Run performs all preflight checks for a mutating operation against
// targetDir. The first failing check aborts.
func Run(cfg *config.Configuration, targetDir string) error {
	isAdmin, err := CheckAdmin()
	if err != nil {
		return fmt.Errorf("unable to verify administrator privileges: %v", err)
	}
	if !isAdmin {
		return fmt.Errorf("administrator privileges are required")
	}

	if err := CheckFreeSpace(targetDir, cfg.MinimumFreeSpaceGB); err != nil {
		return err
	}

	if name, running := CompetingInstallerRunning(); running {
		return fmt.Errorf("another installer is running: %s", name)
	}

	logging.Info("Preflight checks passed", "target_dir", targetDir)
	return nil
}
