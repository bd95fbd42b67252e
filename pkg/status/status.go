// pkg/status/status.go - local installed-state detection for the platform server.

package status

import (
	"fmt"
	"strings"

	"github.com/yusufpapurcu/wmi"
	"golang.org/x/sys/windows/registry"

	"github.com/windowsadmins/platformsetup/pkg/logging"
	"github.com/windowsadmins/platformsetup/pkg/platform"
)

// Registry key the platform server's installer maintains. Setup also records
// its own results here after a successful install or upgrade.
const SetupRegistryPath = `SOFTWARE\PlatformServer\Setup`

const productDisplayName = "Platform Server"

// Win32_Product row used for the WMI fallback probe.
type Win32_Product struct {
	Name            string
	Version         string
	InstallLocation string
}

// Probe answers questions about the local host. Query functions are
// abstracted so orchestration tests can substitute fakes.
type Probe struct{}

// LocalState reads the installed platform server version and directory.
// Nothing found means "not installed" and is a valid result, not an error;
// errors are reserved for registry values that exist but cannot be
// interpreted.
func (Probe) LocalState() (platform.InstallState, error) {
	dir, verStr, ok := readSetupKey()
	if !ok {
		// Installer may predate the setup key; fall back to a WMI
		// product query.
		dir, verStr, ok = queryProductWMI()
	}
	if !ok {
		logging.Debug("No platform server installation found")
		return platform.InstallState{}, nil
	}

	ver, err := platform.ParseVersion(verStr)
	if err != nil {
		return platform.InstallState{}, fmt.Errorf("installed version %q is unreadable: %w", verStr, err)
	}

	logging.Debug("Detected installed platform server",
		"version", ver,
		"install_dir", dir,
	)
	return platform.InstallState{InstallDir: dir, InstalledVersion: ver}, nil
}

// RecordInstall persists the install directory and version under the setup
// key so later runs can read them without probing WMI.
func RecordInstall(installDir string, ver platform.Version) error {
	key, _, err := registry.CreateKey(registry.LOCAL_MACHINE, SetupRegistryPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open setup registry key: %w", err)
	}
	defer key.Close()

	if err := key.SetStringValue("InstallDir", installDir); err != nil {
		return fmt.Errorf("failed to write InstallDir: %w", err)
	}
	if err := key.SetStringValue("Version", ver.String()); err != nil {
		return fmt.Errorf("failed to write Version: %w", err)
	}
	logging.Info("Recorded installation in registry",
		"install_dir", installDir,
		"version", ver,
	)
	return nil
}

// readSetupKey reads InstallDir and Version from the setup registry key.
func readSetupKey() (dir, version string, ok bool) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, SetupRegistryPath, registry.QUERY_VALUE)
	if err != nil {
		logging.Debug("Setup registry key not present", "error", err)
		return "", "", false
	}
	defer k.Close()

	version, _, err = k.GetStringValue("Version")
	if err != nil || version == "" {
		return "", "", false
	}
	dir, _, _ = k.GetStringValue("InstallDir")
	return dir, version, true
}

// queryProductWMI enumerates installed products and looks for the platform
// server by display name.
func queryProductWMI() (dir, version string, ok bool) {
	var products []Win32_Product
	query := wmi.CreateQuery(&products, fmt.Sprintf("WHERE Name LIKE '%%%s%%'", productDisplayName))
	if err := wmi.Query(query, &products); err != nil {
		logging.Warn("WMI product query failed", "error", err)
		return "", "", false
	}

	for _, p := range products {
		if strings.Contains(p.Name, productDisplayName) && p.Version != "" {
			logging.Debug("WMI product match",
				"name", p.Name,
				"version", p.Version,
			)
			return p.InstallLocation, p.Version, true
		}
	}
	return "", "", false
}
