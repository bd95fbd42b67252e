// cmd/platformsetup/main.go

package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/windowsadmins/platformsetup/pkg/config"
	"github.com/windowsadmins/platformsetup/pkg/conftool"
	"github.com/windowsadmins/platformsetup/pkg/hsconf"
	"github.com/windowsadmins/platformsetup/pkg/installer"
	"github.com/windowsadmins/platformsetup/pkg/logging"
	"github.com/windowsadmins/platformsetup/pkg/platform"
	"github.com/windowsadmins/platformsetup/pkg/preflight"
	"github.com/windowsadmins/platformsetup/pkg/process"
	"github.com/windowsadmins/platformsetup/pkg/status"
	"github.com/windowsadmins/platformsetup/pkg/version"
)

var logger *logging.Logger

func main() {
	// Define command-line flags.
	install := pflag.Bool("install", false, "Install or upgrade the platform server to the desired version.")
	configure := pflag.Bool("configure", false, "Run the configuration tool against the current installation.")
	setSetting := pflag.String("set-setting", "", "Apply a configuration setting as Section/Setting=Value and exit.")
	encryptSetting := pflag.Bool("encrypted", false, "Mark the setting applied with --set-setting as encrypted.")
	desiredVersion := pflag.String("desired-version", "", "Platform version to install (overrides configuration).")
	installDir := pflag.String("install-dir", "", "Target directory for a fresh install (ignored on upgrade).")
	checkOnly := pflag.Bool("check-only", false, "Report the decision without mutating anything.")
	showConfig := pflag.Bool("show-config", false, "Display the current configuration and exit.")
	showStatus := pflag.Bool("status", false, "Show local and remote platform versions and exit.")
	versionFlag := pflag.Bool("version", false, "Print the version and exit.")

	var verbosity int
	pflag.CountVarP(&verbosity, "verbose", "v", "Increase verbosity (e.g. -v, -vv, -vvv)")
	pflag.Parse()

	// Load configuration (only once)
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	cfg.LogLevel = effectiveLogLevel(cfg, verbosity)
	logger = logging.New(verbosity > 0 || cfg.Verbose || cfg.Debug)
	if err := logging.Init(cfg); err != nil {
		logger.Fatal("Error initializing logger: %v", err)
	}
	defer logging.CloseLogger()

	if *versionFlag {
		version.Print()
		os.Exit(0)
	}

	if *showConfig {
		printConfig(cfg)
		os.Exit(0)
	}

	if *showStatus {
		runStatus(cfg)
		os.Exit(0)
	}

	if *setSetting != "" {
		if err := runSetSetting(cfg, *setSetting, *encryptSetting); err != nil {
			logger.Fatal("Failed to apply setting: %v", err)
		}
		logger.Success("Setting applied.")
		os.Exit(0)
	}

	if !*install && !*configure {
		pflag.Usage()
		os.Exit(2)
	}

	if *install {
		if err := runInstall(cfg, *desiredVersion, *installDir, *checkOnly); err != nil {
			logger.Fatal("%v", err)
		}
	}

	if *configure {
		if err := runConfigure(cfg); err != nil {
			logger.Fatal("%v", err)
		}
	}
}

// effectiveLogLevel resolves the log level from the configuration's Debug and
// Verbose switches and the number of -v flags. Command-line verbosity and the
// configured switches both escalate; neither can lower the other.
func effectiveLogLevel(cfg *config.Configuration, verbosity int) string {
	switch {
	case verbosity >= 2 || cfg.Debug:
		return "DEBUG"
	case verbosity == 1 || cfg.Verbose:
		return "INFO"
	default:
		return cfg.LogLevel
	}
}

// printConfig dumps the effective configuration.
func printConfig(cfg *config.Configuration) {
	fmt.Printf("ServiceCenterHost:       %s\n", cfg.ServiceCenterHost)
	fmt.Printf("DesiredVersion:          %s\n", cfg.DesiredVersion)
	fmt.Printf("InstallBaseDir:          %s\n", cfg.InstallBaseDir)
	fmt.Printf("DownloadBaseURL:         %s\n", cfg.DownloadBaseURL)
	fmt.Printf("CachePath:               %s\n", cfg.CachePath)
	fmt.Printf("LogLevel:                %s\n", cfg.LogLevel)
	fmt.Printf("ConfigureCacheService:   %t\n", cfg.ConfigureCacheService)
	fmt.Printf("InstallerTimeoutMinutes: %d\n", cfg.InstallerTimeoutMinutes)
	fmt.Printf("MinimumFreeSpaceGB:      %d\n", cfg.MinimumFreeSpaceGB)
}

// runStatus reports the local install state and the Service Center version.
func runStatus(cfg *config.Configuration) {
	probe := status.Probe{}

	local, err := probe.LocalState()
	if err != nil {
		logger.Error("Local state probe failed: %v", err)
	} else if local.Installed() {
		logger.Info("Installed: %s in %s", local.InstalledVersion, local.InstallDir)
	} else {
		logger.Info("Platform server is not installed.")
	}

	remote, err := probe.RemoteVersion(context.Background(), cfg.ServiceCenterHost)
	if err != nil {
		logger.Warning("Service Center query failed: %v", err)
		return
	}
	logger.Info("Service Center reports: %s", remote)
}

// runInstall drives the install/upgrade state machine.
func runInstall(cfg *config.Configuration, versionOverride, installDir string, checkOnly bool) error {
	versionText := versionOverride
	if versionText == "" {
		versionText = cfg.DesiredVersion
	}
	if versionText == "" {
		return fmt.Errorf("no desired version: set --desired-version or DesiredVersion in %s", config.ConfigPath)
	}

	desired, err := platform.ParseVersion(versionText)
	if err != nil {
		return fmt.Errorf("desired version: %w", err)
	}

	targetDir := installDir
	if targetDir == "" {
		targetDir = cfg.InstallBaseDir
	}

	orch := installer.New(cfg)

	if checkOnly || cfg.CheckOnly {
		current, err := orch.Prober.LocalState()
		if err != nil {
			return err
		}
		decision := platform.Decide(current, desired, targetDir)
		logger.Info("Check-only: %s", decision.Reason)
		return nil
	}

	if err := preflight.Run(cfg, targetDir); err != nil {
		return fmt.Errorf("preflight: %w", err)
	}

	report, err := orch.EnsureInstalled(desired, targetDir)
	if err != nil {
		return err
	}

	switch report.Action {
	case platform.ActionSkip:
		logger.Success("Platform server %s already installed; nothing to do.", report.Version)
	case platform.ActionUpgrade:
		logger.Success("Platform server upgraded to %s in %s.", report.Version, report.TargetDir)
	default:
		logger.Success("Platform server %s installed into %s.", report.Version, report.TargetDir)
	}
	return nil
}

// runConfigure applies persisted settings through the configuration tool.
func runConfigure(cfg *config.Configuration) error {
	probe := status.Probe{}
	local, err := probe.LocalState()
	if err != nil {
		return err
	}
	if !local.Installed() {
		return fmt.Errorf("platform server is not installed; nothing to configure")
	}

	major := local.InstalledVersion.Major()
	if major == platform.MajorUnknown {
		return fmt.Errorf("installed version %s is not a supported generation", local.InstalledVersion)
	}

	if err := preflight.Run(cfg, local.InstallDir); err != nil {
		return fmt.Errorf("preflight: %w", err)
	}

	platformCred, err := promptCredential("platform database")
	if err != nil {
		return err
	}
	var logCred *conftool.Credential
	if major == platform.Major11 {
		logCred, err = promptCredential("log database")
		if err != nil {
			return err
		}
	}
	sessionCred, err := promptCredential("session database")
	if err != nil {
		return err
	}

	runner := &process.Runner{Output: os.Stdout}
	return conftool.Apply(runner, local.InstallDir, major,
		platformCred, logCred, sessionCred, cfg.ConfigureCacheService)
}

// runSetSetting applies one Section/Setting=Value expression to the
// configuration document of the current installation.
func runSetSetting(cfg *config.Configuration, expr string, encrypted bool) error {
	section, setting, value, err := parseSettingExpr(expr)
	if err != nil {
		return err
	}

	probe := status.Probe{}
	local, err := probe.LocalState()
	if err != nil {
		return err
	}
	if !local.Installed() {
		return fmt.Errorf("platform server is not installed")
	}

	var encrypter hsconf.Encrypter
	if encrypted {
		encrypter = hsconf.DPAPIEncrypter{}
	}

	doc, err := hsconf.Load(hsconf.DocumentPath(local.InstallDir), encrypter)
	if err != nil {
		return err
	}
	if err := doc.ApplySetting(section, setting, value, encrypted); err != nil {
		return err
	}
	return doc.Save()
}

// parseSettingExpr splits "Section/Setting=Value".
func parseSettingExpr(expr string) (section, setting, value string, err error) {
	eq := -1
	slash := -1
	for i, r := range expr {
		if r == '/' && slash == -1 {
			slash = i
		}
		if r == '=' {
			eq = i
			break
		}
	}
	if slash <= 0 || eq <= slash+1 {
		return "", "", "", fmt.Errorf("expected Section/Setting=Value, got %q", expr)
	}
	return expr[:slash], expr[slash+1 : eq], expr[eq+1:], nil
}

// promptCredential reads a username and password pair from the terminal.
// An empty username skips the slot (the tool receives a blank pair).
func promptCredential(label string) (*conftool.Credential, error) {
	fmt.Printf("%s username (empty to skip): ", label)
	var user string
	fmt.Scanln(&user)
	if user == "" {
		return nil, nil
	}

	fmt.Printf("%s password: ", label)
	pass, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("reading %s password: %v", label, err)
	}
	return conftool.NewCredential(user, string(pass)), nil
}
