// pkg/config/config.go - configuration settings for Platform Setup.

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/windows/registry"
	"gopkg.in/yaml.v3"
)

const ConfigPath = `C:\ProgramData\PlatformSetup\Config.yaml`

// CSP OMA-URI registry path for enterprise policy configuration
const CSPRegistryPath = `SOFTWARE\PlatformSetup\Config`

// Configuration holds the configurable options for Platform Setup in YAML format
type Configuration struct {
	ServiceCenterHost string `yaml:"ServiceCenterHost"`
	DesiredVersion    string `yaml:"DesiredVersion"`
	InstallBaseDir    string `yaml:"InstallBaseDir"`
	DownloadBaseURL   string `yaml:"DownloadBaseURL"`
	CachePath         string `yaml:"CachePath"`

	// InstallerSHA256 maps a platform version string to the expected
	// SHA-256 hash of its installer artifact. Versions without an entry
	// are downloaded without verification.
	InstallerSHA256 map[string]string `yaml:"InstallerSHA256"`
	LogLevel          string `yaml:"LogLevel"`
	Debug             bool   `yaml:"Debug"`
	Verbose           bool   `yaml:"Verbose"`
	CheckOnly         bool   `yaml:"CheckOnly"`

	// Configuration tool settings
	ConfigureCacheService bool `yaml:"ConfigureCacheService"`

	// Installer timeout settings
	InstallerTimeoutMinutes int `yaml:"InstallerTimeoutMinutes"`

	// Minimum free space (in GB) required on the target volume before an
	// install or upgrade is attempted.
	MinimumFreeSpaceGB int `yaml:"MinimumFreeSpaceGB"`
}

// LoadConfig loads the configuration from a YAML file.
// If the YAML file doesn't exist, it falls back to CSP OMA-URI registry settings.
func LoadConfig() (*Configuration, error) {
	if _, err := os.Stat(ConfigPath); os.IsNotExist(err) {
		log.Printf("Configuration file does not exist: %s", ConfigPath)
		log.Printf("Attempting to load configuration from CSP OMA-URI registry settings...")

		config, cspErr := LoadConfigFromCSP()
		if cspErr == nil {
			log.Printf("Successfully loaded configuration from CSP OMA-URI registry settings")
			return config, nil
		}

		log.Printf("Failed to load from CSP registry: %v", cspErr)
		return nil, fmt.Errorf("configuration file does not exist and CSP fallback failed: %w", err)
	}

	data, err := os.ReadFile(ConfigPath)
	if err != nil {
		log.Printf("Failed to read configuration file: %v", err)
		return nil, err
	}

	var config Configuration
	if err := yaml.Unmarshal(data, &config); err != nil {
		log.Printf("Failed to parse configuration file: %v", err)
		return nil, err
	}

	applyDefaults(&config)

	if err := os.MkdirAll(config.CachePath, 0755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %v", config.CachePath, err)
	}

	return &config, nil
}

// SaveConfig saves the current configuration to a YAML file.
func SaveConfig(config *Configuration) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		log.Printf("Failed to serialize configuration: %v", err)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(ConfigPath), 0755); err != nil {
		log.Printf("Failed to create configuration directory: %v", err)
		return err
	}

	if err := os.WriteFile(ConfigPath, data, 0644); err != nil {
		log.Printf("Failed to write configuration file: %v", err)
		return err
	}

	return nil
}

// GetDefaultConfig provides default configuration values in YAML format.
func GetDefaultConfig() *Configuration {
	// Use ProgramW6432 environment variable to force 64-bit Program Files path
	programFiles := os.Getenv("ProgramW6432")
	if programFiles == "" {
		programFiles = `C:\Program Files`
	}
	return &Configuration{
		ServiceCenterHost:       "localhost",
		InstallBaseDir:          filepath.Join(programFiles, "Platform Server"),
		CachePath:               `C:\ProgramData\PlatformSetup\Cache`,
		LogLevel:                "INFO",
		Debug:                   false,
		Verbose:                 false,
		CheckOnly:               false,
		ConfigureCacheService:   false,
		InstallerTimeoutMinutes: 30,
		MinimumFreeSpaceGB:      10,
	}
}

func applyDefaults(config *Configuration) {
	defaults := GetDefaultConfig()
	if config.ServiceCenterHost == "" {
		config.ServiceCenterHost = defaults.ServiceCenterHost
	}
	if config.InstallBaseDir == "" {
		config.InstallBaseDir = defaults.InstallBaseDir
	}
	if config.CachePath == "" {
		config.CachePath = defaults.CachePath
	}
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.InstallerTimeoutMinutes == 0 {
		config.InstallerTimeoutMinutes = defaults.InstallerTimeoutMinutes
	}
	if config.MinimumFreeSpaceGB == 0 {
		config.MinimumFreeSpaceGB = defaults.MinimumFreeSpaceGB
	}
}

// LoadConfigFromCSP loads configuration from Windows CSP OMA-URI registry settings.
// This serves as a fallback when the Config.yaml file doesn't exist.
func LoadConfigFromCSP() (*Configuration, error) {
	config := GetDefaultConfig()

	if err := loadCSPFromRegistryPath(CSPRegistryPath, config); err != nil {
		return nil, fmt.Errorf("failed to load from CSP registry path: %v", err)
	}

	log.Printf("Loaded CSP configuration from registry path: %s", CSPRegistryPath)

	if config.DesiredVersion == "" {
		return nil, fmt.Errorf("essential CSP configuration missing: DesiredVersion not set")
	}

	if err := os.MkdirAll(config.CachePath, 0755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %v", config.CachePath, err)
	}

	return config, nil
}

// loadCSPFromRegistryPath loads configuration values from a specific registry path.
func loadCSPFromRegistryPath(registryPath string, config *Configuration) error {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, registryPath, registry.READ)
	if err != nil {
		return fmt.Errorf("failed to open CSP registry key %s: %v", registryPath, err)
	}
	defer key.Close()

	loadStringFromRegistry(key, "ServiceCenterHost", &config.ServiceCenterHost)
	loadStringFromRegistry(key, "DesiredVersion", &config.DesiredVersion)
	loadStringFromRegistry(key, "InstallBaseDir", &config.InstallBaseDir)
	loadStringFromRegistry(key, "DownloadBaseURL", &config.DownloadBaseURL)
	loadStringFromRegistry(key, "CachePath", &config.CachePath)
	loadStringFromRegistry(key, "LogLevel", &config.LogLevel)

	loadIntFromRegistry(key, "InstallerTimeoutMinutes", &config.InstallerTimeoutMinutes)
	loadIntFromRegistry(key, "MinimumFreeSpaceGB", &config.MinimumFreeSpaceGB)

	loadBoolFromRegistry(key, "Debug", &config.Debug)
	loadBoolFromRegistry(key, "Verbose", &config.Verbose)
	loadBoolFromRegistry(key, "CheckOnly", &config.CheckOnly)
	loadBoolFromRegistry(key, "ConfigureCacheService", &config.ConfigureCacheService)

	return nil
}

// loadStringFromRegistry loads a string value from registry if it exists.
func loadStringFromRegistry(key registry.Key, valueName string, target *string) {
	if val, _, err := key.GetStringValue(valueName); err == nil && val != "" {
		*target = val
		log.Printf("CSP: Loaded %s = %s", valueName, val)
	}
}

// loadBoolFromRegistry loads a boolean value from registry if it exists.
// Accepts various formats: "true"/"false", "1"/"0", DWORD 1/0
func loadBoolFromRegistry(key registry.Key, valueName string, target *bool) {
	if val, _, err := key.GetStringValue(valueName); err == nil {
		if parsed, parseErr := strconv.ParseBool(val); parseErr == nil {
			*target = parsed
			log.Printf("CSP: Loaded %s = %t", valueName, parsed)
			return
		}
	}

	if val, _, err := key.GetIntegerValue(valueName); err == nil {
		*target = val != 0
		log.Printf("CSP: Loaded %s = %t", valueName, val != 0)
	}
}

// loadIntFromRegistry loads an integer value from registry if it exists.
func loadIntFromRegistry(key registry.Key, valueName string, target *int) {
	if val, _, err := key.GetStringValue(valueName); err == nil {
		if parsed, parseErr := strconv.Atoi(val); parseErr == nil {
			*target = parsed
			log.Printf("CSP: Loaded %s = %d", valueName, parsed)
			return
		}
	}

	if val, _, err := key.GetIntegerValue(valueName); err == nil {
		*target = int(val)
		log.Printf("CSP: Loaded %s = %d", valueName, int(val))
	}
}
