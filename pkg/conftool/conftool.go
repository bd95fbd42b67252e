// pkg/conftool/conftool.go - argument assembly and invocation for the
// platform's external configuration tool.
//
// The tool consumes positional credential pairs whose order is a hard
// contract; the sequence differs between platform generations and must never
// be reordered.

package conftool

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/awnumar/memguard"

	"github.com/windowsadmins/platformsetup/pkg/logging"
	"github.com/windowsadmins/platformsetup/pkg/platform"
	"github.com/windowsadmins/platformsetup/pkg/process"
)

// ToolFileName is the configuration tool executable, found in the platform
// install directory.
const ToolFileName = "ConfigurationTool.exe"

const (
	flagSetupInstall   = "/setupinstall"
	flagRebuildSession = "/rebuildsession"
	flagCacheService   = "/createupgradecacheinvalidationservice"
)

var (
	// ErrUnsupportedVersion is returned for platform generations the
	// argument contract is not known for.
	ErrUnsupportedVersion = errors.New("unsupported platform major version")

	// ErrToolFailed carries a non-zero configuration tool exit.
	ErrToolFailed = errors.New("configuration tool reported failure")
)

// Credential is a username plus a password held in a sealed enclave. The
// plaintext password exists only inside BuildArgs, for the lifetime of the
// argument slice assembly.
type Credential struct {
	Username string
	password *memguard.Enclave
}

// NewCredential seals password into the credential's enclave. The caller's
// copy of the password should not be retained.
func NewCredential(username, password string) *Credential {
	return &Credential{
		Username: username,
		password: memguard.NewEnclave([]byte(password)),
	}
}

// open returns the username and plaintext password. The returned LockedBuffer
// must be destroyed by the caller once the password has been copied out.
func (c *Credential) open() (string, *memguard.LockedBuffer, error) {
	if c == nil || c.password == nil {
		return "", nil, nil
	}
	buf, err := c.password.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open credential enclave: %w", err)
	}
	return c.Username, buf, nil
}

// BuildArgs assembles the configuration tool's argument vector for the given
// platform generation. Token order:
//
//	/setupinstall <platform user> <platform pass>     (blank pair when nil)
//	<log user> <log pass>                             (11.0 only; blank pair when nil)
//	/rebuildsession
//	<session user> <session pass>                     (blank pair when nil)
//	/createupgradecacheinvalidationservice            (11.0 only, when requested)
func BuildArgs(major platform.MajorVersion, platformCred, logCred, sessionCred *Credential, configureCacheService bool) ([]string, error) {
	if major != platform.Major10 && major != platform.Major11 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, major)
	}

	args := []string{flagSetupInstall}
	var err error
	if args, err = appendCredentialPair(args, platformCred); err != nil {
		return nil, err
	}

	if major == platform.Major11 {
		if args, err = appendCredentialPair(args, logCred); err != nil {
			return nil, err
		}
	}

	args = append(args, flagRebuildSession)
	if args, err = appendCredentialPair(args, sessionCred); err != nil {
		return nil, err
	}

	if major == platform.Major11 && configureCacheService {
		args = append(args, flagCacheService)
	}

	return args, nil
}

// appendCredentialPair appends "user pass", or a blank pair for a nil
// credential; the tool relies on positional slots being present either way.
func appendCredentialPair(args []string, cred *Credential) ([]string, error) {
	user, buf, err := cred.open()
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return append(args, "", ""), nil
	}
	defer buf.Destroy()
	return append(args, user, string(buf.Bytes())), nil
}

// Apply runs the configuration tool from installDir with the assembled
// arguments. Exit code zero is success; anything else is an ErrToolFailed
// carrying the tool's captured output.
func Apply(runner *process.Runner, installDir string, major platform.MajorVersion,
	platformCred, logCred, sessionCred *Credential, configureCacheService bool) error {

	args, err := BuildArgs(major, platformCred, logCred, sessionCred, configureCacheService)
	if err != nil {
		return err
	}

	toolPath := filepath.Join(installDir, ToolFileName)
	logging.Info("Running configuration tool",
		"tool", toolPath,
		"major_version", major,
		"cache_service", configureCacheService,
	)

	result, err := runner.Run(toolPath, args, installDir)
	if err != nil {
		return fmt.Errorf("failed to launch configuration tool: %w", err)
	}
	if !result.Succeeded() {
		logging.Error("Configuration tool failed",
			"exit_code", result.ExitCode,
			"output", result.Output,
		)
		return fmt.Errorf("%w: exit code %d: %s", ErrToolFailed, result.ExitCode, result.Output)
	}

	logging.Info("Configuration tool completed successfully")
	return nil
}
