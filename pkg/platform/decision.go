// pkg/platform/decision.go - install/upgrade decision logic.

package platform

import "fmt"

// InstallState describes what the probe found on the local host. A zero
// InstalledVersion means the platform server is not installed, regardless of
// whether an InstallDir was left behind by an earlier removal.
type InstallState struct {
	InstallDir       string
	InstalledVersion Version
}

// Installed reports whether a platform server version is present.
func (s InstallState) Installed() bool {
	return !s.InstalledVersion.IsZero()
}

// Action is the outcome of comparing installed state against the desired
// version. Exactly four outcomes exist.
type Action int

const (
	ActionInstall Action = iota
	ActionUpgrade
	ActionSkip
	ActionFail
)

func (a Action) String() string {
	switch a {
	case ActionInstall:
		return "install"
	case ActionUpgrade:
		return "upgrade"
	case ActionSkip:
		return "skip"
	case ActionFail:
		return "fail"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Decision carries the chosen action plus the directory any install or
// upgrade must target. Reason is a human-readable explanation suitable for
// operator-facing output.
type Decision struct {
	Action    Action
	TargetDir string
	Reason    string
}

// Decide maps the current install state and the desired version onto one of
// the four actions:
//
//	not installed          => install into requestedDir
//	installed, older       => upgrade in place (requestedDir is ignored;
//	                          upgrades never relocate an installation)
//	installed, newer       => fail, nothing is mutated
//	installed, equal       => skip, reported as a no-op success
func Decide(current InstallState, desired Version, requestedDir string) Decision {
	if !current.Installed() {
		return Decision{
			Action:    ActionInstall,
			TargetDir: requestedDir,
			Reason:    fmt.Sprintf("platform server not installed; installing %s", desired),
		}
	}

	switch current.InstalledVersion.Compare(desired) {
	case -1:
		return Decision{
			Action:    ActionUpgrade,
			TargetDir: current.InstallDir,
			Reason: fmt.Sprintf("upgrading %s to %s in %s",
				current.InstalledVersion, desired, current.InstallDir),
		}
	case 1:
		return Decision{
			Action: ActionFail,
			Reason: fmt.Sprintf("installed version %s is higher than requested %s",
				current.InstalledVersion, desired),
		}
	default:
		return Decision{
			Action:    ActionSkip,
			TargetDir: current.InstallDir,
			Reason:    fmt.Sprintf("version %s already installed", desired),
		}
	}
}
