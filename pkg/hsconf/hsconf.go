// pkg/hsconf/hsconf.go - editor for the platform server's configuration
// document (server.hsconf).
//
// The document is a two-level XML tree: a root element containing named
// section elements, each containing named setting elements with literal text
// values and an optional encrypted="true" attribute. Writes replace settings
// wholesale so no stale attributes survive a previous write.

package hsconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/beevik/etree"

	"github.com/windowsadmins/platformsetup/pkg/logging"
)

// DefaultFileName is where the platform server keeps its configuration
// document, relative to the install directory.
const DefaultFileName = "server.hsconf"

const rootElementName = "EnvironmentConfiguration"

var (
	// ErrInvalidIdentifier rejects section or setting names outside the
	// alphabetic identifier pattern before the document is touched.
	ErrInvalidIdentifier = errors.New("invalid section or setting name")

	// ErrEncryption reports a failed secure-value encryption; the document
	// on disk is left untouched.
	ErrEncryption = errors.New("setting value encryption failed")

	// ErrPersistence reports a failed save. Writes are in place, so the
	// on-disk state after this error is indeterminate.
	ErrPersistence = errors.New("failed to persist configuration document")

	// ErrDocument reports an unreadable or malformed document.
	ErrDocument = errors.New("configuration document is unreadable")
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z]+$`)

// Encrypter converts a plaintext setting value to its stored ciphertext.
// Encryption is performed by the platform's own secret store; the editor only
// calls out to it when a setting is marked encrypted.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// Document is a loaded configuration document. It is owned exclusively for
// the duration of a load-mutate-save cycle; there is no concurrent holder.
type Document struct {
	path      string
	doc       *etree.Document
	encrypter Encrypter
}

// DocumentPath returns the well-known configuration document location for an
// install directory.
func DocumentPath(installDir string) string {
	return filepath.Join(installDir, DefaultFileName)
}

// Load reads the document at path. A missing file yields a new empty
// document that Save will create.
func Load(path string, encrypter Encrypter) (*Document, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		logging.Debug("Configuration document does not exist yet, starting empty", "path", path)
		doc.CreateElement(rootElementName)
	case err != nil:
		return nil, fmt.Errorf("%w: %s: %v", ErrDocument, path, err)
	default:
		doc = etree.NewDocument()
		if err := doc.ReadFromBytes(data); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDocument, path, err)
		}
		if doc.Root() == nil {
			return nil, fmt.Errorf("%w: %s: missing root element", ErrDocument, path)
		}
	}

	return &Document{path: path, doc: doc, encrypter: encrypter}, nil
}

// ApplySetting writes value under section/setting, creating the section when
// absent and replacing any existing setting node entirely. Applying the same
// arguments twice leaves the document byte-identical to applying them once.
func (d *Document) ApplySetting(section, setting, value string, encrypted bool) error {
	if !identifierPattern.MatchString(section) {
		return fmt.Errorf("%w: section %q", ErrInvalidIdentifier, section)
	}
	if !identifierPattern.MatchString(setting) {
		return fmt.Errorf("%w: setting %q", ErrInvalidIdentifier, setting)
	}

	stored := value
	if encrypted {
		if d.encrypter == nil {
			return fmt.Errorf("%w: no encrypter configured", ErrEncryption)
		}
		ciphertext, err := d.encrypter.Encrypt(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEncryption, err)
		}
		stored = ciphertext
	}

	root := d.doc.Root()

	sectionEl := root.SelectElement(section)
	if sectionEl == nil {
		sectionEl = root.CreateElement(section)
		logging.Debug("Created configuration section", "section", section)
	}

	// Remove and recreate so attributes from a prior write cannot survive.
	if existing := sectionEl.SelectElement(setting); existing != nil {
		sectionEl.RemoveChild(existing)
	}

	settingEl := sectionEl.CreateElement(setting)
	if encrypted {
		settingEl.CreateAttr("encrypted", "true")
	}
	settingEl.SetText(stored)

	logging.Info("Applied configuration setting",
		"section", section,
		"setting", setting,
		"encrypted", encrypted,
	)
	return nil
}

// Setting returns the stored text value of section/setting and whether it
// exists.
func (d *Document) Setting(section, setting string) (string, bool) {
	root := d.doc.Root()
	sectionEl := root.SelectElement(section)
	if sectionEl == nil {
		return "", false
	}
	settingEl := sectionEl.SelectElement(setting)
	if settingEl == nil {
		return "", false
	}
	return settingEl.Text(), true
}

// Save writes the document back to its source path in place. Note there is
// no temp-file-and-rename step: a write interrupted by disk exhaustion or
// process kill leaves the on-disk state indeterminate.
func (d *Document) Save() error {
	if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	d.doc.Indent(2)
	if err := d.doc.WriteToFile(d.path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPersistence, d.path, err)
	}

	logging.Debug("Persisted configuration document", "path", d.path)
	return nil
}

// Bytes serializes the current in-memory document. Used by tests and for
// diagnostic output.
func (d *Document) Bytes() ([]byte, error) {
	d.doc.Indent(2)
	return d.doc.WriteToBytes()
}
