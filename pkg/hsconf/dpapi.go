// pkg/hsconf/dpapi.go - DPAPI-backed setting value encryption.
//
// The default editor runs without encryption; this encrypter is opt-in for
// environments whose platform version supports encrypted settings.

package hsconf

import (
	"encoding/base64"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Machine-scope protection so any service account on the host can decrypt.
const cryptProtectLocalMachine = 0x4

// DPAPIEncrypter encrypts setting values with the Windows Data Protection
// API, machine scope, and encodes the ciphertext as base64 for storage in
// the XML document.
type DPAPIEncrypter struct{}

// Encrypt implements Encrypter.
func (DPAPIEncrypter) Encrypt(plaintext string) (string, error) {
	data := []byte(plaintext)
	in := windows.DataBlob{
		Size: uint32(len(data)),
	}
	if len(data) > 0 {
		in.Data = &data[0]
	}

	var out windows.DataBlob
	err := windows.CryptProtectData(&in, nil, nil, 0, nil,
		windows.CRYPTPROTECT_UI_FORBIDDEN|cryptProtectLocalMachine, &out)
	if err != nil {
		return "", fmt.Errorf("CryptProtectData: %v", err)
	}
	defer windows.LocalFree(windows.Handle(unsafe.Pointer(out.Data)))

	cipher := unsafe.Slice(out.Data, out.Size)
	return base64.StdEncoding.EncodeToString(cipher), nil
}
