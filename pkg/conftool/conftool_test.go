package conftool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowsadmins/platformsetup/pkg/platform"
)

func TestBuildArgsV11AllBlankWithCacheService(t *testing.T) {
	args, err := BuildArgs(platform.Major11, nil, nil, nil, true)
	require.NoError(t, err)

	// Three blank credential pairs in fixed order, cache flag last.
	assert.Equal(t, []string{
		"/setupinstall", "", "",
		"", "",
		"/rebuildsession",
		"", "",
		"/createupgradecacheinvalidationservice",
	}, args)
}

func TestBuildArgsV10OmitsLogCredentialSlot(t *testing.T) {
	cred := NewCredential("pfadmin", "pfsecret")

	args, err := BuildArgs(platform.Major10, cred, nil, nil, false)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/setupinstall", "pfadmin", "pfsecret",
		"/rebuildsession",
		"", "",
	}, args)
	// The log credential slot must not exist at all on 10.0.
	assert.Len(t, args, 6)
}

func TestBuildArgsV10NeverAppendsCacheServiceFlag(t *testing.T) {
	args, err := BuildArgs(platform.Major10, nil, nil, nil, true)
	require.NoError(t, err)
	assert.NotContains(t, args, "/createupgradecacheinvalidationservice")
}

func TestBuildArgsV11FullCredentialOrdering(t *testing.T) {
	platformCred := NewCredential("pfuser", "pfpass")
	logCred := NewCredential("loguser", "logpass")
	sessionCred := NewCredential("sessuser", "sesspass")

	args, err := BuildArgs(platform.Major11, platformCred, logCred, sessionCred, true)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/setupinstall", "pfuser", "pfpass",
		"loguser", "logpass",
		"/rebuildsession",
		"sessuser", "sesspass",
		"/createupgradecacheinvalidationservice",
	}, args)
}

func TestBuildArgsRejectsUnknownMajor(t *testing.T) {
	_, err := BuildArgs(platform.MajorUnknown, nil, nil, nil, false)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestCredentialEnclaveReopens(t *testing.T) {
	cred := NewCredential("admin", "hunter2")

	// The password survives multiple argument builds; each build opens and
	// destroys its own plaintext buffer.
	for i := 0; i < 3; i++ {
		args, err := BuildArgs(platform.Major10, cred, nil, nil, false)
		require.NoError(t, err)
		assert.Equal(t, "hunter2", args[2])
	}
}
