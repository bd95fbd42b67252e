package status

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serviceCenterStub(t *testing.T, body string, code int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ServiceCenter/api/version" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(code)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestRemoteVersion(t *testing.T) {
	host := serviceCenterStub(t, "11.0.123.0", http.StatusOK)

	ver, err := Probe{}.RemoteVersion(context.Background(), host)
	require.NoError(t, err)
	assert.Equal(t, "11.0.123.0", ver.String())
}

func TestRemoteVersionTrimsQuotedBody(t *testing.T) {
	// Some console builds return the version as a JSON string literal.
	host := serviceCenterStub(t, "\"10.0.823.0\"\n", http.StatusOK)

	ver, err := Probe{}.RemoteVersion(context.Background(), host)
	require.NoError(t, err)
	assert.Equal(t, "10.0.823.0", ver.String())
}

func TestRemoteVersionUnparseableBody(t *testing.T) {
	host := serviceCenterStub(t, "<html>sign in</html>", http.StatusOK)

	_, err := Probe{}.RemoteVersion(context.Background(), host)
	assert.ErrorIs(t, err, ErrRemoteQuery)
}

func TestRemoteVersionServerError(t *testing.T) {
	host := serviceCenterStub(t, "boom", http.StatusInternalServerError)

	_, err := Probe{}.RemoteVersion(context.Background(), host)
	assert.ErrorIs(t, err, ErrRemoteQuery)
}

func TestRemoteVersionNoHost(t *testing.T) {
	_, err := Probe{}.RemoteVersion(context.Background(), "")
	assert.ErrorIs(t, err, ErrRemoteQuery)
}
