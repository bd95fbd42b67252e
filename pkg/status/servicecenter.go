// pkg/status/servicecenter.go - remote platform version query against the
// Service Center console.

package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/windowsadmins/platformsetup/pkg/logging"
	"github.com/windowsadmins/platformsetup/pkg/platform"
	"github.com/windowsadmins/platformsetup/pkg/retry"
)

// ErrRemoteQuery is returned when the Service Center endpoint is unreachable
// or answers with something that is not a version string.
var ErrRemoteQuery = errors.New("service center version query failed")

const (
	serviceCenterTimeout = 10 * time.Second

	// Version endpoint exposed by the Service Center console.
	versionEndpointFormat = "http://%s/ServiceCenter/api/version"
)

// RemoteVersion asks the Service Center on host for the running platform
// version. The failure mode is a wrapped ErrRemoteQuery; callers surface it
// and continue rather than crashing.
func (Probe) RemoteVersion(ctx context.Context, host string) (platform.Version, error) {
	if host == "" {
		return platform.Version{}, fmt.Errorf("%w: no host configured", ErrRemoteQuery)
	}

	url := fmt.Sprintf(versionEndpointFormat, host)
	client := &http.Client{Timeout: serviceCenterTimeout}

	var body string
	configRetry := retry.RetryConfig{MaxRetries: 3, InitialInterval: time.Second, Multiplier: 2.0}
	err := retry.Retry(configRetry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("request to %s failed: %v", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected HTTP status code: %d", resp.StatusCode)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, 256))
		if err != nil {
			return fmt.Errorf("reading response from %s: %v", url, err)
		}
		body = strings.TrimSpace(strings.Trim(strings.TrimSpace(string(data)), `"`))
		return nil
	})
	if err != nil {
		logging.Warn("Service Center unreachable", "host", host, "error", err)
		return platform.Version{}, fmt.Errorf("%w: %v", ErrRemoteQuery, err)
	}

	ver, err := platform.ParseVersion(body)
	if err != nil {
		logging.Warn("Service Center returned an unparseable version",
			"host", host,
			"body", body,
		)
		return platform.Version{}, fmt.Errorf("%w: bad version %q", ErrRemoteQuery, body)
	}

	logging.Info("Service Center reported platform version", "host", host, "version", ver)
	return ver, nil
}
