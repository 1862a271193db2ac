package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kozaktomas/doorlock/internal/constants"
)

// HTTPCamera fetches snapshots from a camera that serves a still image per
// GET request, such as the ESP32-CAM /capture endpoint.
type HTTPCamera struct {
	url        string
	maxWidth   int
	httpClient *http.Client
	now        func() time.Time
}

// NewHTTPCamera creates a snapshot camera.
func NewHTTPCamera(url string, timeout time.Duration, maxWidth int) *HTTPCamera {
	if timeout <= 0 {
		timeout = constants.DefaultCaptureTimeout
	}
	return &HTTPCamera{
		url:        url,
		maxWidth:   maxWidth,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Capture implements Device.
func (c *HTTPCamera) Capture(ctx context.Context) (*Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: snapshot returned status %d", ErrUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading snapshot: %w", ErrUnavailable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty snapshot", ErrUnavailable)
	}

	frame, err := NewFrame(data, c.maxWidth, c.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return frame, nil
}
