package calllog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPSource queries the device-local telephony bridge, which exposes
// the platform call log over HTTP.
type HTTPSource struct {
	client *resty.Client
}

// NewHTTPSource builds a source against the bridge base URL.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "CallPulse/1.0")
	return &HTTPSource{client: client}
}

func (s *HTTPSource) Latest(ctx context.Context) (*Entry, error) {
	var entries []Entry
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("limit", "1").
		SetResult(&entries).
		Get("/calls/latest")
	if err != nil {
		return nil, fmt.Errorf("call log latest: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("call log latest: HTTP %d", resp.StatusCode())
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (s *HTTPSource) QueryRange(ctx context.Context, from, to int64) ([]Entry, error) {
	var entries []Entry
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"from": strconv.FormatInt(from, 10),
			"to":   strconv.FormatInt(to, 10),
		}).
		SetResult(&entries).
		Get("/calls")
	if err != nil {
		return nil, fmt.Errorf("call log range: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("call log range: HTTP %d", resp.StatusCode())
	}
	return entries, nil
}
