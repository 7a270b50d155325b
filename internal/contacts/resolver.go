// Package contacts resolves phone numbers to display names.
// Resolution is best-effort: lookups never fail the caller, a record
// without a name is better than no record.
package contacts

import (
	"context"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tsblive/callpulse/pkg/logger"
	"go.uber.org/zap"
)

// Resolver maps a phone number to a display name.
type Resolver interface {
	// Lookup returns the display name for number and whether one was
	// found. It never returns an error; failures are treated as absent.
	Lookup(ctx context.Context, number string) (string, bool)
}

var nonDialable = regexp.MustCompile(`[^\d+]`)

// CleanNumber strips formatting characters, keeping digits and a
// leading plus.
func CleanNumber(number string) string {
	return nonDialable.ReplaceAllString(number, "")
}

// HTTPResolver queries the device-local contact directory.
type HTTPResolver struct {
	client *resty.Client
}

func NewHTTPResolver(baseURL string, timeout time.Duration) *HTTPResolver {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "CallPulse/1.0")
	return &HTTPResolver{client: client}
}

func (r *HTTPResolver) Lookup(ctx context.Context, number string) (string, bool) {
	var result struct {
		Name string `json:"name"`
	}
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("number", CleanNumber(number)).
		SetResult(&result).
		Get("/contacts/lookup")
	if err != nil {
		logger.Warn("contact lookup failed", zap.String("number", number), zap.Error(err))
		return "", false
	}
	if resp.IsError() || result.Name == "" {
		return "", false
	}
	return result.Name, true
}
