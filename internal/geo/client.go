package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Wikid82/gatekeeper/internal/logger"
	"github.com/Wikid82/gatekeeper/internal/metrics"
	"github.com/Wikid82/gatekeeper/internal/version"
)

// DefaultTimeout bounds a single lookup, including reading the body.
const DefaultTimeout = 3 * time.Second

// Lookup results recorded in metrics.
const (
	ResultFound   = "found"
	ResultUnknown = "unknown"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Client resolves the ISO country code of an IP address through an
// ip-api.com compatible endpoint. It keeps no state between lookups.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

type lookupResponse struct {
	CountryCode string `json:"countryCode"`
}

func NewClient(baseURL string) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		http: &http.Client{
			Timeout: DefaultTimeout,
			Transport: otelhttp.NewTransport(transport,
				otelhttp.WithPropagators(propagation.TraceContext{}),
			),
		},
	}
}

// SetTimeout overrides the lookup deadline. Used by tests.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
	c.http.Timeout = d
}

// isLocal reports addresses that never leave the host and are not worth a lookup.
func isLocal(ip string) bool {
	return ip == "127.0.0.1" || ip == "::1" || ip == "localhost" || strings.HasPrefix(ip, "::ffff:127")
}

// LookupCountry returns the country code for ip. Every failure (local
// address, timeout, transport error, non-2xx, bad body, no code) yields
// ok == false and is logged; the caller never sees an error.
func (c *Client) LookupCountry(ctx context.Context, ip string) (string, bool) {
	if isLocal(ip) {
		metrics.IncGeoLookup(ResultSkipped)
		return "", false
	}

	code, err := c.lookup(ctx, ip)
	if err != nil {
		metrics.IncGeoLookup(ResultError)
		logger.Source("geo").WithError(err).WithField("ip", ip).Warn("Geolocation lookup failed")
		return "", false
	}
	if code == "" {
		metrics.IncGeoLookup(ResultUnknown)
		logger.Source("geo").WithField("ip", ip).Debug("Geolocation returned no country code")
		return "", false
	}

	metrics.IncGeoLookup(ResultFound)
	return code, true
}

func (c *Client) lookup(ctx context.Context, ip string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/%s?fields=countryCode", c.baseURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("geolocation API returned status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode geolocation response: %w", err)
	}
	return body.CountryCode, nil
}
