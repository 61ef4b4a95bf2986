// Package httpsource looks up administrative boundaries from the remote
// boundary service's GeoJSON export endpoint.
package httpsource

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/udmkit/fishnet/internal/boundary"
)

type Config struct {
	BaseURL  string
	Username string
	Password string
	Year     int
	// CRS is the coordinate reference system the service publishes in.
	CRS string
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *zerolog.Logger
}

var _ boundary.Source = (*Client)(nil)

func New(cfg Config, logger *zerolog.Logger, hc *http.Client) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("httpsource: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("httpsource: parse base URL: %w", err)
	}
	if hc == nil {
		hc = newOutbound()
	}
	return &Client{cfg: cfg, http: hc, logger: logger}, nil
}

func (c *Client) Lookup(ctx context.Context, code string) (boundary.Document, error) {
	q := url.Values{}
	q.Set("lad_codes", code)
	q.Set("export_format", "geojson")
	q.Set("year", strconv.Itoa(c.cfg.Year))

	u := fmt.Sprintf("%s/boundaries/lads?%s", c.cfg.BaseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return boundary.Document{}, fmt.Errorf("httpsource: build request: %w", err)
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return boundary.Document{}, fmt.Errorf("httpsource: lookup %q: %w", code, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if c.logger != nil {
		c.logger.Debug().
			Str("code", code).
			Int("status", resp.StatusCode).
			Dur("duration", time.Since(start)).
			Msg("boundary lookup")
	}

	if resp.StatusCode == http.StatusNotFound {
		return boundary.Document{}, boundary.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return boundary.Document{}, fmt.Errorf("httpsource: lookup %q: upstream status %d", code, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return boundary.Document{}, fmt.Errorf("httpsource: read response for %q: %w", code, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return boundary.Document{}, fmt.Errorf("httpsource: parse GeoJSON for %q: %w", code, err)
	}
	if len(fc.Features) == 0 {
		return boundary.Document{}, boundary.ErrNotFound
	}

	f := fc.Features[0]
	name, _ := f.Properties["name"].(string)
	return boundary.Document{
		Code:     code,
		Name:     name,
		CRS:      c.cfg.CRS,
		Geometry: geojson.NewGeometry(f.Geometry),
	}, nil
}

// outbound client tuned for a single upstream, same shape as the service's
// other upstream calls.
func newOutbound() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}
}
