// CLAUDE:SUMMARY Snapshot index client: queries the archive CDX endpoint for (timestamp, original) pairs of a domain.
// Package cdx queries the archive's CDX search endpoint for the captures of a
// domain.
//
// The endpoint answers with a JSON array of arrays whose first row is a header:
//
//	[["timestamp","original"],["20200101000000","http://example.com/"],...]
package cdx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/hazyhaar/waybackscan/internal/fetch"
)

// DefaultEndpoint is the public CDX search endpoint.
const DefaultEndpoint = "https://web.archive.org/cdx/search/cdx"

// ErrIndexUnavailable wraps every failure that prevented an answer from the
// index (transport, status, decoding).
var ErrIndexUnavailable = errors.New("cdx: index unavailable")

// Snapshot identifies one archived capture.
// Timestamp is kept exactly as the index returned it.
type Snapshot struct {
	Timestamp   string `json:"timestamp"`
	OriginalURL string `json:"originalUrl"`
}

// Query selects the captures to list.
type Query struct {
	Domain string
	Year   string // optional 4-digit year
	Limit  int
}

// Values encodes q as CDX query parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("url", q.Domain)
	v.Set("output", "json")
	v.Set("fl", "timestamp,original")
	v.Set("filter", "statuscode:200")
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Year != "" {
		v.Set("from", q.Year+"0101")
		v.Set("to", q.Year+"1231")
	}
	return v
}

// Getter is the subset of *fetch.Fetcher the client needs.
type Getter interface {
	Get(ctx context.Context, url string) (*fetch.Result, error)
}

// Client talks to a CDX endpoint.
type Client struct {
	endpoint string
	getter   Getter
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides DefaultEndpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client issuing requests through g.
func New(g Getter, opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		getter:   g,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// QueryURL returns the full request URL for q.
func (c *Client) QueryURL(q Query) string {
	return c.endpoint + "?" + q.Values().Encode()
}

// Lookup lists the snapshots matching q in index order. Any failure is
// reported as an error wrapping ErrIndexUnavailable.
func (c *Client) Lookup(ctx context.Context, q Query) ([]Snapshot, error) {
	res, err := c.getter.Get(ctx, c.QueryURL(q))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: empty response", ErrIndexUnavailable)
	}
	snaps, err := Parse(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	return snaps, nil
}

// FetchSnapshots is Lookup with failures degraded to an empty result.
// Callers cannot tell "no captures" from "index unreachable"; use Lookup
// when that distinction matters.
func (c *Client) FetchSnapshots(ctx context.Context, q Query) []Snapshot {
	snaps, err := c.Lookup(ctx, q)
	if err != nil {
		c.logger.Warn("cdx: lookup failed", "domain", q.Domain, "year", q.Year, "error", err)
		return nil
	}
	return snaps
}

// Parse decodes a CDX JSON body. The header row is dropped; rows shorter
// than two columns or with an empty field are skipped. An empty body or a
// header-only table yields no snapshots.
func Parse(body []byte) ([]Snapshot, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode cdx json: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	snaps := make([]Snapshot, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 2 || row[0] == "" || row[1] == "" {
			continue
		}
		snaps = append(snaps, Snapshot{Timestamp: row[0], OriginalURL: row[1]})
	}
	return snaps, nil
}

// ReplayURL returns the URL at which archiveBase serves s:
// <archiveBase>/web/<timestamp>/<original>.
func (s Snapshot) ReplayURL(archiveBase string) string {
	return strings.TrimRight(archiveBase, "/") + "/web/" + s.Timestamp + "/" + s.OriginalURL
}
