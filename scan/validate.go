// CLAUDE:SUMMARY Scan request parsing and validation: domain, year, keyword, limit.
// CLAUDE:EXPORTS Request, Limits, ParseRequest
package scan

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

const (
	maxDomainLen  = 253
	maxKeywordLen = 256

	// DefaultLimit is used when the caller omits limit.
	DefaultLimit = 100
	// DefaultMaxLimit caps limit when Limits.Max is unset.
	DefaultMaxLimit = 1000
)

// Request holds validated scan parameters.
type Request struct {
	Domain  string `json:"domain"`
	Year    string `json:"year,omitempty"`
	Keyword string `json:"keyword"`
	Limit   int    `json:"limit"`
}

// Limits bounds the limit parameter.
type Limits struct {
	Default int
	Max     int
}

func (l *Limits) defaults() {
	if l.Default <= 0 {
		l.Default = DefaultLimit
	}
	if l.Max <= 0 {
		l.Max = DefaultMaxLimit
	}
	if l.Default > l.Max {
		l.Default = l.Max
	}
}

// ParseRequest reads domain, year, keyword and limit from query values.
func ParseRequest(q url.Values, limits Limits) (Request, error) {
	req := Request{
		Domain:  q.Get("domain"),
		Year:    strings.TrimSpace(q.Get("year")),
		Keyword: q.Get("keyword"),
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Request{}, fmt.Errorf("%w: limit must be an integer", ErrInvalidInput)
		}
		if n <= 0 {
			return Request{}, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
		}
		req.Limit = n
	}
	if err := req.Normalize(limits); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Normalize validates r in place: the domain is reduced to its host part and
// lower-cased, the keyword is trimmed, and limit is defaulted and capped.
func (r *Request) Normalize(limits Limits) error {
	limits.defaults()

	domain, err := normalizeDomain(r.Domain)
	if err != nil {
		return err
	}
	r.Domain = domain

	if r.Year != "" && !isYear(r.Year) {
		return fmt.Errorf("%w: year must be 4 digits", ErrInvalidInput)
	}

	r.Keyword = strings.TrimSpace(r.Keyword)
	if r.Keyword == "" {
		return fmt.Errorf("%w: keyword is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(r.Keyword) > maxKeywordLen {
		return fmt.Errorf("%w: keyword exceeds %d characters", ErrInvalidInput, maxKeywordLen)
	}

	switch {
	case r.Limit < 0:
		return fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	case r.Limit == 0:
		r.Limit = limits.Default
	case r.Limit > limits.Max:
		r.Limit = limits.Max
	}
	return nil
}

// normalizeDomain accepts "example.com", "https://Example.com/path",
// "*.example.com" or an internationalised name and returns the lower-cased
// ASCII host, wildcard and port kept.
func normalizeDomain(raw string) (string, error) {
	d := strings.TrimSpace(raw)
	if d == "" {
		return "", fmt.Errorf("%w: domain is required", ErrInvalidInput)
	}
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}

	var wildcard, port string
	if strings.HasPrefix(d, "*.") {
		wildcard, d = "*.", d[2:]
	}
	if p := strings.LastIndexByte(d, ':'); p >= 0 {
		if _, err := strconv.Atoi(d[p+1:]); err != nil {
			return "", fmt.Errorf("%w: invalid port in domain %q", ErrInvalidInput, raw)
		}
		d, port = d[:p], d[p:]
	}

	host, err := idna.Lookup.ToASCII(strings.TrimSuffix(d, "."))
	if err != nil || host == "" || len(host) > maxDomainLen {
		return "", fmt.Errorf("%w: invalid domain %q", ErrInvalidInput, raw)
	}
	host = strings.ToLower(host)
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return "", fmt.Errorf("%w: invalid domain %q", ErrInvalidInput, raw)
		}
		for i := 0; i < len(label); i++ {
			if !isHostChar(label[i]) {
				return "", fmt.Errorf("%w: invalid character %q in domain", ErrInvalidInput, label[i])
			}
		}
	}
	return wildcard + host + port, nil
}

func isHostChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-'
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
