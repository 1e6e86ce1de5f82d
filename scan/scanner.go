// CLAUDE:SUMMARY Scan orchestrator: one index lookup, then sequential polite replay fetches, extraction and ordered event emission.
// Package scan drives a keyword scan across the archived captures of a domain.
//
// A scan is strictly sequential: one index lookup, then for each snapshot a
// progress event, a politeness delay, one replay fetch and the match events
// it produced. Caller disconnection is honoured at snapshot boundaries only;
// an in-flight fetch is allowed to finish (bounded by FetchTimeout).
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/hazyhaar/waybackscan/cdx"
	"github.com/hazyhaar/waybackscan/extract"
	"github.com/hazyhaar/waybackscan/idgen"
	"github.com/hazyhaar/waybackscan/internal/fetch"
	"github.com/hazyhaar/waybackscan/kit"
)

// DefaultArchiveBase is the replay host.
const DefaultArchiveBase = "https://web.archive.org"

// Index lists the captures of a domain. Lookup reports failures;
// FetchSnapshots degrades them to an empty list.
type Index interface {
	Lookup(ctx context.Context, q cdx.Query) ([]cdx.Snapshot, error)
	FetchSnapshots(ctx context.Context, q cdx.Query) []cdx.Snapshot
}

// PageFetcher retrieves one replay page.
type PageFetcher interface {
	Get(ctx context.Context, url string) (*fetch.Result, error)
}

// Matcher finds keyword occurrences in one page.
type Matcher interface {
	Extract(rawHTML, keyword, timestamp, archiveURL string) []extract.Match
}

// Config holds the timing and behaviour knobs of a Scanner.
type Config struct {
	// ArchiveBase prefixes replay URLs. Default: DefaultArchiveBase.
	ArchiveBase string
	// DelayMin and DelayMax bound the politeness delay drawn uniformly in
	// [DelayMin, DelayMax) before every replay fetch. Defaults: 500ms, 1s.
	DelayMin time.Duration
	DelayMax time.Duration
	// FetchTimeout bounds one replay fetch. Default: 60s.
	FetchTimeout time.Duration
	// StrictIndex surfaces index failures as a terminal error event instead
	// of treating them as "no snapshots".
	StrictIndex bool
	// Limits bounds the limit parameter of requests.
	Limits Limits
	// Sleep waits between fetches. Default: time.Sleep. Tests inject a no-op.
	Sleep func(time.Duration)
}

func (c *Config) defaults() {
	if c.ArchiveBase == "" {
		c.ArchiveBase = DefaultArchiveBase
	}
	if c.DelayMin <= 0 && c.DelayMax <= 0 {
		c.DelayMin = 500 * time.Millisecond
		c.DelayMax = time.Second
	}
	if c.DelayMax < c.DelayMin {
		c.DelayMax = c.DelayMin
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 60 * time.Second
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
	c.Limits.defaults()
}

// Summary describes a finished scan.
type Summary struct {
	ScanID    string `json:"scan_id"`
	Snapshots int    `json:"snapshots"`
	Scanned   int    `json:"scanned"`
	Failed    int    `json:"failed"`
	Matches   int    `json:"matches"`
	Cancelled bool   `json:"cancelled"`
	Error     string `json:"error,omitempty"`
}

// Scanner runs scans. It keeps no per-scan state and is safe for concurrent
// Run calls; every scan gets its own sequential pipeline.
type Scanner struct {
	index   Index
	pages   PageFetcher
	matcher Matcher
	cfg     Config
	logger  *slog.Logger
	newID   idgen.Generator
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithMatcher replaces the default extractor.
func WithMatcher(m Matcher) Option {
	return func(s *Scanner) { s.matcher = m }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator sets the scan ID generator. Default: idgen.Default.
func WithIDGenerator(g idgen.Generator) Option {
	return func(s *Scanner) {
		if g != nil {
			s.newID = g
		}
	}
}

// New creates a Scanner.
func New(index Index, pages PageFetcher, cfg Config, opts ...Option) *Scanner {
	cfg.defaults()
	s := &Scanner{
		index:   index,
		pages:   pages,
		matcher: extract.New(extract.Options{}),
		cfg:     cfg,
		logger:  slog.Default(),
		newID:   idgen.Default,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Limits returns the request limits of the scanner.
func (s *Scanner) Limits() Limits { return s.cfg.Limits }

// Snapshots runs the index lookup alone. Failures are returned, not masked.
func (s *Scanner) Snapshots(ctx context.Context, domain, year string, limit int) ([]cdx.Snapshot, error) {
	domain, err := normalizeDomain(domain)
	if err != nil {
		return nil, err
	}
	if year != "" && !isYear(year) {
		return nil, fmt.Errorf("%w: year must be 4 digits", ErrInvalidInput)
	}
	switch {
	case limit <= 0:
		limit = s.cfg.Limits.Default
	case limit > s.cfg.Limits.Max:
		limit = s.cfg.Limits.Max
	}
	return s.index.Lookup(ctx, cdx.Query{Domain: domain, Year: year, Limit: limit})
}

// Run executes one scan and emits its events to out. ctx is the caller's
// lifetime: once it is done, the scan stops at the next snapshot boundary
// without emitting anything else. A failed Emit is treated the same way.
func (s *Scanner) Run(ctx context.Context, req Request, out Emitter) (sum Summary) {
	sum.ScanID = s.newID()
	ctx = kit.WithScanID(ctx, sum.ScanID)
	log := s.logger.With("scan_id", sum.ScanID, "transport", kit.GetTransport(ctx))
	if tid := kit.GetTraceID(ctx); tid != "" {
		log = log.With("trace_id", tid)
	}

	st := &state{out: out, ctx: ctx}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrInternal, r)
			log.Error("scan: panic", "error", err)
			sum.Error = err.Error()
			st.emit(Failed(err))
		}
		sum.Cancelled = st.gone()
		log.Info("scan: done",
			"snapshots", sum.Snapshots, "scanned", sum.Scanned, "failed", sum.Failed,
			"matches", sum.Matches, "cancelled", sum.Cancelled)
	}()

	if err := s.run(ctx, req, st, &sum, log); err != nil {
		log.Error("scan: failed", "error", err)
		sum.Error = err.Error()
		st.emit(Failed(err))
	}
	return sum
}

func (s *Scanner) run(ctx context.Context, req Request, st *state, sum *Summary, log *slog.Logger) error {
	if err := req.Normalize(s.cfg.Limits); err != nil {
		return err
	}
	log = log.With("domain", req.Domain, "year", req.Year, "keyword", req.Keyword, "limit", req.Limit)

	st.emit(Progress(fmt.Sprintf("Contacting archive for: %s...", req.Domain)))

	// Like replay fetches, the lookup is not cut short by a disconnect.
	q := cdx.Query{Domain: req.Domain, Year: req.Year, Limit: req.Limit}
	var snaps []cdx.Snapshot
	if s.cfg.StrictIndex {
		var err error
		if snaps, err = s.index.Lookup(context.WithoutCancel(ctx), q); err != nil {
			return err
		}
	} else {
		snaps = s.index.FetchSnapshots(context.WithoutCancel(ctx), q)
	}
	sum.Snapshots = len(snaps)

	if len(snaps) == 0 {
		st.emit(Complete(MsgNoSnapshots))
		return nil
	}

	total := len(snaps)
	st.emit(ProgressAt(fmt.Sprintf("Analyzing %d snapshots for '%s'...", total, req.Keyword), 0, total))

	for i, snap := range snaps {
		if st.gone() {
			log.Info("scan: caller gone, stopping", "at", i)
			return nil
		}
		st.emit(ProgressAt(fmt.Sprintf("Scanning snapshot: %s...", snap.Timestamp), i+1, total))

		n, err := s.scanSnapshot(ctx, req.Keyword, snap, st)
		if err != nil {
			sum.Failed++
			log.Debug("scan: snapshot skipped", "timestamp", snap.Timestamp, "error", err)
			continue
		}
		sum.Scanned++
		sum.Matches += n
	}

	if st.gone() {
		return nil
	}
	if sum.Matches > 0 {
		st.emit(Complete(MsgComplete))
	} else {
		st.emit(Complete(MsgNoMatches))
	}
	return nil
}

// scanSnapshot is the per-snapshot failure boundary: any error or panic in
// here skips the snapshot and never reaches the caller.
func (s *Scanner) scanSnapshot(ctx context.Context, keyword string, snap cdx.Snapshot, st *state) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("snapshot %s: panic: %v", snap.Timestamp, r)
		}
	}()

	s.cfg.Sleep(s.delay())

	archiveURL := snap.ReplayURL(s.cfg.ArchiveBase)

	// Disconnect must not abort the fetch in flight; only the timeout does.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.FetchTimeout)
	defer cancel()
	res, err := s.pages.Get(fctx, archiveURL)
	if err != nil {
		return 0, err
	}
	if res == nil {
		return 0, errors.New("empty fetch result")
	}

	if res.Truncated {
		s.logger.Debug("scan: replay body capped", "timestamp", snap.Timestamp, "bytes", len(res.Body))
	}

	for _, m := range s.matcher.Extract(string(res.Body), keyword, snap.Timestamp, archiveURL) {
		if st.emit(MatchFound(m)) {
			n++
		}
	}
	return n, nil
}

// delay draws the politeness delay in [DelayMin, DelayMax).
func (s *Scanner) delay() time.Duration {
	span := s.cfg.DelayMax - s.cfg.DelayMin
	if span <= 0 {
		return s.cfg.DelayMin
	}
	return s.cfg.DelayMin + rand.N(span)
}

// state is the per-scan emission state. Only the scan goroutine touches it.
// Nothing is emitted once the caller is gone.
type state struct {
	ctx    context.Context
	out    Emitter
	broken bool
}

// emit reports whether e reached the caller.
func (st *state) emit(e Event) bool {
	if st.gone() {
		return false
	}
	if err := st.out.Emit(e); err != nil {
		st.broken = true
		return false
	}
	return true
}

func (st *state) gone() bool {
	return st.broken || st.ctx.Err() != nil
}
