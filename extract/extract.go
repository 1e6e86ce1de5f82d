// CLAUDE:SUMMARY Keyword extractor for archived pages: strips archive furniture, then searches visible text, script bodies and comments.
// Package extract finds keyword occurrences in one archived HTML page.
//
// Three zones are searched, always in this order:
//   - TEXT:    visible body text, whitespace collapsed
//   - JS:      each <script> body, independently
//   - COMMENT: <!-- ... --> spans of the re-rendered document
//
// The archive's own toolbar and scripts are removed before any search so
// that matches never come from the replay chrome.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MatchType names the zone a match was found in.
type MatchType string

const (
	MatchText    MatchType = "TEXT"
	MatchJS      MatchType = "JS"
	MatchComment MatchType = "COMMENT"
)

// Match is one keyword occurrence in one snapshot.
type Match struct {
	Timestamp  string    `json:"timestamp"`
	ArchiveURL string    `json:"archiveUrl"`
	MatchType  MatchType `json:"matchType"`
	Snippet    string    `json:"snippet"`
}

// ArchiveFooterMarker identifies the comment the archive appends to every
// replayed page. Comments containing it are never searched.
const ArchiveFooterMarker = "FILE ARCHIVED ON"

// SnippetRadius is the number of characters kept on each side of a match.
const SnippetRadius = 30

const ellipsis = "..."

// DefaultToolbarIDs are the element ids of the replay toolbar.
var DefaultToolbarIDs = []string{
	"wm-ipp-base",
	"wm-ipp",
	"wm-ipp-print",
	"donato",
	"wm-capinfo",
}

// DefaultArchiveHost is matched against script src attributes.
const DefaultArchiveHost = "archive.org"

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	commentRe    = regexp.MustCompile(`(?s)<!--(.*?)-->`)
	newlines     = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
)

// Options configures an Extractor. Zero values select the defaults.
type Options struct {
	// Parser loads markup. Default: ParseDocument.
	Parser Parser
	// ToolbarIDs are element ids removed before searching.
	ToolbarIDs []string
	// ArchiveHost removes <script> elements whose src contains it.
	ArchiveHost string
	// ExtraSelectors are removed in addition to toolbar and archive scripts.
	ExtraSelectors []string
}

func (o *Options) defaults() {
	if o.Parser == nil {
		o.Parser = ParseDocument
	}
	if o.ToolbarIDs == nil {
		o.ToolbarIDs = DefaultToolbarIDs
	}
	if o.ArchiveHost == "" {
		o.ArchiveHost = DefaultArchiveHost
	}
}

// Extractor searches archived pages. It holds no per-call state and is safe
// for concurrent use.
type Extractor struct {
	opts      Options
	selectors []string
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	opts.defaults()
	sel := make([]string, 0, len(opts.ToolbarIDs)+len(opts.ExtraSelectors)+1)
	for _, id := range opts.ToolbarIDs {
		sel = append(sel, "#"+id)
	}
	sel = append(sel, "script[src*="+opts.ArchiveHost+"]")
	sel = append(sel, opts.ExtraSelectors...)
	return &Extractor{opts: opts, selectors: sel}
}

var defaultExtractor = New(Options{})

// Extract runs the default Extractor.
func Extract(rawHTML, keyword, timestamp, archiveURL string) []Match {
	return defaultExtractor.Extract(rawHTML, keyword, timestamp, archiveURL)
}

// Extract returns every occurrence of keyword in rawHTML, matched literally
// and case-insensitively: TEXT matches first, then JS, then COMMENT, each
// zone in document order. An empty keyword yields no matches.
func (e *Extractor) Extract(rawHTML, keyword, timestamp, archiveURL string) []Match {
	if keyword == "" {
		return nil
	}
	doc := e.opts.Parser(rawHTML)
	for _, sel := range e.selectors {
		doc.Remove(sel)
	}

	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(keyword))
	newMatch := func(t MatchType, snippet string) Match {
		return Match{
			Timestamp:  timestamp,
			ArchiveURL: archiveURL,
			MatchType:  t,
			Snippet:    ellipsis + snippet + ellipsis,
		}
	}

	var matches []Match

	text := strings.TrimSpace(whitespaceRe.ReplaceAllString(doc.BodyText(), " "))
	for _, loc := range findAll(re, text) {
		matches = append(matches, newMatch(MatchText, strings.TrimSpace(around(text, loc[0], loc[1]))))
	}

	for _, script := range doc.ScriptBodies() {
		if script == "" {
			continue
		}
		for _, loc := range findAll(re, script) {
			s := newlines.Replace(around(script, loc[0], loc[1]))
			matches = append(matches, newMatch(MatchJS, strings.TrimSpace(s)))
		}
	}

	for _, c := range commentRe.FindAllStringSubmatch(doc.Render(), -1) {
		body := c[1]
		if strings.Contains(body, ArchiveFooterMarker) {
			continue
		}
		for _, loc := range findAll(re, body) {
			matches = append(matches, newMatch(MatchComment, strings.TrimSpace(around(body, loc[0], loc[1]))))
		}
	}

	return matches
}

// findAll returns the byte ranges of successive matches of re in s. Each
// search resumes at the previous match end; an empty match advances one
// rune so the loop always terminates.
func findAll(re *regexp.Regexp, s string) [][2]int {
	var out [][2]int
	for pos := 0; pos <= len(s); {
		loc := re.FindStringIndex(s[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		out = append(out, [2]int{start, end})
		if end > start {
			pos = end
			continue
		}
		_, size := utf8.DecodeRuneInString(s[end:])
		if size == 0 {
			break
		}
		pos = end + size
	}
	return out
}

// around returns s[start:end] widened by up to SnippetRadius runes on each side.
func around(s string, start, end int) string {
	from := start
	for i := 0; i < SnippetRadius && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(s[:from])
		from -= size
	}
	to := end
	for i := 0; i < SnippetRadius && to < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[to:])
		to += size
	}
	return s[from:to]
}
