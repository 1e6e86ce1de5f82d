package extract

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func parseHTML(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestQuerySelectorAll(t *testing.T) {
	doc := parseHTML(t, `<html><head>
<script src="//archive.org/includes/athena.js"></script>
<script src="/_static/js/bundle-playback.js"></script>
<script>inline()</script>
</head><body>
<div id="wm-ipp-base" class="bar top"><span class="x">a</span></div>
<div class="bar"><p data-role="main">b</p></div>
</body></html>`)

	tests := []struct {
		sel  string
		want int
	}{
		{"script", 3},
		{"#wm-ipp-base", 1},
		{".bar", 2},
		{"div.top", 1},
		{"div#wm-ipp-base", 1},
		{"script[src]", 2},
		{"script[src*=archive.org]", 1},
		{"script[src*=ARCHIVE.ORG]", 1},
		{"script[src^=/_static/]", 1},
		{"script[src^=/_STATIC/]", 1},
		{"p[data-role=main]", 1},
		{"p[data-role=MAIN]", 1},
		{"p[data-role=other]", 0},
		{".bar span", 1},
		{".bar p", 1},
		{"#missing", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := len(querySelectorAll(doc, tt.sel)); got != tt.want {
			t.Errorf("querySelectorAll(%q) = %d nodes, want %d", tt.sel, got, tt.want)
		}
	}
}

func TestDocument_Remove(t *testing.T) {
	d := ParseDocument(`<body><div id="wm-ipp">toolbar</div><p>content</p></body>`)
	if n := d.Remove("#wm-ipp"); n != 1 {
		t.Fatalf("removed %d, want 1", n)
	}
	if got := d.BodyText(); got != "content" {
		t.Errorf("body text: %q", got)
	}
	if strings.Contains(d.Render(), "toolbar") {
		t.Error("removed node still rendered")
	}
}

func TestDocument_BodyTextSkipsScripts(t *testing.T) {
	d := ParseDocument(`<body>a<script>b</script><style>c</style><span>d</span></body>`)
	if got := d.BodyText(); got != "ad" {
		t.Errorf("body text: %q, want %q", got, "ad")
	}
	scripts := d.ScriptBodies()
	if len(scripts) != 1 || scripts[0] != "b" {
		t.Errorf("scripts: %q", scripts)
	}
}
