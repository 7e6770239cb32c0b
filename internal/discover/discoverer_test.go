package discover

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/amishk599/jobsieve/internal/filter"
	"github.com/amishk599/jobsieve/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// staticRenderer returns canned HTML or an error.
type staticRenderer struct {
	html string
	err  error
}

func (r staticRenderer) Render(_ context.Context, _ string) (string, error) {
	return r.html, r.err
}

func mustRule(t *testing.T, include []string, pattern string, exclude []string) *filter.LinkRule {
	t.Helper()
	r, err := filter.NewLinkRule(include, pattern, exclude)
	if err != nil {
		t.Fatalf("NewLinkRule: %v", err)
	}
	return r
}

const listingPage = `<html><body>
<nav><a href="/about">About</a><a href="/careers/">Careers home</a></nav>
<ul>
  <li><a href="/jobs/101">Backend Engineer</a></li>
  <li><a href="jobs/102">Relative without slash</a></li>
  <li><a href="  https://other.example.org/jobs/7  ">Partner role</a></li>
  <li><a href="/jobs/101">Backend Engineer (duplicate)</a></li>
  <li><a>No href</a></li>
  <li><a href="">Empty href</a></li>
  <li><a href="mailto:jobs@example.com">Email us</a></li>
  <li><a href="javascript:void(0)">Apply</a></li>
  <li><a href="//cdn.example.com/jobs/55">Protocol relative</a></li>
</ul>
</body></html>`

func TestDiscover_ResolvesFiltersAndDedupes(t *testing.T) {
	d := NewDiscoverer(staticRenderer{html: listingPage}, "a[href]",
		mustRule(t, []string{"/jobs/", "/careers/"}, "", nil), discardLogger())

	got, err := d.Discover(context.Background(), "https://example.com/careers/search")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := []string{
		"https://cdn.example.com/jobs/55",
		"https://example.com/careers/",
		"https://example.com/jobs/101",
		"https://other.example.org/jobs/7",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d links %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("links[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDiscover_AllLinksAbsoluteHTTP(t *testing.T) {
	d := NewDiscoverer(staticRenderer{html: listingPage}, "a[href]",
		mustRule(t, nil, "", nil), discardLogger())

	got, err := d.Discover(context.Background(), "https://example.com/careers/search")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	for _, l := range got {
		u, err := url.Parse(l)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			t.Errorf("link %q is not an absolute http(s) URL", l)
		}
	}
}

func TestDiscover_UsesSelector(t *testing.T) {
	html := `<div class="openings"><a href="/p/1">One</a></div><footer><a href="/p/2">Two</a></footer>`
	d := NewDiscoverer(staticRenderer{html: html}, "div.openings a",
		mustRule(t, nil, "", nil), discardLogger())

	got, err := d.Discover(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 1 || got[0] != "https://example.com/p/1" {
		t.Errorf("got %v, want only the link inside div.openings", got)
	}
}

func TestDiscover_NoMatchesReturnsEmpty(t *testing.T) {
	d := NewDiscoverer(staticRenderer{html: `<p>No openings right now.</p>`}, "a[href]",
		mustRule(t, []string{"/jobs/"}, "", nil), discardLogger())

	got, err := d.Discover(context.Background(), "https://example.com/careers")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestDiscover_RenderFailureIsDiscoveryError(t *testing.T) {
	d := NewDiscoverer(staticRenderer{err: errors.New("net::ERR_NAME_NOT_RESOLVED")}, "a[href]",
		mustRule(t, nil, "", nil), discardLogger())

	_, err := d.Discover(context.Background(), "https://unreachable.invalid/jobs")
	var dErr *model.DiscoveryError
	if !errors.As(err, &dErr) {
		t.Fatalf("expected *model.DiscoveryError, got %T: %v", err, err)
	}
	if dErr.URL != "https://unreachable.invalid/jobs" {
		t.Errorf("DiscoveryError.URL = %q", dErr.URL)
	}
}

func TestResolve_AbsoluteHrefUnchanged(t *testing.T) {
	base, _ := url.Parse("https://example.com/a/b")
	hrefs := []string{
		"https://example.com/jobs/1?ref=list",
		"http://EXAMPLE.com/Jobs/2",
		"https://example.com/jobs/../jobs/3",
	}
	for _, h := range hrefs {
		got, ok := resolve(base, h)
		if !ok {
			t.Errorf("resolve(%q) rejected", h)
			continue
		}
		if got != h {
			t.Errorf("resolve(%q) = %q, want unchanged", h, got)
		}
	}
}

func TestResolve_DropsFragment(t *testing.T) {
	base, _ := url.Parse("https://example.com/careers/search")
	tests := []struct {
		href string
		want string
	}{
		{"https://example.com/jobs/1?ref=list#top", "https://example.com/jobs/1?ref=list"},
		{"/jobs/2#apply", "https://example.com/jobs/2"},
		{"#top", "https://example.com/careers/search"},
	}
	for _, tt := range tests {
		got, ok := resolve(base, tt.href)
		if !ok || got != tt.want {
			t.Errorf("resolve(%q) = %q, %v; want %q", tt.href, got, ok, tt.want)
		}
	}
}

func TestDiscover_RuleMatchesHrefNotListingPath(t *testing.T) {
	html := `<ul>
<li><a href="/jobs/ProjectDetail/123">Intern</a></li>
<li><a href="privacy">Privacy</a></li>
<li><a href="?page=2">Next</a></li>
<li><a href="#top">Top</a></li>
</ul>`
	d := NewDiscoverer(staticRenderer{html: html}, "a[href]",
		mustRule(t, []string{"/jobs/", "/careers/"}, "", nil), discardLogger())

	got, err := d.Discover(context.Background(), "https://jobs.cisco.com/jobs/SearchJobs/internship")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 1 || got[0] != "https://jobs.cisco.com/jobs/ProjectDetail/123" {
		t.Errorf("got %v, want only the ProjectDetail posting", got)
	}
}

func TestDiscover_SkipsListingPageItself(t *testing.T) {
	html := `<a href="/jobs/1">One</a><a href="https://example.com/jobs/#main">Skip</a><a href="/jobs/1#apply">Again</a>`
	d := NewDiscoverer(staticRenderer{html: html}, "a[href]",
		mustRule(t, []string{"/jobs/"}, "", nil), discardLogger())

	got, err := d.Discover(context.Background(), "https://example.com/jobs/")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 1 || got[0] != "https://example.com/jobs/1" {
		t.Errorf("got %v, want only https://example.com/jobs/1", got)
	}
}

func TestResolve_Relative(t *testing.T) {
	base, _ := url.Parse("https://example.com/careers/search?page=2")
	tests := []struct {
		href string
		want string
	}{
		{"/jobs/1", "https://example.com/jobs/1"},
		{"jobs/2", "https://example.com/careers/jobs/2"},
		{"../jobs/3", "https://example.com/jobs/3"},
		{"?page=3", "https://example.com/careers/search?page=3"},
	}
	for _, tt := range tests {
		got, ok := resolve(base, tt.href)
		if !ok || got != tt.want {
			t.Errorf("resolve(%q) = %q, %v; want %q", tt.href, got, ok, tt.want)
		}
	}
}

func TestResolve_Rejects(t *testing.T) {
	base, _ := url.Parse("https://example.com/")
	for _, h := range []string{"", "   ", "mailto:x@example.com", "javascript:void(0)", "ftp://example.com/jobs/1", "tel:+123"} {
		if got, ok := resolve(base, h); ok {
			t.Errorf("resolve(%q) = %q, want rejected", h, got)
		}
	}
}

func TestHTTPRenderer_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	r := NewHTTPRenderer(srv.Client(), "jobsieve-test")
	html, err := r.Render(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(html, "/jobs/101") {
		t.Errorf("rendered html missing expected content")
	}
	if gotUA != "jobsieve-test" {
		t.Errorf("User-Agent = %q, want jobsieve-test", gotUA)
	}
}

func TestHTTPRenderer_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	r := NewHTTPRenderer(srv.Client(), "jobsieve-test")
	if _, err := r.Render(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestDiscover_WithHTTPRenderer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<a href="/jobs/1">A</a><a href="/jobs/2">B</a>`))
	}))
	defer srv.Close()

	d := NewDiscoverer(NewHTTPRenderer(srv.Client(), "jobsieve-test"), "a[href]",
		mustRule(t, []string{"/jobs/"}, "", nil), discardLogger())
	got, err := d.Discover(context.Background(), srv.URL+"/careers")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 2 || got[0] != srv.URL+"/jobs/1" {
		t.Errorf("got %v", got)
	}
}

// Needs a local Chrome install.
func TestBrowserRenderer(t *testing.T) {
	if os.Getenv("JOBSIEVE_TEST_CHROME") == "" {
		t.Skip("JOBSIEVE_TEST_CHROME not set")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><div id="list"></div><script>
document.getElementById("list").innerHTML = '<a href="/jobs/9">Scripted</a>';
</script></body></html>`))
	}))
	defer srv.Close()

	r := NewBrowserRenderer("body", "jobsieve-test", 30*time.Second)
	html, err := r.Render(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(html, "/jobs/9") {
		t.Errorf("scripted link missing from rendered html")
	}
}
