package sourcepage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

const page = `<!doctype html>
<html><head><title>Tablao</title><style>.x{}</style></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
  <h1>Noche de cante</h1>
  <p>Con <strong>Estrella</strong> al cante y Pepe a la guitarra.</p>
  <script>track()</script>
</article>
<footer>© venue</footer>
</body></html>`

func TestFetchExtractsArticle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing user agent")
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	got, err := New(nil, 0).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(got, "# Noche de cante") || !strings.Contains(got, "**Estrella**") {
		t.Fatalf("unexpected markdown:\n%s", got)
	}
	for _, noise := range []string{"track()", "Home", "venue"} {
		if strings.Contains(got, noise) {
			t.Fatalf("markdown should not contain %q:\n%s", noise, got)
		}
	}
}

func TestFetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New(nil, 0).Fetch(context.Background(), server.URL)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected HTTPError 404, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	long := strings.Repeat("palabra ", 50)
	got := Truncate(long, 100)
	if utf8.RuneCountInString(got) > 101 || !strings.HasSuffix(got, "…") {
		t.Fatalf("unexpected truncation %q", got)
	}
}
