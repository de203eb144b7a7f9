package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"duendefinder/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckWordPress_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "editor" || pass != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"rest_not_logged_in","message":"no"}`))
			return
		}
		if r.URL.Path != "/wp-json/wp/v2/users/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":3,"name":"Editor","slug":"editor"}`))
	}))
	defer srv.Close()

	result := CheckWordPress(context.Background(), config.WordPress{URL: srv.URL, Username: "editor", AppPassword: "good"})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "editor") {
		t.Fatalf("expected user slug in detail, got %q", result.Detail)
	}
}

func TestCheckWordPress_BadPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"invalid_application_password","message":"bad"}`))
	}))
	defer srv.Close()

	result := CheckWordPress(context.Background(), config.WordPress{URL: srv.URL, Username: "editor", AppPassword: "bad"})
	if result.Passed {
		t.Fatal("expected failure for bad password")
	}
	if !strings.Contains(result.Detail, "auth failed") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckWordPress_MissingURL(t *testing.T) {
	result := CheckWordPress(context.Background(), config.WordPress{Username: "u", AppPassword: "p"})
	if result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), config.ProviderConfig{Name: "groq"})
	if result.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestCheckLLM_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	result := CheckLLM(context.Background(), config.ProviderConfig{Name: "groq", APIKey: "k", BaseURL: srv.URL, Model: "m"})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckStore(t *testing.T) {
	if r := CheckStore(context.Background(), "sqlite", pinger{}); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if r := CheckStore(context.Background(), "mongo", pinger{err: errors.New("no reachable servers")}); r.Passed {
		t.Fatal("expected failure when ping fails")
	}
}

func TestCheckSocialFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Social.Reddit.Enabled = true
	cfg.Social.Reddit.ClientID = "id"
	cfg.Social.X.Enabled = true
	cfg.Social.X.AccessToken = "token"

	results := CheckSocialFromConfig(&cfg)
	if len(results) != 3 {
		t.Fatalf("expected three platform results, got %d", len(results))
	}
	if !results[0].Passed || results[0].Detail != "Disabled" {
		t.Fatalf("pinterest should be disabled and passing: %+v", results[0])
	}
	if results[1].Passed || !strings.Contains(results[1].Detail, "client secret") {
		t.Fatalf("reddit should report missing credentials: %+v", results[1])
	}
	if !results[2].Passed {
		t.Fatalf("x should pass: %+v", results[2])
	}
}

func TestFailed(t *testing.T) {
	failed := Failed([]Result{{Name: "a", Passed: true}, {Name: "b"}})
	if len(failed) != 1 || failed[0].Name != "b" {
		t.Fatalf("unexpected failed set %+v", failed)
	}
}
