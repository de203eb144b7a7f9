package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"duendefinder/internal/services"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "editor" || pass != "abcd efgh" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"rest_not_logged_in","message":"You are not currently logged in."}`))
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return New(Config{URL: server.URL + "/", Username: "editor", AppPassword: "abcd efgh"}, nil)
}

func TestUploadMediaSendsBinaryAndAlt(t *testing.T) {
	var altSet string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wp-json/wp/v2/media":
			if got := r.Header.Get("Content-Disposition"); !strings.Contains(got, `filename=hero.png`) {
				t.Errorf("unexpected disposition %q", got)
			}
			if r.Header.Get("Content-Type") != "image/png" {
				t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
			}
			body, _ := io.ReadAll(r.Body)
			if string(body) != "png-bytes" {
				t.Errorf("unexpected body %q", body)
			}
			_, _ = w.Write([]byte(`{"id":42,"source_url":"https://example.com/hero.png"}`))
		case "/wp-json/wp/v2/media/42":
			var payload map[string]string
			_ = json.NewDecoder(r.Body).Decode(&payload)
			altSet = payload["alt_text"]
			_, _ = w.Write([]byte(`{"id":42}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	media, err := client.UploadMedia(context.Background(), "hero.png", "image/png", []byte("png-bytes"), "Dancer on stage")
	if err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}
	if media.ID != 42 || media.SourceURL != "https://example.com/hero.png" {
		t.Fatalf("unexpected media %+v", media)
	}
	if altSet != "Dancer on stage" {
		t.Fatalf("alt text not set, got %q", altSet)
	}
}

func TestCreatePost(t *testing.T) {
	var got Post
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/wp-json/wp/v2/posts" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7,"link":"https://example.com/noche-flamenca/","status":"publish"}`))
	})

	result, err := client.CreatePost(context.Background(), Post{
		Title:         "Noche flamenca",
		Content:       "<p>hi</p>",
		FeaturedMedia: 42,
		Categories:    []int64{3},
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if result.ID != 7 || result.Link != "https://example.com/noche-flamenca/" {
		t.Fatalf("unexpected result %+v", result)
	}
	if got.Status != "publish" || got.FeaturedMedia != 42 || len(got.Categories) != 1 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestMeUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"invalid_username","message":"Unknown username."}`))
	}))
	defer server.Close()

	client := New(Config{URL: server.URL, Username: "x", AppPassword: "y"}, nil)
	_, err := client.Me(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || !statusErr.Unauthorized() || statusErr.Code != "invalid_username" {
		t.Fatalf("expected unauthorized status error, got %v", err)
	}
}

func TestCreatePostRequiresTitle(t *testing.T) {
	client := New(Config{URL: "http://unused"}, nil)
	if _, err := client.CreatePost(context.Background(), Post{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err    error
		marker error
	}{
		{&StatusError{StatusCode: 401}, services.ErrConfiguration},
		{&StatusError{StatusCode: 502}, services.ErrTransient},
		{&StatusError{StatusCode: 400, Code: "rest_invalid_param"}, services.ErrValidation},
		{errors.New("connection refused"), services.ErrExternalTool},
	}
	for _, tt := range tests {
		if got := ClassifyError("publication", "create post", tt.err); !errors.Is(got, tt.marker) {
			t.Fatalf("%v: expected %v, got %v", tt.err, tt.marker, got)
		}
	}
}
