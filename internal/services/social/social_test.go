package social

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"duendefinder/internal/config"
	"duendefinder/internal/events"
)

func TestHashtagLine(t *testing.T) {
	got := HashtagLine([]string{"#Flamenco", "flamenco", " Sevilla ", "", "cante jondo"})
	if got != "#Flamenco #Sevilla #cantejondo" {
		t.Fatalf("unexpected hashtags %q", got)
	}
}

func TestComposeTweetFitsLimit(t *testing.T) {
	msg := Message{
		Text:     strings.Repeat("olé ", 100),
		Link:     "https://duendefinder.com/a-very-long-permalink-that-x-counts-as-twenty-three/",
		Hashtags: []string{"flamenco"},
	}
	tweet := ComposeTweet(msg)
	withoutLink := strings.TrimSuffix(tweet, " "+msg.Link)
	if utf8.RuneCountInString(withoutLink)+1+tweetURLLength > tweetLimit {
		t.Fatalf("tweet too long: %d runes", utf8.RuneCountInString(withoutLink))
	}
	if strings.Contains(tweet, "#flamenco") {
		t.Fatal("hashtags should be dropped when the text fills the tweet")
	}

	short := ComposeTweet(Message{Text: "Tonight in Madrid", Link: "https://x.test/p", Hashtags: []string{"flamenco"}})
	if short != "Tonight in Madrid #flamenco https://x.test/p" {
		t.Fatalf("unexpected tweet %q", short)
	}
}

func TestPinterestPost(t *testing.T) {
	var got pinRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v5/pins" || r.Header.Get("Authorization") != "Bearer pin-token" {
			t.Errorf("unexpected request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"987"}`))
	}))
	defer server.Close()

	p := NewPinterest(PinterestConfig{AccessToken: "pin-token", BoardID: "board", BaseURL: server.URL}, nil)
	result, err := p.Post(context.Background(), Message{
		Title:    "Noche flamenca",
		Text:     "Una noche de cante",
		Link:     "https://blog.test/noche",
		ImageURL: "https://blog.test/hero.png",
		Hashtags: []string{"flamenco"},
	})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if result.PostID != "987" {
		t.Fatalf("unexpected result %+v", result)
	}
	if got.BoardID != "board" || got.MediaSource == nil || got.MediaSource.URL != "https://blog.test/hero.png" {
		t.Fatalf("unexpected pin %+v", got)
	}
	if !strings.HasSuffix(got.Description, "#flamenco") {
		t.Fatalf("description should carry hashtags: %q", got.Description)
	}
}

func TestPinterestRequiresImage(t *testing.T) {
	p := NewPinterest(PinterestConfig{AccessToken: "t", BoardID: "b", BaseURL: "http://unused"}, nil)
	if _, err := p.Post(context.Background(), Message{Title: "x"}); err == nil {
		t.Fatal("expected error without image")
	}
}

func TestRedditTokenThenSubmit(t *testing.T) {
	var tokenCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/access_token":
			tokenCalls.Add(1)
			id, secret, _ := r.BasicAuth()
			if id != "cid" || secret != "csecret" {
				t.Errorf("unexpected client credentials %q/%q", id, secret)
			}
			_ = r.ParseForm()
			if r.PostForm.Get("grant_type") != "password" || r.PostForm.Get("username") != "bailaor" {
				t.Errorf("unexpected token form %v", r.PostForm)
			}
			_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
		case "/api/submit":
			if r.Header.Get("Authorization") != "Bearer tok" {
				t.Errorf("missing bearer token")
			}
			_ = r.ParseForm()
			if r.PostForm.Get("sr") != "flamenco" || r.PostForm.Get("kind") != "link" || r.PostForm.Get("url") != "https://blog.test/noche" {
				t.Errorf("unexpected submit form %v", r.PostForm)
			}
			_, _ = w.Write([]byte(`{"json":{"errors":[],"data":{"id":"abc","name":"t3_abc","url":"https://reddit.com/r/flamenco/abc"}}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	r := NewReddit(RedditConfig{
		ClientID: "cid", ClientSecret: "csecret", Username: "bailaor", Password: "pw",
		Subreddit: "flamenco", UserAgent: "test", AuthURL: server.URL, BaseURL: server.URL,
	}, nil)
	for range 2 {
		result, err := r.Post(context.Background(), Message{Title: "Noche", Link: "https://blog.test/noche"})
		if err != nil {
			t.Fatalf("Post: %v", err)
		}
		if result.PostID != "t3_abc" {
			t.Fatalf("unexpected result %+v", result)
		}
	}
	if tokenCalls.Load() != 1 {
		t.Fatalf("token should be cached, fetched %d times", tokenCalls.Load())
	}
}

func TestRedditSubmitErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/access_token" {
			_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
			return
		}
		_, _ = w.Write([]byte(`{"json":{"errors":[["RATELIMIT","you are doing that too much","ratelimit"]]}}`))
	}))
	defer server.Close()

	r := NewReddit(RedditConfig{ClientID: "c", Username: "u", Subreddit: "s", AuthURL: server.URL, BaseURL: server.URL}, nil)
	if _, err := r.Post(context.Background(), Message{Title: "x", Link: "https://b"}); err == nil || !strings.Contains(err.Error(), "RATELIMIT") {
		t.Fatalf("expected ratelimit error, got %v", err)
	}
}

func TestXPostStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"duplicate content"}`))
	}))
	defer server.Close()

	x := NewX(XConfig{AccessToken: "t", BaseURL: server.URL}, nil)
	_, err := x.Post(context.Background(), Message{Text: "hola"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusForbidden || statusErr.Platform != events.PlatformX {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestXPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if !strings.HasSuffix(payload["text"], "https://blog.test/p") {
			t.Errorf("tweet should end with link: %q", payload["text"])
		}
		_, _ = w.Write([]byte(`{"data":{"id":"555","text":"..."}}`))
	}))
	defer server.Close()

	x := NewX(XConfig{AccessToken: "t", BaseURL: server.URL}, nil)
	result, err := x.Post(context.Background(), Message{Text: "hola", Link: "https://blog.test/p"})
	if err != nil || result.PostID != "555" {
		t.Fatalf("unexpected result %+v err %v", result, err)
	}
}

func TestEnabledOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Social.X.Enabled = true
	cfg.Social.Pinterest.Enabled = true
	cfg.Social.Reddit.Enabled = true
	posters := Enabled(&cfg)
	var names []string
	for _, p := range posters {
		names = append(names, string(p.Platform()))
	}
	if strings.Join(names, ",") != "pinterest,reddit,x" {
		t.Fatalf("unexpected order %v", names)
	}
}
