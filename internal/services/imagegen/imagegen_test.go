package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateDecodesPrediction(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	var got predictRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/imagen-3:predict" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"predictions": []any{map[string]any{
				"bytesBase64Encoded": base64.StdEncoding.EncodeToString(png),
				"mimeType":           "image/png",
			}},
		})
	}))
	defer server.Close()

	client := New(Config{APIKey: "key", BaseURL: server.URL + "/", Model: "imagen-3", AspectRatio: "16:9"}, nil)
	img, err := client.Generate(context.Background(), "a tablao at night")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(img.Data) != string(png) || img.Extension() != ".png" {
		t.Fatalf("unexpected image %+v", img)
	}
	if len(got.Instances) != 1 || got.Instances[0].Prompt != "a tablao at night" || got.Parameters.AspectRatio != "16:9" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestGenerateFilteredPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"predictions":[]}`))
	}))
	defer server.Close()

	client := New(Config{APIKey: "key", BaseURL: server.URL, Model: "m"}, nil)
	if _, err := client.Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for empty predictions")
	}
}

func TestGenerateStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(Config{APIKey: "key", BaseURL: server.URL, Model: "m"}, nil)
	_, err := client.Generate(context.Background(), "prompt")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || !statusErr.Transient() {
		t.Fatalf("expected transient status error, got %v", err)
	}
}

func TestGenerateRequiresKeyAndPrompt(t *testing.T) {
	client := New(Config{BaseURL: "http://unused", Model: "m"}, nil)
	if _, err := client.Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected missing key error")
	}
	client = New(Config{APIKey: "k"}, nil)
	if _, err := client.Generate(context.Background(), "  "); err == nil {
		t.Fatal("expected missing prompt error")
	}
}
