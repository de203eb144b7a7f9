// Package imagegen generates event artwork through the Gemini Imagen
// predict endpoint.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 90 * time.Second

// Image is one generated picture.
type Image struct {
	Data     []byte
	MIMEType string
}

// Extension returns a file extension for the image MIME type.
func (i Image) Extension() string {
	switch strings.ToLower(i.MIMEType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// Generator produces images from text prompts.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Image, error)
}

// Config contains Imagen connection settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	AspectRatio    string
	TimeoutSeconds int
}

// Client calls {BaseURL}/{Model}:predict.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New returns an Imagen client.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := defaultTimeout
		if cfg.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Model = strings.TrimSpace(cfg.Model)
	return &Client{cfg: cfg, httpClient: httpClient}
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount int    `json:"sampleCount"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MIMEType           string `json:"mimeType"`
	} `json:"predictions"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate requests a single image for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (Image, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Image{}, errors.New("imagegen: prompt required")
	}
	if c.cfg.APIKey == "" {
		return Image{}, errors.New("imagegen: api key required")
	}
	body, err := json.Marshal(predictRequest{
		Instances:  []predictInstance{{Prompt: prompt}},
		Parameters: predictParameters{SampleCount: 1, AspectRatio: c.cfg.AspectRatio},
	})
	if err != nil {
		return Image{}, fmt.Errorf("imagegen: encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/%s:predict", c.cfg.BaseURL, c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Image{}, fmt.Errorf("imagegen: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("imagegen: request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Image{}, fmt.Errorf("imagegen: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return Image{}, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var decoded predictResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Image{}, fmt.Errorf("imagegen: decode response: %w", err)
	}
	if decoded.Error != nil {
		return Image{}, fmt.Errorf("imagegen: api error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	for _, prediction := range decoded.Predictions {
		if prediction.BytesBase64Encoded == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(prediction.BytesBase64Encoded)
		if err != nil {
			return Image{}, fmt.Errorf("imagegen: decode image: %w", err)
		}
		mime := prediction.MIMEType
		if mime == "" {
			mime = http.DetectContentType(data)
		}
		return Image{Data: data, MIMEType: mime}, nil
	}
	return Image{}, errors.New("imagegen: no image in response (prompt may have been filtered)")
}

// StatusError reports a non-2xx Imagen response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("imagegen: status %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
