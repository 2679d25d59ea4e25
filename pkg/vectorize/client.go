// Package vectorize is an HTTP client for the embedding sidecar, which serves
// a sentence-transformer text model and a CLIP image model behind a small
// JSON API.
package vectorize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"
)

// DefaultTimeout bounds every request to the embedding service.
const DefaultTimeout = 15 * time.Second

// Client talks to the embedding service.
type Client struct {
	baseURL    string
	textModel  string
	imageModel string
	client     *http.Client
}

// New creates an embedding client. Empty model names let the service pick
// its defaults.
func New(baseURL, textModel, imageModel string) *Client {
	return &Client{
		baseURL:    baseURL,
		textModel:  textModel,
		imageModel: imageModel,
		client:     &http.Client{Timeout: DefaultTimeout},
	}
}

// SetTimeout overrides the per-request timeout. Non-positive values keep
// DefaultTimeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.client.Timeout = d
	}
}

type embedTextReq struct {
	Model string `json:"model,omitempty"`
	Text  string `json:"text"`
}

type embedImageReq struct {
	Model string `json:"model,omitempty"`
	URL   string `json:"url"`
}

type embedResp struct {
	Embedding []float32 `json:"embedding"`
}

// Dimensions reports the vector width of each modality.
type Dimensions struct {
	Text  int `json:"text"`
	Image int `json:"image"`
}

// EmbedText returns a unit-normalized embedding for the input text.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var resp embedResp
	if err := c.post(ctx, "/embed/text", embedTextReq{Model: c.textModel, Text: text}, &resp); err != nil {
		return nil, fmt.Errorf("vectorize text: %w", err)
	}
	return normalize(resp.Embedding), nil
}

// EmbedImage returns a unit-normalized CLIP embedding for the image at the
// given URL. The service downloads the image itself.
func (c *Client) EmbedImage(ctx context.Context, imageURL string) ([]float32, error) {
	var resp embedResp
	if err := c.post(ctx, "/embed/image", embedImageReq{Model: c.imageModel, URL: imageURL}, &resp); err != nil {
		return nil, fmt.Errorf("vectorize image %s: %w", imageURL, err)
	}
	return normalize(resp.Embedding), nil
}

// Dimension returns the embedding width for the named modality
// ("text" or "image").
func (c *Client) Dimension(ctx context.Context, modality string) (int, error) {
	dims, err := c.Dimensions(ctx)
	if err != nil {
		return 0, err
	}
	switch modality {
	case "text":
		return dims.Text, nil
	case "image":
		return dims.Image, nil
	}
	return 0, fmt.Errorf("vectorize: unknown modality %q", modality)
}

// Dimensions fetches both modality widths in one call.
func (c *Client) Dimensions(ctx context.Context) (Dimensions, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/embed/dims", nil)
	if err != nil {
		return Dimensions{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Dimensions{}, fmt.Errorf("vectorize dims: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Dimensions{}, fmt.Errorf("vectorize dims: status %d", resp.StatusCode)
	}
	var dims Dimensions
	if err := json.NewDecoder(resp.Body).Decode(&dims); err != nil {
		return Dimensions{}, fmt.Errorf("vectorize dims decode: %w", err)
	}
	return dims, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out *embedResp) error {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if len(out.Embedding) == 0 {
		return fmt.Errorf("empty embedding")
	}
	return nil
}

// normalize scales v to unit length. Models are asked for normalized output
// already; this guards against services that skip it.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
