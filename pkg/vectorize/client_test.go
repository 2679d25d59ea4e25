package vectorize

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbedTextNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/text" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req embedTextReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Text != "hello" {
			t.Errorf("text = %q", req.Text)
		}
		json.NewEncoder(w).Encode(embedResp{Embedding: []float32{3, 4}})
	}))
	defer srv.Close()

	c := New(srv.URL, "all-mpnet-base-v2", "clip-vit-base-patch32")
	vec, err := c.EmbedText(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("vector not unit length: %v", vec)
	}
}

func TestEmbedImageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	if _, err := c.EmbedImage(context.Background(), "https://img.example/a.jpg"); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestEmptyEmbeddingRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResp{})
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	if _, err := c.EmbedText(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty embedding")
	}
}

func TestDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/dims" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Dimensions{Text: 768, Image: 512})
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	n, err := c.Dimension(context.Background(), "text")
	if err != nil {
		t.Fatal(err)
	}
	if n != 768 {
		t.Errorf("text dim = %d", n)
	}
	n, err = c.Dimension(context.Background(), "image")
	if err != nil || n != 512 {
		t.Errorf("image dim = %d, err = %v", n, err)
	}
	if _, err := c.Dimension(context.Background(), "audio"); err == nil {
		t.Error("unknown modality should error")
	}
}
