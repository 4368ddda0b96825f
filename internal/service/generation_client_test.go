package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGenerateImageDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"output":"https://cdn/out.png","description":"caption","logoUrl":"https://cdn/logo.png","user_input":"bakery"}}`))
	}))
	defer srv.Close()

	c := NewGenerationClient(srv.URL, srv.URL, 5, 5, testLogger())
	result, err := c.GenerateImage(context.Background(), ImageGenerationRequest{Prompt: "bakery"})
	if err != nil {
		t.Fatal(err)
	}
	if result.OutputURL != "https://cdn/out.png" || result.Description != "caption" || result.LogoURL != "https://cdn/logo.png" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestGenerateImagePropagatesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"content policy violation"}`))
	}))
	defer srv.Close()

	c := NewGenerationClient(srv.URL, srv.URL, 5, 5, testLogger())
	_, err := c.GenerateImage(context.Background(), ImageGenerationRequest{Prompt: "p"})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	// The upstream message passes through verbatim.
	if !strings.Contains(err.Error(), "content policy violation") {
		t.Fatalf("upstream error message lost: %v", err)
	}
}

func TestGenerateVideoObjectShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"output":"https://cdn/out.mp4"}}`))
	}))
	defer srv.Close()

	c := NewGenerationClient(srv.URL, srv.URL, 5, 5, testLogger())
	result, err := c.GenerateVideo(context.Background(), VideoGenerationRequest{ProductName: "cake"})
	if err != nil {
		t.Fatal(err)
	}
	if result.OutputURL != "https://cdn/out.mp4" {
		t.Fatalf("output = %s", result.OutputURL)
	}
}

func TestGenerateVideoLegacyArrayShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(` [{"status":"true","url":"https://cdn/legacy.mp4"}]`))
	}))
	defer srv.Close()

	c := NewGenerationClient(srv.URL, srv.URL, 5, 5, testLogger())
	result, err := c.GenerateVideo(context.Background(), VideoGenerationRequest{ProductName: "cake"})
	if err != nil {
		t.Fatal(err)
	}
	if result.OutputURL != "https://cdn/legacy.mp4" {
		t.Fatalf("output = %s", result.OutputURL)
	}
}

func TestGenerateVideoLegacyArrayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"status":"false","url":""}]`))
	}))
	defer srv.Close()

	c := NewGenerationClient(srv.URL, srv.URL, 5, 5, testLogger())
	if _, err := c.GenerateVideo(context.Background(), VideoGenerationRequest{}); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerationTimeoutIsDistinct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Second)
	}))
	defer srv.Close()

	c := NewGenerationClient(srv.URL, srv.URL, 1, 1, testLogger())
	_, err := c.GenerateImage(context.Background(), ImageGenerationRequest{Prompt: "p"})
	if !errors.Is(err, ErrGenerationTimeout) {
		t.Fatalf("expected ErrGenerationTimeout, got %v", err)
	}
	if errors.Is(err, ErrGenerationFailed) {
		t.Fatal("timeout must not be classified as a generic failure")
	}
}

func TestCallerCancellationIsNotTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	c := NewGenerationClient(srv.URL, srv.URL, 30, 30, testLogger())
	_, err := c.GenerateImage(ctx, ImageGenerationRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error on cancellation")
	}
	if errors.Is(err, ErrGenerationTimeout) {
		t.Fatal("caller cancellation misreported as generation timeout")
	}
}
