package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"z-consensus-api/internal/domain/entity"
)

func TestOllamaGenerate(t *testing.T) {
	t.Parallel()

	var gotBody ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "Paris", "done": true})
	}))
	defer srv.Close()

	ad := newTestAdapter(t, entity.ParticipantConfig{
		Endpoint: srv.URL,
		Model:    "llama3:8b",
		Type:     entity.ProviderOllama,
	})

	text, err := ad.Generate(context.Background(), &GenerateRequest{Prompt: "capital of France?"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "Paris" {
		t.Errorf("text = %q", text)
	}
	if gotBody.Model != "llama3:8b" || gotBody.Prompt != "capital of France?" {
		t.Errorf("request = %+v", gotBody)
	}
	if gotBody.Stream {
		t.Error("stream must be disabled")
	}
	if len(gotBody.Images) != 0 {
		t.Errorf("unexpected images: %v", gotBody.Images)
	}
}

func TestOllamaGenerateImages(t *testing.T) {
	t.Parallel()

	var gotBody ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "a chart"})
	}))
	defer srv.Close()

	ad := newTestAdapter(t, entity.ParticipantConfig{
		Endpoint: srv.URL,
		Model:    "llava:13b",
		Type:     entity.ProviderOllama,
	})

	att := &entity.Attachment{
		Name:     "chart.png",
		MimeType: "image/png",
		Kind:     entity.AttachmentImage,
		Payload:  "aGVsbG8=",
	}
	if _, err := ad.Generate(context.Background(), &GenerateRequest{Prompt: "describe", Attachment: att}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// 裸 base64，不带 data URL 前缀
	if len(gotBody.Images) != 1 || gotBody.Images[0] != "aGVsbG8=" {
		t.Errorf("images = %v", gotBody.Images)
	}
}

func TestOllamaGenerateBodyError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model not found"})
	}))
	defer srv.Close()

	ad := newTestAdapter(t, entity.ParticipantConfig{
		Endpoint: srv.URL,
		Model:    "missing-model",
		Type:     entity.ProviderOllama,
	})
	_, err := ad.Generate(context.Background(), &GenerateRequest{Prompt: "ping"})
	if err == nil {
		t.Fatal("expected error")
	}
	var pe *Error
	if !errors.As(err, &pe) || pe.Kind != KindMalformedResponse {
		t.Errorf("err = %v", err)
	}
}

func TestOllamaGenerateHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ad := newTestAdapter(t, entity.ParticipantConfig{
		Endpoint: srv.URL,
		Model:    "llama3:8b",
		Type:     entity.ProviderOllama,
	})
	_, err := ad.Generate(context.Background(), &GenerateRequest{Prompt: "ping"})
	var pe *Error
	if !errors.As(err, &pe) || pe.Kind != KindUnavailable {
		t.Errorf("err = %v", err)
	}
	if pe.Status != http.StatusServiceUnavailable {
		t.Errorf("status = %d", pe.Status)
	}
}
