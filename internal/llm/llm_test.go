package llm

import (
	"context"
	"strings"
	"testing"

	"google.golang.org/genai"
)

func TestNewClient_NoAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	if err == nil {
		t.Fatal("Expected error when no API key is available")
	}
	if !strings.Contains(err.Error(), "gemini API key is required") {
		t.Errorf("Expected API key error, got: %v", err)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(context.Background(), Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.textModel != DefaultTextModel {
		t.Errorf("Expected text model %s, got %s", DefaultTextModel, client.textModel)
	}
	if client.imageModel != DefaultImageModel {
		t.Errorf("Expected image model %s, got %s", DefaultImageModel, client.imageModel)
	}
	if client.attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", client.attempts)
	}
	if client.timeout != DefaultTimeout {
		t.Errorf("Expected timeout %v, got %v", DefaultTimeout, client.timeout)
	}
}

func TestBuildConfig(t *testing.T) {
	schema := &genai.Schema{Type: genai.TypeObject}

	t.Run("schema sets JSON mime type", func(t *testing.T) {
		cfg := buildConfig(TextGenerationOptions{ResponseSchema: schema}, 0)
		if cfg.ResponseMIMEType != "application/json" {
			t.Errorf("Expected application/json, got %q", cfg.ResponseMIMEType)
		}
		if cfg.ResponseSchema != schema {
			t.Error("Expected response schema to be set")
		}
		if len(cfg.Tools) != 0 {
			t.Errorf("Expected no tools, got %d", len(cfg.Tools))
		}
	})

	t.Run("grounded adds search tool and drops schema", func(t *testing.T) {
		cfg := buildConfig(TextGenerationOptions{Grounded: true, ResponseSchema: schema}, 0)
		if len(cfg.Tools) != 1 || cfg.Tools[0].GoogleSearch == nil {
			t.Fatal("Expected GoogleSearch tool")
		}
		if cfg.ResponseSchema != nil || cfg.ResponseMIMEType != "" {
			t.Error("Expected schema to be dropped for grounded calls")
		}
	})

	t.Run("system instruction and temperature", func(t *testing.T) {
		cfg := buildConfig(TextGenerationOptions{SystemInstruction: "be brief", Temperature: 0.2}, 0.7)
		if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != "be brief" {
			t.Error("Expected system instruction to be set")
		}
		if cfg.Temperature == nil || *cfg.Temperature != 0.2 {
			t.Errorf("Expected temperature override 0.2, got %v", cfg.Temperature)
		}
	})

	t.Run("client default temperature", func(t *testing.T) {
		cfg := buildConfig(TextGenerationOptions{}, 0.7)
		if cfg.Temperature == nil || *cfg.Temperature != 0.7 {
			t.Errorf("Expected default temperature 0.7, got %v", cfg.Temperature)
		}
	})
}

func TestGroundingSources(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{
					{Web: &genai.GroundingChunkWeb{URI: "https://known.example/a", Title: "A"}},
					{Web: nil},
					{Web: &genai.GroundingChunkWeb{URI: ""}},
					{Web: &genai.GroundingChunkWeb{URI: "https://known.example/b", Title: "B"}},
				},
			},
		}},
	}

	sources := groundingSources(resp)
	if len(sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(sources))
	}
	if sources[0].URI != "https://known.example/a" || sources[0].Title != "A" {
		t.Errorf("Unexpected first source: %+v", sources[0])
	}
	if groundingSources(nil) != nil {
		t.Error("Expected nil sources for nil response")
	}
}

func TestVideoResult(t *testing.T) {
	if res := videoResult(&genai.GenerateVideosOperation{Done: false}); res.Done {
		t.Error("Expected pending operation to be not done")
	}

	failed := videoResult(&genai.GenerateVideosOperation{Done: true, Error: map[string]any{"message": "quota"}})
	if !failed.Done || failed.Err == nil {
		t.Error("Expected failed operation to carry an error")
	}

	done := videoResult(&genai.GenerateVideosOperation{
		Done: true,
		Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{{Video: &genai.Video{URI: "https://video.example/v.mp4"}}},
		},
	})
	if done.URI != "https://video.example/v.mp4" || done.Err != nil {
		t.Errorf("Unexpected completed result: %+v", done)
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		IsFresh bool `json:"is_fresh"`
	}
	if err := DecodeJSON("```json\n{\"is_fresh\": true}\n```", &out); err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if !out.IsFresh {
		t.Error("Expected is_fresh to be true")
	}
	if err := DecodeJSON("not json", &out); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}
