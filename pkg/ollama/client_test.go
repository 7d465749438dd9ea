package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calltriage/call-analyzer/pkg/config"
)

func testConfig(baseURL string) *config.OllamaConfig {
	return &config.OllamaConfig{
		BaseURL:        baseURL,
		Model:          "gemma3:12b",
		ConnectTimeout: 2 * time.Second,
		RequestTimeout: 5 * time.Second,
		Temperature:    0.7,
		TopP:           0.9,
		TopK:           40,
		RepeatPenalty:  1.1,
		NumPredict:     -1,
	}
}

func TestGenerateBlocking(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gemma3:12b" {
			t.Errorf("expected model gemma3:12b, got %s", req.Model)
		}
		if req.Stream {
			t.Error("expected stream=false")
		}
		if req.Options.Temperature != 0.7 {
			t.Errorf("expected temperature 0.7, got %v", req.Options.Temperature)
		}
		json.NewEncoder(w).Encode(generateChunk{Response: "  analysis output  ", Done: true})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	got, err := client.Generate(context.Background(), "summarize this")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "analysis output" {
		t.Errorf("expected trimmed response, got %q", got)
	}
}

func TestGenerateStreaming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("expected stream=true")
		}
		fmt.Fprintln(w, `{"response":"Hello ","done":false}`)
		fmt.Fprintln(w, `{"response":"world","done":false}`)
		fmt.Fprintln(w, `{"response":"","done":true}`)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Stream = true
	client := NewClient(cfg, nil)

	got, err := client.Generate(context.Background(), "greet")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "Hello world" {
		t.Errorf("expected concatenated chunks, got %q", got)
	}
}

func TestGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	if _, err := client.Generate(context.Background(), "anything"); err == nil {
		t.Fatal("expected error on HTTP 500")
	}
}

func TestNumPredictOmittedWhenUnlimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]interface{}
		json.NewDecoder(r.Body).Decode(&raw)
		opts := raw["options"].(map[string]interface{})
		if _, ok := opts["num_predict"]; ok {
			t.Error("num_predict should be omitted when <= 0")
		}
		json.NewEncoder(w).Encode(generateChunk{Response: "ok", Done: true})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	if _, err := client.Generate(context.Background(), "x"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"gemma3:12b"},{"name":"llama3:8b"}]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 || models[0] != "gemma3:12b" {
		t.Errorf("unexpected model list: %v", models)
	}
}

func TestCheckModelAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"gemma3:12b"}]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	if err := client.CheckModel(context.Background()); err != nil {
		t.Fatalf("CheckModel failed: %v", err)
	}
}

func TestCheckModelMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"llama3:8b"}]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	err := client.CheckModel(context.Background())
	if err == nil {
		t.Fatal("expected error for missing model")
	}
}
