package reasoner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnthropicCompleteWithSystem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Error("missing anthropic-version header")
		}

		var body anthropicRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.System != "be brief" {
			t.Errorf("system prompt = %q", body.System)
		}
		if len(body.Messages) != 1 || body.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", body.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "part one "},
				{"type": "text", "text": "part two"}
			],
			"stop_reason": "end_turn"
		}`))
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key")
	client.baseURL = server.URL

	got, err := client.CompleteWithSystem(context.Background(), "be brief", "hello")
	if err != nil {
		t.Fatalf("CompleteWithSystem: %v", err)
	}
	if got != "part one part two" {
		t.Errorf("completion = %q", got)
	}
}

func TestAnthropicMissingKey(t *testing.T) {
	client := NewAnthropicClient("")
	_, err := client.Complete(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for missing API key")
	}

	var re *Error
	if !errors.As(err, &re) {
		t.Fatalf("error %v is not a reasoner Error", err)
	}
	if re.Provider != "anthropic" {
		t.Errorf("provider = %q", re.Provider)
	}
}

func TestAnthropicAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"type": "overloaded_error", "message": "try later"}}`))
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key")
	client.baseURL = server.URL

	_, err := client.Complete(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error from 500 response")
	}
	if !IsReasonerError(err) {
		t.Errorf("error %v not recognized as reasoner error", err)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestOpenAIComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing bearer token")
		}

		var body openaiRequest
		json.NewDecoder(r.Body).Decode(&body)
		// Bare Complete sends no system message.
		if len(body.Messages) != 1 || body.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", body.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "  done  "}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key")
	client.baseURL = server.URL

	got, err := client.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "done" {
		t.Errorf("completion = %q, want trimmed %q", got, "done")
	}
}

func TestOpenAIRetriesRateLimit(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"choices": [{"message": {"content": "recovered"}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key")
	client.baseURL = server.URL

	got, err := client.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete after retry: %v", err)
	}
	if got != "recovered" {
		t.Errorf("completion = %q", got)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestGeminiCompleteWithSystem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "models/gemini-2.5-flash:generateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Error("missing key query parameter")
		}

		var body geminiRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.SystemInstruction == nil || body.SystemInstruction.Parts[0].Text != "be brief" {
			t.Errorf("systemInstruction = %+v", body.SystemInstruction)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [
				{"content": {"role": "model", "parts": [{"text": "verdict text"}]}, "finishReason": "STOP"}
			]
		}`))
	}))
	defer server.Close()

	client := NewGeminiClient("test-key")
	client.baseURL = server.URL

	got, err := client.CompleteWithSystem(context.Background(), "be brief", "hello")
	if err != nil {
		t.Fatalf("CompleteWithSystem: %v", err)
	}
	if got != "verdict text" {
		t.Errorf("completion = %q", got)
	}
}

func TestGeminiEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	client := NewGeminiClient("test-key")
	client.baseURL = server.URL

	_, err := client.Complete(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for empty candidates")
	}
	if !IsReasonerError(err) {
		t.Errorf("error %v not recognized as reasoner error", err)
	}
}
