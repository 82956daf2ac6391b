package nl2sql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopchat/shopchat/internal/session"
)

func TestCleanSQL(t *testing.T) {
	cases := map[string]string{
		"```sql\nSELECT 1;\n```":               "SELECT 1;",
		"SQL: SELECT * FROM stores":            "SELECT * FROM stores;",
		"Query: SELECT 1;":                     "SELECT 1;",
		"SELECT   name\n FROM\tstores":         "SELECT name FROM stores;",
		"SELECT 1;":                            "SELECT 1;",
		"```\nSELECT count(*) FROM orders\n```": "SELECT count(*) FROM orders;",
		"":                                     "",
		"```sql```":                            "",
	}
	for input, want := range cases {
		if got := CleanSQL(input); got != want {
			t.Fatalf("CleanSQL(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTranslateCleansModelOutput(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "```sql\nSELECT *\nFROM stores\n```"}},
			},
		})
	}))
	defer srv.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-5"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}

	result, err := translator.Translate(context.Background(), Request{
		Schema:   "Table stores: retail locations",
		Question: "show all stores",
		Context: session.GenerationContext{
			PreviousQueries: []session.PreviousQuery{
				{UserQuery: "first", SQLQuery: "SELECT 1;"},
				{UserQuery: "second", SQLQuery: "SELECT 2;"},
				{UserQuery: "third", SQLQuery: "SELECT 3;"},
				{UserQuery: "fourth", SQLQuery: "SELECT 4;"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if result.SQL != "SELECT * FROM stores;" {
		t.Fatalf("SQL = %q", result.SQL)
	}
	if result.Provider != "openai-compatible" || result.Model != "gpt-5" {
		t.Fatalf("result = %+v", result)
	}

	messages := gotBody["messages"].([]any)
	userMessage := messages[1].(map[string]any)["content"].(string)
	if !strings.Contains(userMessage, "Table stores") {
		t.Fatal("prompt missing schema")
	}
	if strings.Contains(userMessage, "first") {
		t.Fatal("prompt should keep only the last three context turns")
	}
	if !strings.Contains(userMessage, "Previous Query: second -> SQL: SELECT 2;") {
		t.Fatalf("prompt context missing: %s", userMessage)
	}
}

func TestTranslateRejectsEmptyModelOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "```sql```"}}},
		})
	}))
	defer srv.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}
	if _, err := translator.Translate(context.Background(), Request{Question: "anything"}); err == nil {
		t.Fatal("expected error for empty SQL")
	}
}

func TestTranslateSurfacesHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}
	if _, err := translator.Translate(context.Background(), Request{Question: "anything"}); err == nil {
		t.Fatal("expected error for HTTP 429")
	}
}

func TestNewOpenAITranslatorValidation(t *testing.T) {
	if _, err := NewOpenAITranslator(OpenAIConfig{APIKey: "k"}); err == nil {
		t.Fatal("missing base URL should fail")
	}
	if _, err := NewOpenAITranslator(OpenAIConfig{BaseURL: "https://api.openai.com"}); err == nil {
		t.Fatal("missing api key should fail")
	}
}
