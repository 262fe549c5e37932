package defra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy_500", http.StatusInternalServerError, true},
		{"unhealthy_503", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health-check" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			err := NewClient(server.URL).HealthCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnhealthy) {
				t.Errorf("error should wrap ErrUnhealthy: %v", err)
			}
		})
	}
}

func TestWaitHealthy(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := waitHealthy(context.Background(), NewClient(server.URL), 5*time.Second); err != nil {
		t.Fatalf("waitHealthy() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestClient_Find(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/graphql" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req GQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		want := `query { PbPage(filter: {key: {_eq: "b:page:1"}}) { _docID key ocr_text } }`
		if req.Query != want {
			t.Errorf("query = %s\nwant   %s", req.Query, want)
		}
		w.Write([]byte(`{"data":{"PbPage":[{"_docID":"bae-1","key":"b:page:1","ocr_text":"1. Текст"}]}}`))
	}))
	defer server.Close()

	docs, err := NewClient(server.URL).Find(context.Background(), "PbPage",
		map[string]any{"key": map[string]any{"_eq": "b:page:1"}}, []string{"key", "ocr_text"})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(docs) != 1 || docs[0]["ocr_text"] != "1. Текст" {
		t.Errorf("docs = %v", docs)
	}
}

func TestClient_GraphQLError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"collection not found"}]}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).DeleteWhere(context.Background(), "PbProblem", map[string]any{"page_id": map[string]any{"_eq": "x"}})
	if err == nil || !strings.Contains(err.Error(), "collection not found") {
		t.Errorf("DeleteWhere() error = %v", err)
	}
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Execute(context.Background(), "query { x }", nil)
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestClient_AddSchemaAlreadyExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"collection already exists"}`))
	}))
	defer server.Close()

	if err := NewClient(server.URL).AddSchema(context.Background(), "type PbBook { key: String }"); err != nil {
		t.Errorf("AddSchema() error = %v, want nil for existing collection", err)
	}
}

func TestValueToGraphQL(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"string escapes", "a\"b\nc", `"a\"b\nc"`},
		{"int", 42, "42"},
		{"bool", true, "true"},
		{"strings", []string{"a", "b"}, `["a", "b"]`},
		{"nested sorted", map[string]any{"b": 1, "a": map[string]any{"_eq": "x"}}, `{a: {_eq: "x"}, b: 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := valueToGraphQL(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("valueToGraphQL() = %s, want %s", got, tt.want)
			}
		})
	}
}
