package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func completionReply(content string) string {
	reply := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	b, _ := json.Marshal(reply)
	return string(b)
}

func TestClassify_ParsesVerdict(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req["temperature"].(float64) != 0.3 {
			t.Errorf("Expected temperature 0.3, got %v", req["temperature"])
		}
		w.Write([]byte(completionReply(`{"toxicity_score": 0.85, "categories": ["harassment"], "reason": "personal attack"}`)))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "gpt-4", time.Second)
	v := c.Classify(context.Background(), "you are awful")

	if v.Failed {
		t.Fatal("Expected successful classification")
	}
	if v.Score != 0.85 {
		t.Errorf("Expected score 0.85, got %v", v.Score)
	}
	if len(v.Categories) != 1 || v.Categories[0] != "harassment" {
		t.Errorf("Unexpected categories: %v", v.Categories)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Expected bearer auth, got %q", gotAuth)
	}
}

func TestClassify_FencedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionReply("```json\n{\"toxicity_score\": 0.2, \"categories\": [], \"reason\": \"fine\"}\n```")))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "gpt-4", time.Second)
	v := c.Classify(context.Background(), "hello")
	if v.Failed || v.Score != 0.2 {
		t.Errorf("Expected fenced JSON to parse, got %+v", v)
	}
}

func TestClassify_FailOpen(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed content", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(completionReply("I cannot analyze that.")))
		}},
		{"missing score", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(completionReply(`{"categories": [], "reason": "no score"}`)))
		}},
		{"empty choices", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices": []}`))
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			c := New(srv.URL, "k", "gpt-4", time.Second)
			v := c.Classify(context.Background(), "hello")
			if !v.Failed {
				t.Fatal("Expected failed verdict")
			}
			if v.Score != 0 {
				t.Errorf("Failed verdict must carry score 0, got %v", v.Score)
			}
		})
	}
}

func TestClassify_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(completionReply(`{"toxicity_score": 0.9}`)))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "gpt-4", 50*time.Millisecond)
	v := c.Classify(context.Background(), "hello")
	if !v.Failed {
		t.Fatal("Expected timeout to produce a failed verdict")
	}
}

func TestClassify_ClampsScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionReply(`{"toxicity_score": 1.7, "categories": ["other"], "reason": "overshoot"}`)))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "gpt-4", time.Second)
	v := c.Classify(context.Background(), "hello")
	if v.Failed || v.Score != 1 {
		t.Errorf("Expected score clamped to 1, got %+v", v)
	}
}
