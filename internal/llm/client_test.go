package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeOllama answers /api/generate with reply and records the last request.
func fakeOllama(t *testing.T, status int, reply string) (*httptest.Server, func() ollamaRequest, *atomic.Int32) {
	t.Helper()
	var (
		mu    sync.Mutex
		last  ollamaRequest
		calls atomic.Int32
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		last = req
		mu.Unlock()
		w.WriteHeader(status)
		if status == http.StatusOK {
			json.NewEncoder(w).Encode(ollamaResponse{Response: reply, Done: true})
			return
		}
		w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, func() ollamaRequest {
		mu.Lock()
		defer mu.Unlock()
		return last
	}, &calls
}

func TestGenerate(t *testing.T) {
	srv, lastReq, _ := fakeOllama(t, http.StatusOK, "```markdown\n# Jane Doe\n\n## Skills\n```")
	c := NewClient(srv.URL+"/", "llama2", time.Second, nil)
	defer c.Close()

	got, err := c.Generate(context.Background(), `{"name": "Jane Doe"}`, "Target a backend role")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "# Jane Doe\n\n## Skills" {
		t.Errorf("text = %q", got)
	}
	last := lastReq()
	if last.Model != "llama2" || last.Stream {
		t.Errorf("request = %+v", last)
	}
	for _, want := range []string{`{"name": "Jane Doe"}`, "Target a backend role"} {
		if !strings.Contains(last.Prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(last.Prompt, "{profile}") || strings.Contains(last.Prompt, "{instructions}") {
		t.Error("placeholders left in prompt")
	}
	if n := c.Stats().Generate.Count; n != 1 {
		t.Errorf("generate samples = %d", n)
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{"overloaded", http.StatusServiceUnavailable, "busy", true},
		{"rate limited", http.StatusTooManyRequests, "slow down", true},
		{"model missing", http.StatusNotFound, `{"error":"model not found"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := fakeOllama(t, tt.status, tt.body)
			c := NewClient(srv.URL, "llama2", time.Second, nil)
			_, err := c.Generate(context.Background(), "profile", "")
			if err == nil {
				t.Fatal("expected error")
			}
			if IsRetryable(err) != tt.retryable {
				t.Errorf("IsRetryable(%v) = %v, want %v", err, !tt.retryable, tt.retryable)
			}
		})
	}
}

func TestGenerate_ModelErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"out of memory"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "llama2", time.Second, nil).Generate(context.Background(), "p", "i")
	if err == nil || !strings.Contains(err.Error(), "out of memory") {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerate_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "llama2", time.Second, nil)
	if _, err := c.Generate(context.Background(), "p", "i"); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestGenerate_InstructionsTooLong(t *testing.T) {
	srv, _, calls := fakeOllama(t, http.StatusOK, "x")
	c := NewClient(srv.URL, "llama2", time.Second, nil)
	_, err := c.Generate(context.Background(), "p", strings.Repeat("a", MaxInstructionsLen+1))
	var ie *InputError
	if !errors.As(err, &ie) || ie.Field != "instructions" {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 0 {
		t.Error("model should not be called")
	}
}

func TestEnhance(t *testing.T) {
	srv, lastReq, _ := fakeOllama(t, http.StatusOK, "```\n\"Led a team of five engineers\"\n```")
	c := NewClient(srv.URL, "llama2", time.Second, nil)

	got, err := c.Enhance(context.Background(), "managed 5 devs", "")
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if got != "Led a team of five engineers" {
		t.Errorf("text = %q", got)
	}
	last := lastReq()
	if !strings.Contains(last.Prompt, DefaultEnhanceContext) || !strings.Contains(last.Prompt, "managed 5 devs") {
		t.Errorf("prompt = %q", last.Prompt)
	}

	if _, err := c.Enhance(context.Background(), "x", "job achievement"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(lastReq().Prompt, "job achievement") {
		t.Errorf("subject not in prompt")
	}
	if n := c.Stats().Enhance.Count; n != 2 {
		t.Errorf("enhance samples = %d", n)
	}
}

func TestEnhance_BlankText(t *testing.T) {
	srv, _, calls := fakeOllama(t, http.StatusOK, "x")
	c := NewClient(srv.URL, "llama2", time.Second, nil)
	if _, err := c.Enhance(context.Background(), "  \n", "summary"); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 0 {
		t.Error("model should not be called")
	}
}

func TestEnhance_EmptyReplyKeepsText(t *testing.T) {
	srv, _, _ := fakeOllama(t, http.StatusOK, "   ")
	c := NewClient(srv.URL, "llama2", time.Second, nil)
	got, err := c.Enhance(context.Background(), "built a CLI", "")
	if err != nil || got != "built a CLI" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestCleanGenerated(t *testing.T) {
	tests := []struct{ in, want string }{
		{"# A\n", "# A"},
		{"```\n# A\n- b\n```", "# A\n- b"},
		{"```md\n# A\n```\n", "# A"},
		{"# A\n```go\nx\n```", "# A\n```go\nx\n```"},
	}
	for _, tt := range tests {
		if got := CleanGenerated(tt.in); got != tt.want {
			t.Errorf("CleanGenerated(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanEnhanced(t *testing.T) {
	tests := []struct{ in, want string }{
		{`"Shipped v2"`, "Shipped v2"},
		{"'Shipped v2'\n", "Shipped v2"},
		{"```text\nShipped v2\n```", "Shipped v2"},
		{`Said "hi" twice`, `Said "hi" twice`},
	}
	for _, tt := range tests {
		if got := CleanEnhanced(tt.in); got != tt.want {
			t.Errorf("CleanEnhanced(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewResult(t *testing.T) {
	if r := NewResult("# A", nil); !r.Success || r.Text != "# A" || r.Error != "" {
		t.Errorf("success result = %+v", r)
	}
	if r := NewResult("ignored", errors.New("boom")); r.Success || r.Text != "" || r.Error != "boom" {
		t.Errorf("failure result = %+v", r)
	}
}
