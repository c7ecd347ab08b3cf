package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fakeOllama(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"response": reply, "done": true})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvert_MarkdownToHTML(t *testing.T) {
	in := writeFile(t, "cv.md", "# Jane Doe\n\n- Built **things**\n")
	out := filepath.Join(t.TempDir(), "out", "cv.html")

	if _, _, err := run(t, "", "convert", in, "--format", "html", "--out", out); err != nil {
		t.Fatalf("convert: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<h1>Jane Doe</h1>", "<strong>things</strong>"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestConvert_Stdout(t *testing.T) {
	in := writeFile(t, "cv.txt", "Jane Doe\n\nEngineer")
	stdout, _, err := run(t, "", "convert", in, "--out", "-")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if stdout != "Jane Doe\n\nEngineer\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestConvert_Errors(t *testing.T) {
	in := writeFile(t, "cv.md", "# Jane")
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unsupported input", []string{"convert", writeFile(t, "cv.xlsx", "x")}, "unsupported file extension"},
		{"missing input", []string{"convert", filepath.Join(t.TempDir(), "nope.md")}, "failed opening"},
		{"unknown format", []string{"convert", in, "--format", "odt", "--out", "-"}, "unsupported export format"},
		{"no args", []string{"convert"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, "", tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	srv := fakeOllama(t, "# Jane Doe\n\n```\nnot supported\n```\n")
	profilePath := writeFile(t, "profile.json", `{"name":"Jane Doe","skills":"Go"}`)

	stdout, stderr, err := run(t, "", "generate", "--verbose",
		"--ollama-url", srv.URL, "--profile", profilePath, "--out", "-")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(stdout, "# Jane Doe\n") {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "kept as text") {
		t.Errorf("expected degradation warning, stderr = %q", stderr)
	}
}

func TestGenerate_DefaultFilenameFromProfile(t *testing.T) {
	srv := fakeOllama(t, "# Jane Doe")
	profilePath := writeFile(t, "profile.json", `{"name":"Jane Doe"}`)

	dir := t.TempDir()
	t.Chdir(dir)
	if _, _, err := run(t, "", "generate", "--ollama-url", srv.URL, "--profile", profilePath); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Jane-Doe.md")); err != nil {
		t.Errorf("expected Jane-Doe.md: %v", err)
	}
}

func TestGenerate_Errors(t *testing.T) {
	srv := fakeOllama(t, "x")
	empty := writeFile(t, "profile.txt", "  \n")
	if _, _, err := run(t, "", "generate", "--ollama-url", srv.URL, "--profile", empty); err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Errorf("empty profile err = %v", err)
	}
	missing := filepath.Join(t.TempDir(), "nope.json")
	if _, _, err := run(t, "", "generate", "--ollama-url", srv.URL, "--profile", missing); err == nil || !strings.Contains(err.Error(), "failed reading profile") {
		t.Errorf("missing profile err = %v", err)
	}
}

func TestEnhance(t *testing.T) {
	srv := fakeOllama(t, `"Led the billing rewrite"`)

	stdout, _, err := run(t, "", "enhance", "worked on billing", "--ollama-url", srv.URL)
	if err != nil {
		t.Fatalf("enhance: %v", err)
	}
	if stdout != "Led the billing rewrite\n" {
		t.Errorf("stdout = %q", stdout)
	}

	stdout, _, err = run(t, "worked on billing\n", "enhance", "--ollama-url", srv.URL)
	if err != nil || stdout != "Led the billing rewrite\n" {
		t.Errorf("stdin enhance = %q, %v", stdout, err)
	}

	if _, _, err := run(t, "   ", "enhance", "--ollama-url", srv.URL); err == nil {
		t.Error("expected error for blank text")
	}
}

func TestProfileInput(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantTitle string
		contains  string
	}{
		{"profile record", `{"name":" Jane ","title":"SRE"}`, "Jane", `"title": "SRE"`},
		{"free text", "Jane Doe, SRE\n", "", "Jane Doe, SRE"},
		{"unrelated json", `{"foo":1}`, "", `{"foo":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, title := profileInput([]byte(tt.raw))
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if !strings.Contains(text, tt.contains) {
				t.Errorf("text = %q, want containing %q", text, tt.contains)
			}
		})
	}
}
