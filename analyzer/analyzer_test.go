package analyzer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jelmer/ognibuild/problem"
)

func TestFallbackReportsUnknown(t *testing.T) {
	p, err := Fallback{}.Analyze([]string{"gcc: error: foo.c: No such file", ""}, "build")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unk, ok := p.(problem.Unknown)
	if !ok {
		t.Fatalf("expected problem.Unknown, got %T", p)
	}
	if unk.Description == "" {
		t.Fatal("expected a non-empty summary")
	}
}

func TestHTTPAnalyzerDecodesMissingCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Phase != "build" {
			t.Fatalf("expected phase 'build', got %q", req.Phase)
		}
		json.NewEncoder(w).Encode(wireProblem{
			Kind:   string(problem.KindMissingCommand),
			Fields: map[string]string{"command": "pkg-config"},
		})
	}))
	defer srv.Close()

	a := NewHTTPAnalyzer(srv.URL)
	p, err := a.Analyze([]string{"configure: error: pkg-config not found"}, "build")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mc, ok := p.(problem.MissingCommand)
	if !ok {
		t.Fatalf("expected problem.MissingCommand, got %T", p)
	}
	if mc.Command != "pkg-config" {
		t.Fatalf("expected command pkg-config, got %q", mc.Command)
	}
}

func TestHTTPAnalyzerPropagatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewHTTPAnalyzer(srv.URL)
	_, err := a.Analyze([]string{"boom"}, "test")
	if err == nil {
		t.Fatal("expected an error for a non-200 analyser response")
	}
}
