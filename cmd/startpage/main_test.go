package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kapu/kfp-startpage/internal/domain"
)

func setupCLIEnv(t *testing.T) {
	t.Helper()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var list domain.PipelineList
		if decoded, err := url.QueryUnescape(r.URL.Query().Get("filter")); err == nil {
			var filter domain.Filter
			if json.Unmarshal([]byte(decoded), &filter) == nil &&
				len(filter.Predicates) == 1 && filter.Predicates[0].StringValue == "dataPipeline" {
				list.Pipelines = []domain.Pipeline{{PipelineID: "p1", DisplayName: "dataPipeline"}}
			}
		}
		_ = json.NewEncoder(w).Encode(list)
	}))
	t.Cleanup(api.Close)

	path := filepath.Join(t.TempDir(), "samples.json")
	if err := os.WriteFile(path, []byte(`["dataPipeline", "controlPipeline"]`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("KFP_API_BASE_URL", api.URL)
	t.Setenv("SAMPLES_FILE", path)
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FILE", "")
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestResolveCommandPrintsLinks(t *testing.T) {
	setupCLIEnv(t)

	got := runCLI(t, "resolve")
	want := "dataPipeline\t#/pipelines/details/p1\ncontrolPipeline\t#/pipelines\n"
	if got != want {
		t.Fatalf("resolve output = %q, want %q", got, want)
	}
}

func TestRenderCommandPrintsDocument(t *testing.T) {
	setupCLIEnv(t)

	md := runCLI(t, "render")
	if !strings.Contains(md, "(#/pipelines/details/p1)") || !strings.Contains(md, "(#/pipelines)") {
		t.Fatalf("markdown missing resolved links:\n%s", md)
	}

	html := runCLI(t, "render", "--html")
	if !strings.Contains(html, `href="#/pipelines/details/p1"`) {
		t.Fatalf("html missing resolved link:\n%s", html)
	}
	if err := renderCmd.Flags().Set("html", "false"); err != nil {
		t.Fatal(err)
	}
}

func TestVersionCommand(t *testing.T) {
	if got := runCLI(t, "version"); got != "startpage version dev\n" {
		t.Fatalf("unexpected version output: %q", got)
	}
}
