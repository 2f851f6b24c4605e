package samples

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kapu/kfp-startpage/pkg/errors"
)

func TestLoadBundledSamples(t *testing.T) {
	catalog, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(catalog.Names) != 2 {
		t.Fatalf("unexpected names: %v", catalog.Names)
	}
	if catalog.Names[catalog.Topics.Data] != "[Tutorial] Data passing in python components" {
		t.Fatalf("data topic points at %q", catalog.Names[catalog.Topics.Data])
	}
	if catalog.Names[catalog.Topics.Control] != "[Tutorial] DSL - Control structures" {
		t.Fatalf("control topic points at %q", catalog.Names[catalog.Topics.Control])
	}
}

func TestParseYAMLMappingWithTopics(t *testing.T) {
	catalog, err := Parse([]byte(`
names:
  - controlPipeline
  - dataPipeline
topics:
  data: 1
  control: 0
`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if catalog.Topics.Data != 1 || catalog.Topics.Control != 0 {
		t.Fatalf("topics not applied: %+v", catalog.Topics)
	}
}

func TestParseRejectsOutOfRangeTopic(t *testing.T) {
	_, err := Parse([]byte(`["onlyOne"]`))

	var validationErr *errors.ValidationError
	if !stderrors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Field != "topics.control" {
		t.Fatalf("unexpected field: %s", validationErr.Field)
	}
}

func TestParseRejectsEmptyName(t *testing.T) {
	if _, err := Parse([]byte(`["a", " "]`)); err == nil {
		t.Fatalf("expected error for blank name")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))

	var cfgErr *errors.ConfigError
	if !stderrors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.json")
	if err := os.WriteFile(path, []byte(`["dataPipeline", "controlPipeline"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	catalog, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if catalog.Names[0] != "dataPipeline" || catalog.Names[1] != "controlPipeline" {
		t.Fatalf("unexpected names: %v", catalog.Names)
	}
}
