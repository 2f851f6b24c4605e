package view

import (
	_ "embed"
	"strings"
	"sync"
	"text/template"

	"github.com/kapu/kfp-startpage/internal/samples"
)

//go:embed getting_started.md
var documentSource string

var (
	documentTemplate *template.Template
	documentOnce     sync.Once
	documentErr      error
)

type documentLinks struct {
	Data    string
	Control string
}

// Document fills the Getting Started markdown with the resolved links placed
// according to topics.
func Document(links []string, topics samples.Topics) (string, error) {
	documentOnce.Do(func() {
		documentTemplate, documentErr = template.New("getting_started").Parse(documentSource)
	})
	if documentErr != nil {
		return "", documentErr
	}

	var sb strings.Builder
	err := documentTemplate.Execute(&sb, documentLinks{
		Data:    linkAt(links, topics.Data),
		Control: linkAt(links, topics.Control),
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

func linkAt(links []string, idx int) string {
	if idx < 0 || idx >= len(links) {
		return fallbackLink
	}
	return links[idx]
}
