package kfp

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/kapu/kfp-startpage/internal/domain"
)

// EncodeFilter serializes a filter and percent-encodes it the way the
// Pipelines UI does (encodeURIComponent). The API server unescapes the
// parameter once before parsing the JSON.
func EncodeFilter(filter domain.Filter) (string, error) {
	raw, err := json.Marshal(filter)
	if err != nil {
		return "", err
	}
	return encodeURIComponent(string(raw)), nil
}

var uriComponentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func encodeURIComponent(s string) string {
	return uriComponentReplacer.Replace(url.QueryEscape(s))
}
