// Package routes maps pipeline identifiers to in-app hash routes.
package routes

import (
	"net/url"

	"github.com/kapu/kfp-startpage/internal/constants"
)

// PipelineDetails returns the router path of a pipeline's detail view.
func PipelineDetails(id string) string {
	return constants.Routes.PipelineDetails + url.PathEscape(id)
}

// PipelineLink returns the hash link for id, or the pipeline list when id is empty.
func PipelineLink(id string) string {
	if id == "" {
		return constants.Routes.Fallback
	}
	return "#" + PipelineDetails(id)
}

// IsInternal reports whether href is handled by the in-app router.
func IsInternal(href string) bool {
	return len(href) > 0 && href[0] == '#'
}
