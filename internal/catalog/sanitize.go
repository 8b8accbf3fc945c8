package catalog

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var descriptionPolicy = bluemonday.UGCPolicy()

// sanitizeDescription strips unsafe markup; blank results collapse to nil.
func sanitizeDescription(in *string) *string {
	if in == nil {
		return nil
	}
	cleaned := strings.TrimSpace(descriptionPolicy.Sanitize(*in))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
