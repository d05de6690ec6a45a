package util

import (
	"net/http"

	"github.com/qredo/attestation-console/internal/defs"
)

const maxFormMemory = 32 << 20

// ParseForm parses url-encoded and multipart bodies alike
func ParseForm(r *http.Request) error {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && err != http.ErrNotMultipart {
		return defs.ErrBadRequest().WithDetail("invalid form body").Wrap(err)
	}

	if r.PostForm == nil {
		if err := r.ParseForm(); err != nil {
			return defs.ErrBadRequest().WithDetail("invalid form body").Wrap(err)
		}
	}

	return nil
}
