//go:build !swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
)

// MountSwagger reports false: the docs UI is only compiled in with
// -tags=swagger.
func MountSwagger(chi.Router) bool { return false }
