// Package registry answers which models the daemon holds locally.
package registry

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"modelgate/pkg/types"
)

// Lister returns the daemon's local models. *ollama.Client satisfies it.
type Lister interface {
	Tags(ctx context.Context) ([]types.DaemonModel, error)
}

// Catalog queries a Lister and tests model membership.
type Catalog struct {
	src Lister
	log zerolog.Logger
}

// NewCatalog wraps src. A nil logger disables logging.
func NewCatalog(src Lister, logger *zerolog.Logger) *Catalog {
	c := &Catalog{src: src, log: zerolog.Nop()}
	if logger != nil {
		c.log = logger.With().Str("component", "catalog").Logger()
	}
	return c
}

// ListModels returns the identifiers of every locally available model.
func (c *Catalog) ListModels(ctx context.Context) ([]string, error) {
	models, err := c.src.Tags(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(models))
	for _, m := range models {
		if m.Name != "" {
			out = append(out, m.Name)
		}
	}
	return out, nil
}

// Lookup reports whether target is present, surfacing query failures.
func (c *Catalog) Lookup(ctx context.Context, target string) (bool, error) {
	names, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if MatchesModel(n, target) {
			return true, nil
		}
	}
	return false, nil
}

// HasModel is Lookup with query failures logged and treated as absent.
func (c *Catalog) HasModel(ctx context.Context, target string) bool {
	ok, err := c.Lookup(ctx, target)
	if err != nil {
		c.log.Warn().Err(err).Str("model", target).Msg("model list query failed")
		return false
	}
	return ok
}

// MatchesModel reports whether a locally stored model name satisfies target:
// either the exact identifier, or any tag of the same family ("gemma:7b"
// satisfies "gemma:2b"). Note the family match also accepts a different
// size of the same model.
func MatchesModel(name, target string) bool {
	if name == target {
		return true
	}
	return strings.HasPrefix(name, Family(target)+":")
}

// Family returns the part of a model identifier before the first ':'.
func Family(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		return id[:i]
	}
	return id
}
