// Package sources holds the ingestion connectors that pull signal items from
// external feeds into the corpus.
package sources

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"toolforge/pkg/config"
	"toolforge/pkg/corpus"
)

// Source is one ingestion connector.
type Source interface {
	// Name identifies the connector in logs and item records.
	Name() string

	// Fetch pulls the connector's current items. A connector failure is
	// isolated to that connector; ingestion continues with the rest.
	Fetch(ctx context.Context) ([]corpus.Item, error)
}

// ItemID derives a stable corpus id from a source prefix and a raw
// identifier, so re-ingesting the same entry is a no-op.
func ItemID(prefix, raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return prefix + "_" + hex.EncodeToString(sum[:])[:12]
}

// FromConfig builds the configured connectors.
func FromConfig(cfgs []config.SourceConfig) ([]Source, error) {
	srcs := make([]Source, 0, len(cfgs))
	for _, cfg := range cfgs {
		switch cfg.Type {
		case "rss":
			srcs = append(srcs, NewRSS(cfg.Name, cfg.URL))
		default:
			return nil, fmt.Errorf("unknown source type %q for %s", cfg.Type, cfg.Name)
		}
	}
	return srcs, nil
}
