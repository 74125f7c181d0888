package revise

import (
	"context"
	"errors"
	"fmt"

	"github.com/xhad/scribe/internal/models"
	"github.com/xhad/scribe/internal/types"
	"github.com/xhad/scribe/pkg/store"
)

// ErrNoMatch is returned when no stored record is similar enough to the
// reference text. The store is left untouched.
var ErrNoMatch = errors.New("revise: no matching record")

type ReviserConfig struct {
	// MinSimilarity is the cosine-similarity floor for accepting the nearest
	// record as the correction target. Below it the request fails with
	// ErrNoMatch instead of rewriting an unrelated record. Set to -1 to
	// accept any nearest neighbor.
	MinSimilarity float32
}

// Reviser implements find-best-match-then-replace against the store: the
// single nearest record to fromText is superseded by toText and tagged as
// user-updated. The match is fuzzy; fromText need not appear verbatim.
type Reviser struct {
	store  types.VectorStore
	config ReviserConfig
}

func NewWithConfig(st types.VectorStore, config ReviserConfig) *Reviser {
	if config.MinSimilarity == 0 {
		config.MinSimilarity = 0.2
	}
	return &Reviser{
		store:  st,
		config: config,
	}
}

// Apply replaces the record nearest to fromText with toText. The replaced
// record (pre-replacement content, post-replacement id) is returned so the
// caller can report what was corrected.
func (r *Reviser) Apply(ctx context.Context, fromText, toText string) (models.Record, error) {
	results, err := r.store.Query(ctx, fromText, 1)
	if err != nil {
		return models.Record{}, fmt.Errorf("lookup failed: %w", err)
	}
	if len(results) == 0 || results[0].Score < r.config.MinSimilarity {
		return models.Record{}, ErrNoMatch
	}

	target := results[0]
	err = r.store.Replace(ctx, target.ID, toText, map[string]interface{}{"source": "updated"})
	if errors.Is(err, store.ErrNotFound) {
		// The record vanished between lookup and replace.
		return models.Record{}, ErrNoMatch
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("replace failed: %w", err)
	}

	return target, nil
}
