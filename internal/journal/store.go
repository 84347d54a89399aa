// Package journal persists the ordered record list and merges finalized
// records into it.
//
// The persisted layout is deliberately simple: one serialized array of
// records under a single storage key, written whole on every save. There is
// no version field and no migration path; schema changes are additive-only
// (new optional fields default to absent on read).
package journal

import (
	"context"

	"github.com/voxjot/voxjot/pkg/types"
)

// Store persists the full ordered record list as a single blob.
//
// Load returns an empty list when storage is absent or the stored blob is
// corrupt; corruption is swallowed, not reported, so a damaged journal never
// blocks capture. Save replaces the entire persisted list atomically from the
// caller's perspective: on error the prior persisted state is intact.
type Store interface {
	Load(ctx context.Context) ([]types.Record, error)
	Save(ctx context.Context, records []types.Record) error
}
