package dataset

import (
	"strings"

	"WhiskeyIndex/internal/domain"
)

// Skip reasons reported by Apply.
const (
	ReasonAlreadyAssigned = "already assigned"
	ReasonRowNotFound     = "row not found"
)

// Skip records an assignment that was not written.
type Skip struct {
	Key        domain.RowKey
	Identifier string
	Existing   string
	Reason     string
}

// Outcome summarises one Apply call.
type Outcome struct {
	Applied []domain.Assignment
	Skipped []Skip
}

// Apply writes assignments into rows whose identifier is still empty.
// A row that already holds an identifier is never overwritten, which makes
// re-applying the same assignments a no-op. NONE assignments are ignored.
func (d *Dataset) Apply(assignments []domain.Assignment) Outcome {
	byKey := d.keyIndex()

	var out Outcome
	for _, a := range assignments {
		if !a.Applicable() {
			continue
		}
		rows, ok := byKey[a.Key]
		if !ok {
			out.Skipped = append(out.Skipped, Skip{Key: a.Key, Identifier: a.Identifier, Reason: ReasonRowNotFound})
			continue
		}
		for _, i := range rows {
			existing := strings.TrimSpace(d.field(i, d.cols.Identifier))
			if existing != "" {
				out.Skipped = append(out.Skipped, Skip{
					Key:        a.Key,
					Identifier: a.Identifier,
					Existing:   existing,
					Reason:     ReasonAlreadyAssigned,
				})
				continue
			}
			d.setIdentifier(i, a.Identifier)
			out.Applied = append(out.Applied, a)
		}
	}
	return out
}

// Clear empties the identifier of every row holding one of identifiers and
// returns the keys of the rows it changed.
func (d *Dataset) Clear(identifiers []string) []domain.RowKey {
	targets := make(map[string]struct{}, len(identifiers))
	for _, id := range identifiers {
		if id = strings.TrimSpace(id); id != "" {
			targets[id] = struct{}{}
		}
	}

	var cleared []domain.RowKey
	for i := range d.records {
		current := strings.TrimSpace(d.field(i, d.cols.Identifier))
		if _, ok := targets[current]; !ok {
			continue
		}
		d.setIdentifier(i, "")
		cleared = append(cleared, d.release(i).Key())
	}
	return cleared
}

// Dirty reports whether any row changed since Load.
func (d *Dataset) Dirty() bool {
	for _, rec := range d.records {
		if rec.dirty {
			return true
		}
	}
	return false
}

func (d *Dataset) keyIndex() map[domain.RowKey][]int {
	idx := make(map[domain.RowKey][]int, len(d.records))
	for i := range d.records {
		key := d.release(i).Key()
		idx[key] = append(idx[key], i)
	}
	return idx
}
