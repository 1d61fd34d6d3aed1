package compare

import (
	"github.com/nao1215/prayertimes/internal/model"
)

// CellChange is one cell whose value differs between the documents.
type CellChange struct {
	// Row is the zero based row index.
	Row   int
	Label string
	Old   string
	New   string
}

// DistrictDiff lists the changes of a district present in both documents.
type DistrictDiff struct {
	District model.DistrictID
	OldRows  int
	NewRows  int

	// AddedLabels and RemovedLabels compare the label unions of the records.
	AddedLabels   []string
	RemovedLabels []string

	// Cells holds value changes in rows present in both records.
	Cells []CellChange
}

// Changed reports whether the district differs at all.
func (d DistrictDiff) Changed() bool {
	return d.OldRows != d.NewRows ||
		len(d.AddedLabels) > 0 ||
		len(d.RemovedLabels) > 0 ||
		len(d.Cells) > 0
}

// Result is the comparison of two documents.
type Result struct {
	// Added are districts only in the new document, in its order.
	Added []model.DistrictID

	// Removed are districts only in the old document, in its order.
	Removed []model.DistrictID

	// Changed are districts present in both with differences, in the
	// new document's order.
	Changed []DistrictDiff

	// Unchanged counts districts that are identical in both documents.
	Unchanged int
}

// HasChanges reports whether the documents differ.
func (r *Result) HasChanges() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0 || len(r.Changed) > 0
}

// Documents compares oldDoc with newDoc. A nil document is treated as empty.
func Documents(oldDoc, newDoc *model.Document) *Result {
	if oldDoc == nil {
		oldDoc = model.NewDocument()
	}
	if newDoc == nil {
		newDoc = model.NewDocument()
	}

	res := &Result{
		Added:   make([]model.DistrictID, 0),
		Removed: make([]model.DistrictID, 0),
		Changed: make([]DistrictDiff, 0),
	}

	for _, district := range oldDoc.Districts() {
		if !newDoc.Has(district) {
			res.Removed = append(res.Removed, district)
		}
	}

	for _, district := range newDoc.Districts() {
		newRec, _ := newDoc.Get(district)
		oldRec, ok := oldDoc.Get(district)
		if !ok {
			res.Added = append(res.Added, district)
			continue
		}

		diff := Records(district, oldRec, newRec)
		if diff.Changed() {
			res.Changed = append(res.Changed, diff)
		} else {
			res.Unchanged++
		}
	}

	return res
}

// Records compares the rows of one district.
func Records(district model.DistrictID, oldRec, newRec model.DistrictRecord) DistrictDiff {
	diff := DistrictDiff{
		District: district,
		OldRows:  len(oldRec),
		NewRows:  len(newRec),
	}

	oldLabels, newLabels := oldRec.Labels(), newRec.Labels()
	diff.AddedLabels = missingFrom(newLabels, oldLabels)
	diff.RemovedLabels = missingFrom(oldLabels, newLabels)

	n := min(len(oldRec), len(newRec))
	for i := range n {
		for _, f := range newRec[i].Fields() {
			before, ok := oldRec[i].Get(f.Label)
			if !ok || before == f.Value {
				continue
			}
			diff.Cells = append(diff.Cells, CellChange{
				Row:   i,
				Label: f.Label,
				Old:   before,
				New:   f.Value,
			})
		}
	}

	return diff
}

// missingFrom returns the entries of a that are not in b, in a's order.
func missingFrom(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	var out []string
	for _, s := range a {
		if !set[s] {
			out = append(out, s)
		}
	}
	return out
}
