package pipeline

import (
	"sync"

	"github.com/nao1215/prayertimes/internal/model"
)

// Aggregator owns the document of one run. It is safe for concurrent use.
type Aggregator struct {
	mu  sync.Mutex
	doc *model.Document
}

// NewAggregator returns an aggregator holding an empty document.
func NewAggregator() *Aggregator {
	return &Aggregator{doc: model.NewDocument()}
}

// Record inserts or overwrites the rows of district. Only successful
// districts are recorded; a failed district stays absent.
func (a *Aggregator) Record(district model.DistrictID, record model.DistrictRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.doc.Set(district, record)
}

// Len returns the number of recorded districts.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.doc.Len()
}

// Document returns the aggregated document. Callers must not record after
// taking the document.
func (a *Aggregator) Document() *model.Document {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.doc
}
