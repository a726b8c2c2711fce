package generate

import (
	"context"
	"fmt"

	"historia-diaria/internal/domain/entity"
)

// FactInserter is the store operation the writer needs.
type FactInserter interface {
	Insert(ctx context.Context, mode entity.RunMode, fact *entity.HistoricalFact) (int64, error)
}

// PersistenceWriter inserts validated facts into the table of the run mode.
// Failures are returned as *InsertRejectedError and never retried here.
type PersistenceWriter struct {
	store FactInserter
}

// NewPersistenceWriter returns a writer over store.
func NewPersistenceWriter(store FactInserter) *PersistenceWriter {
	return &PersistenceWriter{store: store}
}

// Write validates fact and inserts it, setting fact.ID on success.
func (w *PersistenceWriter) Write(ctx context.Context, mode entity.RunMode, fact *entity.HistoricalFact) error {
	if err := entity.ValidateFact(fact); err != nil {
		return &InsertRejectedError{Table: mode.Table(), Err: fmt.Errorf("pre-insert validation: %w", err)}
	}
	id, err := w.store.Insert(ctx, mode, fact)
	if err != nil {
		return &InsertRejectedError{Table: mode.Table(), Err: err}
	}
	fact.ID = id
	return nil
}
