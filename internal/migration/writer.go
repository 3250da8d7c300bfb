package migration

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// TargetTx is the single transaction scope every relational write of one
// run happens in. It is committed exactly once, at the very end of a
// normal/best-effort run, and rolled back in every other case.
type TargetTx interface {
	Exec(ctx context.Context, query string, args ...interface{}) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TargetDB opens transactions against the target relational store and
// answers schema questions outside of them.
type TargetDB interface {
	Begin(ctx context.Context) (TargetTx, error)
	TableExists(ctx context.Context, table string) (bool, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Writer applies transformed rows to the target relational store.
type Writer struct {
	db         TargetDB
	tx         TargetTx
	bestEffort bool
	prepared   bool
	log        logrus.FieldLogger
}

func NewWriter(db TargetDB, bestEffort bool, log logrus.FieldLogger) *Writer {
	return &Writer{db: db, bestEffort: bestEffort, log: log}
}

// Preflight verifies the target schema is in the expected post-bootstrap
// state. It runs before the transaction is opened and before anything
// destructive happens.
func (w *Writer) Preflight(ctx context.Context) error {
	for _, spec := range Groups {
		exists, err := w.db.TableExists(ctx, spec.Table)
		if err != nil {
			return errors.Wrap(err, "failed to inspect target schema")
		}
		if !exists {
			return &TargetNotInitializedError{Table: spec.Table}
		}
	}
	return nil
}

// Begin opens the run's transaction.
func (w *Writer) Begin(ctx context.Context) error {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to open target transaction")
	}
	w.tx = tx
	return nil
}

// Prepare wipes the seed data the target system's bootstrap run left
// behind, child tables first. Safe to call once per run; a second call is
// a no-op.
func (w *Writer) Prepare(ctx context.Context) error {
	if w.prepared {
		return nil
	}
	for _, table := range CleanupTables {
		deleted, err := w.tx.Exec(ctx, "DELETE FROM "+table)
		if err != nil {
			return errors.Wrapf(err, "failed to clean up table %s", table)
		}
		w.log.WithFields(logrus.Fields{"table": table, "rows": deleted}).Debug("cleaned up target table")
	}
	w.prepared = true
	return nil
}

// WriteRow inserts one transformed row. In best-effort mode the insert is
// fenced by a savepoint so a failure poisons only this row, not the whole
// transaction.
func (w *Writer) WriteRow(ctx context.Context, row Row) error {
	query, args, err := psql.Insert(row.Table).
		Columns(row.Columns...).
		Values(row.Values...).
		ToSql()
	if err != nil {
		return &WriteError{Group: row.Group, RecordID: row.LegacyID, Err: err}
	}

	if w.bestEffort {
		if _, err := w.tx.Exec(ctx, "SAVEPOINT migration_row"); err != nil {
			return errors.Wrap(err, "failed to create savepoint")
		}
	}

	if _, err := w.tx.Exec(ctx, query, args...); err != nil {
		if w.bestEffort {
			if _, rbErr := w.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT migration_row"); rbErr != nil {
				return errors.Wrap(rbErr, "failed to roll back to savepoint")
			}
		}
		return &WriteError{Group: row.Group, RecordID: row.LegacyID, Err: err}
	}

	if w.bestEffort {
		if _, err := w.tx.Exec(ctx, "RELEASE SAVEPOINT migration_row"); err != nil {
			return errors.Wrap(err, "failed to release savepoint")
		}
	}
	return nil
}

// Commit finishes the run's transaction. Never called in dry-run mode.
func (w *Writer) Commit(ctx context.Context) error {
	if w.tx == nil {
		return nil
	}
	err := w.tx.Commit(ctx)
	w.tx = nil
	if err != nil {
		return errors.Wrap(err, "failed to commit target transaction")
	}
	return nil
}

// Rollback discards everything the run wrote. Used by dry-run
// unconditionally and by every abort path.
func (w *Writer) Rollback(ctx context.Context) error {
	if w.tx == nil {
		return nil
	}
	err := w.tx.Rollback(ctx)
	w.tx = nil
	if err != nil {
		return errors.Wrap(err, "failed to roll back target transaction")
	}
	return nil
}
