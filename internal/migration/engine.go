// Package migration implements the one-shot migration engine: it reads the
// whole legacy dataset, validates and optionally repairs it, transforms it
// into the target relational schema, writes it inside one transaction, and
// mirrors binary objects into the target bucket.
package migration

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ds-wizard/dsw2to3/pkg/models"
)

// Options are the run modes. They combine freely; dry-run additionally
// suppresses every destructive action on the object store.
type Options struct {
	DryRun       bool
	BestEffort   bool
	FixIntegrity bool
	// BlobsOnly re-runs just the blob phase, for converging the object
	// store after a run whose relational phase committed but whose blob
	// phase partially failed.
	BlobsOnly bool
}

// Engine orchestrates one migration run. Entity groups are processed
// strictly sequentially in their declared order; the blob phase follows
// the relational phase and precedes the final commit.
type Engine struct {
	source SourceReader
	writer *Writer
	blobs  *BlobMigrator
	opts   Options
	log    logrus.FieldLogger
	state  RunState
}

func NewEngine(source SourceReader, writer *Writer, blobs *BlobMigrator, opts Options, log logrus.FieldLogger) *Engine {
	return &Engine{
		source: source,
		writer: writer,
		blobs:  blobs,
		opts:   opts,
		log:    log,
		state:  StateIdle,
	}
}

// State exposes the current machine state, mainly for tests and progress
// reporting.
func (e *Engine) State() RunState {
	return e.state
}

func (e *Engine) setState(state RunState) {
	e.state = state
	e.log.WithField("state", state).Debug("state transition")
}

// Run executes the migration and always returns a report; report.Err is
// set when the run aborted.
func (e *Engine) Run(ctx context.Context) *Report {
	now := time.Now().UTC()
	report := newReport(e.opts, now)

	abort := func(err error) *Report {
		if e.writer != nil {
			if rbErr := e.writer.Rollback(ctx); rbErr != nil {
				e.log.WithError(rbErr).Error("rollback failed during abort")
			}
		}
		e.setState(StateAborted)
		report.TerminalState = StateAborted
		report.Err = err
		report.FinishedAt = time.Now().UTC()
		return report
	}

	e.setState(StatePreparing)
	if err := e.source.VerifySchema(ctx); err != nil {
		return abort(err)
	}
	if !e.opts.BlobsOnly {
		if err := e.writer.Preflight(ctx); err != nil {
			return abort(err)
		}
		if err := e.writer.Begin(ctx); err != nil {
			return abort(err)
		}
		if err := e.writer.Prepare(ctx); err != nil {
			return abort(err)
		}
	}

	checker := NewChecker(e.opts.FixIntegrity, e.log)
	idx := NewReferenceIndex()
	var blobRefs []BlobReference

	for _, spec := range Groups {
		stats := report.stats(spec.Name)
		groupLog := e.log.WithField("group", spec.Name)

		e.setState(StateReading)
		var records []models.LegacyDocument
		err := e.source.Stream(ctx, spec, func(doc models.LegacyDocument) error {
			records = append(records, doc)
			return nil
		})
		if err != nil {
			return abort(err)
		}
		stats.Read = len(records)
		groupLog.WithField("records", len(records)).Info("read legacy records")

		e.setState(StateValidating)
		accepted, rejections, err := checker.CheckGroup(spec, records)
		if err != nil {
			return abort(err)
		}
		report.Rejections = append(report.Rejections, rejections...)
		stats.Accepted = len(accepted)
		stats.Rejected = len(rejections)

		writeSkipped := map[string]struct{}{}

		if !e.opts.BlobsOnly {
			e.setState(StateTransforming)
			rows, err := e.transformGroup(spec, accepted, idx, now)
			if err != nil {
				return abort(err)
			}

			e.setState(StateWriting)
			for _, row := range rows {
				if err := e.writer.WriteRow(ctx, row); err != nil {
					var writeErr *WriteError
					if e.opts.BestEffort && errors.As(err, &writeErr) {
						groupLog.WithFields(logrus.Fields{
							"record": row.LegacyID,
							"reason": writeErr.Err,
						}).Warn("skipping record after write failure")
						report.Rejections = append(report.Rejections, Rejection{
							Group:    spec.Name,
							RecordID: row.LegacyID,
							Reason:   "write failed: " + writeErr.Err.Error(),
						})
						writeSkipped[row.LegacyID] = struct{}{}
						continue
					}
					return abort(err)
				}
				stats.Written++
			}
			groupLog.WithField("rows", stats.Written).Info("wrote rows to target")
		}

		if spec.Blob != nil {
			for _, doc := range accepted {
				ref := spec.Blob(doc)
				if ref == nil {
					continue
				}
				if _, skipped := writeSkipped[ref.OwnerID]; skipped {
					continue
				}
				blobRefs = append(blobRefs, *ref)
			}
		}
	}

	e.setState(StateBlobMigrating)
	report.BlobsIntended = len(blobRefs)
	if e.opts.DryRun {
		e.log.WithField("objects", len(blobRefs)).Info("dry run: skipping bucket reset and object copies")
	} else {
		if err := e.blobs.ResetBucket(ctx); err != nil {
			return abort(err)
		}
		for _, ref := range blobRefs {
			copied, err := e.blobs.Copy(ctx, ref)
			if err != nil {
				if e.opts.BestEffort {
					e.log.WithError(err).Warn("skipping object after copy failure")
					report.BlobFailures = append(report.BlobFailures, BlobFailure{
						Key:    ref.Key,
						Reason: err.Error(),
					})
					continue
				}
				return abort(err)
			}
			if copied {
				report.BlobsCopied++
			} else {
				report.BlobsMissing++
			}
		}
	}

	e.setState(StateFinalizing)
	terminal := StateCommitted
	if e.opts.DryRun {
		terminal = StateRolledBack
	}
	if !e.opts.BlobsOnly {
		if e.opts.DryRun {
			if err := e.writer.Rollback(ctx); err != nil {
				return abort(err)
			}
		} else {
			if err := e.writer.Commit(ctx); err != nil {
				return abort(err)
			}
		}
	}

	e.setState(terminal)
	report.TerminalState = terminal
	report.FinishedAt = time.Now().UTC()
	return report
}

// transformGroup turns accepted records into rows, registering each in the
// reference index as it is buffered. Self-referential groups run in
// passes: a record whose intra-group reference is not yet buffered waits
// for a later pass. No progress means a reference cycle, which integrity
// checking cannot produce, so it surfaces as the invariant breach it is.
func (e *Engine) transformGroup(spec GroupSpec, accepted []models.LegacyDocument, idx *ReferenceIndex, now time.Time) ([]Row, error) {
	rows := make([]Row, 0, len(accepted))
	pending := accepted

	for len(pending) > 0 {
		var deferred []models.LegacyDocument
		progressed := false

		for _, doc := range pending {
			row, err := spec.Transform(doc, idx, now)
			if err != nil {
				var unresolved *UnresolvedReferenceError
				if spec.SelfReferential() && errors.As(err, &unresolved) && unresolved.Target == spec.Name {
					deferred = append(deferred, doc)
					continue
				}
				return nil, err
			}
			idx.Put(spec.Name, row.LegacyID, row.TargetID)
			rows = append(rows, row)
			progressed = true
		}

		if !progressed {
			_, err := spec.Transform(deferred[0], idx, now)
			return nil, err
		}
		pending = deferred
	}

	return rows, nil
}
