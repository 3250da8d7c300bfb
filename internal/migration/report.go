package migration

import (
	"time"

	"github.com/sirupsen/logrus"
)

// RunState is one state of the orchestrator's state machine.
type RunState string

const (
	StateIdle          RunState = "idle"
	StatePreparing     RunState = "preparing"
	StateReading       RunState = "reading"
	StateValidating    RunState = "validating"
	StateTransforming  RunState = "transforming"
	StateWriting       RunState = "writing"
	StateBlobMigrating RunState = "blob-migrating"
	StateFinalizing    RunState = "finalizing"
	StateCommitted     RunState = "committed"
	StateRolledBack    RunState = "rolled-back"
	StateAborted       RunState = "aborted"
)

// Outcome is the operator-facing verdict of a run.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomePartialSuccess Outcome = "partial-success"
	OutcomeAborted        Outcome = "aborted"
)

// GroupStats counts what happened to one entity group.
type GroupStats struct {
	Read     int
	Accepted int
	Rejected int
	Written  int
}

// BlobFailure records one object that could not be copied.
type BlobFailure struct {
	Key    string
	Reason string
}

// Report is the run summary, produced in every terminal state.
type Report struct {
	Mode          Options
	StartedAt     time.Time
	FinishedAt    time.Time
	Groups        map[Group]*GroupStats
	GroupOrder    []Group
	Rejections    []Rejection
	BlobsCopied   int
	BlobsIntended int
	BlobsMissing  int
	BlobFailures  []BlobFailure
	TerminalState RunState
	Err           error
}

func newReport(opts Options, startedAt time.Time) *Report {
	r := &Report{
		Mode:      opts,
		StartedAt: startedAt,
		Groups:    map[Group]*GroupStats{},
	}
	for _, spec := range Groups {
		r.Groups[spec.Name] = &GroupStats{}
		r.GroupOrder = append(r.GroupOrder, spec.Name)
	}
	return r
}

func (r *Report) stats(group Group) *GroupStats {
	return r.Groups[group]
}

// Outcome derives the verdict from the terminal state and what was skipped
// along the way.
func (r *Report) Outcome() Outcome {
	switch r.TerminalState {
	case StateCommitted, StateRolledBack:
		if len(r.Rejections) > 0 || len(r.BlobFailures) > 0 {
			return OutcomePartialSuccess
		}
		return OutcomeSuccess
	default:
		return OutcomeAborted
	}
}

// Log writes the summary through the run's logger.
func (r *Report) Log(log logrus.FieldLogger) {
	log.WithFields(logrus.Fields{
		"state":    r.TerminalState,
		"outcome":  r.Outcome(),
		"duration": r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
	}).Info("migration run finished")

	for _, group := range r.GroupOrder {
		stats := r.Groups[group]
		log.WithFields(logrus.Fields{
			"group":    group,
			"read":     stats.Read,
			"accepted": stats.Accepted,
			"rejected": stats.Rejected,
			"written":  stats.Written,
		}).Info("group summary")
	}

	for _, rejection := range r.Rejections {
		log.WithFields(logrus.Fields{
			"group":  rejection.Group,
			"record": rejection.RecordID,
			"reason": rejection.Reason,
		}).Warn("rejected record")
	}

	log.WithFields(logrus.Fields{
		"intended": r.BlobsIntended,
		"copied":   r.BlobsCopied,
		"missing":  r.BlobsMissing,
		"failed":   len(r.BlobFailures),
	}).Info("blob summary")

	for _, failure := range r.BlobFailures {
		log.WithFields(logrus.Fields{
			"key":    failure.Key,
			"reason": failure.Reason,
		}).Warn("failed blob copy")
	}

	if r.Err != nil {
		log.WithError(r.Err).Error("migration aborted")
	}
}
