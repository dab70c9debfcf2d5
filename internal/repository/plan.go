package repository

import (
	"fmt"
	"time"

	"sgxfeed/internal/calendar"
	"sgxfeed/internal/model"
)

// CommitPlan is the decision taken for one commit against the current row.
type CommitPlan struct {
	// Create is false when the digest matches the current version.
	Create bool
	// Close is the previously current row with effective_to set and is_current cleared; nil if none.
	Close *model.VersionRecord
	// Next is the row to insert when Create is true, otherwise the unchanged current row.
	Next model.VersionRecord
}

// Plan applies the SCD2 rules to the current row of a file:
//   - businessDate before current.EffectiveFrom: ErrOutOfOrderCommit, nothing changes.
//   - same digest as current: no new row.
//   - otherwise: close current at the business day preceding businessDate and open version n+1.
//
// Closed versions are never resurrected; a digest returning after drift gets a new version.
func Plan(current *model.VersionRecord, req CommitRequest, cal calendar.Calendar, now time.Time) (CommitPlan, error) {
	if req.FileName == "" || req.Digest == "" || req.BusinessDate.IsZero() {
		return CommitPlan{}, ErrInvalidCommit
	}
	date := calendar.Date(req.BusinessDate)

	if current != nil {
		if date.Before(current.EffectiveFrom) {
			return CommitPlan{}, fmt.Errorf("%w: %s at %s precedes version %d effective from %s",
				ErrOutOfOrderCommit, req.FileName, calendar.Format(date),
				current.VersionNumber, calendar.Format(current.EffectiveFrom))
		}
		if current.ContentDigest == req.Digest {
			return CommitPlan{Next: *current}, nil
		}
	}

	next := model.VersionRecord{
		FileName:      req.FileName,
		VersionNumber: 1,
		ContentDigest: req.Digest,
		EffectiveFrom: date,
		IsCurrent:     true,
		StoragePath:   req.StoragePath,
		CreatedAt:     now.UTC(),
	}

	plan := CommitPlan{Create: true}
	if current != nil {
		next.VersionNumber = current.VersionNumber + 1
		closed := *current
		to := cal.Previous(date)
		closed.EffectiveTo = &to
		closed.IsCurrent = false
		plan.Close = &closed
	}
	plan.Next = next
	return plan, nil
}
