package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Status is the moderation state of a pending submission.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus converts string representations into a Status value.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("unknown status %q", value)
	}
}

// Terminal reports whether no transition leads out of s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransition reports whether s may change to the given status.
// The only transitions are pending to approved and pending to rejected.
func (s Status) CanTransition(to Status) bool {
	return s == StatusPending && to.Terminal()
}

// PendingSubmission is content awaiting moderation. It is never deleted.
type PendingSubmission struct {
	ID          int
	Heading     string
	Description string
	Image       string // reference into the image store, may be empty
	SubmitterID int
	SubmittedAt time.Time
	Status      Status
}

// ActiveSubmission is moderated content, visible to all approved accounts.
type ActiveSubmission struct {
	ID          int
	PendingID   int // zero for direct submissions
	Heading     string
	Description string
	Image       string
	SubmitterID int
	ApproverID  int
	ApprovedAt  time.Time
	CreatedAt   time.Time
}

type Stage string

const (
	StagePending Stage = "pending"
	StageActive  Stage = "active"
)

// Submission is the result of CoreDB.Submit. Exactly one of Pending and Active is set.
type Submission struct {
	Pending *PendingSubmission
	Active  *ActiveSubmission
}

func (s Submission) Stage() Stage {
	if s.Active != nil {
		return StageActive
	}
	return StagePending
}

// SubmissionFilter selects submissions. Zero values don't filter.
type SubmissionFilter struct {
	Status      Status // pending table only
	SubmitterID int
	Page
}

type SubmissionDB interface {
	InsertPending(ctx context.Context, p *PendingSubmission) error // sets p.ID
	InsertActive(ctx context.Context, a *ActiveSubmission) error   // sets a.ID
	GetPending(ctx context.Context, id int) (*PendingSubmission, error)

	// Transition changes the status of a pending submission from StatusPending to the given status.
	// If active is not nil, it is inserted in the same transaction.
	// It returns ErrNotFound if the submission does not exist or is not pending any more.
	Transition(ctx context.Context, id int, to Status, active *ActiveSubmission) error

	ListPending(ctx context.Context, filter SubmissionFilter) ([]*PendingSubmission, error) // newest submission first
	ListActive(ctx context.Context, filter SubmissionFilter) ([]*ActiveSubmission, error)   // newest approval first
}

// AccountSubmissions contains the submissions of one account.
type AccountSubmissions struct {
	Pending []*PendingSubmission // any status
	Active  []*ActiveSubmission
}
