package core

import (
	"context"
	"errors"
	"io"

	"github.com/wansing/infodesk/auth"
	"github.com/wansing/infodesk/upload"
)

const (
	MaxHeadingLength = 200

	PendingFolder = "pending_info"
	ActiveFolder  = "active_info"
)

type SubmitRequest struct {
	Heading     string
	Description string
	Image       io.Reader // optional
}

func (req SubmitRequest) validate() (heading, description string, err error) {
	heading = cleanText(req.Heading)
	description = cleanText(req.Description)
	switch {
	case heading == "":
		return "", "", invalid("heading", "this field is required")
	case len([]rune(heading)) > MaxHeadingLength:
		return "", "", invalid("heading", "ensure this field has no more than %d characters", MaxHeadingLength)
	case description == "":
		return "", "", invalid("description", "this field is required")
	}
	return heading, description, nil
}

func (c *CoreDB) saveImage(ctx context.Context, folder string, src io.Reader) (string, error) {
	if src == nil {
		return "", nil
	}
	if c.Images == nil {
		return "", invalid("image", "image uploads are disabled")
	}
	ref, err := c.Images.Save(ctx, folder, src)
	if errors.Is(err, upload.ErrNotAnImage) || errors.Is(err, upload.ErrTooLarge) {
		return "", invalid("image", err.Error())
	}
	return ref, err
}

// removeImage is called if the record referencing the image could not be stored.
func (c *CoreDB) removeImage(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := c.Images.Delete(ctx, ref); err != nil {
		c.log().Warn("could not remove orphaned image", "ref", ref, "error", err)
	}
}

// Submit stores content of an approved account. If the account can approve content, the content becomes active immediately.
// Else it is stored as a pending submission.
func (c *CoreDB) Submit(ctx context.Context, account *Account, req SubmitRequest) (Submission, error) {

	if err := Require(account, auth.Approved); err != nil {
		return Submission{}, err
	}

	heading, description, err := req.validate()
	if err != nil {
		return Submission{}, err
	}

	var now = c.now()

	if account.CanApprove() {

		image, err := c.saveImage(ctx, ActiveFolder, req.Image)
		if err != nil {
			return Submission{}, err
		}

		var active = &ActiveSubmission{
			Heading:     heading,
			Description: description,
			Image:       image,
			SubmitterID: account.ID,
			ApproverID:  account.ID,
			ApprovedAt:  now,
			CreatedAt:   now,
		}
		if err := c.SubmissionDB.InsertActive(ctx, active); err != nil {
			c.removeImage(ctx, image)
			return Submission{}, err
		}

		c.log().Info("content submitted and approved directly", "active_id", active.ID, "by", account.Email)
		return Submission{Active: active}, nil
	}

	image, err := c.saveImage(ctx, PendingFolder, req.Image)
	if err != nil {
		return Submission{}, err
	}

	var pending = &PendingSubmission{
		Heading:     heading,
		Description: description,
		Image:       image,
		SubmitterID: account.ID,
		SubmittedAt: now,
		Status:      StatusPending,
	}
	if err := c.SubmissionDB.InsertPending(ctx, pending); err != nil {
		c.removeImage(ctx, image)
		return Submission{}, err
	}

	c.log().Info("content submitted for approval", "pending_id", pending.ID, "by", account.Email)
	return Submission{Pending: pending}, nil
}

// getTransitionable returns the pending submission if it can be moved to the given status by actor.
func (c *CoreDB) getTransitionable(ctx context.Context, id int, to Status, actor *Account) (*PendingSubmission, error) {

	pending, err := c.SubmissionDB.GetPending(ctx, id)
	if err != nil {
		return nil, err
	}

	if !pending.Status.CanTransition(to) {
		return nil, ErrNotFound // already processed
	}

	if err := Require(actor, auth.CanApprove); err != nil {
		return nil, err
	}

	return pending, nil
}

// ApprovePending moves a pending submission to the active table.
// A second call for the same id returns ErrNotFound, even if both calls race.
func (c *CoreDB) ApprovePending(ctx context.Context, id int, actor *Account) (*PendingSubmission, *ActiveSubmission, error) {

	pending, err := c.getTransitionable(ctx, id, StatusApproved, actor)
	if err != nil {
		return nil, nil, err
	}

	var now = c.now()
	var active = &ActiveSubmission{
		PendingID:   pending.ID,
		Heading:     pending.Heading,
		Description: pending.Description,
		Image:       pending.Image,
		SubmitterID: pending.SubmitterID,
		ApproverID:  actor.ID,
		ApprovedAt:  now,
		CreatedAt:   now,
	}

	if err := c.SubmissionDB.Transition(ctx, pending.ID, StatusApproved, active); err != nil {
		return nil, nil, err
	}
	pending.Status = StatusApproved

	c.log().Info("pending content approved", "pending_id", pending.ID, "active_id", active.ID, "by", actor.Email)
	return pending, active, nil
}

// RejectPending marks a pending submission as rejected. Rejected content never becomes active.
func (c *CoreDB) RejectPending(ctx context.Context, id int, actor *Account) (*PendingSubmission, error) {

	pending, err := c.getTransitionable(ctx, id, StatusRejected, actor)
	if err != nil {
		return nil, err
	}

	if err := c.SubmissionDB.Transition(ctx, pending.ID, StatusRejected, nil); err != nil {
		return nil, err
	}
	pending.Status = StatusRejected

	c.log().Info("pending content rejected", "pending_id", pending.ID, "by", actor.Email)
	return pending, nil
}

// ListPending returns submissions which are still pending, newest first.
func (c *CoreDB) ListPending(ctx context.Context, page Page) ([]*PendingSubmission, error) {
	return c.SubmissionDB.ListPending(ctx, SubmissionFilter{
		Status: StatusPending,
		Page:   page.Normalize(),
	})
}

// ListActive returns active submissions, most recently approved first.
func (c *CoreDB) ListActive(ctx context.Context, page Page) ([]*ActiveSubmission, error) {
	return c.SubmissionDB.ListActive(ctx, SubmissionFilter{
		Page: page.Normalize(),
	})
}

// ListForAccount returns pending (in any status) and active submissions of the given account.
// The page applies to both lists separately.
func (c *CoreDB) ListForAccount(ctx context.Context, account *Account, page Page) (*AccountSubmissions, error) {

	page = page.Normalize()

	pending, err := c.SubmissionDB.ListPending(ctx, SubmissionFilter{
		SubmitterID: account.ID,
		Page:        page,
	})
	if err != nil {
		return nil, err
	}

	active, err := c.SubmissionDB.ListActive(ctx, SubmissionFilter{
		SubmitterID: account.ID,
		Page:        page,
	})
	if err != nil {
		return nil, err
	}

	return &AccountSubmissions{
		Pending: pending,
		Active:  active,
	}, nil
}
