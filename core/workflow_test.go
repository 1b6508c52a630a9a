package core

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

// setupModeration returns a superuser, an approver and an approved account.
func setupModeration(t *testing.T) (c *CoreDB, root, approver, alice *Account) {
	t.Helper()
	c, _, _ = newTestDB()
	ctx := context.Background()
	root = mustSuperuser(t, c)
	approver = mustRegister(t, c, "approver@example.com")
	alice = mustRegister(t, c, "alice@example.com")
	require.NoError(t, c.ApproveAccount(ctx, approver, root, true))
	require.NoError(t, c.ApproveAccount(ctx, alice, root, false))
	return
}

func TestSubmitPending(t *testing.T) {
	c, _, _, alice := setupModeration(t)
	ctx := context.Background()

	s, err := c.Submit(ctx, alice, SubmitRequest{
		Heading:     " Bake sale ",
		Description: "Friday in the *lobby*",
		Image:       bytes.NewReader(testPNG(t)),
	})
	require.NoError(t, err)
	assert.Equal(t, StagePending, s.Stage())
	require.NotNil(t, s.Pending)
	assert.Equal(t, "Bake sale", s.Pending.Heading)
	assert.Equal(t, StatusPending, s.Pending.Status)
	assert.Equal(t, alice.ID, s.Pending.SubmitterID)
	assert.True(t, strings.HasPrefix(s.Pending.Image, PendingFolder+"/"))
	assert.True(t, strings.HasSuffix(s.Pending.Image, ".png"))

	pending, err := c.ListPending(ctx, Page{})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	active, err := c.ListActive(ctx, Page{})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSubmitDirect(t *testing.T) {
	c, root, approver, _ := setupModeration(t)
	ctx := context.Background()

	for _, a := range []*Account{root, approver} {
		s, err := c.Submit(ctx, a, SubmitRequest{Heading: "Notice", Description: "by " + a.Email})
		require.NoError(t, err)
		assert.Equal(t, StageActive, s.Stage())
		require.NotNil(t, s.Active)
		assert.Equal(t, a.ID, s.Active.ApproverID)
		assert.Equal(t, a.ID, s.Active.SubmitterID)
		assert.Zero(t, s.Active.PendingID)
		assert.Empty(t, s.Active.Image)
	}

	pending, err := c.ListPending(ctx, Page{})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSubmitValidation(t *testing.T) {
	c, _, _, alice := setupModeration(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   SubmitRequest
		field string
	}{
		{"missing heading", SubmitRequest{Description: "text"}, "heading"},
		{"long heading", SubmitRequest{Heading: strings.Repeat("x", MaxHeadingLength+1), Description: "text"}, "heading"},
		{"missing description", SubmitRequest{Heading: "heading", Description: "  "}, "description"},
		{"not an image", SubmitRequest{Heading: "heading", Description: "text", Image: strings.NewReader("GIF87a but not really")}, "image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Submit(ctx, alice, tt.req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestSubmitRequiresApproval(t *testing.T) {
	c, _, _ := newTestDB()
	bob := mustRegister(t, c, "bob@example.com")
	_, err := c.Submit(context.Background(), bob, SubmitRequest{Heading: "h", Description: "d"})
	assert.ErrorIs(t, err, ErrNotApproved)
}

func TestApprovePending(t *testing.T) {
	c, _, approver, alice := setupModeration(t)
	ctx := context.Background()

	s, err := c.Submit(ctx, alice, SubmitRequest{Heading: "h", Description: "d", Image: bytes.NewReader(testPNG(t))})
	require.NoError(t, err)

	// plain approved accounts can't approve
	_, _, err = c.ApprovePending(ctx, s.Pending.ID, alice)
	assert.ErrorIs(t, err, ErrUnauthorized)

	pending, active, err := c.ApprovePending(ctx, s.Pending.ID, approver)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, pending.Status)
	assert.Equal(t, s.Pending.ID, active.PendingID)
	assert.Equal(t, alice.ID, active.SubmitterID)
	assert.Equal(t, approver.ID, active.ApproverID)
	assert.Equal(t, s.Pending.Image, active.Image)

	// second approval
	_, _, err = c.ApprovePending(ctx, s.Pending.ID, approver)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.RejectPending(ctx, s.Pending.ID, approver)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = c.ApprovePending(ctx, 999, approver)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := c.ListActive(ctx, Page{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestApprovePendingConcurrently(t *testing.T) {
	c, root, approver, alice := setupModeration(t)
	ctx := context.Background()

	s, err := c.Submit(ctx, alice, SubmitRequest{Heading: "h", Description: "d"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var errs = make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var actor = approver
			if i%2 == 0 {
				actor = root
			}
			_, _, errs[i] = c.ApprovePending(ctx, s.Pending.ID, actor)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrNotFound)
		}
	}
	assert.Equal(t, 1, succeeded)

	active, err := c.ListActive(ctx, Page{})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRejectPending(t *testing.T) {
	c, _, approver, alice := setupModeration(t)
	ctx := context.Background()

	s, err := c.Submit(ctx, alice, SubmitRequest{Heading: "h", Description: "d"})
	require.NoError(t, err)

	_, err = c.RejectPending(ctx, s.Pending.ID, alice)
	assert.ErrorIs(t, err, ErrUnauthorized)

	rejected, err := c.RejectPending(ctx, s.Pending.ID, approver)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)

	_, _, err = c.ApprovePending(ctx, s.Pending.ID, approver)
	assert.ErrorIs(t, err, ErrNotFound)

	pending, err := c.ListPending(ctx, Page{})
	require.NoError(t, err)
	assert.Empty(t, pending)

	active, err := c.ListActive(ctx, Page{})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestListForAccount(t *testing.T) {
	c, root, approver, alice := setupModeration(t)
	ctx := context.Background()
	clock := c.Clock.(*fixedClock)

	first, err := c.Submit(ctx, alice, SubmitRequest{Heading: "first", Description: "d"})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	second, err := c.Submit(ctx, alice, SubmitRequest{Heading: "second", Description: "d"})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = c.Submit(ctx, root, SubmitRequest{Heading: "other", Description: "d"})
	require.NoError(t, err)

	_, _, err = c.ApprovePending(ctx, first.Pending.ID, approver)
	require.NoError(t, err)

	mine, err := c.ListForAccount(ctx, alice, Page{})
	require.NoError(t, err)
	require.Len(t, mine.Pending, 2)
	assert.Equal(t, second.Pending.ID, mine.Pending[0].ID)
	assert.Equal(t, StatusPending, mine.Pending[0].Status)
	assert.Equal(t, StatusApproved, mine.Pending[1].Status)
	require.Len(t, mine.Active, 1)
	assert.Equal(t, first.Pending.ID, mine.Active[0].PendingID)

	// pages apply to both lists
	mine, err = c.ListForAccount(ctx, alice, Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, mine.Pending, 1)
	assert.Equal(t, first.Pending.ID, mine.Pending[0].ID)
	assert.Empty(t, mine.Active)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusApproved))
	assert.True(t, StatusPending.CanTransition(StatusRejected))
	assert.False(t, StatusPending.CanTransition(StatusPending))
	assert.False(t, StatusApproved.CanTransition(StatusRejected))
	assert.False(t, StatusRejected.CanTransition(StatusApproved))

	s, err := ParseStatus(" Approved ")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, s)
	_, err = ParseStatus("deleted")
	assert.Error(t, err)
}
