// Package workflow drives a borelog's approval lifecycle. The single
// workflow.json document per borelog is the source of truth; it is only ever
// overwritten, never deleted, and transitions run strictly forward except
// for the explicit returned-for-revision resubmission cycle.
package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/stratabase/borecore/internal/blob"
	"github.com/stratabase/borecore/internal/fault"
	"github.com/stratabase/borecore/internal/model"
)

// Engine reads and writes workflow documents and their per-version comment
// threads.
type Engine struct {
	store blob.Store
}

// New returns a workflow engine over the given store.
func New(store blob.Store) *Engine { return &Engine{store: store} }

// Get returns the workflow record for a borelog. A missing document is an
// implicit DRAFT as long as the borelog's metadata exists.
func (e *Engine) Get(ctx context.Context, projectID, borelogID string) (*model.WorkflowRecord, error) {
	if err := e.requireBorelog(ctx, projectID, borelogID); err != nil {
		return nil, err
	}
	var rec model.WorkflowRecord
	err := blob.GetJSON(ctx, e.store, blob.WorkflowKey(projectID, borelogID), &rec)
	if fault.IsNotFound(err) {
		return &model.WorkflowRecord{
			ProjectID: projectID,
			BorelogID: borelogID,
			Status:    model.WorkflowDraft,
		}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "workflow: get record")
	}
	return &rec, nil
}

// SubmitForReview moves a borelog version into SUBMITTED. Re-submitting the
// same version before any review simply re-stamps the submission. An
// APPROVED borelog never accepts a submission; a REJECTED one accepts only a
// higher version number.
func (e *Engine) SubmitForReview(ctx context.Context, projectID, borelogID string, versionNo int, submittedBy, comments string) (*model.WorkflowRecord, error) {
	if versionNo < 1 {
		return nil, fault.Validation("version number must be >= 1, got %d", versionNo)
	}
	if submittedBy == "" {
		return nil, fault.Validation("submitted_by is required")
	}
	cur, err := e.Get(ctx, projectID, borelogID)
	if err != nil {
		return nil, err
	}
	switch cur.Status {
	case model.WorkflowApproved:
		return nil, fault.InvalidTransition("borelog %s is APPROVED and accepts no further submissions", borelogID)
	case model.WorkflowRejected:
		if versionNo <= cur.VersionNo {
			return nil, fault.InvalidTransition(
				"version %d of borelog %s was rejected; submit a new version", cur.VersionNo, borelogID)
		}
	}

	now := time.Now().UTC()
	rec := &model.WorkflowRecord{
		ProjectID:   projectID,
		BorelogID:   borelogID,
		Status:      model.WorkflowSubmitted,
		VersionNo:   versionNo,
		SubmittedBy: submittedBy,
		SubmittedAt: &now,
		Comments:    comments,
	}
	if err := blob.PutJSON(ctx, e.store, blob.WorkflowKey(projectID, borelogID), rec); err != nil {
		return nil, eris.Wrap(err, "workflow: write submission")
	}
	if comments != "" {
		if err := e.appendComment(ctx, projectID, borelogID, versionNo, model.CommentSubmission, comments, submittedBy); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Review applies a reviewer decision to the submitted version. Comments are
// mandatory and are recorded in the per-(borelog, version) thread before the
// status flips, so concurrent reviews of different versions never share a
// comment stream.
func (e *Engine) Review(ctx context.Context, projectID, borelogID string, versionNo int, action model.ReviewAction, reviewer, comments string) (*model.WorkflowRecord, error) {
	if comments == "" {
		return nil, fault.Validation("review comments are required")
	}
	commentType, ok := commentTypeFor(action)
	if !ok {
		return nil, fault.Validation("unknown review action %q", action)
	}
	cur, err := e.Get(ctx, projectID, borelogID)
	if err != nil {
		return nil, err
	}
	if cur.Status != model.WorkflowSubmitted {
		return nil, fault.InvalidTransition(
			"borelog %s version %d is %s, not SUBMITTED", borelogID, cur.VersionNo, cur.Status)
	}
	if cur.VersionNo != versionNo {
		return nil, fault.InvalidTransition(
			"version %d of borelog %s is under review, not %d", cur.VersionNo, borelogID, versionNo)
	}

	if err := e.appendComment(ctx, projectID, borelogID, versionNo, commentType, comments, reviewer); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cur.Status = statusFor(action)
	cur.ReviewedBy = reviewer
	cur.ReviewedAt = &now
	if err := blob.PutJSON(ctx, e.store, blob.WorkflowKey(projectID, borelogID), cur); err != nil {
		return nil, eris.Wrap(err, "workflow: write review")
	}
	return cur, nil
}

// Comments returns the comment thread for one (borelog, version) pair, in
// authored order. A missing thread is an empty one.
func (e *Engine) Comments(ctx context.Context, projectID, borelogID string, versionNo int) ([]model.ReviewComment, error) {
	var thread model.CommentThread
	err := blob.GetJSON(ctx, e.store, blob.ReviewCommentsKey(projectID, borelogID, versionNo), &thread)
	if fault.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "workflow: get comments")
	}
	return thread.Comments, nil
}

func (e *Engine) requireBorelog(ctx context.Context, projectID, borelogID string) error {
	ok, err := e.store.Exists(ctx, blob.BorelogMetadataKey(projectID, borelogID))
	if err != nil {
		return eris.Wrap(err, "workflow: check borelog metadata")
	}
	if !ok {
		return fault.NotFound("borelog %s in project %s", borelogID, projectID)
	}
	return nil
}

func (e *Engine) appendComment(ctx context.Context, projectID, borelogID string, versionNo int, ct model.CommentType, text, author string) error {
	key := blob.ReviewCommentsKey(projectID, borelogID, versionNo)
	var thread model.CommentThread
	err := blob.GetJSON(ctx, e.store, key, &thread)
	if err != nil && !fault.IsNotFound(err) {
		return eris.Wrap(err, "workflow: read comment thread")
	}
	thread.BorelogID = borelogID
	thread.VersionNo = versionNo
	thread.Comments = append(thread.Comments, model.ReviewComment{
		CommentID: uuid.New().String(),
		BorelogID: borelogID,
		VersionNo: versionNo,
		Type:      ct,
		Text:      text,
		Author:    author,
		CreatedAt: time.Now().UTC(),
	})
	if err := blob.PutJSON(ctx, e.store, key, &thread); err != nil {
		return eris.Wrap(err, "workflow: write comment thread")
	}
	return nil
}

func commentTypeFor(action model.ReviewAction) (model.CommentType, bool) {
	switch action {
	case model.ActionApprove:
		return model.CommentApproval, true
	case model.ActionReject:
		return model.CommentRejectionReason, true
	case model.ActionReturnForRevision:
		return model.CommentCorrectionRequired, true
	default:
		return "", false
	}
}

func statusFor(action model.ReviewAction) model.WorkflowStatus {
	switch action {
	case model.ActionApprove:
		return model.WorkflowApproved
	case model.ActionReject:
		return model.WorkflowRejected
	default:
		return model.WorkflowReturnedForRevision
	}
}
