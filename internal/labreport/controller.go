// Package labreport maintains unified lab reports as append-only version
// histories in the object store, and derives lab test requests from both the
// explicit request document and parsed strata samples.
package labreport

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/stratabase/borecore/internal/blob"
	"github.com/stratabase/borecore/internal/catalog"
	"github.com/stratabase/borecore/internal/fault"
	"github.com/stratabase/borecore/internal/model"
)

// Controller owns lab report documents and their version history.
type Controller struct {
	store blob.Store
	cat   *catalog.Catalog
}

// New returns a Controller over the given store.
func New(store blob.Store) *Controller {
	return &Controller{store: store, cat: catalog.New(store)}
}

// Draft is the saveDraft payload. ProjectID and BorelogID are required when
// ReportID is empty (first version); otherwise the report is located by id.
type Draft struct {
	ReportID     string           `json:"report_id,omitempty"`
	ProjectID    string           `json:"project_id,omitempty"`
	BorelogID    string           `json:"borelog_id,omitempty"`
	AssignmentID string           `json:"assignment_id,omitempty"`
	CreatedBy    string           `json:"created_by,omitempty"`
	TestTypes    []string         `json:"test_types,omitempty"`
	SoilTestData []model.SoilTest `json:"soil_test_data,omitempty"`
	RockTestData []model.RockTest `json:"rock_test_data,omitempty"`
}

// location pins a report to its place in the key hierarchy.
type location struct {
	projectID string
	borelogID string
	reportID  string
}

// locate finds the report's borelog by scanning for its report.json key.
// There is no report-id index; the key path is the index.
func (c *Controller) locate(ctx context.Context, reportID string) (location, error) {
	keys := c.cat.Scan(ctx, blob.ProjectsPrefix, catalog.Match{
		Suffix:   "/report.json",
		Contains: "/lab/reports/" + reportID + "/",
	})
	if len(keys) == 0 {
		return location{}, fault.NotFound("lab report %s", reportID)
	}
	parts, ok := blob.ParseBorelogKey(keys[0])
	if !ok {
		return location{}, eris.Errorf("labreport: malformed report key %s", keys[0])
	}
	return location{projectID: parts.ProjectID, borelogID: parts.BorelogID, reportID: reportID}, nil
}

// SaveDraft creates version n+1 from version n's snapshot merged with the
// changed fields, always with status draft. Prior versions are never
// mutated. An empty ReportID allocates a new report at version 1.
func (c *Controller) SaveDraft(ctx context.Context, d Draft) (*model.ReportVersion, error) {
	if d.ReportID == "" {
		return c.createReport(ctx, d)
	}

	loc, err := c.locate(ctx, d.ReportID)
	if err != nil {
		return nil, err
	}
	report, err := c.getReport(ctx, loc)
	if err != nil {
		return nil, err
	}
	latest, err := c.latestVersion(ctx, loc)
	if err != nil {
		return nil, err
	}

	next := *latest
	next.VersionNo = latest.VersionNo + 1
	next.Status = model.ReportDraft
	next.CreatedAt = time.Now().UTC()
	next.SubmittedAt, next.ApprovedAt, next.RejectedAt, next.ReturnedAt = nil, nil, nil, nil
	next.RejectionReason, next.ReviewComments = "", ""
	if d.CreatedBy != "" {
		next.CreatedBy = d.CreatedBy
	}
	if len(d.TestTypes) > 0 {
		next.TestTypes = d.TestTypes
	}
	if len(d.SoilTestData) > 0 {
		next.SoilTestData = d.SoilTestData
	}
	if len(d.RockTestData) > 0 {
		next.RockTestData = d.RockTestData
	}

	if err := blob.PutJSON(ctx, c.store, blob.ReportVersionKey(loc.projectID, loc.borelogID, loc.reportID, next.VersionNo), &next); err != nil {
		return nil, eris.Wrap(err, "labreport: write draft version")
	}
	if err := c.projectHeader(ctx, loc, report, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (c *Controller) createReport(ctx context.Context, d Draft) (*model.ReportVersion, error) {
	if d.ProjectID == "" || d.BorelogID == "" {
		return nil, fault.Validation("project_id and borelog_id are required for a new report")
	}
	ok, err := c.store.Exists(ctx, blob.BorelogMetadataKey(d.ProjectID, d.BorelogID))
	if err != nil {
		return nil, eris.Wrap(err, "labreport: check borelog metadata")
	}
	if !ok {
		return nil, fault.NotFound("borelog %s in project %s", d.BorelogID, d.ProjectID)
	}

	loc := location{projectID: d.ProjectID, borelogID: d.BorelogID, reportID: uuid.New().String()}
	now := time.Now().UTC()
	version := &model.ReportVersion{
		ReportID:     loc.reportID,
		VersionNo:    1,
		Status:       model.ReportDraft,
		TestTypes:    d.TestTypes,
		SoilTestData: d.SoilTestData,
		RockTestData: d.RockTestData,
		CreatedBy:    d.CreatedBy,
		CreatedAt:    now,
	}
	report := &model.UnifiedLabReport{
		ReportID:     loc.reportID,
		AssignmentID: d.AssignmentID,
		ProjectID:    d.ProjectID,
		BorelogID:    d.BorelogID,
		CreatedBy:    d.CreatedBy,
		CreatedAt:    now,
	}
	if err := blob.PutJSON(ctx, c.store, blob.ReportVersionKey(loc.projectID, loc.borelogID, loc.reportID, 1), version); err != nil {
		return nil, eris.Wrap(err, "labreport: write first version")
	}
	if err := c.projectHeader(ctx, loc, report, version); err != nil {
		return nil, err
	}
	return version, nil
}

// SubmitForReview moves the latest version from draft to submitted. Fails
// with InvalidTransition when the version is not the latest draft.
func (c *Controller) SubmitForReview(ctx context.Context, reportID string, versionNo int, by, comments string) (*model.ReportVersion, error) {
	loc, err := c.locate(ctx, reportID)
	if err != nil {
		return nil, err
	}
	report, err := c.getReport(ctx, loc)
	if err != nil {
		return nil, err
	}
	latest, err := c.latestVersion(ctx, loc)
	if err != nil {
		return nil, err
	}
	if latest.VersionNo != versionNo {
		return nil, fault.InvalidTransition(
			"version %d of report %s is current, not %d", latest.VersionNo, reportID, versionNo)
	}
	if latest.Status != model.ReportDraft {
		return nil, fault.InvalidTransition(
			"version %d of report %s is %s, only drafts can be submitted", versionNo, reportID, latest.Status)
	}

	now := time.Now().UTC()
	latest.Status = model.ReportSubmitted
	latest.SubmittedAt = &now
	if err := blob.PutJSON(ctx, c.store, blob.ReportVersionKey(loc.projectID, loc.borelogID, loc.reportID, versionNo), latest); err != nil {
		return nil, eris.Wrap(err, "labreport: write submission")
	}
	if comments != "" {
		if err := c.appendComment(ctx, loc, versionNo, model.CommentSubmission, comments, by); err != nil {
			return nil, err
		}
	}
	if err := c.projectHeader(ctx, loc, report, latest); err != nil {
		return nil, err
	}
	return latest, nil
}

// ReviewResult carries the reviewed version plus any side-effect failure.
// FinalizeErr is non-nil when the approval committed but the final report
// composite could not be written; the approval itself stands.
type ReviewResult struct {
	Version     *model.ReportVersion
	FinalizeErr error
}

// Review applies approve, reject or return_for_revision to a submitted
// version. Comments are mandatory. Approval materializes the final report
// composite as a best-effort side effect after the status write commits.
func (c *Controller) Review(ctx context.Context, reportID string, versionNo int, action model.ReviewAction, by, comments string) (*ReviewResult, error) {
	if comments == "" {
		return nil, fault.Validation("review comments are required")
	}
	loc, err := c.locate(ctx, reportID)
	if err != nil {
		return nil, err
	}
	report, err := c.getReport(ctx, loc)
	if err != nil {
		return nil, err
	}
	latest, err := c.latestVersion(ctx, loc)
	if err != nil {
		return nil, err
	}
	if latest.VersionNo != versionNo {
		return nil, fault.InvalidTransition(
			"version %d of report %s is current, not %d", latest.VersionNo, reportID, versionNo)
	}
	if latest.Status != model.ReportSubmitted {
		return nil, fault.InvalidTransition(
			"version %d of report %s is %s, not submitted", versionNo, reportID, latest.Status)
	}

	now := time.Now().UTC()
	var commentType model.CommentType
	switch action {
	case model.ActionApprove:
		latest.Status = model.ReportApproved
		latest.ApprovedAt = &now
		latest.ReviewComments = comments
		commentType = model.CommentApproval
	case model.ActionReject:
		latest.Status = model.ReportRejected
		latest.RejectedAt = &now
		latest.RejectionReason = comments
		commentType = model.CommentRejectionReason
	case model.ActionReturnForRevision:
		latest.Status = model.ReportReturned
		latest.ReturnedAt = &now
		latest.ReviewComments = comments
		commentType = model.CommentCorrectionRequired
	default:
		return nil, fault.Validation("unknown review action %q", action)
	}

	if err := c.appendComment(ctx, loc, versionNo, commentType, comments, by); err != nil {
		return nil, err
	}
	if err := blob.PutJSON(ctx, c.store, blob.ReportVersionKey(loc.projectID, loc.borelogID, loc.reportID, versionNo), latest); err != nil {
		return nil, eris.Wrap(err, "labreport: write review")
	}
	if err := c.projectHeader(ctx, loc, report, latest); err != nil {
		return nil, err
	}

	result := &ReviewResult{Version: latest}
	if action == model.ActionApprove {
		if err := c.writeFinalReport(ctx, loc, report, latest, by, now); err != nil {
			zap.L().Warn("labreport: final report materialization failed",
				zap.String("report_id", reportID),
				zap.Error(err),
			)
			result.FinalizeErr = err
		}
	}
	return result, nil
}

// History returns the version history newest-first, each version annotated
// with the most recent submission comment for that exact version.
func (c *Controller) History(ctx context.Context, reportID string) ([]model.VersionWithComment, error) {
	loc, err := c.locate(ctx, reportID)
	if err != nil {
		return nil, err
	}
	versions, err := c.allVersions(ctx, loc)
	if err != nil {
		return nil, err
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].VersionNo > versions[j].VersionNo })

	comments, err := c.comments(ctx, loc)
	if err != nil {
		return nil, err
	}
	latestSubmission := map[int]*model.ReportComment{}
	for i := range comments {
		cm := &comments[i]
		if cm.Type != model.CommentSubmission {
			continue
		}
		if best, ok := latestSubmission[cm.VersionNo]; !ok || cm.CreatedAt.After(best.CreatedAt) {
			latestSubmission[cm.VersionNo] = cm
		}
	}

	out := make([]model.VersionWithComment, 0, len(versions))
	for _, v := range versions {
		out = append(out, model.VersionWithComment{
			ReportVersion: v,
			LatestComment: latestSubmission[v.VersionNo],
		})
	}
	return out, nil
}

// Get returns a report's header document.
func (c *Controller) Get(ctx context.Context, reportID string) (*model.UnifiedLabReport, error) {
	loc, err := c.locate(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return c.getReport(ctx, loc)
}

func (c *Controller) getReport(ctx context.Context, loc location) (*model.UnifiedLabReport, error) {
	var report model.UnifiedLabReport
	err := blob.GetJSON(ctx, c.store, blob.ReportKey(loc.projectID, loc.borelogID, loc.reportID), &report)
	if fault.IsNotFound(err) {
		return nil, fault.NotFound("lab report %s", loc.reportID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "labreport: get report")
	}
	return &report, nil
}

func (c *Controller) allVersions(ctx context.Context, loc location) ([]model.ReportVersion, error) {
	keys := c.cat.Scan(ctx, blob.ReportVersionsPrefix(loc.projectID, loc.borelogID, loc.reportID), catalog.Match{Suffix: ".json"})
	out := make([]model.ReportVersion, 0, len(keys))
	for _, key := range keys {
		var v model.ReportVersion
		if err := blob.GetJSON(ctx, c.store, key, &v); err != nil {
			zap.L().Warn("labreport: skipping unreadable version", zap.String("key", key), zap.Error(err))
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Controller) latestVersion(ctx context.Context, loc location) (*model.ReportVersion, error) {
	versions, err := c.allVersions(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fault.NotFound("lab report %s has no versions", loc.reportID)
	}
	latest := versions[0]
	for _, v := range versions[1:] {
		if v.VersionNo > latest.VersionNo {
			latest = v
		}
	}
	return &latest, nil
}

// projectHeader rewrites report.json as the projection of the latest
// version. A returned version projects to draft: a revision is expected.
func (c *Controller) projectHeader(ctx context.Context, loc location, report *model.UnifiedLabReport, latest *model.ReportVersion) error {
	status := latest.Status
	if status == model.ReportReturned {
		status = model.ReportDraft
	}
	report.Status = status
	report.TestTypes = latest.TestTypes
	report.SoilTestData = latest.SoilTestData
	report.RockTestData = latest.RockTestData
	report.UpdatedAt = time.Now().UTC()
	if err := blob.PutJSON(ctx, c.store, blob.ReportKey(loc.projectID, loc.borelogID, loc.reportID), report); err != nil {
		return eris.Wrap(err, "labreport: write header")
	}
	return nil
}

func (c *Controller) comments(ctx context.Context, loc location) ([]model.ReportComment, error) {
	var doc model.ReportCommentDoc
	err := blob.GetJSON(ctx, c.store, blob.ReportCommentsKey(loc.projectID, loc.borelogID, loc.reportID), &doc)
	if fault.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "labreport: get comments")
	}
	return doc.Comments, nil
}

func (c *Controller) appendComment(ctx context.Context, loc location, versionNo int, ct model.CommentType, text, author string) error {
	existing, err := c.comments(ctx, loc)
	if err != nil {
		return err
	}
	doc := model.ReportCommentDoc{
		ReportID: loc.reportID,
		Comments: append(existing, model.ReportComment{
			CommentID: uuid.New().String(),
			ReportID:  loc.reportID,
			VersionNo: versionNo,
			Type:      ct,
			Text:      text,
			Author:    author,
			CreatedAt: time.Now().UTC(),
		}),
	}
	if err := blob.PutJSON(ctx, c.store, blob.ReportCommentsKey(loc.projectID, loc.borelogID, loc.reportID), &doc); err != nil {
		return eris.Wrap(err, "labreport: write comments")
	}
	return nil
}

func (c *Controller) writeFinalReport(ctx context.Context, loc location, report *model.UnifiedLabReport, version *model.ReportVersion, approvedBy string, approvedAt time.Time) error {
	versions, err := c.allVersions(ctx, loc)
	if err != nil {
		return err
	}
	final := model.FinalReport{
		Report:       *report,
		Version:      *version,
		ApprovedBy:   approvedBy,
		ApprovedAt:   approvedAt,
		VersionCount: len(versions),
		SampleCount:  len(version.SoilTestData) + len(version.RockTestData),
	}
	if err := blob.PutJSON(ctx, c.store, blob.FinalReportKey(loc.projectID, loc.borelogID, loc.reportID), &final); err != nil {
		return eris.Wrap(err, "labreport: write final report")
	}
	return nil
}
