package labreport

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/stratabase/borecore/internal/blob"
	"github.com/stratabase/borecore/internal/catalog"
	"github.com/stratabase/borecore/internal/fault"
	"github.com/stratabase/borecore/internal/model"
)

// Requests resolves the two derivation paths for lab requests into one
// sequence: explicitly authored requests from lab/requests.json, plus a
// request inferred from parsed strata samples that still lack results.
// Explicit requests win for overlapping sample ids.
//
// A missing lab/results.json means "still pending" and allows inference; a
// present-but-empty document means the samples were tested with nothing to
// report, and suppresses inference entirely.
func (c *Controller) Requests(ctx context.Context, projectID, borelogID string) ([]model.LabRequest, error) {
	explicit, err := c.explicitRequests(ctx, projectID, borelogID)
	if err != nil {
		return nil, err
	}

	results, resultsPresent, err := c.results(ctx, projectID, borelogID)
	if err != nil {
		return nil, err
	}
	if resultsPresent && len(results) == 0 {
		return explicit, nil
	}

	inferred := c.inferRequest(ctx, projectID, borelogID, explicit, results)
	if inferred != nil {
		explicit = append(explicit, *inferred)
	}
	return explicit, nil
}

// AddRequest appends an explicit request to the borelog's request document.
func (c *Controller) AddRequest(ctx context.Context, req model.LabRequest) (*model.LabRequest, error) {
	if req.ProjectID == "" || req.BorelogID == "" {
		return nil, fault.Validation("project_id and borelog_id are required")
	}
	if len(req.SampleIDs) == 0 {
		return nil, fault.Validation("at least one sample id is required")
	}
	ok, err := c.store.Exists(ctx, blob.BorelogMetadataKey(req.ProjectID, req.BorelogID))
	if err != nil {
		return nil, eris.Wrap(err, "labreport: check borelog metadata")
	}
	if !ok {
		return nil, fault.NotFound("borelog %s in project %s", req.BorelogID, req.ProjectID)
	}

	key := blob.LabRequestsKey(req.ProjectID, req.BorelogID)
	var doc model.LabRequestDoc
	if err := blob.GetJSON(ctx, c.store, key, &doc); err != nil && !fault.IsNotFound(err) {
		return nil, eris.Wrap(err, "labreport: read requests")
	}
	if req.RequestID == "" {
		req.RequestID = fmt.Sprintf("req-%s-%d", req.BorelogID, len(doc.Requests)+1)
	}
	req.Source = model.SourceExplicit
	req.CreatedAt = time.Now().UTC()
	doc.BorelogID = req.BorelogID
	doc.Requests = append(doc.Requests, req)
	if err := blob.PutJSON(ctx, c.store, key, &doc); err != nil {
		return nil, eris.Wrap(err, "labreport: write requests")
	}
	return &req, nil
}

func (c *Controller) explicitRequests(ctx context.Context, projectID, borelogID string) ([]model.LabRequest, error) {
	var doc model.LabRequestDoc
	err := blob.GetJSON(ctx, c.store, blob.LabRequestsKey(projectID, borelogID), &doc)
	if fault.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "labreport: read requests")
	}
	for i := range doc.Requests {
		doc.Requests[i].Source = model.SourceExplicit
	}
	return doc.Requests, nil
}

// results returns the set of sample ids with recorded results, and whether
// the results document exists at all.
func (c *Controller) results(ctx context.Context, projectID, borelogID string) (map[string]bool, bool, error) {
	var doc model.LabResultsDoc
	err := blob.GetJSON(ctx, c.store, blob.LabResultsKey(projectID, borelogID), &doc)
	if fault.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "labreport: read results")
	}
	tested := make(map[string]bool, len(doc.Entries))
	for _, e := range doc.Entries {
		tested[e.SampleID] = true
	}
	return tested, true, nil
}

// inferRequest builds the inferred request from the latest parsed strata:
// every sample marked test-required that has neither a result nor an
// explicit request covering it.
func (c *Controller) inferRequest(ctx context.Context, projectID, borelogID string, explicit []model.LabRequest, tested map[string]bool) *model.LabRequest {
	strata := c.latestStrata(ctx, projectID, borelogID)
	if strata == nil {
		return nil
	}

	covered := map[string]bool{}
	for _, req := range explicit {
		for _, id := range req.SampleIDs {
			covered[id] = true
		}
	}

	var pending []string
	for _, layer := range strata.Layers {
		for _, sample := range layer.Samples {
			if sample.TestRequired && !tested[sample.SampleID] && !covered[sample.SampleID] {
				pending = append(pending, sample.SampleID)
			}
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.Strings(pending)
	return &model.LabRequest{
		RequestID: fmt.Sprintf("inferred-%s-v%d", borelogID, strata.VersionNo),
		ProjectID: projectID,
		BorelogID: borelogID,
		SampleIDs: pending,
		Source:    model.SourceInferred,
		CreatedAt: time.Now().UTC(),
	}
}

// latestStrata loads the highest-version parsed strata document, nil when
// none parses.
func (c *Controller) latestStrata(ctx context.Context, projectID, borelogID string) *model.Strata {
	prefix := fmt.Sprintf("projects/%s/borelogs/%s/parsed/", projectID, borelogID)
	keys := c.cat.Scan(ctx, prefix, catalog.Match{Suffix: "/strata.json"})
	bestNo := 0
	bestKey := ""
	for _, key := range keys {
		seg := strings.Split(key, "/")
		if len(seg) < 2 {
			continue
		}
		if n, ok := blob.ParseVersionNo(seg[len(seg)-2]); ok && n > bestNo {
			bestNo = n
			bestKey = key
		}
	}
	if bestKey == "" {
		return nil
	}
	var strata model.Strata
	if err := blob.GetJSON(ctx, c.store, bestKey, &strata); err != nil {
		zap.L().Warn("labreport: skipping unreadable strata", zap.String("key", bestKey), zap.Error(err))
		return nil
	}
	return &strata
}
