package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/stratabase/borecore/internal/labreport"
	"github.com/stratabase/borecore/internal/model"
	"github.com/stratabase/borecore/internal/query"
)

var labreportCmd = &cobra.Command{
	Use:   "labreport",
	Short: "Manage unified lab reports and their version history",
}

var labreportDraftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Save a draft version (new report, or next version of an existing one)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		store, err := initBlob(ctx)
		if err != nil {
			return err
		}

		d := labreport.Draft{}
		d.ReportID, _ = cmd.Flags().GetString("report")
		d.ProjectID, _ = cmd.Flags().GetString("project")
		d.BorelogID, _ = cmd.Flags().GetString("borelog")
		d.AssignmentID, _ = cmd.Flags().GetString("assignment")
		d.CreatedBy, _ = cmd.Flags().GetString("by")
		d.TestTypes, _ = cmd.Flags().GetStringSlice("test-types")

		if payload, _ := cmd.Flags().GetString("data"); payload != "" {
			b, err := os.ReadFile(payload)
			if err != nil {
				return eris.Wrapf(err, "read test data %s", payload)
			}
			var data struct {
				Soil []model.SoilTest `json:"soil_test_data"`
				Rock []model.RockTest `json:"rock_test_data"`
			}
			if err := json.Unmarshal(b, &data); err != nil {
				return eris.Wrapf(err, "decode test data %s", payload)
			}
			d.SoilTestData = data.Soil
			d.RockTestData = data.Rock
		}

		version, err := labreport.New(store).SaveDraft(ctx, d)
		if err != nil {
			return eris.Wrap(err, "labreport draft")
		}
		return emitStdout(cmd, version)
	},
}

var labreportSubmitCmd = &cobra.Command{
	Use:   "submit <report-id>",
	Short: "Submit the latest draft version for review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := initBlob(ctx)
		if err != nil {
			return err
		}

		versionNo, _ := cmd.Flags().GetInt("version")
		by, _ := cmd.Flags().GetString("by")
		comments, _ := cmd.Flags().GetString("comments")

		version, err := labreport.New(store).SubmitForReview(ctx, args[0], versionNo, by, comments)
		if err != nil {
			return eris.Wrap(err, "labreport submit")
		}
		return emitStdout(cmd, version)
	},
}

var labreportReviewCmd = &cobra.Command{
	Use:   "review <report-id>",
	Short: "Approve, reject or return a submitted report version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := initBlob(ctx)
		if err != nil {
			return err
		}

		versionNo, _ := cmd.Flags().GetInt("version")
		action, _ := cmd.Flags().GetString("action")
		by, _ := cmd.Flags().GetString("by")
		comments, _ := cmd.Flags().GetString("comments")

		res, err := labreport.New(store).Review(ctx, args[0], versionNo, model.ReviewAction(action), by, comments)
		if err != nil {
			return eris.Wrap(err, "labreport review")
		}
		if res.FinalizeErr != nil {
			cmd.PrintErrf("warning: final report not materialized: %v\n", res.FinalizeErr)
		}
		return emitStdout(cmd, res.Version)
	},
}

var labreportHistoryCmd = &cobra.Command{
	Use:   "history <report-id>",
	Short: "Show the version history, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := initBlob(ctx)
		if err != nil {
			return err
		}

		history, err := labreport.New(store).History(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "labreport history")
		}
		return emitStdout(cmd, history)
	},
}

var labreportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List report headers, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		store, err := initBlob(ctx)
		if err != nil {
			return err
		}

		opts := query.ReportOptions{}
		opts.ProjectID, _ = cmd.Flags().GetString("project")
		opts.BorelogID, _ = cmd.Flags().GetString("borelog")
		status, _ := cmd.Flags().GetString("status")
		opts.Status = model.ReportStatus(status)
		opts.Offset, _ = cmd.Flags().GetInt("offset")
		opts.Limit, _ = cmd.Flags().GetInt("limit")

		page, err := query.New(store).ListLabReports(ctx, opts)
		if err != nil {
			return eris.Wrap(err, "labreport list")
		}
		return emitStdout(cmd, page)
	},
}

var labreportRequestsCmd = &cobra.Command{
	Use:   "requests <project-id> <borelog-id>",
	Short: "List lab test requests, explicit and inferred",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := initBlob(ctx)
		if err != nil {
			return err
		}

		reqs, err := labreport.New(store).Requests(ctx, args[0], args[1])
		if err != nil {
			return eris.Wrap(err, "labreport requests")
		}
		return emitStdout(cmd, reqs)
	},
}

var labreportRequestCmd = &cobra.Command{
	Use:   "request <project-id> <borelog-id>",
	Short: "Author an explicit lab test request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := initBlob(ctx)
		if err != nil {
			return err
		}

		req := model.LabRequest{ProjectID: args[0], BorelogID: args[1]}
		req.SampleIDs, _ = cmd.Flags().GetStringSlice("samples")
		req.AssignedTo, _ = cmd.Flags().GetString("assigned-to")
		req.Priority, _ = cmd.Flags().GetString("priority")

		created, err := labreport.New(store).AddRequest(ctx, req)
		if err != nil {
			return eris.Wrap(err, "labreport request")
		}
		return emitStdout(cmd, created)
	},
}

func init() {
	labreportDraftCmd.Flags().String("report", "", "existing report id (empty creates a new report)")
	labreportDraftCmd.Flags().String("project", "", "project id (required for a new report)")
	labreportDraftCmd.Flags().String("borelog", "", "borelog id (required for a new report)")
	labreportDraftCmd.Flags().String("assignment", "", "originating assignment id")
	labreportDraftCmd.Flags().String("by", "", "authoring user id")
	labreportDraftCmd.Flags().StringSlice("test-types", nil, "test types covered by the report")
	labreportDraftCmd.Flags().String("data", "", "path to a JSON file with soil_test_data/rock_test_data")

	labreportSubmitCmd.Flags().Int("version", 1, "version number being submitted")
	labreportSubmitCmd.Flags().String("by", "", "submitting user id")
	labreportSubmitCmd.Flags().String("comments", "", "optional submission comments")

	labreportReviewCmd.Flags().Int("version", 1, "version number under review")
	labreportReviewCmd.Flags().String("action", "", "approve, reject or return_for_revision")
	labreportReviewCmd.Flags().String("by", "", "reviewing user id")
	labreportReviewCmd.Flags().String("comments", "", "review comments (required)")

	labreportListCmd.Flags().String("project", "", "filter by project id")
	labreportListCmd.Flags().String("borelog", "", "filter by borelog id")
	labreportListCmd.Flags().String("status", "", "filter by report status")
	labreportListCmd.Flags().Int("offset", 0, "pagination offset")
	labreportListCmd.Flags().Int("limit", 50, "max reports to return (0 = all)")

	labreportRequestCmd.Flags().StringSlice("samples", nil, "sample ids the request covers")
	labreportRequestCmd.Flags().String("assigned-to", "", "lab engineer user id")
	labreportRequestCmd.Flags().String("priority", "normal", "low, normal or high")

	labreportCmd.AddCommand(labreportDraftCmd)
	labreportCmd.AddCommand(labreportSubmitCmd)
	labreportCmd.AddCommand(labreportReviewCmd)
	labreportCmd.AddCommand(labreportHistoryCmd)
	labreportCmd.AddCommand(labreportListCmd)
	labreportCmd.AddCommand(labreportRequestsCmd)
	labreportCmd.AddCommand(labreportRequestCmd)
	rootCmd.AddCommand(labreportCmd)
}
