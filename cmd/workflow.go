package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/stratabase/borecore/internal/model"
	"github.com/stratabase/borecore/internal/workflow"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Drive a borelog's approval workflow",
}

var workflowShowCmd = &cobra.Command{
	Use:   "show <project-id> <borelog-id>",
	Short: "Show the current workflow record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := initBlob(ctx)
		if err != nil {
			return err
		}

		rec, err := workflow.New(store).Get(ctx, args[0], args[1])
		if err != nil {
			return eris.Wrap(err, "workflow show")
		}
		return emitStdout(cmd, rec)
	},
}

var workflowSubmitCmd = &cobra.Command{
	Use:   "submit <project-id> <borelog-id>",
	Short: "Submit a borelog version for review",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := initBlob(ctx)
		if err != nil {
			return err
		}

		versionNo, _ := cmd.Flags().GetInt("version")
		by, _ := cmd.Flags().GetString("by")
		comments, _ := cmd.Flags().GetString("comments")

		rec, err := workflow.New(store).SubmitForReview(ctx, args[0], args[1], versionNo, by, comments)
		if err != nil {
			return eris.Wrap(err, "workflow submit")
		}
		return emitStdout(cmd, rec)
	},
}

var workflowReviewCmd = &cobra.Command{
	Use:   "review <project-id> <borelog-id>",
	Short: "Approve, reject or return a submitted borelog version",
	Args:  cobra.ExactArgs(2),
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

		rec, err := workflow.New(store).Review(ctx, args[0], args[1], versionNo, model.ReviewAction(action), by, comments)
		if err != nil {
			return eris.Wrap(err, "workflow review")
		}
		return emitStdout(cmd, rec)
	},
}

var workflowCommentsCmd = &cobra.Command{
	Use:   "comments <project-id> <borelog-id>",
	Short: "Show the review comment thread for a version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := initBlob(ctx)
		if err != nil {
			return err
		}

		versionNo, _ := cmd.Flags().GetInt("version")
		comments, err := workflow.New(store).Comments(ctx, args[0], args[1], versionNo)
		if err != nil {
			return eris.Wrap(err, "workflow comments")
		}
		return emitStdout(cmd, comments)
	},
}

func init() {
	workflowSubmitCmd.Flags().Int("version", 1, "borelog version number being submitted")
	workflowSubmitCmd.Flags().String("by", "", "submitting user id")
	workflowSubmitCmd.Flags().String("comments", "", "optional submission comments")

	workflowReviewCmd.Flags().Int("version", 1, "borelog version number under review")
	workflowReviewCmd.Flags().String("action", "", "approve, reject or return_for_revision")
	workflowReviewCmd.Flags().String("by", "", "reviewing user id")
	workflowReviewCmd.Flags().String("comments", "", "review comments (required)")

	workflowCommentsCmd.Flags().Int("version", 1, "version number of the comment thread")

	workflowCmd.AddCommand(workflowShowCmd)
	workflowCmd.AddCommand(workflowSubmitCmd)
	workflowCmd.AddCommand(workflowReviewCmd)
	workflowCmd.AddCommand(workflowCommentsCmd)
	rootCmd.AddCommand(workflowCmd)
}
