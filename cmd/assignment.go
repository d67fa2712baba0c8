package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/stratabase/borecore/internal/assignment"
	"github.com/stratabase/borecore/internal/model"
)

var assignmentCmd = &cobra.Command{
	Use:   "assignment",
	Short: "Assign engineers to borelogs, structures and lab reports",
}

// initAssignments wires the engine against the blob store and the user
// directory.
func initAssignments(cmd *cobra.Command) (*assignment.Engine, func(), error) {
	ctx := cmd.Context()
	store, err := initBlob(ctx)
	if err != nil {
		return nil, nil, err
	}
	dir, err := initDirectory(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := dir.Migrate(ctx); err != nil {
		_ = dir.Close()
		return nil, nil, err
	}
	return assignment.New(store, dir), func() { _ = dir.Close() }, nil
}

var assignmentCreateCmd = &cobra.Command{
	Use:   "create <target-id> <assignee-id>",
	Short: "Create an active assignment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := initAssignments(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		in := assignment.CreateInput{TargetID: args[0], AssignedTo: args[1]}
		kind, _ := cmd.Flags().GetString("kind")
		in.TargetKind = model.TargetKind(kind)
		in.AssignedBy, _ = cmd.Flags().GetString("by")
		in.Notes, _ = cmd.Flags().GetString("notes")
		if due, _ := cmd.Flags().GetString("due"); due != "" {
			d, err := time.Parse("2006-01-02", due)
			if err != nil {
				return eris.Wrapf(err, "parse due date %s", due)
			}
			in.ExpectedCompletionDate = &d
		}

		created, err := eng.Create(cmd.Context(), in)
		if err != nil {
			return eris.Wrap(err, "assignment create")
		}
		return emitStdout(cmd, created)
	},
}

var assignmentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assignments, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		eng, closeFn, err := initAssignments(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		f := assignment.Filter{}
		f.TargetID, _ = cmd.Flags().GetString("target")
		kind, _ := cmd.Flags().GetString("kind")
		f.TargetKind = model.TargetKind(kind)
		f.AssignedTo, _ = cmd.Flags().GetString("assignee")
		status, _ := cmd.Flags().GetString("status")
		f.Status = model.AssignmentStatus(status)

		out, err := eng.List(cmd.Context(), f)
		if err != nil {
			return eris.Wrap(err, "assignment list")
		}
		return emitStdout(cmd, out)
	},
}

var assignmentUpdateCmd = &cobra.Command{
	Use:   "update <assignment-id>",
	Short: "Update an assignment's status, notes or due date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := initAssignments(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		p := assignment.Patch{}
		if cmd.Flags().Changed("status") {
			status, _ := cmd.Flags().GetString("status")
			s := model.AssignmentStatus(status)
			p.Status = &s
		}
		if cmd.Flags().Changed("notes") {
			notes, _ := cmd.Flags().GetString("notes")
			p.Notes = &notes
		}
		if due, _ := cmd.Flags().GetString("due"); due != "" {
			d, err := time.Parse("2006-01-02", due)
			if err != nil {
				return eris.Wrapf(err, "parse due date %s", due)
			}
			p.ExpectedCompletionDate = &d
		}

		updated, err := eng.Update(cmd.Context(), args[0], p)
		if err != nil {
			return eris.Wrap(err, "assignment update")
		}
		return emitStdout(cmd, updated)
	},
}

var assignmentDeleteCmd = &cobra.Command{
	Use:   "delete <assignment-id>",
	Short: "Delete an assignment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := initAssignments(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := eng.Delete(cmd.Context(), args[0]); err != nil {
			return eris.Wrap(err, "assignment delete")
		}
		cmd.Println("deleted", args[0])
		return nil
	},
}

func init() {
	assignmentCreateCmd.Flags().String("kind", string(model.TargetBorelog), "target kind: borelog, structure, substructure or lab_report")
	assignmentCreateCmd.Flags().String("by", "", "assigning user id")
	assignmentCreateCmd.Flags().String("notes", "", "free-form notes")
	assignmentCreateCmd.Flags().String("due", "", "expected completion date (YYYY-MM-DD)")

	assignmentListCmd.Flags().String("target", "", "filter by target id")
	assignmentListCmd.Flags().String("kind", "", "filter by target kind")
	assignmentListCmd.Flags().String("assignee", "", "filter by assignee user id")
	assignmentListCmd.Flags().String("status", "", "filter by status (active, inactive, completed)")

	assignmentUpdateCmd.Flags().String("status", "", "new status (active, inactive, completed)")
	assignmentUpdateCmd.Flags().String("notes", "", "replacement notes")
	assignmentUpdateCmd.Flags().String("due", "", "expected completion date (YYYY-MM-DD)")

	assignmentCmd.AddCommand(assignmentCreateCmd)
	assignmentCmd.AddCommand(assignmentListCmd)
	assignmentCmd.AddCommand(assignmentUpdateCmd)
	assignmentCmd.AddCommand(assignmentDeleteCmd)
	rootCmd.AddCommand(assignmentCmd)
}
