package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/reconcile"
)

var extractSave bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [workspace-id]",
	Short: "Rebuild the tables a workspace declares but its namespace lacks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wsID, err := parseWorkspaceID(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := connect(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		ws, err := a.stores.Workspaces().GetByID(ctx, wsID)
		if err != nil {
			return fmt.Errorf("loading workspace %d: %w", wsID, err)
		}

		report, err := reconcile.NewReconciler(a.engine).VerifyAndSync(ctx, ws.ID, ws.Namespace, ws.Tables)
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
		return report.Err()
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract [workspace-id]",
	Short: "Read a workspace namespace back into table declarations",
	Long: "Prints the declarations the live namespace currently holds. With --save they replace the " +
		"stored declarations, picking up changes made through raw SQL.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wsID, err := parseWorkspaceID(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := connect(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		if extractSave {
			res, err := a.services.Workspaces().Sync(ctx, wsID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		}

		ws, err := a.stores.Workspaces().GetByID(ctx, wsID)
		if err != nil {
			return fmt.Errorf("loading workspace %d: %w", wsID, err)
		}
		state, err := reconcile.NewExtractor(a.engine).ExtractWorkspaceState(ctx, ws.Namespace)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), state)
	},
}

var execCmd = &cobra.Command{
	Use:   "exec [workspace-id] [sql]",
	Short: "Run one statement inside a workspace namespace",
	Long:  "Runs the statement exactly as the query editor would, including history and declared-state refresh.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		wsID, err := parseWorkspaceID(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := connect(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		outcome, err := a.services.Queries().Execute(ctx, wsID, strings.Join(args[1:], " "))
		if err != nil {
			var ee *engine.EngineError
			if errors.As(err, &ee) && ee.Code != "" {
				return fmt.Errorf("%s [%s]: %s\n%s", ee.Class, ee.Code, ee.Message, ee.Suggestion)
			}
			return err
		}

		res := outcome.Result
		out := cmd.OutOrStdout()
		if len(res.Fields) > 0 {
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			names := make([]string, 0, len(res.Fields))
			for _, f := range res.Fields {
				names = append(names, f.Name)
			}
			fmt.Fprintln(tw, strings.Join(names, "\t"))
			for _, row := range res.Rows {
				cells := make([]string, 0, len(names))
				for _, n := range names {
					cells = append(cells, formatCell(row[n]))
				}
				fmt.Fprintln(tw, strings.Join(cells, "\t"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "%s %d\n", res.Command, res.RowCount)
		if outcome.Refreshed {
			fmt.Fprintln(out, "declared tables refreshed")
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "Replace the stored declarations with the extracted ones")
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}
