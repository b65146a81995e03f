package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/escudo-app/escudo/internal/cli"
	"github.com/escudo-app/escudo/internal/review"
	"github.com/escudo-app/escudo/internal/service"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Approve, reject, delete, or restore transactions",
		Long: `Review categorized transactions. Destructive actions (reject,
delete) are staged behind a short undo window; press Enter before it
elapses to cancel. Pass --now to skip the window.

Bulk forms take multiple IDs and report per-item results; one failing
item never aborts the rest.`,
	}

	cmd.AddCommand(reviewApproveCmd())
	cmd.AddCommand(reviewRejectCmd())
	cmd.AddCommand(reviewDeleteCmd())
	cmd.AddCommand(reviewRestoreCmd())

	return cmd
}

func reviewApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <id>...",
		Short: "Approve one or more categorized transactions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if len(args) == 1 {
				if err := review.Approve(ctx, store, args[0]); err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess("Transaction approved"))
				return nil
			}

			displayBulkResult("approved", review.BulkApprove(ctx, store, args))
			return nil
		},
	}
}

func reviewRejectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reject <id>...",
		Short: "Reject one or more transactions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			now, _ := cmd.Flags().GetBool("now")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if len(args) > 1 {
				displayBulkResult("rejected", review.BulkReject(ctx, store, args))
				return nil
			}

			if now {
				if err := review.Reject(ctx, store, args[0]); err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess("Transaction rejected"))
				return nil
			}

			return stageWithUndo(ctx, args[0], "reject", func(execCtx context.Context) error {
				return review.Reject(execCtx, store, args[0])
			})
		},
	}

	cmd.Flags().Bool("now", false, "Skip the undo window")
	return cmd
}

func reviewDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Soft-delete one or more transactions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			now, _ := cmd.Flags().GetBool("now")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if len(args) > 1 {
				displayBulkResult("deleted", review.BulkDelete(ctx, store, args))
				return nil
			}

			if now {
				if err := store.SoftDeleteTransaction(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess("Transaction deleted"))
				return nil
			}

			return stageWithUndo(ctx, args[0], "delete", func(execCtx context.Context) error {
				return store.SoftDeleteTransaction(execCtx, args[0])
			})
		},
	}

	cmd.Flags().Bool("now", false, "Skip the undo window")
	return cmd
}

func reviewRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a rejected or deleted transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := store.RestoreTransaction(ctx, args[0]); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("Transaction restored to pending review"))
			return nil
		},
	}
}

// stageWithUndo runs one destructive action behind the undo window, watching
// stdin so the user can cancel before it fires.
func stageWithUndo(ctx context.Context, id, label string, execute func(context.Context) error) error {
	coordinator := review.NewCoordinator(review.DefaultDelay)
	defer coordinator.Close()

	action := coordinator.Stage(id, label, execute, nil)
	fmt.Println(cli.FormatWarning(fmt.Sprintf("Will %s transaction in %s; press Enter to undo", label, review.DefaultDelay)))

	input := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			close(input)
		}
	}()

	select {
	case <-input:
		if coordinator.Undo(id) {
			fmt.Println(cli.FormatInfo(fmt.Sprintf("Undid %s", label)))
			return nil
		}
		// Too late, the action already fired.
		return action.Wait(ctx)
	case <-action.Done():
		if err := action.Err(); err != nil {
			return err
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Transaction %s complete", label)))
		return nil
	case <-ctx.Done():
		coordinator.Undo(id)
		return ctx.Err()
	}
}

func displayBulkResult(label string, result service.BulkResult) {
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%d transactions %s", result.Succeeded(), label)))
	if result.Failed() > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d failed:", result.Failed())))
		for _, item := range result.Results {
			if item.Err != nil {
				fmt.Println("  " + cli.SubtleStyle.Render(fmt.Sprintf("%s: %v", item.ID, item.Err)))
			}
		}
	}
}
