package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/escudo-app/escudo/internal/cli"
	"github.com/escudo-app/escudo/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
		Long: `Manage keyword categorization rules. Default rules ship with the
application and cannot be deleted; custom rules can be added, soft-deleted,
and restored.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesRestoreCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			activeRules, err := store.GetActiveRules(ctx)
			if err != nil {
				return err
			}

			if len(activeRules) == 0 {
				fmt.Println(cli.FormatInfo("No active rules"))
				return nil
			}

			fmt.Println(cli.FormatTitle("Active rules"))
			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-6s %-20s %-20s %-20s %s", "ID", "KEYWORD", "MAJOR", "CATEGORY", "KIND")))
			for _, rule := range activeRules {
				kind := "custom"
				if rule.IsDefault {
					kind = "default"
				}
				fmt.Println(cli.TableCellStyle.Render(fmt.Sprintf("%-6d %-20s %-20s %-20s %s",
					rule.ID, rule.Keyword, rule.MajorCategory, rule.Category, kind)))
			}
			return nil
		},
	}
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <keyword>",
		Short: "Add a custom rule",
		Long: `Add a custom categorization rule. The keyword is matched
case-insensitively against transaction descriptions; pass --regex to match
it as a regular expression instead.

Example:
  escudo rules add continente --major "Custos Fixos" --category "Alimentação"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			major, _ := cmd.Flags().GetString("major")
			category, _ := cmd.Flags().GetString("category")
			tags, _ := cmd.Flags().GetString("tags")
			isRegex, _ := cmd.Flags().GetBool("regex")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			rule := &model.Rule{
				Keyword:       args[0],
				MajorCategory: major,
				Category:      category,
				IsRegex:       isRegex,
			}
			if tags != "" {
				rule.Tags = strings.Split(tags, ",")
			}

			if err := store.SaveRule(ctx, rule); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Rule %d added: %q → %s / %s",
				rule.ID, rule.Keyword, rule.MajorCategory, rule.Category)))
			return nil
		},
	}

	cmd.Flags().String("major", "", "Major category to assign (required)")
	cmd.Flags().String("category", "", "Category to assign (required)")
	cmd.Flags().String("tags", "", "Comma-separated tags to attach")
	cmd.Flags().Bool("regex", false, "Treat the keyword as a regular expression")

	_ = cmd.MarkFlagRequired("major")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a custom rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule id %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := store.DeleteRule(ctx, id); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Rule %d deleted (restore with 'escudo rules restore %d')", id, id)))
			return nil
		},
	}
}

func rulesRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a soft-deleted rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule id %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := store.RestoreRule(ctx, id); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Rule %d restored", id)))
			return nil
		},
	}
}

func closeStorage(store interface{ Close() error }) {
	if err := store.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}
