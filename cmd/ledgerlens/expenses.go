package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgerlens/ledgerlens/internal/cli"
	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

func expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Browse recorded expenses",
	}

	cmd.AddCommand(listExpensesCmd())
	return cmd
}

func listExpensesCmd() *cobra.Command {
	var (
		category string
		since    string
		until    string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded expenses, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			filter := service.ExpenseFilter{Category: category, Limit: limit}
			if since != "" {
				start, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (want YYYY-MM-DD): %w", err)
				}
				filter.StartDate = &start
			}
			if until != "" {
				end, err := time.Parse("2006-01-02", until)
				if err != nil {
					return fmt.Errorf("invalid --until date (want YYYY-MM-DD): %w", err)
				}
				filter.EndDate = &end
			}

			settings, err := config.Load()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			userID := viper.GetString("profile.user")
			expenses, err := store.GetExpenses(ctx, userID, filter)
			if err != nil {
				return fmt.Errorf("failed to query expenses: %w", err)
			}

			if len(expenses) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No expenses recorded yet."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", "Date", "Amount", "Category", "Merchant", "Description")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 10),
				strings.Repeat("-", 12),
				strings.Repeat("-", 16),
				strings.Repeat("-", 16),
				strings.Repeat("-", 30))

			for _, exp := range expenses {
				fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\t%s\n",
					exp.OccurredAt.Format("2006-01-02"),
					exp.Amount.StringFixed(2), exp.Currency,
					exp.Category, exp.Merchant, exp.Description)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only expenses in this category")
	cmd.Flags().StringVar(&since, "since", "", "only expenses on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "only expenses on or before this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of expenses to show")

	return cmd
}
