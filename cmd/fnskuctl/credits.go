package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/702ron/product-api-site-sub000/app/models"
	"github.com/702ron/product-api-site-sub000/app/repository"
	"github.com/702ron/product-api-site-sub000/internal/pkg/credits"
)

func creditsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Inspect and grant user credits",
	}
	cmd.AddCommand(creditsGrantCmd())
	cmd.AddCommand(creditsBalanceCmd())
	cmd.AddCommand(creditsHistoryCmd())
	return cmd
}

func creditsGrantCmd() *cobra.Command {
	var (
		txType      string
		description string
	)

	cmd := &cobra.Command{
		Use:   "grant USER_ID AMOUNT",
		Short: "Add credits to a user's balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			svc, closeFn, err := openServices()
			if err != nil {
				return err
			}
			defer closeFn()

			tx, err := svc.Ledger.Add(cmd.Context(), uint(userID), amount, txType, credits.AddOptions{
				Operation:   "admin_adjustment",
				Description: description,
				Metadata:    map[string]any{"source": "fnskuctl"},
			})
			if err != nil {
				return err
			}
			balance, err := svc.Ledger.GetBalance(cmd.Context(), uint(userID))
			if err != nil {
				return err
			}
			fmt.Printf("Granted %d credits to user %d (%s), balance now %d\n", tx.Amount, userID, tx.Reference, balance)
			return nil
		},
	}

	cmd.Flags().StringVar(&txType, "type", models.TransactionTypeAdjustment, "transaction type (purchase, refund, adjustment)")
	cmd.Flags().StringVar(&description, "description", "Manual credit grant", "ledger description")
	return cmd
}

func creditsBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance USER_ID",
		Short: "Print a user's credit balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}

			svc, closeFn, err := openServices()
			if err != nil {
				return err
			}
			defer closeFn()

			balance, err := svc.Ledger.GetBalance(cmd.Context(), uint(userID))
			if err != nil {
				return err
			}
			fmt.Println(balance)
			return nil
		},
	}
}

func creditsHistoryCmd() *cobra.Command {
	var (
		txType string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "history USER_ID",
		Short: "Print a user's ledger entries, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			svc, closeFn, err := openServices()
			if err != nil {
				return err
			}
			defer closeFn()

			txs, total, err := svc.Ledger.GetHistory(cmd.Context(), userID, repository.TransactionFilter{
				Type:   txType,
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return err
			}
			return printHistory(os.Stdout, txs, total)
		},
	}

	cmd.Flags().StringVar(&txType, "type", "", "only show this transaction type")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many entries")
	return cmd
}

func printHistory(w io.Writer, txs []models.CreditTransaction, total int64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tTYPE\tDIRECTION\tAMOUNT\tOPERATION\tREFERENCE")
	for i := range txs {
		tx := &txs[i]
		direction := "credit"
		if tx.IsDebit() {
			direction = "debit"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%+d\t%s\t%s\n",
			tx.CreatedAt.UTC().Format("2006-01-02 15:04:05"), tx.TransactionType, direction, tx.Amount, tx.Operation, tx.Reference)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d entries\n", len(txs), total)
	return err
}
