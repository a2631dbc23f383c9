package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dvloznov/rosacash/internal/app"
	"github.com/dvloznov/rosacash/internal/assistant"
	"github.com/dvloznov/rosacash/internal/billing"
	"github.com/dvloznov/rosacash/internal/ledger"
	"github.com/dvloznov/rosacash/internal/logger"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a transaction",
	Long: `Add a transaction to the ledger.

A credit card purchase with --installments N is split into N monthly transactions.
--recurring also creates a monthly recurring rule on the same day of month.`,
	Example: `  # TV bought in 10 installments
  rosacash add --user u1 --type credit_card --card nubank --date 2025-03-10 \
    --desc "TV" --value 3000 --category Casa --installments 10

  # Let the assistant pick the category
  rosacash add --user u1 --type expense --date 2025-03-05 --desc "Aluguel" --value 1800 --suggest`,
	RunE: runAdd,
}

var chatCmd = &cobra.Command{
	Use:   "chat MESSAGE...",
	Short: "Ask the assistant a question about your finances",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChat,
}

func init() {
	addCmd.Flags().String("date", "", "Date, YYYY-MM-DD (default: today)")
	addCmd.Flags().String("desc", "", "Description (required)")
	addCmd.Flags().String("type", string(billing.TypeExpense), "income, expense, savings, savings_withdrawal or credit_card")
	addCmd.Flags().String("value", "", "Amount, positive (required)")
	addCmd.Flags().String("category", "", "Category")
	addCmd.Flags().String("subcategory", "", "Subcategory")
	addCmd.Flags().String("card", "", "Card ID or part of its name (credit_card only)")
	addCmd.Flags().Int("installments", 1, "Number of monthly installments (credit_card only)")
	addCmd.Flags().Bool("recurring", false, "Also create a monthly recurring rule")
	addCmd.Flags().Bool("suggest", false, "Ask the assistant for a category when --category is empty")
	_ = addCmd.MarkFlagRequired("desc")
	_ = addCmd.MarkFlagRequired("value")

	rootCmd.AddCommand(addCmd, chatCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	flags := cmd.Flags()
	date, err := billing.ParseDate("date", dateFlag(cmd, "date", s))
	if err != nil {
		return err
	}
	rawType, _ := flags.GetString("type")
	txType, err := billing.ParseTransactionType(rawType)
	if err != nil {
		return err
	}
	rawValue, _ := flags.GetString("value")
	value, err := decimal.NewFromString(rawValue)
	if err != nil {
		return fmt.Errorf("invalid --value %q: %w", rawValue, err)
	}

	in := ledger.NewTransaction{Date: date, Type: txType, Value: value}
	in.Description, _ = flags.GetString("desc")
	in.Category, _ = flags.GetString("category")
	in.Subcategory, _ = flags.GetString("subcategory")
	in.Installments, _ = flags.GetInt("installments")
	in.IsRecurring, _ = flags.GetBool("recurring")

	if query, _ := flags.GetString("card"); query != "" {
		snap, err := s.snapshot()
		if err != nil {
			return err
		}
		card, err := resolveCard(snap.Cards, query)
		if err != nil {
			return err
		}
		in.CardID = card.ID
	}

	if suggest, _ := flags.GetBool("suggest"); suggest && strings.TrimSpace(in.Category) == "" {
		services, err := app.New(s.ctx, s.cfg, logger.FromContext(s.ctx))
		if err != nil {
			return err
		}
		defer services.Close()
		chat, err := services.Assistant(s.ctx)
		if err != nil {
			return err
		}
		sug, err := chat.SuggestCategory(s.ctx, s.user, in.Description)
		if err != nil {
			return err
		}
		in.Category, in.Subcategory = sug.Category, sug.Subcategory
	}

	res, err := s.ledger.AddTransaction(s.ctx, s.user, in)
	if err != nil {
		return err
	}

	return s.print(res, func() {
		fmt.Printf("Added %d transaction(s) in %s.\n", len(res.TransactionIDs), s.ledger.Categories().Normalize(in.Category))
		if res.RuleID != "" {
			fmt.Printf("Recurring rule %s created.\n", res.RuleID)
		}
	})
}

func runChat(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	services, err := app.New(s.ctx, s.cfg, logger.FromContext(s.ctx))
	if err != nil {
		return err
	}
	defer services.Close()

	chat, err := services.Assistant(s.ctx)
	if err != nil {
		return err
	}
	resp, err := chat.Chat(s.ctx, assistant.ChatRequest{UserID: s.user, Message: strings.Join(args, " ")})
	if err != nil {
		return err
	}

	return s.print(resp, func() {
		fmt.Println(resp.Text)
	})
}
