package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dvloznov/rosacash/internal/billing"
)

var billCmd = &cobra.Command{
	Use:   "bill",
	Short: "Show the bill of a card for a month",
	Example: `  # Bill of the Nubank card due in March
  rosacash bill --user u1 --card nubank --month 3 --year 2025`,
	RunE: runBill,
}

var billStatusCmd = &cobra.Command{
	Use:   "bill-status",
	Short: "Tell whether the bill of a card for a month is paid",
	RunE:  runBillStatus,
}

var toggleBillCmd = &cobra.Command{
	Use:   "toggle-bill",
	Short: "Mark every purchase on a card bill as paid (or unpaid with --unpaid)",
	RunE:  runToggleBill,
}

var upcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "List the next bills of every card",
	RunE:  runUpcoming,
}

func init() {
	for _, c := range []*cobra.Command{billCmd, billStatusCmd, toggleBillCmd} {
		c.Flags().String("card", "", "Card ID or part of its name (required)")
		_ = c.MarkFlagRequired("card")
		addPeriodFlags(c)
		rootCmd.AddCommand(c)
	}
	toggleBillCmd.Flags().Bool("unpaid", false, "Mark the bill as unpaid instead")

	upcomingCmd.Flags().Int("count", 6, "Bills per card")
	rootCmd.AddCommand(upcomingCmd)
}

// cardBill resolves --card and the period flags against the user's snapshot.
func cardBill(cmd *cobra.Command, s *session) (billing.Snapshot, billing.CreditCard, billing.Period, error) {
	snap, err := s.snapshot()
	if err != nil {
		return billing.Snapshot{}, billing.CreditCard{}, billing.Period{}, err
	}
	query, _ := cmd.Flags().GetString("card")
	card, err := resolveCard(snap.Cards, query)
	if err != nil {
		return billing.Snapshot{}, billing.CreditCard{}, billing.Period{}, err
	}
	period, err := periodFlags(cmd, s.today)
	if err != nil {
		return billing.Snapshot{}, billing.CreditCard{}, billing.Period{}, err
	}
	return snap, card, period, nil
}

func runBill(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	snap, card, period, err := cardBill(cmd, s)
	if err != nil {
		return err
	}
	bill, err := billing.AggregateBill(snap.Transactions, card.ID, period, card.ClosingDay)
	if err != nil {
		return err
	}

	return s.print(bill, func() {
		fmt.Printf("%s bill for %s, due %s: %s (%d purchases)\n",
			card.Name, period, card.DueDate(period), bill.Total.StringFixed(2), len(bill.Transactions))
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, t := range bill.Transactions {
			paid := ""
			if t.IsPaid {
				paid = "paid"
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", t.Date, t.Description, t.Value.StringFixed(2), paid)
		}
		w.Flush()
	})
}

func runBillStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	snap, card, period, err := cardBill(cmd, s)
	if err != nil {
		return err
	}
	status, err := billing.IsBillFullyPaid(snap.Transactions, card.ID, period, card.ClosingDay)
	if err != nil {
		return err
	}

	return s.print(status, func() {
		switch {
		case !status.Found:
			fmt.Printf("%s has no bill for %s.\n", card.Name, period)
		case status.Paid:
			fmt.Printf("%s bill for %s (%s) is paid.\n", card.Name, period, status.Total.StringFixed(2))
		default:
			fmt.Printf("%s bill for %s (%s) is not paid yet.\n", card.Name, period, status.Total.StringFixed(2))
		}
	})
}

func runToggleBill(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	_, card, period, err := cardBill(cmd, s)
	if err != nil {
		return err
	}
	unpaid, _ := cmd.Flags().GetBool("unpaid")

	n, err := s.ledger.ToggleBillPaid(s.ctx, s.user, card.ID, period, !unpaid)
	if err != nil {
		return err
	}

	result := map[string]interface{}{"card_id": card.ID, "period": period.String(), "paid": !unpaid, "updated": n}
	return s.print(result, func() {
		fmt.Printf("Updated %d purchases on the %s bill for %s.\n", n, card.Name, period)
	})
}

func runUpcoming(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	count, _ := cmd.Flags().GetInt("count")
	snap, err := s.snapshot()
	if err != nil {
		return err
	}
	bills, err := billing.UpcomingBills(snap, s.today, count)
	if err != nil {
		return err
	}

	return s.print(bills, func() {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CARD\tPERIOD\tDUE\tTOTAL\tPURCHASES\tPAID")
		for _, b := range bills {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%t\n", b.CardName, b.Period, b.DueDate, b.Total.StringFixed(2), b.Count, b.Paid)
		}
		w.Flush()
	})
}
