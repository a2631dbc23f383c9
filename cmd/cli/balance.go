package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dvloznov/rosacash/internal/billing"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the balance of everything before a date",
	Long: `Show the balance of all activity strictly before --as-of.

Cash mode counts card purchases once they are marked paid. Invoice mode counts each
card bill in full on its due date.`,
	RunE: runBalance,
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project the balance forward with recurring rules and booked transactions",
	Example: `  # From today's cash balance to the end of the year
  rosacash project --user u1 --to 2025-12-31`,
	RunE: runProject,
}

var payablesCmd = &cobra.Command{
	Use:   "payables",
	Short: "List what has to be paid in a month, bills included",
	RunE:  runPayables,
}

var outlookCmd = &cobra.Command{
	Use:   "outlook",
	Short: "Show the projected month-end balance for the coming months",
	RunE:  runOutlook,
}

func init() {
	balanceCmd.Flags().String("as-of", "", "Cutoff date, YYYY-MM-DD (default: today)")
	balanceCmd.Flags().String("mode", string(billing.ModeCash), "cash or invoice")

	projectCmd.Flags().String("from", "", "Start date, YYYY-MM-DD (default: today)")
	projectCmd.Flags().String("to", "", "End date, YYYY-MM-DD (required)")
	projectCmd.Flags().String("balance", "", "Starting balance (default: cash balance through --from)")
	_ = projectCmd.MarkFlagRequired("to")

	addPeriodFlags(payablesCmd)

	outlookCmd.Flags().Int("months", 12, "Number of months")

	rootCmd.AddCommand(balanceCmd, projectCmd, payablesCmd, outlookCmd)
}

// dateFlag returns the date flag name, or today when it is empty.
func dateFlag(cmd *cobra.Command, name string, s *session) string {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return s.today.String()
	}
	return v
}

func runBalance(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	asOf, err := billing.ParseDate("as-of", dateFlag(cmd, "as-of", s))
	if err != nil {
		return err
	}
	modeStr, _ := cmd.Flags().GetString("mode")
	mode, err := billing.ParseMode(modeStr)
	if err != nil {
		return err
	}

	snap, err := s.snapshot()
	if err != nil {
		return err
	}
	bal, err := billing.ComputeBalanceAsOf(snap, asOf, mode)
	if err != nil {
		return err
	}

	return s.print(bal, func() {
		fmt.Printf("Balance before %s (%s): %s\n", asOf, mode, bal.Amount.StringFixed(2))
		if len(bal.Orphans) > 0 {
			fmt.Printf("%d purchases reference deleted cards.\n", len(bal.Orphans))
		}
	})
}

func runProject(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	from, err := billing.ParseDate("from", dateFlag(cmd, "from", s))
	if err != nil {
		return err
	}
	rawTo, _ := cmd.Flags().GetString("to")
	to, err := billing.ParseDate("to", rawTo)
	if err != nil {
		return err
	}

	snap, err := s.snapshot()
	if err != nil {
		return err
	}

	var current decimal.Decimal
	if raw, _ := cmd.Flags().GetString("balance"); raw != "" {
		if current, err = decimal.NewFromString(raw); err != nil {
			return fmt.Errorf("invalid --balance %q: %w", raw, err)
		}
	} else if current, err = billing.CashBalanceThrough(snap, from); err != nil {
		return err
	}

	proj, err := billing.ProjectBalance(current, snap.Rules, snap.Transactions, from, to)
	if err != nil {
		return err
	}

	return s.print(proj, func() {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tDESCRIPTION\tSOURCE\tVALUE")
		for _, e := range proj.Breakdown {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Date, e.Description, e.Source, e.Amount.StringFixed(2))
		}
		w.Flush()
		fmt.Printf("\n%s -> %s: %s -> %s\n", from, to, current.StringFixed(2), proj.Balance.StringFixed(2))
	})
}

func runPayables(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	period, err := periodFlags(cmd, s.today)
	if err != nil {
		return err
	}
	snap, err := s.snapshot()
	if err != nil {
		return err
	}
	p, err := billing.PayablesForMonth(snap, period)
	if err != nil {
		return err
	}

	return s.print(p, func() {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tDESCRIPTION\tCATEGORY\tVALUE\tPAID")
		for _, it := range p.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", it.Date, it.Description, it.Category, it.Value.StringFixed(2), it.Paid)
		}
		w.Flush()
		fmt.Printf("\nTotal %s, paid %s, pending %s (%s%%)\n",
			p.Total.StringFixed(2), p.Paid.StringFixed(2), p.Pending.StringFixed(2), p.PercentPaid.StringFixed(0))
	})
}

func runOutlook(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	months, _ := cmd.Flags().GetInt("months")
	snap, err := s.snapshot()
	if err != nil {
		return err
	}
	points, err := billing.MonthlyOutlook(snap, s.today, months)
	if err != nil {
		return err
	}

	return s.print(points, func() {
		for _, p := range points {
			fmt.Printf("%s  %s\n", p.Period, p.Balance.StringFixed(2))
		}
	})
}
