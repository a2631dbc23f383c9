package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/dvloznov/rosacash/internal/billing"
	"github.com/dvloznov/rosacash/internal/config"
	infraBQ "github.com/dvloznov/rosacash/internal/infra/bigquery"
	"github.com/dvloznov/rosacash/internal/ledger"
	"github.com/dvloznov/rosacash/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "rosacash",
	Short: "RosaCash CLI - credit card bills and balances from the terminal",
	Long: `RosaCash CLI reads and edits a user's ledger in BigQuery and runs the billing
engine on it: card bills, balances, projections and payables.

Configuration is read from the environment (or a .env file), the same way as the API server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("user", os.Getenv("ROSACASH_USER"), "User ID (or set ROSACASH_USER env)")
	rootCmd.PersistentFlags().Bool("json", false, "Print results as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// session is the per-command environment: config, logger-carrying context and ledger.
type session struct {
	ctx    context.Context
	cfg    *config.Config
	user   string
	json   bool
	today  civil.Date
	ledger *ledger.Service
	close  func()
}

// openSession loads the configuration and connects the ledger. Callers must call close.
func openSession(cmd *cobra.Command) (*session, error) {
	user, _ := cmd.Flags().GetString("user")
	asJSON, _ := cmd.Flags().GetBool("json")
	if user == "" {
		return nil, fmt.Errorf("--user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.Setup(cfg.GetLoggerConfig())
	if err != nil {
		return nil, err
	}
	log = logger.WithComponent(log, "cli")

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewBigQueryLedgerRepository(ctx, cfg.GoogleCloudProject, cfg.BigQueryDataset)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize BigQuery repository: %w", err)
	}

	return &session{
		ctx:    ctx,
		cfg:    cfg,
		user:   user,
		json:   asJSON,
		today:  civil.DateOf(time.Now()),
		ledger: ledger.NewService(repo),
		close: func() {
			repo.Close()
			cancel()
		},
	}, nil
}

func (s *session) snapshot() (billing.Snapshot, error) {
	return s.ledger.Snapshot(s.ctx, s.user)
}

// print writes v as indented JSON when --json is set, otherwise calls text.
func (s *session) print(v interface{}, text func()) error {
	if !s.json {
		text()
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// periodFlags reads --month (1-12) and --year, defaulting to the current month.
func periodFlags(cmd *cobra.Command, today civil.Date) (billing.Period, error) {
	month, _ := cmd.Flags().GetInt("month")
	year, _ := cmd.Flags().GetInt("year")
	if month == 0 {
		month = int(today.Month)
	}
	if year == 0 {
		year = today.Year
	}
	return billing.NewPeriod(month, year)
}

func addPeriodFlags(cmd *cobra.Command) {
	cmd.Flags().Int("month", 0, "Month, 1-12 (default: current month)")
	cmd.Flags().Int("year", 0, "Year (default: current year)")
}

// resolveCard finds a card by exact ID, then by case-insensitive name fragment.
func resolveCard(cards []billing.CreditCard, query string) (billing.CreditCard, error) {
	for _, c := range cards {
		if c.ID == query {
			return c, nil
		}
	}
	if c, ok := billing.FindCard(cards, query); ok {
		return c, nil
	}
	return billing.CreditCard{}, fmt.Errorf("%w: %q", billing.ErrCardNotFound, query)
}
