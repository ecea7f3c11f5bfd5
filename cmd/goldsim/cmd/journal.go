package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/goldsim/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the settlement journal",
	Long: `Query and display settlement journal records from a SQLite database.

Subcommands:
  settlement   - Get the settlement of a closed position
  today        - List settlements closed today
  day          - List settlements closed on a specific day
  transactions - List the most recent wallet transactions

Examples:
  goldsim journal settlement <position-id>
  goldsim journal today
  goldsim journal day 2024-01-15
  goldsim journal transactions --limit 20`,
}

var journalSettlementCmd = &cobra.Command{
	Use:   "settlement <position-id>",
	Short: "Get the settlement of a closed position",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalSettlement,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List settlements closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List settlements closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalTransactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "List the most recent wallet transactions",
	Args:  cobra.NoArgs,
	RunE:  runJournalTransactions,
}

var (
	journalDBPath string
	journalLimit  int
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalSettlementCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalTransactionsCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./goldsim.sqlite", "path to SQLite journal DB")
	journalTransactionsCmd.Flags().IntVarP(&journalLimit, "limit", "l", 20, "maximum rows")
}

func runJournalSettlement(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetSettlement(args[0])
	if err != nil {
		return fmt.Errorf("get settlement: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatSettlementOrg(rec))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return listDay(cmd, time.Now().In(time.Local).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listDay(cmd, args[0])
}

func listDay(cmd *cobra.Command, day string) error {
	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.ListSettlementsClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query settlements: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatSettlementsOrg(recs))
	return nil
}

func runJournalTransactions(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.ListTransactions(journalLimit)
	if err != nil {
		return fmt.Errorf("query transactions: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, r := range recs {
		fmt.Fprintf(out, "%s  %-10s %-8s $%10.2f  %s  %s\n",
			r.Time.Format("2006-01-02 15:04:05"), r.Kind, r.Wallet, r.AmountUSD, r.Status, r.ID)
	}
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
