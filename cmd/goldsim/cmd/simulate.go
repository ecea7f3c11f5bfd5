package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/goldsim/broker"
	"github.com/rustyeddy/goldsim/scheduler"
	"github.com/rustyeddy/goldsim/session"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a headless session for a fixed number of ticks",
	Long: `Open a Buy and a Sell position, advance the price a fixed number of
ticks without waiting on the timer, then close everything and print the
results.

Use --seed for a reproducible run.

Examples:
  goldsim simulate --ticks 100 --seed 42
  goldsim simulate --buy 10 --sell 0 --ticks 500`,
	RunE: runSimulate,
}

var (
	simTicks int
	simBuy   float64
	simSell  float64
	simSeed  int64
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().IntVarP(&simTicks, "ticks", "n", 30, "number of price ticks")
	simulateCmd.Flags().Float64Var(&simBuy, "buy", 10, "grams to buy at the start (0 to skip)")
	simulateCmd.Flags().Float64Var(&simSell, "sell", 5, "grams to sell at the start (0 to skip)")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "random seed; overrides the config")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simTicks < 0 {
		return fmt.Errorf("ticks must not be negative")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if simSeed != 0 {
		cfg.Simulation.Seed = simSeed
	}
	log := newLogger(cfg)

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	sess, err := newSession(cfg, &scheduler.Manual{}, j, log)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if err := sess.Activate(); err != nil {
		return fmt.Errorf("activate session: %w", err)
	}
	defer sess.Deactivate()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	startBalance := sess.Wallets()[1].BalanceUSD
	fmt.Fprintf(out, "Starting price: $%.2f/oz ($%.4f/g)\n", sess.CurrentPrice(), sess.PricePerGram())
	fmt.Fprintf(out, "Trading balance: $%.2f\n\n", startBalance)

	for _, o := range []struct {
		side  broker.Side
		grams float64
	}{{broker.Buy, simBuy}, {broker.Sell, simSell}} {
		if o.grams == 0 {
			continue
		}
		p, err := sess.OpenPosition(ctx, o.side, o.grams)
		if err != nil {
			return fmt.Errorf("open %s: %w", o.side, err)
		}
		fmt.Fprintf(out, "Opened %s %.4fg at $%.4f/g (%s)\n", p.Side, p.SizeGrams, p.EntryPricePerGram, p.ID)
	}

	faults := 0
	for i := 0; i < simTicks; i++ {
		if _, err := sess.Tick(); err != nil {
			faults++
			log.Warn().Err(err).Int("tick", i+1).Msg("Tick rejected")
		}
	}

	st := sess.PriceState()
	fmt.Fprintf(out, "\nAfter %d ticks: $%.2f/oz (%s, %+.4f%%)\n", simTicks, st.Current, st.Direction, st.ChangePercent)
	printPositions(out, sess)
	fmt.Fprintf(out, "Equity: $%.2f\n\n", sess.Equity())

	txs, err := sess.CloseAll(ctx)
	if err != nil {
		return fmt.Errorf("close all: %w", err)
	}
	for _, tx := range txs {
		fmt.Fprintf(out, "Settled %s $%.2f (%s)\n", tx.Kind, tx.AmountUSD, tx.ID)
	}

	end := sess.Wallets()[1].BalanceUSD
	fmt.Fprintf(out, "\nFinal Results:\n")
	fmt.Fprintf(out, "  Trading balance: $%.2f\n", end)
	fmt.Fprintf(out, "  Realized P/L: $%.2f\n", end-startBalance)
	if faults > 0 {
		fmt.Fprintf(out, "  Rejected ticks: %d\n", faults)
	}
	return nil
}

func printPositions(out io.Writer, sess *session.Session) {
	for _, p := range sess.OpenPositions() {
		pl, err := sess.UnrealizedPL(p.ID)
		if err != nil {
			continue
		}
		fmt.Fprintf(out, "  %-4s %8.4fg entry $%.4f/g  P/L $%+.2f\n", p.Side, p.SizeGrams, p.EntryPricePerGram, pl)
	}
}
