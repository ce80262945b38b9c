package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"stockForecaster/internal/bootstrap"
	"stockForecaster/internal/domain"
	"stockForecaster/internal/forecasting/backtesting"
)

type opener func() (*bootstrap.Pipeline, error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:          "forecastctl",
		Short:        "Forecast stock closes with the LSTM pipeline",
		SilenceUsage: true,
	}
	root.AddCommand(
		newPredictCmd(open),
		newTrainCmd(open),
		newBacktestCmd(open),
		newHistoryCmd(open),
	)
	return root
}

// withPipeline opens the pipeline for the duration of one command.
func withPipeline(open opener, fn func(p *bootstrap.Pipeline) error) error {
	p, err := open()
	if err != nil {
		return err
	}
	defer p.Close()
	return fn(p)
}

func newPredictCmd(open opener) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "predict TICKER",
		Short: "Forecast the next business days and print an opinion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(open, func(p *bootstrap.Pipeline) error {
				pred, err := p.Service.Predict(cmd.Context(), args[0], days)
				if err != nil {
					return err
				}
				printPrediction(cmd.OutOrStdout(), pred)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 5, "number of business days to forecast")
	return cmd
}

func newTrainCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "train TICKER",
		Short: "Retrain and persist the model for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(open, func(p *bootstrap.Pipeline) error {
				if err := p.Service.Retrain(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Model retrained for %s\n", args[0])
				return nil
			})
		},
	}
}

func newBacktestCmd(open opener) *cobra.Command {
	cfg := backtesting.DefaultConfig()
	var holdout float64
	var verbose bool
	cmd := &cobra.Command{
		Use:   "backtest TICKER",
		Short: "Replay forecasts over history and score them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(open, func(p *bootstrap.Pipeline) error {
				res, err := p.Service.Backtest(cmd.Context(), args[0], cfg, holdout)
				if err != nil {
					return err
				}
				printBacktest(cmd.OutOrStdout(), res, verbose)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&cfg.Horizon, "horizon", cfg.Horizon, "points forecast at each cutoff")
	cmd.Flags().IntVar(&cfg.Step, "step", cfg.Step, "bars between cutoffs")
	cmd.Flags().IntVar(&cfg.MinHistory, "min-history", cfg.MinHistory, "bars available at the first cutoff")
	cmd.Flags().Float64Var(&holdout, "holdout", 0, "train a fresh model on this leading share of the series and test on the rest (0 uses the stored model)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every fold")
	return cmd
}

func newHistoryCmd(open opener) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history TICKER",
		Short: "List recorded predictions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(open, func(p *bootstrap.Pipeline) error {
				preds, err := p.Service.History(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(preds) == 0 {
					fmt.Fprintln(out, "No predictions recorded")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCREATED\tDAYS\tFIRST\tLAST\tOPINION")
				for _, pr := range preds {
					first, last := "-", "-"
					if n := len(pr.Forecast); n > 0 {
						first = price(pr.Forecast[0].Price)
						last = price(pr.Forecast[n-1].Price)
					}
					fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n", pr.ID, pr.CreatedAt.Format("2006-01-02 15:04"),
						pr.Horizon, first, last, pr.Opinion.Recommendation)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of predictions")
	return cmd
}

func price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func printPrediction(out io.Writer, pred *domain.Prediction) {
	fmt.Fprintf(out, "Forecast for %s (%d days)\n", pred.Ticker, pred.Horizon)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, pt := range pred.Forecast {
		fmt.Fprintf(w, "%s\t%s\n", pt.Date.Format(domain.DateLayout), price(pt.Price))
	}
	w.Flush()
	op := pred.Opinion
	fmt.Fprintf(out, "Opinion: %s (buy %d%%, hold %d%%, sell %d%%, trend %s)\n",
		op.Recommendation, op.Buy, op.Hold, op.Sell, price(op.Trend))
}

func printBacktest(out io.Writer, res *backtesting.BacktestResult, verbose bool) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Folds\t%d\n", res.Folds)
	fmt.Fprintf(w, "MAE\t%.4f\n", res.MAE)
	fmt.Fprintf(w, "RMSE\t%.4f\n", res.RMSE)
	fmt.Fprintf(w, "MAPE\t%.2f%%\n", res.MAPE)
	fmt.Fprintf(w, "Naive MAE\t%.4f\n", res.NaiveMAE)
	fmt.Fprintf(w, "Skill\t%.3f\n", res.Skill())
	fmt.Fprintf(w, "Direction hit rate\t%.1f%%\n", 100*res.DirectionalAccuracy)
	fmt.Fprintf(w, "Opinion agreement\t%.1f%%\n", 100*res.OpinionAgreement)
	w.Flush()
	if !verbose {
		return
	}
	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CUTOFF\tLAST\tPREDICTED END\tACTUAL END\tOPINION\tREALISED")
	for _, f := range res.Records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", f.Cutoff.Format(domain.DateLayout), price(f.LastClose),
			price(f.Predicted[len(f.Predicted)-1]), price(f.Actual[len(f.Actual)-1]), f.Opinion, f.Realised)
	}
	w.Flush()
}
