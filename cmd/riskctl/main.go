// Command riskctl scores maintenance fixtures offline with the same engine the
// API serves.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"rental-platform-api/predictive"
	"rental-platform-api/store"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	riskModel  string
	fixture    string
	now        string
	defaultAge int
}

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "riskctl",
		Short:         "Inspect the predictive maintenance risk model",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.riskModel, "risk-model", "", "YAML file overriding the default risk tables")
	pf.StringVar(&flags.fixture, "fixture", "", "JSON fixture with properties and their maintenance history")
	pf.StringVar(&flags.now, "now", "", "Evaluation time (RFC3339); defaults to the current time")
	pf.IntVar(&flags.defaultAge, "default-age", predictive.DefaultPropertyAge, "Age assumed when a property has no construction year")

	root.AddCommand(newModelCmd(&flags), newPortfolioCmd(&flags), newAlertsCmd(&flags), newHistoryCmd(&flags))
	return root
}

func newModelCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Print the risk tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := loadModel(flags.riskModel)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), modelView(model))
			}
			return writeModelTable(cmd.OutOrStdout(), model)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newPortfolioCmd(flags *globalFlags) *cobra.Command {
	var owner uint
	var months int
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Score every property of an owner in the fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := newAggregator(flags)
			if err != nil {
				return err
			}
			summary, err := agg.PredictPortfolio(cmd.Context(), owner, months)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().UintVar(&owner, "owner", 0, "Owner id")
	cmd.Flags().IntVar(&months, "months", 6, "Months ahead shown in predicted timeframes")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newAlertsCmd(flags *globalFlags) *cobra.Command {
	var owner uint
	var horizon int
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Project the alerts an owner would receive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := newAggregator(flags)
			if err != nil {
				return err
			}
			resp, err := predictive.NewAlertProjector(agg).WithHorizon(horizon).Alerts(cmd.Context(), owner)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().UintVar(&owner, "owner", 0, "Owner id")
	cmd.Flags().IntVar(&horizon, "horizon", predictive.AlertHorizonMonths, "Alert horizon in months")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var property uint
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Summarize the maintenance history of one property",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadFixture(flags.fixture)
			if err != nil {
				return err
			}
			if _, err := s.Property(cmd.Context(), property); err != nil {
				return fmt.Errorf("property %d: %w", property, err)
			}
			records, err := s.MaintenanceHistory(cmd.Context(), property, "")
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), predictive.SummarizeHistory(property, records))
		},
	}
	cmd.Flags().UintVar(&property, "property", 0, "Property id")
	_ = cmd.MarkFlagRequired("property")
	return cmd
}

func newAggregator(flags *globalFlags) (*predictive.Aggregator, error) {
	model, err := loadModel(flags.riskModel)
	if err != nil {
		return nil, err
	}
	s, err := loadFixture(flags.fixture)
	if err != nil {
		return nil, err
	}
	now, err := parseNow(flags.now)
	if err != nil {
		return nil, err
	}
	return predictive.NewAggregator(predictive.NewEngine(model), s, s,
		predictive.WithClock(func() time.Time { return now }),
		predictive.WithDefaultPropertyAge(flags.defaultAge),
	), nil
}

func loadModel(path string) (*predictive.RiskModel, error) {
	if path == "" {
		return predictive.DefaultRiskModel(), nil
	}
	return predictive.LoadRiskModel(path)
}

func loadFixture(path string) (*store.MemoryStore, error) {
	if path == "" {
		return nil, errors.New("--fixture is required")
	}
	return store.LoadFixture(path)
}

func parseNow(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now: %w", err)
	}
	return t, nil
}

type categoryRow struct {
	Category     predictive.Category `json:"category"`
	Label        string              `json:"label"`
	IntervalDays int                 `json:"interval_days"`
	AverageCost  decimal.Decimal     `json:"average_cost"`
}

type tierRow struct {
	MaxAge     *int    `json:"max_age"`
	Multiplier float64 `json:"multiplier"`
}

type modelDoc struct {
	Categories []categoryRow `json:"categories"`
	AgeTiers   []tierRow     `json:"age_tiers"`
}

func modelView(m *predictive.RiskModel) modelDoc {
	doc := modelDoc{}
	for _, c := range predictive.AllCategories {
		doc.Categories = append(doc.Categories, categoryRow{
			Category:     c,
			Label:        c.Label(),
			IntervalDays: m.ExpectedIntervalDays(c),
			AverageCost:  m.AverageRepairCost(c),
		})
	}
	for _, t := range m.Tiers() {
		row := tierRow{Multiplier: t.Multiplier}
		if t.MaxAge != predictive.UnboundedAge {
			maxAge := t.MaxAge
			row.MaxAge = &maxAge
		}
		doc.AgeTiers = append(doc.AgeTiers, row)
	}
	return doc
}

func writeModelTable(out io.Writer, m *predictive.RiskModel) error {
	doc := modelView(m)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tINTERVAL (DAYS)\tAVG COST")
	for _, c := range doc.Categories {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", c.Category, c.IntervalDays, c.AverageCost.StringFixed(2))
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "MAX AGE\tMULTIPLIER")
	for _, t := range doc.AgeTiers {
		maxAge := "any"
		if t.MaxAge != nil {
			maxAge = fmt.Sprint(*t.MaxAge)
		}
		fmt.Fprintf(tw, "%s\t%.2f\n", maxAge, t.Multiplier)
	}
	return tw.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

