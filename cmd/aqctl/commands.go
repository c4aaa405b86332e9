package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"air-quality-platform/internal/analytics"
	"air-quality-platform/internal/models"
)

func newStationsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stations",
		Short: "List the stations in the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service(cmd, 0, 0)
			if err != nil {
				return err
			}
			stations, err := svc.Stations(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, stations, func(w io.Writer) {
				for _, s := range stations {
					fmt.Fprintln(w, s)
				}
			})
		},
	}
}

func newSummaryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show headline metrics for the filtered rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.filter(cmd)
			if err != nil {
				return err
			}
			svc, err := opts.service(cmd, 0, 0)
			if err != nil {
				return err
			}
			summary, err := svc.Summary(cmd.Context(), filter, opts.measure)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, summary, func(w io.Writer) {
				fmt.Fprintf(w, "MEASURE\t%s\n", summary.Measure)
				fmt.Fprintf(w, "OBSERVATIONS\t%d\n", summary.Observations)
				fmt.Fprintf(w, "VALID VALUES\t%d\n", summary.ValidValues)
				fmt.Fprintf(w, "STATIONS\t%d\n", summary.Stations)
				if summary.Mean != nil {
					fmt.Fprintf(w, "MEAN\t%s\n", formatValue(*summary.Mean))
				}
				if summary.Highest != nil {
					fmt.Fprintf(w, "HIGHEST\t%s (%s)\n", summary.Highest.Key, formatValue(summary.Highest.Value))
					fmt.Fprintf(w, "LOWEST\t%s (%s)\n", summary.Lowest.Key, formatValue(summary.Lowest.Value))
				}
				if summary.From != nil {
					fmt.Fprintf(w, "FROM\t%s\n", summary.From.Format("2006-01-02 15:04"))
					fmt.Fprintf(w, "TO\t%s\n", summary.To.Format("2006-01-02 15:04"))
				}
			})
		},
	}
}

func newAggregateCmd(opts *options) *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Average a measure per year, month, hour, station or month end",
		Example: `  aqctl aggregate --by year --data all_data.csv
  aqctl aggregate --by hour --station Dongsi -m NO2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			groupBy, err := models.ParseGroupBy(by)
			if err != nil {
				return err
			}
			filter, err := opts.filter(cmd)
			if err != nil {
				return err
			}
			svc, err := opts.service(cmd, 0, 0)
			if err != nil {
				return err
			}
			series, err := svc.Aggregate(cmd.Context(), filter, groupBy, opts.measure)
			if err != nil {
				return err
			}
			return renderSeries(cmd.OutOrStdout(), opts.output, series)
		},
	}
	cmd.Flags().StringVar(&by, "by", string(models.GroupByYear), "group key: year|month|hour|station|month_end")
	return cmd
}

func newRankCmd(opts *options) *cobra.Command {
	var order string
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank stations by their mean of a measure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sortOrder, err := models.ParseSortOrder(order)
			if err != nil {
				return err
			}
			filter, err := opts.filter(cmd)
			if err != nil {
				return err
			}
			svc, err := opts.service(cmd, 0, 0)
			if err != nil {
				return err
			}
			series, err := svc.Ranking(cmd.Context(), filter, opts.measure, sortOrder)
			if err != nil {
				return err
			}
			return renderSeries(cmd.OutOrStdout(), opts.output, series)
		},
	}
	cmd.Flags().StringVar(&order, "order", string(models.Descending), "ranking direction: asc|desc")
	return cmd
}

func newCategoriesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Count rows per AQI health category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.filter(cmd)
			if err != nil {
				return err
			}
			svc, err := opts.service(cmd, 0, 0)
			if err != nil {
				return err
			}
			counts, err := svc.Distribution(cmd.Context(), filter, opts.measure)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, counts, func(w io.Writer) {
				fmt.Fprintln(w, "CATEGORY\tCOUNT")
				for _, c := range counts {
					fmt.Fprintf(w, "%s\t%d\n", c.Category, c.Count)
				}
			})
		},
	}
}

func newCorrelateCmd(opts *options) *cobra.Command {
	var x, y string
	var sampleSize int
	var seed uint64
	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Correlate a covariate with a target measure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.filter(cmd)
			if err != nil {
				return err
			}
			svc, err := opts.service(cmd, sampleSize, seed)
			if err != nil {
				return err
			}
			corr, err := svc.Correlation(cmd.Context(), filter, x, y)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, corr, func(w io.Writer) {
				fmt.Fprintf(w, "COVARIATE\t%s\n", corr.Covariate)
				fmt.Fprintf(w, "TARGET\t%s\n", corr.Target)
				fmt.Fprintf(w, "ROWS\t%d\n", corr.N)
				if corr.Defined {
					fmt.Fprintf(w, "PEARSON R\t%.4f\n", corr.Coefficient)
				} else {
					fmt.Fprintln(w, "PEARSON R\tundefined")
				}
				fmt.Fprintf(w, "SAMPLE\t%d\n", len(corr.Sample))
				if corr.Fit != nil {
					fmt.Fprintf(w, "FIT\t%s = %.4f * %s + %.4f\n", corr.Target, corr.Fit.Slope, corr.Covariate, corr.Fit.Intercept)
				}
			})
		},
	}
	cmd.Flags().StringVar(&x, "x", models.MeasureTemp, "covariate column")
	cmd.Flags().StringVar(&y, "y", models.MeasurePM25, "target column")
	cmd.Flags().IntVar(&sampleSize, "sample-size", 0, "scatter sample size (default: data.sample_size from config)")
	cmd.Flags().Uint64Var(&seed, "seed", analytics.DefaultSampleSeed, "sampling seed")
	return cmd
}

func newConfigCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg.Redacted()
			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func renderSeries(out io.Writer, format string, series models.AggregateSeries) error {
	return render(out, format, series, func(w io.Writer) {
		fmt.Fprintf(w, "%s\t%s\tCOUNT\n", headerOf(string(series.GroupBy)), series.Measure)
		for _, p := range series.Points {
			fmt.Fprintf(w, "%s\t%s\t%d\n", p.Key, formatValue(p.Value), p.Count)
		}
	})
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
