package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"air-quality-platform/internal/analytics"
	"air-quality-platform/internal/config"
	"air-quality-platform/internal/dataset"
	"air-quality-platform/internal/models"
	"air-quality-platform/internal/services"
	"air-quality-platform/pkg/logging"
	"air-quality-platform/pkg/metrics"
)

const version = "1.0.0"

// options holds the persistent flags shared by every subcommand
type options struct {
	configFile string
	dataPath   string
	output     string
	logLevel   string

	stations  []string
	startDate string
	endDate   string
	yearFrom  int
	yearTo    int
	measure   string

	cfg *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "aqctl",
		Short: "Query air quality observations from the command line",
		Long: `aqctl loads an hourly air quality CSV file (or a directory of them) and
prints the same summaries, aggregates, rankings, category distributions and
correlations as the dashboard API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configFile
			if path == "" {
				path = os.Getenv(config.EnvPrefix + "_CONFIG")
			}
			cfg, err := config.LoadConfigFile(path)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			if opts.dataPath == "" {
				opts.dataPath = cfg.Data.Path
			}
			switch opts.output {
			case "table", "json", "yaml":
				return nil
			}
			return fmt.Errorf("unsupported --output %q (use table|json|yaml)", opts.output)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configFile, "config", "", "config file (default is ./config.yaml or $AQ_CONFIG)")
	f.StringVar(&opts.dataPath, "data", "", "CSV file or directory of CSV files (default: data.path from config)")
	f.StringVarP(&opts.output, "output", "o", "table", "output format: table|json|yaml")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	f.StringSliceVar(&opts.stations, "station", nil, "only these stations (repeat or comma separate)")
	f.StringVar(&opts.startDate, "start-date", "", "first date, inclusive (YYYY-MM-DD)")
	f.StringVar(&opts.endDate, "end-date", "", "last date, inclusive (YYYY-MM-DD)")
	f.IntVar(&opts.yearFrom, "year-from", 0, "first year, inclusive")
	f.IntVar(&opts.yearTo, "year-to", 0, "last year, inclusive")
	f.StringVarP(&opts.measure, "measure", "m", models.MeasurePM25, "measurement column")

	root.AddCommand(
		newStationsCmd(opts),
		newSummaryCmd(opts),
		newAggregateCmd(opts),
		newRankCmd(opts),
		newCategoriesCmd(opts),
		newCorrelateCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// filter builds the row filter from the flags that were set
func (o *options) filter(cmd *cobra.Command) (models.FilterSpec, error) {
	var spec models.FilterSpec
	flags := cmd.Flags()

	if flags.Changed("station") {
		spec.Stations = []string{}
		for _, s := range o.stations {
			if s = strings.TrimSpace(s); s != "" {
				spec.Stations = append(spec.Stations, s)
			}
		}
	}

	for _, d := range []struct {
		name  string
		value string
		dst   **time.Time
	}{
		{"start-date", o.startDate, &spec.DateFrom},
		{"end-date", o.endDate, &spec.DateTo},
	} {
		if d.value == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", d.value)
		if err != nil {
			return spec, &models.ValidationError{Field: d.name, Value: d.value, Message: "invalid --" + d.name + ", expected YYYY-MM-DD"}
		}
		*d.dst = &t
	}

	if flags.Changed("year-from") {
		y := o.yearFrom
		spec.YearFrom = &y
	}
	if flags.Changed("year-to") {
		y := o.yearTo
		spec.YearTo = &y
	}
	return spec, nil
}

// service builds a dashboard service over the --data source
func (o *options) service(cmd *cobra.Command, sampleSize int, seed uint64) (*services.DashboardService, error) {
	level, err := logging.ParseLevel(o.logLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.NewStructuredLogger("aqctl", version, level)
	logger.SetOutput(cmd.ErrOrStderr())

	src, err := dataset.NewFileSource(o.dataPath)
	if err != nil {
		return nil, err
	}

	if sampleSize <= 0 {
		sampleSize = o.cfg.Data.SampleSize
	}
	return services.NewDashboardService(
		src,
		dataset.NewCache(clockwork.NewRealClock()),
		analytics.CorrelationOptions{SampleSize: sampleSize, Seed: seed},
		logger,
		metrics.NewCollectorWithRegistry("aqctl", prometheus.NewRegistry()),
	), nil
}
