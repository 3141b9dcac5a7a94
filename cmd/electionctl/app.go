package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/debindra/election-2082-visualization-sub001/internal/client"
	"github.com/debindra/election-2082-visualization-sub001/internal/config"
	"github.com/debindra/election-2082-visualization-sub001/internal/deploy"
	"github.com/debindra/election-2082-visualization-sub001/internal/event"
	"github.com/debindra/election-2082-visualization-sub001/internal/logger"
	"github.com/debindra/election-2082-visualization-sub001/internal/metrics"
	"github.com/debindra/election-2082-visualization-sub001/internal/party"
	"github.com/debindra/election-2082-visualization-sub001/internal/query"
)

// Output formats.
const (
	outputJSON = "json"
	outputText = "text"
)

// app holds the per-invocation dependencies shared by all commands.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// Persistent flags.
	configFile string
	baseURL    string
	logLevel   string
	output     string

	cfg     *config.Config
	logger  *zap.Logger
	bus     *event.Bus
	client  *client.Client
	metrics *metrics.ClientMetrics
	parties *party.Normalizer
	builder *query.Builder
	runner  deploy.Runner
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr, output: outputJSON}
}

// setup loads configuration and wires the client to the notification bus.
func (a *app) setup() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	a.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if a.output != outputJSON && a.output != outputText {
		return fmt.Errorf("unknown output format %q (want json or text)", a.output)
	}
	a.cfg = cfg

	lc := logger.ConfigForEnvironment(cfg.App.Env)
	lc.Level = cfg.Log.Level
	lc.Output = cfg.Log.Output
	if cfg.Log.Format != "" {
		lc.Format = cfg.Log.Format
	}
	log, err := logger.New(lc)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	a.logger = log.With(zap.String("app", cfg.App.Name))

	a.bus = event.NewBus(logger.Named(a.logger, "events"))
	a.bus.Subscribe(event.HandlerFunc(a.showError, event.TypeAPIError))

	opts := []client.Option{
		client.WithNotifier(a.bus),
		client.WithLogger(logger.Named(a.logger, "client")),
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewClientMetrics(metrics.Config{Namespace: cfg.Metrics.Namespace})
		opts = append(opts, client.WithMetrics(a.metrics))
	}
	a.client, err = client.NewClient(cfg.API, opts...)
	if err != nil {
		return err
	}

	a.parties = party.Default()
	a.builder = query.NewBuilder(a.parties, logger.Named(a.logger, "query"))
	if a.runner == nil {
		a.runner = deploy.NewExecRunner(logger.Named(a.logger, "deploy"))
	}
	return nil
}

func (a *app) applyOverrides(cfg *config.Config) {
	if a.baseURL != "" {
		cfg.API.BaseURL = a.baseURL
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
}

// showError is the notification handler: the only place API failures are
// shown to the user.
func (a *app) showError(_ context.Context, e event.Event) error {
	_, err := fmt.Fprintf(a.stderr, "error: %s\n", e.Message)
	return err
}

// reportMetrics logs per-endpoint totals when metrics are enabled.
func (a *app) reportMetrics() {
	if a.metrics == nil {
		return
	}
	stats, err := a.metrics.Snapshot()
	if err != nil {
		a.logger.Warn("collecting metrics", zap.Error(err))
		return
	}
	for _, s := range stats {
		a.logger.Info("endpoint stats",
			zap.String("endpoint", s.Endpoint),
			zap.Uint64("requests", s.Requests),
			zap.Uint64("errors", s.Errors),
			zap.Float64("seconds", s.TotalSeconds))
	}
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// printDocument pretty-prints a pass-through response body.
func (a *app) printDocument(doc client.Document) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		buf.Reset()
		buf.Write(doc)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(a.stdout)
	return err
}

// render prints v as JSON, or through table when text output is selected
// and the command has a text form.
func (a *app) render(v any, table func(w io.Writer)) error {
	if a.output != outputText || table == nil {
		return a.printJSON(v)
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

func (a *app) warnUnresolved(res query.Result) {
	if res.Unresolved {
		fmt.Fprintf(a.stderr, "note: party %q is not in the alias table; filtering by it as given\n", res.Input)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "electionctl",
		Short: "Election data client and deployment tool",
		Long: `electionctl queries the election visualization backend (maps, trends,
insights, candidate comparison), resolves party name variants to their
official names, and runs the server deployment runbooks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			a.reportMetrics()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "path to a TOML config file")
	flags.StringVar(&a.baseURL, "base-url", "", "backend base URL (overrides api.base_url)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVarP(&a.output, "output", "o", outputJSON, "output format: json or text")

	root.AddCommand(
		newMapCmd(a),
		newTrendsCmd(a),
		newInsightsCmd(a),
		newCompareCmd(a),
		newSearchCmd(a),
		newElectionsCmd(a),
		newSchemaCmd(a),
		newLongitudinalCmd(a),
		newHealthCmd(a),
		newPartyCmd(a),
		newDeployCmd(a),
		newDoctorCmd(a),
		newVersionCmd(a),
	)
	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// Skips config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		PersistentPostRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "electionctl %s\n  Build time: %s\n  Git commit: %s\n", version, buildTime, gitCommit)
		},
	}
}
