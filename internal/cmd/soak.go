package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/OCAP2/handoff/internal/config"
	"github.com/OCAP2/handoff/internal/logging"
	intOtel "github.com/OCAP2/handoff/internal/otel"
	"github.com/OCAP2/handoff/internal/soak"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func newSoakCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "soak",
		Short: "Run producers and consumers through one channel and verify delivery",
		Args:  cobra.NoArgs,
		RunE:  runSoak,
	}

	flags := c.Flags()
	flags.Int("producers", 10, "number of producer goroutines, each with its own sender")
	flags.Int("items", 100, "items sent by each producer")
	flags.Int("consumers", 1, "number of consumer goroutines, each with its own receiver")
	flags.Int("capacity", 0, "bound the channel to this many items (0 = unbounded)")
	flags.Duration("recv-timeout", 5*time.Second, "fail when a consumer waits longer than this for one item (0 = forever)")
	flags.Duration("progress", 0, "log sent/received counts at this interval (0 = off)")
	flags.Bool("dispatcher", false, "route items through a dispatcher command queue with --consumers workers")
	_ = viper.BindPFlag("soak.producers", flags.Lookup("producers"))
	_ = viper.BindPFlag("soak.itemsPerProducer", flags.Lookup("items"))
	_ = viper.BindPFlag("soak.consumers", flags.Lookup("consumers"))
	_ = viper.BindPFlag("soak.capacity", flags.Lookup("capacity"))
	_ = viper.BindPFlag("soak.recvTimeout", flags.Lookup("recv-timeout"))
	_ = viper.BindPFlag("soak.viaDispatcher", flags.Lookup("dispatcher"))
	_ = viper.BindPFlag("soak.progressInterval", flags.Lookup("progress"))

	return c
}

func runSoak(cmd *cobra.Command, args []string) error {
	started := time.Now()
	runID := uuid.NewString()

	var logFile *os.File
	if dir := config.GetString("logsDir"); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating logs dir: %w", err)
		}
		f, err := os.OpenFile(logging.LogFilePath(dir, "handoff", started), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logFile = f
	}

	provider, err := newOTelProvider(cmd.ErrOrStderr(), logFile)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}()

	logger := newLogger(cmd.ErrOrStderr(), logFile, runID, provider.LoggerProvider())

	cfg := config.GetSoakConfig()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := soak.Run(ctx, soak.Config{
		RunID:            runID,
		Producers:        cfg.Producers,
		ItemsPerProducer: cfg.ItemsPerProducer,
		Consumers:        cfg.Consumers,
		Capacity:         cfg.Capacity,
		RecvTimeout:      cfg.RecvTimeout,
		ViaDispatcher:    cfg.ViaDispatcher,
		ProgressInterval: cfg.ProgressInterval,
	}, logger)

	// push the run's metrics and logs out before the report lands on stdout
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if ferr := provider.Flush(flushCtx); ferr != nil {
		logger.Error("flushing telemetry", "error", ferr)
	}
	cancel()

	if res.RunID != "" {
		printReport(cmd.OutOrStdout(), res)
	}
	return err
}

func newOTelProvider(stderr io.Writer, logFile *os.File) (*intOtel.Provider, error) {
	oc := config.GetOTelConfig()
	var sink io.Writer = stderr
	if logFile != nil {
		sink = logFile
	}
	p, err := intOtel.New(intOtel.Config{
		Enabled:        oc.Enabled,
		ServiceName:    oc.ServiceName,
		BatchTimeout:   oc.BatchTimeout,
		MetricInterval: oc.MetricInterval,
		LogWriter:      sink,
		Endpoint:       oc.Endpoint,
		Insecure:       oc.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	return p, nil
}

// newLogger picks the log sink: a per-run file through slog when a logs dir
// is configured, otherwise zerolog console output or slog text on stderr.
func newLogger(stderr io.Writer, logFile *os.File, runID string, lp *sdklog.LoggerProvider) soak.Logger {
	level := config.GetString("logLevel")

	if logFile == nil && strings.EqualFold(config.GetString("logFormat"), "console") && lp == nil {
		zl := logging.NewConsoleLogger(stderr, level)
		return logging.NewZerologAdapter(zl)
	}

	m := logging.NewSlogManager(logging.WithContextProvider(func() []slog.Attr {
		return []slog.Attr{slog.String("run_id", runID)}
	}))
	var out io.Writer = stderr
	if logFile != nil {
		out = logFile
	}
	m.Setup(out, level, lp)
	return m.Logger()
}

func printReport(w io.Writer, res soak.Result) {
	perConsumer := make([]string, len(res.PerConsumer))
	for i, n := range res.PerConsumer {
		perConsumer[i] = humanize.Comma(int64(n))
	}

	fmt.Fprintf(w, "run       %s\n", res.RunID)
	fmt.Fprintf(w, "sent      %s\n", humanize.Comma(int64(res.Sent)))
	fmt.Fprintf(w, "received  %s [%s]\n", humanize.Comma(int64(res.Received)), strings.Join(perConsumer, " "))
	fmt.Fprintf(w, "duration  %s\n", res.Duration.Round(time.Microsecond))
	fmt.Fprintf(w, "rate      %s items/s\n", humanize.CommafWithDigits(res.Rate(), 0))
	if res.Ok() {
		fmt.Fprintln(w, "result    ok")
		return
	}
	fmt.Fprintf(w, "result    FAILED (%d missing, %d duplicated, %d out of order)\n",
		res.Missing, res.Duplicates, res.OutOfOrder)
}
