package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nprint.dev/nprint/internal/config"
	"nprint.dev/nprint/internal/core/encoder"
	"nprint.dev/nprint/internal/core/schema"
	"nprint.dev/nprint/internal/log"
	"nprint.dev/nprint/internal/metrics"
	"nprint.dev/nprint/internal/pipeline"
	"nprint.dev/nprint/internal/sink/csv"
	"nprint.dev/nprint/internal/source/file"
)

var (
	convertOutput    string
	convertK         int
	convertFilter    string
	convertStrict    bool
	convertAnonymize bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <capture-file>",
	Short: "Convert a pcap/pcapng file to nPrint CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "",
		"output file, '-' for stdout (overrides config)")
	convertCmd.Flags().IntVarP(&convertK, "num-packets", "k", 0,
		"packets per connection (overrides config)")
	convertCmd.Flags().StringVar(&convertFilter, "filter", "",
		"classic BPF program in tcpdump -ddd form (overrides config)")
	convertCmd.Flags().BoolVar(&convertStrict, "strict", false,
		"abort a connection on the first malformed packet")
	convertCmd.Flags().BoolVar(&convertAnonymize, "anonymize", false,
		"blank the IPv4 src/dst address columns in the output")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.Path = convertOutput
	}
	if cmd.Flags().Changed("num-packets") {
		cfg.Flow.K = convertK
	}
	if cmd.Flags().Changed("filter") {
		cfg.Capture.BPF = convertFilter
	}
	if cmd.Flags().Changed("strict") {
		cfg.Flow.Strict = convertStrict
	}
	if cmd.Flags().Changed("anonymize") {
		cfg.Anonymize = convertAnonymize
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Init(cfg.Logger)
	logger := log.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			srv.Stop(shutdownCtx)
		}()
	}

	protos, err := cfg.ProtocolIDs()
	if err != nil {
		return err
	}
	s, err := schema.Build(protos...)
	if err != nil {
		return err
	}
	var encOpts []encoder.Option
	if cfg.Anonymize {
		encOpts = append(encOpts, encoder.WithAnonymizedAddresses())
	}
	enc, err := encoder.New(s, protos, encOpts...)
	if err != nil {
		return err
	}
	agg, err := encoder.NewAggregator(enc, cfg.Flow.K, cfg.Flow.Strict,
		encoder.WithPacketErrorHook(func(err error) {
			metrics.PacketsMalformedTotal.Inc()
			logger.WithError(err).Warn("malformed packet downgraded to all-NA row")
		}))
	if err != nil {
		return err
	}

	src, err := file.Open(args[0], file.Options{Filter: cfg.Capture.BPF})
	if err != nil {
		return err
	}
	defer src.Close()

	out, closeOut, err := openOutput(cfg.Output.Path)
	if err != nil {
		return err
	}
	defer closeOut()

	opts, err := csv.ParseOptions(cfg.Output.Options)
	if err != nil {
		return err
	}
	sink, err := csv.New(out, s, opts)
	if err != nil {
		return err
	}

	p, err := pipeline.New(pipeline.Config{
		Source:     src,
		Aggregator: agg,
		Sink:       sink,
		Workers:    cfg.Workers,
	})
	if err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"input":   args[0],
		"output":  cfg.Output.Path,
		"k":       cfg.Flow.K,
		"columns": s.TotalWidth(),
	}).Info("starting conversion")

	return p.Run(ctx)
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
