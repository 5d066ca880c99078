package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yairfalse/etwtap/internal/relay"
	"github.com/yairfalse/etwtap/internal/trackers/modules"
	"github.com/yairfalse/etwtap/internal/trackers/procs"
	"github.com/yairfalse/etwtap/pkg/config"
	"github.com/yairfalse/etwtap/pkg/dispatch"
	"github.com/yairfalse/etwtap/pkg/providers"
	"github.com/yairfalse/etwtap/pkg/schema"
	"github.com/yairfalse/etwtap/pkg/tracefile"
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture>",
	Short: "Replay a recorded capture through the decoders",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().Bool("relay", false, "forward decoded events to NATS")
	replayCmd.Flags().String("nats-url", "", "NATS server URL")
	viper.BindPFlag("relay.enabled", replayCmd.Flags().Lookup("relay"))
	viper.BindPFlag("relay.url", replayCmd.Flags().Lookup("nats-url"))
}

func runReplay(cmd *cobra.Command, args []string) error {
	logger, err := buildLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	cfg.ApplyDefaults()
	cfg.Trace.Path = args[0]
	if err := cfg.Validate(); err != nil {
		return err
	}

	src, err := tracefile.Open(cfg.Trace.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	reg := schema.NewRegistry()
	if err := providers.RegisterAll(reg); err != nil {
		return err
	}
	reg.Freeze()

	d := dispatch.NewDispatcher(reg, src.Session(), logger)

	for _, name := range cfg.Trackers.Enabled {
		switch name {
		case "procs":
			if err := procs.NewTracker(logger).Attach(d); err != nil {
				return err
			}
		case "modules":
			if err := modules.NewTracker(logger).Attach(d); err != nil {
				return err
			}
		}
	}

	if cfg.Relay.Enabled {
		conn, err := relay.Dial(cfg.Relay.URL, logger)
		if err != nil {
			return err
		}
		defer conn.Close()
		fwd := relay.New(logger, conn, cfg.Relay.SubjectPrefix)
		for provider, types := range providers.Interests() {
			if err := fwd.Attach(d, provider, types...); err != nil {
				return err
			}
		}
	}

	d.Freeze()

	ctx := cmd.Context()
	var malformed int64
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := d.Dispatch(ctx, rec); err != nil {
			malformed++
			logger.Debug("Record rejected", zap.Error(err))
		}
	}

	stats := d.Stats()
	logger.Info("Replay complete",
		zap.Int64("dispatched", stats.RecordsDispatched),
		zap.Int64("skipped", stats.RecordsSkipped),
		zap.Int64("malformed", stats.RecordsMalformed),
		zap.Int64("handler_calls", stats.HandlerCalls))
	return nil
}

func buildLogger() (*zap.Logger, error) {
	if viper.GetBool("verbose") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
