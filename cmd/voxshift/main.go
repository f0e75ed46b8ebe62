// Command voxshift is a real-time voice changer. It reads the microphone,
// shifts pitch and formants, applies gain and plays the result on the
// output device until interrupted.
//
// Usage:
//
//	voxshift [flags]
//
// Examples:
//
//	voxshift
//	voxshift -semitones 7 -formant 1.15
//	voxshift -config voxshift.yaml -metrics-listen :9464
//	voxshift -list-devices
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/voxshift/dsp/effects/pitch"
	"github.com/cwbudde/voxshift/internal/config"
	"github.com/cwbudde/voxshift/internal/device"
	"github.com/cwbudde/voxshift/internal/engine"
	"github.com/cwbudde/voxshift/internal/logging"
	"github.com/cwbudde/voxshift/internal/observe"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("voxshift", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML configuration file")
	listDevices := fs.Bool("list-devices", false, "print the available audio devices and exit")
	overrides := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(*configPath, overrides)
	if err != nil {
		fmt.Fprintf(stderr, "voxshift: %v\n", err)
		return 1
	}

	logger, err := logging.NewWithOutput(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(stderr, "voxshift: %v\n", err)
		return 1
	}

	backend := device.NewPortAudio(logger)
	if err := backend.Initialize(); err != nil {
		logger.WithError(err).Error("error setting up audio")
		return 1
	}
	defer func() {
		if err := backend.Terminate(); err != nil {
			logger.WithError(err).Warn("audio shutdown failed")
		}
	}()

	if *listDevices {
		devs, err := backend.Devices()
		if err != nil {
			logger.WithError(err).Error("failed to list audio devices")
			return 1
		}
		if err := printDevices(stdout, devs); err != nil {
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, backend, logger, stdout)
}

func loadConfig(path string, overrides *config.Flags) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if err := overrides.Apply(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// serve runs the engine, and the metrics endpoint when configured, until ctx
// is cancelled or the engine stops on its own.
func serve(ctx context.Context, cfg *config.Config, backend device.Backend, logger *logrus.Logger, stdout io.Writer) int {
	metrics := observe.Discard()
	if cfg.Metrics.Listen != "" {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
		if err != nil {
			logger.WithError(err).Error("failed to initialise metrics")
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warn("metrics shutdown failed")
			}
		}()
		if metrics, err = observe.NewMetrics(otel.GetMeterProvider()); err != nil {
			logger.WithError(err).Error("failed to create metric instruments")
			return 1
		}
	}

	eng, err := engine.New(cfg.Stream(), cfg.Shift(), engine.WithLogger(logger), engine.WithMetrics(metrics))
	if err != nil {
		logger.WithError(err).Error("invalid configuration")
		return 1
	}

	printBanner(stdout, cfg, eng.Latency())
	if err := eng.Start(backend); err != nil {
		logger.WithError(err).Error("error setting up audio")
		return 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return eng.Run(gctx)
	})

	if cfg.Metrics.Listen != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           observe.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.WithField("addr", cfg.Metrics.Listen).Info("metrics endpoint listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	fmt.Fprintln(stdout, "Voice changer stopped")
	if err != nil {
		logger.WithError(err).Error("voice changer failed")
		return 1
	}
	return 0
}

func printBanner(w io.Writer, cfg *config.Config, latency int) {
	shift := cfg.Shift()
	mode := shift.PitchMode
	if mode == "" {
		mode = pitch.ModeStream
	}
	stream := cfg.Stream()

	fmt.Fprintf(w, "voxshift %s: starting real-time voice changer\n", version)
	fmt.Fprintf(w, "  pitch    x%.3f (%+.1f semitones, %s mode)\n", shift.PitchRatio, pitch.Semitones(shift.PitchRatio), mode)
	fmt.Fprintf(w, "  formant  x%.3f\n", shift.FormantRatio)
	fmt.Fprintf(w, "  gain     x%.3f\n", shift.Gain)
	fmt.Fprintf(w, "  stream   %.0f Hz, %d frames per block (%.1f ms), %d in / %d out\n",
		stream.SampleRate, stream.BlockSize, float64(stream.Budget())/float64(time.Millisecond),
		stream.InputChannels, stream.OutputChannels)
	fmt.Fprintf(w, "  latency  %d samples (%.1f ms)\n", latency, float64(latency)/stream.SampleRate*1000)
	fmt.Fprintln(w, "Press Ctrl+C to stop.")
}

func printDevices(w io.Writer, devs []device.Info) error {
	if len(devs) == 0 {
		_, err := fmt.Fprintln(w, "No audio devices detected. Please ensure a microphone and speaker are connected.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tNAME\tHOST API\tIN\tOUT\tRATE\tDEFAULT")
	for _, d := range devs {
		def := ""
		switch {
		case d.DefaultInput && d.DefaultOutput:
			def = "in,out"
		case d.DefaultInput:
			def = "in"
		case d.DefaultOutput:
			def = "out"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%.0f\t%s\n",
			d.Index, d.Name, d.HostAPI, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate, def)
	}
	return tw.Flush()
}
