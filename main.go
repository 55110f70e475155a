package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/config"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/daq"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/output"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/output/console"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/output/mqtt"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/output/ws"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/scaling"
)

// version is injected at build time via ldflags
var version = "dev"

type outputEntry struct {
	Out        output.Output
	IntervalMs int
	last       time.Time
}

func main() {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := setupLogger(cfg.Verbose)
	logger.WithFields(logrus.Fields{
		"version": version,
		"connect": cfg.ConnectionString,
	}).Info("starting siriusx-to-mqtt")

	instance, err := daq.Open(cfg.ConnectionString, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("no driver for connection string")
	}

	session := daq.NewSession(instance)
	if !session.Connect(cfg.ConnectionString) {
		logger.Fatal("device connection failed")
	}
	defer session.Disconnect()
	logger.WithField("device", session.Device.Name()).Info("device connected")

	converter := scaling.NewConverter(session.Device.ChannelSettings())

	entries, err := initOutputs(&cfg, cfg.IntervalMs, logger)
	if err != nil {
		logger.WithError(err).Fatal("output setup failed")
	}
	defer func() {
		for _, e := range entries {
			e.Out.Close()
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("shutdown signal received")
		cancel()
	}()

	run(ctx, cfg, session, converter, entries, logger)
	logger.Info("siriusx-to-mqtt stopped")
}

func run(ctx context.Context, cfg config.Config, session *daq.Session, converter *scaling.Converter, entries []*outputEntry, logger *logrus.Logger) {
	ticker := time.NewTicker(time.Duration(cfg.IntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			raw, err := session.Device.Read()
			if err != nil {
				logger.WithError(err).Error("device read failed")
				continue
			}
			frames, err := scaleFrames(converter, raw)
			if err != nil {
				logger.WithError(err).Error("sensitivity scaling failed")
				continue
			}
			for _, e := range entries {
				if !due(e, now) {
					continue
				}
				if err := e.Out.Publish(frames); err != nil {
					logger.WithError(err).Error("publish failed")
				}
			}
		}
	}
}

// scaleFrames applies per-channel sensitivity to raw frames and stamps the
// output unit on the result.
func scaleFrames(converter *scaling.Converter, raw []daq.Frame) ([]daq.Frame, error) {
	out := make([]daq.Frame, 0, len(raw))
	for _, f := range raw {
		scaled, err := converter.Apply(f.Channel, f.Samples)
		if err != nil {
			return nil, err
		}
		st, _ := converter.Settings(f.Channel)
		out = append(out, daq.Frame{
			Channel:   f.Channel,
			Unit:      st.OutputUnit,
			Samples:   scaled,
			Timestamp: f.Timestamp,
		})
	}
	return out, nil
}

// due reports whether the entry's publish interval has elapsed, advancing
// its clock when it has.
func due(e *outputEntry, now time.Time) bool {
	if !e.last.IsZero() && now.Sub(e.last) < time.Duration(e.IntervalMs)*time.Millisecond {
		return false
	}
	e.last = now
	return true
}

func initOutputs(cfg *config.Config, defaultIntervalMs int, logger *logrus.Logger) ([]*outputEntry, error) {
	entries := make([]*outputEntry, 0, len(cfg.Outputs))
	for i := range cfg.Outputs {
		oc := &cfg.Outputs[i]
		if oc.IntervalMs == 0 {
			oc.IntervalMs = defaultIntervalMs
		}
		var (
			out output.Output
			err error
		)
		switch oc.Type {
		case "console":
			out = console.NewConsole()
		case "mqtt":
			mc := config.MQTTConfig{}
			if oc.MQTT != nil {
				mc = *oc.MQTT
			}
			out, err = mqtt.NewMQTT(mc, logger)
		case "ws":
			listen := ":8080"
			if oc.WS != nil && oc.WS.Listen != "" {
				listen = oc.WS.Listen
			}
			out = ws.NewWS(listen, logger)
		default:
			return nil, fmt.Errorf("unknown output type %q", oc.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", oc.Type, err)
		}
		entries = append(entries, &outputEntry{Out: out, IntervalMs: oc.IntervalMs})
	}
	return entries, nil
}

func setupLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}
