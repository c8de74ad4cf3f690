// Command outlet drives a WiFi power outlet: it switches the relay on a
// daily schedule anchored to fixed times or to sunrise and sunset, toggles
// it from the push button, and publishes every change to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sweeney/wifi-outlet/internal/clock"
	"github.com/sweeney/wifi-outlet/internal/config"
	"github.com/sweeney/wifi-outlet/internal/control"
	"github.com/sweeney/wifi-outlet/internal/gpio"
	"github.com/sweeney/wifi-outlet/internal/logging"
	"github.com/sweeney/wifi-outlet/internal/logic"
	"github.com/sweeney/wifi-outlet/internal/metrics"
	"github.com/sweeney/wifi-outlet/internal/mqtt"
	"github.com/sweeney/wifi-outlet/internal/schedule"
	"github.com/sweeney/wifi-outlet/internal/status"
	"github.com/sweeney/wifi-outlet/internal/store"
	"github.com/sweeney/wifi-outlet/internal/web"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "outlet",
		Short: "Run the outlet daemon",
		Long: `outlet switches a relay on a schedule of up to eight daily cycles.
Each cycle is either fixed (on and off at set times) or anchored to
sunrise or sunset at the configured site.

Configuration precedence (highest to lowest):
1. CLI flags
2. Environment variables (OUTLET_*)
3. Configuration file
4. Default values`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "configuration file (YAML or TOML)")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newStateCmd(&configFile),
		newSunCmd(&configFile),
		newCyclesCmd(&configFile),
	)
	return root
}

func run(cfg *config.Config) error {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, level)
	slog.SetDefault(logger)
	log := logger.With("component", "main")

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}
	bootID := uuid.NewString()
	clk := clock.NewSystem("", cfg.AssumeSynced)
	startTime := clk.Now()

	hw, err := gpio.NewRealOutlet(cfg.GPIOPins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer hw.Close()
	// The relay is always open at boot; the schedule takes over from here.
	if err := hw.SetRelay(false); err != nil {
		return fmt.Errorf("init relay: %w", err)
	}

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	schedCfg, err := loadSchedule(ctx, db, cfg)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(uint64(startTime.UnixNano()), uint64(os.Getpid())))
	sched, err := schedule.New(schedCfg, loc, rng)
	if err != nil {
		return fmt.Errorf("init schedule: %w", err)
	}

	heartbeat, err := logic.NewHeartbeat(cfg.Heartbeat, startTime)
	if err != nil {
		return fmt.Errorf("init heartbeat: %w", err)
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cfg.Broker,
		ClientID: "outlet-" + cfg.Name + "-" + bootID[:8],
		Topics:   mqtt.TopicsFor(cfg.Name),
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	m := metrics.New()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(bootID, startTime, status.Config{
		Name:       cfg.Name,
		PollMs:     cfg.Poll.Milliseconds(),
		DebounceMs: cfg.Debounce.Milliseconds(),
		Heartbeat:  cfg.Heartbeat,
		Broker:     cfg.Broker,
		HTTPAddr:   cfg.HTTPAddr,
		Timezone:   loc.String(),
	})
	tracker.Update(logic.StateOff, logic.EventCounts{}, clk.Valid())
	tracker.SetSchedule(sched.Status())
	if net := readNetworkInfo(cfg.EnvFile); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp: snap.Now,
		Event:     "STARTUP",
		Retained:  true,
		Body:      status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Warn("failed to publish startup event", "err", err)
	} else {
		log.Info("published startup event", "boot_id", bootID)
	}

	commands := make(chan control.Command, 8)
	if cfg.HTTPAddr != "" {
		srv := web.New(web.Options{
			Addr:      cfg.HTTPAddr,
			Tracker:   tracker,
			Commands:  commands,
			Metrics:   m.Handler(),
			AccessLog: os.Stdout,
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http server listening", "addr", cfg.HTTPAddr)
	}

	log.Info("started",
		"poll", cfg.Poll,
		"debounce", cfg.Debounce,
		"broker", cfg.Broker,
		"heartbeat", cfg.Heartbeat,
		"timezone", loc.String(),
		"cycles", len(schedCfg.Cycles),
	)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		log:        logger.With("component", "loop"),
		hw:         hw,
		publisher:  publisher,
		conn:       publisher,
		tracker:    tracker,
		metrics:    m,
		store:      db,
		sched:      sched,
		loc:        loc,
		outlet:     logic.NewOutlet(logic.StateOff),
		button:     logic.NewButton(cfg.Debounce),
		heartbeat:  heartbeat,
		now:        clk.Now,
		clockValid: clk.Valid,
		network:    func() *status.NetworkInfo { return readNetworkInfo(cfg.EnvFile) },
	}
	return l.run(ticker.C, sigCh, commands, publisher.Commands())
}

// scheduleStore is the persistence the daemon needs for rules.
type scheduleStore interface {
	Load(ctx context.Context) (schedule.Config, error)
	Save(ctx context.Context, cfg schedule.Config) error
	SaveCycle(ctx context.Context, index int, r schedule.Rule) error
	SetEnabled(ctx context.Context, enabled bool) error
}

// loadSchedule returns the stored rules, seeding the store from the
// configuration on first boot. The site always comes from the configuration.
func loadSchedule(ctx context.Context, s scheduleStore, cfg *config.Config) (schedule.Config, error) {
	seed, err := cfg.ScheduleSeed()
	if err != nil {
		return schedule.Config{}, err
	}
	saved, err := s.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		if err := s.Save(ctx, seed); err != nil {
			return schedule.Config{}, fmt.Errorf("seed store: %w", err)
		}
		return seed, nil
	}
	if err != nil {
		return schedule.Config{}, fmt.Errorf("load schedule: %w", err)
	}
	saved.Site = seed.Site
	return saved, nil
}
