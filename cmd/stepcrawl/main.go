package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/stepcrawl/server/internal/config"
	"github.com/stepcrawl/server/internal/data"
	"github.com/stepcrawl/server/internal/feed"
	"github.com/stepcrawl/server/internal/persist"
	"github.com/stepcrawl/server/internal/scripting"
	"github.com/stepcrawl/server/internal/sensor"
	"github.com/stepcrawl/server/internal/session"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(level string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             stepcrawl  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       walk the path · clear the crypt     \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mlevel:\033[0m %s\n\n", level)
}

func printSection(title string) {
	lineLen := max(3, 46-len(title)-1)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(3, 42-len(label)-len(numStr))
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Load content
	level, err := data.LoadLevel(cfg.Content.Level)
	if err != nil {
		return fmt.Errorf("load level: %w", err)
	}
	printBanner(level.Name)
	printSection("content")

	var mapData *data.MapData
	if cfg.Content.Map != "" {
		if mapData, err = data.LoadMapData(cfg.Content.Map); err != nil {
			return fmt.Errorf("load map: %w", err)
		}
		printStat("wall blocks", len(mapData.WallRects()))
	}
	printStat("waypoints", len(level.Waypoints))
	printStat("placements", len(level.Placements))

	var items *data.ItemTable
	if cfg.Content.Items != "" {
		if items, err = data.LoadItemTable(cfg.Content.Items); err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		printStat("item templates", items.Count())
	}

	scripts, err := scripting.NewEngine(cfg.Content.Scripts, log)
	if err != nil {
		return fmt.Errorf("load scripts: %w", err)
	}
	defer scripts.Close()
	printOK("progression scripts loaded")
	fmt.Println()

	// 4. Snapshot store
	printSection("persistence")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("snapshot store: %w", err)
	}
	defer closeStore()
	var writer *persist.Writer
	if store != nil {
		writer = persist.NewWriter(store, cfg.Persistence.Key, cfg.Persistence.WriteTimeout, log)
	}
	fmt.Println()

	// 5. Sensor
	source, err := openSensor(cfg.Sensor)
	if err != nil {
		return fmt.Errorf("step sensor: %w", err)
	}

	// 6. Session
	var sink feed.Sink
	var hub *feed.Hub
	if cfg.Feed.Enabled {
		hub = feed.NewHub(cfg.Feed.WriteTimeout, log)
		sink = hub
	}
	sess, err := session.New(session.ConfigFrom(cfg), session.Deps{
		Level:   level,
		Map:     mapData,
		Items:   items,
		Scripts: scripts,
		Store:   store,
		Writer:  writer,
		Sink:    sink,
		Source:  source,
	}, log)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	driver := session.NewDriver(sess, cfg.Simulation.TickRate, log)

	// 7. Run until SIGINT/SIGTERM
	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	// The writer outlives the frame loop so the final snapshot is flushed.
	writerCtx, stopWriter := context.WithCancel(context.Background())
	defer stopWriter()
	writerDone := make(chan struct{})
	if writer != nil {
		go func() {
			defer close(writerDone)
			writer.Run(writerCtx)
		}()
	} else {
		close(writerDone)
	}

	if hub != nil {
		srv := feed.NewServer(cfg.Feed.BindAddress, hub, driver, log)
		g.Go(func() error { return srv.Run(gctx) })
		printReady(fmt.Sprintf("render feed on http://%s", cfg.Feed.BindAddress))
	}
	g.Go(func() error { return driver.Run(gctx) })
	printReady(fmt.Sprintf("frame loop at %s", cfg.Simulation.TickRate))
	fmt.Println()

	err = g.Wait()
	stopWriter()
	<-writerDone

	st := sess.State()
	log.Info("shutdown complete",
		zap.String("run", st.RunID),
		zap.String("mode", string(st.Mode)),
		zap.Int("depth", st.Depth),
		zap.Int("coins", st.Coins),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openStore returns the configured snapshot store, or nil when persistence
// is disabled. The returned close func is always safe to call.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (persist.Store, func(), error) {
	switch cfg.Persistence.Backend {
	case "file":
		fs, err := persist.NewFileStore(cfg.Persistence.Path)
		if err != nil {
			return nil, func() {}, err
		}
		printOK(fmt.Sprintf("file snapshots in %s", cfg.Persistence.Path))
		return fs, func() {}, nil

	case "postgres":
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return nil, func() {}, fmt.Errorf("database: %w", err)
		}
		printOK("PostgreSQL connected")
		version, err := db.Migrate(ctx)
		if err != nil {
			db.Close()
			return nil, func() {}, fmt.Errorf("migrations: %w", err)
		}
		printStat("schema version", int(version))
		return persist.NewSnapshotRepo(db), db.Close, nil
	}
	printOK("persistence disabled")
	return nil, func() {}, nil
}

func openSensor(cfg config.SensorConfig) (sensor.Source, error) {
	switch cfg.Source {
	case "simulated":
		printOK(fmt.Sprintf("simulated walker at %.0f steps/min", cfg.Cadence))
		return sensor.NewSimulated(cfg.Cadence, cfg.Interval), nil
	case "replay":
		r, err := sensor.LoadReplay(cfg.ReplayPath, cfg.ReplaySpeed)
		if err != nil {
			return nil, err
		}
		printStat("replay readings", r.Len())
		return r, nil
	}
	printOK("no step sensor, using path progress")
	return sensor.Unavailable{}, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
