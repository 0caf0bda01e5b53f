package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rescuerespond/rescuerespond/internal/caltopo"
	"github.com/rescuerespond/rescuerespond/internal/config"
	"github.com/rescuerespond/rescuerespond/internal/database"
	"github.com/rescuerespond/rescuerespond/internal/missions"
	"github.com/rescuerespond/rescuerespond/internal/repository"
)

var (
	gitRevision = "unknown"
	gitBranch   = "unknown"
)

type App struct {
	logger *slog.Logger
	config *config.AppConfig

	dbm       *database.DatabaseManager
	users     repository.UserRepository
	missions  *repository.MissionRepo
	responses *repository.ResponseRepo
	mapper    missions.Mapper
}

func NewApp(cfg *config.AppConfig) (*App, error) {
	db, err := database.GetDatabase(cfg.DB(), cfg.Debug())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	dbm := database.New(db)

	if err := dbm.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	responses := repository.NewResponseRepo(dbm)

	app := &App{
		logger:    slog.Default().With("logger", "app"),
		config:    cfg,
		dbm:       dbm,
		users:     repository.NewUserDbRepository(cfg.UsersFile(), dbm),
		responses: responses,
		missions:  repository.NewMissionRepo(dbm, responses),
	}

	if cl, err := caltopo.New(cfg.CalTopo()); err == nil {
		app.mapper = cl
	} else {
		app.logger.Warn("map service is disabled", slog.Any("error", err))
	}

	return app, nil
}

func (app *App) Run(ctx context.Context) error {
	if err := app.users.Start(); err != nil {
		return fmt.Errorf("load users: %w", err)
	}

	defer app.users.Stop()

	api := NewAPI(app, app.config.APIAddr())

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("listening api at " + api.Address())

		return api.Listen()
	})

	g.Go(func() error {
		<-ctx.Done()
		app.logger.Info("exiting...")

		return api.ShutdownWithTimeout(time.Second * 5)
	})

	return g.Wait()
}

func main() {
	fmt.Printf("version %s %s\n", gitBranch, gitRevision)

	conf := flag.String("config", "rescue_server.yml", "name of config file")
	debug := flag.Bool("debug", false, "debug")

	flag.Parse()

	cfg := config.NewAppConfig()
	cfg.Load(*conf)

	if *debug {
		cfg.Set("debug", true)
	}

	var h slog.Handler
	if cfg.Debug() {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	slog.SetDefault(slog.New(h))

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("init error", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}
