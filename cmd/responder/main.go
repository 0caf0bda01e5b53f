package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jroimartin/gocui"

	"github.com/rescuerespond/rescuerespond/internal/client"
	"github.com/rescuerespond/rescuerespond/internal/config"
)

var (
	gitRevision = "unknown"
	gitBranch   = "unknown"
)

func (app *App) Run(ctx context.Context) error {
	var err error

	app.g, err = gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return err
	}

	defer app.g.Close()

	app.g.SetManagerFunc(app.layout)

	if err := app.setBindings(); err != nil {
		return err
	}

	app.log.SetCallback(app.redraw)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := app.Start(ctx); err != nil {
			app.logger.Error("start failed", slog.Any("error", err))
			app.setMessage(err.Error())
		}
	}()

	if err := app.g.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) {
		return err
	}

	return nil
}

func main() {
	conf := flag.String("config", "responder.yml", "name of config file")
	debug := flag.Bool("debug", false, "debug")

	flag.Parse()

	cfg := config.NewAppConfig()
	cfg.Load(*conf)

	if *debug {
		cfg.Set("debug", true)
	}

	level := slog.LevelInfo
	if cfg.Debug() {
		level = slog.LevelDebug
	}

	textLogger := NewTextLogger(100)
	slog.SetDefault(slog.New(slog.NewTextHandler(textLogger, &slog.HandlerOptions{Level: level})))

	tlsConf, err := cfg.TLSConfig()
	if err != nil {
		fmt.Printf("invalid ssl config: %s\n", err.Error())
		os.Exit(1)
	}

	if cfg.Login() == "" {
		fmt.Println("login is not set")
		os.Exit(1)
	}

	cl := client.New(cfg.Server(), cfg.Login(), cfg.Password(), tlsConf, cfg.Timeout())

	slog.Info(fmt.Sprintf("%s responder, version %s:%s", cfg.OrgName(), gitBranch, gitRevision))

	app := NewApp(cl, cfg.TimeFormat(), textLogger)

	if err := app.Run(context.Background()); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}
