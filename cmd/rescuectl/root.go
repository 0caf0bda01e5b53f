package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rescuerespond/rescuerespond/internal/client"
	"github.com/rescuerespond/rescuerespond/internal/config"
)

var (
	configFile string
	server     string
	login      string
	password   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "rescuectl",
	Short: "Rescue Respond admin tool",
	Long: `rescuectl manages missions on a rescue server.

Connection settings are read from the config file and RR_* environment
variables; flags override both.

Examples:
  # Create a mission, a CalTopo map is requested when no map url is given
  rescuectl mission create --title "Lost hiker" --location "Flattop" --lkp "61°06.28 -149°47.73"

  # Close every active mission
  rescuectl mission close-all

  # Show the roster of the active mission
  rescuectl roster`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "rescuectl.yml", "name of config file")
	rootCmd.PersistentFlags().StringVar(&server, "server", "", "server url")
	rootCmd.PersistentFlags().StringVarP(&login, "login", "u", "", "admin login")
	rootCmd.PersistentFlags().StringVarP(&password, "password", "p", "", "admin password")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func loadConfig() *config.AppConfig {
	cfg := config.NewAppConfig()
	cfg.Load(configFile)

	for k, v := range map[string]string{"server": server, "login": login, "password": password} {
		if v != "" {
			cfg.Set(k, v)
		}
	}

	return cfg
}

func newClient() (*client.Client, error) {
	cfg := loadConfig()

	if cfg.Login() == "" {
		return nil, fmt.Errorf("login is not set")
	}

	tlsConf, err := cfg.TLSConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid ssl config: %w", err)
	}

	return client.New(cfg.Server(), cfg.Login(), cfg.Password(), tlsConf, cfg.Timeout()), nil
}
