package main

import (
	"fmt"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alexballas/xfilehost/api"
	"github.com/alexballas/xfilehost/browser"
	"github.com/alexballas/xfilehost/config"
	"github.com/alexballas/xfilehost/logging"
)

const appID = "io.github.alexballas.xfilehost"

// globalFlags override the configuration file and environment.
type globalFlags struct {
	configPath string
	baseURL    string
	token      string
	tokenFile  string
	debug      bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:          "xfilehost",
		Short:        "Browse, download and delete files on a file host",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := flags.load()
			if err != nil {
				return err
			}
			return runGUI(cfg, log)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Configuration file path (default "+config.DefaultPath()+")")
	pf.StringVar(&flags.baseURL, "base-url", "", "File host API base URL (overrides config)")
	pf.StringVar(&flags.token, "token", "", "Bearer token (overrides config)")
	pf.StringVar(&flags.tokenFile, "token-file", "", "Path to a file containing the bearer token")
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newListCmd(flags))
	rootCmd.AddCommand(newConfigCmd(flags))
	return rootCmd
}

func (f *globalFlags) path() string {
	if f.configPath != "" {
		return f.configPath
	}
	return config.DefaultPath()
}

// load reads the configuration, applies the flags and validates the result.
func (f *globalFlags) load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(f.path())
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	f.apply(cfg)

	log := logging.New(cfg.LogLevel, os.Stderr)
	if err := cfg.Validate(); err != nil {
		return nil, log, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, log, nil
}

func (f *globalFlags) apply(cfg *config.Config) {
	if f.baseURL != "" {
		cfg.BaseURL = f.baseURL
	}
	if f.token != "" {
		cfg.Token = f.token
	}
	if f.tokenFile != "" {
		cfg.TokenFile = f.tokenFile
	}
	if f.debug {
		cfg.LogLevel = "debug"
	}
}

func runGUI(cfg *config.Config, log zerolog.Logger) error {
	client, err := api.NewClient(cfg, api.WithLogger(log))
	if err != nil {
		return err
	}

	a := app.NewWithID(appID)
	w := a.NewWindow("xfilehost")
	w.Resize(fyne.NewSize(1100, 720))

	b := browser.New(w, cfg, client, browser.Options{Logger: &log})
	w.SetOnClosed(b.Close)
	b.Show()

	log.Info().Str("base_url", client.BaseURL()).Msg("starting")
	w.ShowAndRun()
	return nil
}
