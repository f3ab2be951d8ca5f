package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"

	"dbt-setup/internal/app"
	"dbt-setup/internal/tui"
)

const version = "1.0.0"

func applyEnvOverrides(cfg *app.Config) {
	if v := strings.TrimSpace(os.Getenv("DBT_SETUP_BASE_URL")); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DBT_SETUP_THEME")); v != "" {
		cfg.Theme = v
	}
}

func main() {
	var (
		baseURL  string
		fragment string
	)

	root := &cobra.Command{
		Use:     "dbt-setup",
		Short:   "Terminal setup wizard for the local dbt backend",
		Long:    "dbt-setup completes the OAuth handshake with the local backend, lets you pick a dbt project, persists that selection, and shuts the backend down.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(app.DefaultConfigPath())
			if err != nil {
				return err
			}
			applyEnvOverrides(&cfg)
			if baseURL != "" {
				cfg.BaseURL = baseURL
			}
			if fragment == "" {
				fragment = os.Getenv("DBT_SETUP_FRAGMENT")
			}

			logger := app.NewLogger(app.DefaultLogWriter(cfg))
			logger.Info("session start", map[string]interface{}{"base_url": cfg.BaseURL})

			client := app.NewSetupClient(cfg.BaseURL, logger)
			wizard := tui.NewWizard(client, logger, fragment, tui.NewTheme(cfg.Theme))

			zone.NewGlobal()
			p := tea.NewProgram(wizard, tea.WithAltScreen(), tea.WithMouseCellMotion())
			if _, err := p.Run(); err != nil {
				return err
			}

			logger.Info("session end", map[string]interface{}{"shutdown_complete": wizard.ShutdownComplete()})
			return nil
		},
	}

	root.Flags().StringVar(&baseURL, "base-url", "", "backend base URL (overrides config)")
	root.Flags().StringVar(&fragment, "fragment", "", "handshake redirect fragment, e.g. '#status=success'")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
