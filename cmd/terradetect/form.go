package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terradetect/terradetect/internal/advisor"
	"github.com/terradetect/terradetect/internal/logging"
	"github.com/terradetect/terradetect/internal/tui"
)

func runForm(cmd *cobra.Command, _ []string) error {
	mode, err := defaultMode(settings)
	if err != nil {
		return err
	}

	client := newClient(settings)
	ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
	if err := client.Ping(ctx); err != nil {
		logging.Warn("Gateway not reachable at startup", zap.String("url", client.BaseURL), zap.Error(err))
	}
	cancel()

	m := tui.New(tui.Deps{
		Orchestrator: advisor.NewOrchestrator(client),
		Sources:      newController(settings, client),
		GatewayURL:   client.BaseURL,
		DefaultMode:  mode,
		DefaultSoil:  settings.Preferences.DefaultSoil,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("form exited: %w", err)
	}
	return nil
}
