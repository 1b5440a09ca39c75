package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/argo-execution/internal/config"
	"github.com/rxtech-lab/argo-execution/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true).Width(24)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	alertStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

// riskStatus mirrors the API risk response, where an infinite recovery factor is null.
type riskStatus struct {
	types.RiskMetrics
	RecoveryFactor *float64 `json:"recovery_factor"`
}

type engineStatus struct {
	Risk      riskStatus
	Positions []types.Position
}

func getJSON(ctx context.Context, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(target)
}

func fetchStatus(ctx context.Context, baseURL string) (engineStatus, error) {
	baseURL = strings.TrimRight(baseURL, "/")

	var status engineStatus

	if err := getJSON(ctx, baseURL+"/api/v1/risk", &status.Risk); err != nil {
		return engineStatus{}, err
	}

	if err := getJSON(ctx, baseURL+"/api/v1/positions", &status.Positions); err != nil {
		return engineStatus{}, err
	}

	return status, nil
}

func row(label string, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func renderStatus(status engineStatus) string {
	risk := status.Risk

	trading := okStyle.Render("allowed")
	if !risk.IsTradingAllowed {
		trading = alertStyle.Render("halted: " + risk.CircuitBreakReason)
	}

	recovery := "∞"
	if risk.RecoveryFactor != nil {
		recovery = fmt.Sprintf("%.4f", *risk.RecoveryFactor)
	}

	drawdown := fmt.Sprintf("%.2f%%", risk.CurrentDrawdown*100)
	if risk.IsMaxDrawdownExceeded {
		drawdown = alertStyle.Render(drawdown + " (limit exceeded)")
	}

	rows := []string{
		titleStyle.Render("Risk"),
		row("Trading", trading),
		row("Capital", fmt.Sprintf("%.2f (peak %.2f)", risk.CurrentCapital, risk.PeakCapital)),
		row("Drawdown", drawdown),
		row("Max drawdown", fmt.Sprintf("%.2f%% over %s", risk.MaxDrawdown*100, risk.MaxDrawdownDuration)),
		row("Recovery factor", recovery),
		row("Exposure", fmt.Sprintf("%.2f (%.2f%% of capital, %.2f reserved)", risk.TotalExposure, risk.ExposureRatio*100, risk.ReservedExposure)),
		row("Positions", fmt.Sprintf("%d", risk.PositionCount)),
		row("Correlation", fmt.Sprintf("%.4f", risk.PositionCorrelation)),
	}

	sections := []string{boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))}

	if len(status.Positions) > 0 {
		lines := []string{titleStyle.Render("Positions")}

		for _, p := range status.Positions {
			stop := "-"
			if p.StopLoss.IsSome() {
				stop = fmt.Sprintf("%.8g", p.StopLoss.Unwrap())
			}

			lines = append(lines, fmt.Sprintf("%-24s %-5s qty=%-12.8g entry=%-12.8g mark=%-12.8g upnl=%-10.4f stop=%s",
				p.Key(), p.Side, p.Quantity, p.EntryPrice, p.MarkPrice(), p.UnrealizedPnL, stop))
		}

		sections = append(sections, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func trailingStop(cfg config.TrailingStopConfig) string {
	if !cfg.IsEnabled() {
		return "off"
	}

	return fmt.Sprintf("%.2f%%", cfg.Percent*100)
}

func renderConfigSummary(cfg *config.Config) string {
	rm := cfg.RiskManagement

	rows := []string{
		titleStyle.Render("Configuration OK"),
		row("Initial capital", fmt.Sprintf("%.2f", rm.InitialCapital)),
		row("Max exposure", fmt.Sprintf("%.2f%%", rm.MaxExposure*100)),
		row("Max drawdown", fmt.Sprintf("%.2f%%", rm.MaxDrawdown*100)),
		row("Risk per trade", fmt.Sprintf("%.2f%%", rm.RiskPerTrade*100)),
		row("Loss limits", fmt.Sprintf("daily %.2f%% / weekly %.2f%%", rm.CircuitBreakers.DailyLimit()*100, rm.CircuitBreakers.WeeklyLimit()*100)),
		row("Trailing stop", trailingStop(rm.TrailingStop)),
		row("Poll / ticker", fmt.Sprintf("%s / %s", cfg.Execution.PollInterval, cfg.Execution.TickerInterval)),
	}

	for _, ex := range cfg.Exchanges {
		rows = append(rows, row("Exchange "+ex.Name, string(ex.Type)))
	}

	if cfg.Archive.Enabled {
		rows = append(rows, row("Archive", cfg.Archive.DataOutputPath))
	}

	if cfg.API.Enabled {
		rows = append(rows, row("API", cfg.API.ListenAddress))
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
