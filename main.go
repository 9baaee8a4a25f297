package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"timetracker/internal"
	"timetracker/internal/app"
	"timetracker/internal/config"
	"timetracker/internal/timelog"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always happens.
func run() int {
	configPath := flag.String("config", "", "Path to YAML config (default: $CONFIG_PATH or ./timetracker.yaml)")
	report := flag.String("report", "", "Print the report for YYYY-MM-DD (or \"today\") and exit")
	flag.Parse()

	reportDate, err := parseReportDate(*report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger, closeLog, err := app.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLog()

	a, err := app.New(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("failed to initialize app", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()

	if *report != "" {
		fmt.Println(internal.RenderReport(a.Engine.DailyReport(reportDate)))
		return 0
	}

	m := internal.NewModel(a.Engine, cfg.Tracker.RefreshInterval)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		logger.Error("program failed", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		return 1
	}
	return 0
}

// parseReportDate maps the -report flag to an engine date. "today" and the
// empty flag both mean the current day.
func parseReportDate(flagValue string) (string, error) {
	if flagValue == "" || flagValue == "today" {
		return "", nil
	}
	if _, err := time.Parse(timelog.DateLayout, flagValue); err != nil {
		return "", fmt.Errorf("invalid -report date %q, expected YYYY-MM-DD", flagValue)
	}
	return flagValue, nil
}
