package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"taskquest/internal/logger"
	"taskquest/internal/models"
	"taskquest/internal/taskapi"
)

type statsReport struct {
	Tasks     int `json:"tasks"`
	Completed int `json:"completed"`
	XP        int `json:"xp"`
	Level     int `json:"level"`
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print task counts, xp and level as JSON",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// stdout carries the report.
	l := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logger.ParseLevel(cfg.Log.Level),
	}))

	store, svc, err := openStore(cmd.Context(), cfg.Store, l)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore(store) }()

	res, err := svc.List(cmd.Context())
	if errors.Is(err, taskapi.ErrNotConfigured) {
		return err
	}
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(statsReport{
		Tasks:     len(res.Tasks),
		Completed: models.CountCompleted(res.Tasks),
		XP:        res.XP,
		Level:     res.Level,
	})
}
