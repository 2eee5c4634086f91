package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-admin/internal/repository"
	"github.com/noah-isme/sis-admin/internal/service"
	"github.com/noah-isme/sis-admin/pkg/config"
	"github.com/noah-isme/sis-admin/pkg/database"
	"github.com/noah-isme/sis-admin/pkg/logger"
)

func newCleanupExportsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-exports",
		Short: "Purge export files whose download links have expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.NewPostgres(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer db.Close() //nolint:errcheck

			reports := service.NewReportService(repository.NewReportRepository(db), service.DefaultListSettings())
			exports, err := newExportService(cfg, db, reports, nil, logr)
			if err != nil {
				return err
			}
			removed, err := exports.Cleanup(ctx)
			if err != nil {
				return err
			}
			logr.Info("expired exports removed", zap.Int("removed", removed))
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired export(s)\n", removed)
			return nil
		},
	}
}
