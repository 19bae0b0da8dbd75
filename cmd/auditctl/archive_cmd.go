package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/univault/univault/modules/audit/infrastructure/persistence"
	"github.com/univault/univault/modules/audit/services"
	"github.com/univault/univault/pkg/composables"
	"github.com/univault/univault/pkg/configuration"
)

func newArchiveCmd() *cobra.Command {
	var (
		days        int
		archivePath string
		purgeOnly   bool
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive and purge audit records past the retention window",
		Long: `Appends records older than the retention window to a JSON Lines
archive and then deletes them. The purge only runs once the archive write is
durable; --purge-only skips archiving and --dry-run reports what a real run
would remove.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			if !cmd.Flags().Changed("days") {
				days = conf.Audit.RetentionDays
			}
			if archivePath == "" {
				archivePath = conf.Audit.ArchivePath
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()
			pool, err := pgxpool.New(ctx, conf.Database.Opts)
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx = composables.WithPool(ctx, pool)
			ctx = composables.WithLogger(ctx, logrus.NewEntry(conf.Logger()))

			svc := services.NewRetentionService(persistence.NewAuditRecordRepository())
			result, err := svc.Run(ctx, services.RetentionOptions{
				Days:        days,
				ArchivePath: archivePath,
				PurgeOnly:   purgeOnly,
				DryRun:      dryRun,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cutoff: %s\n", result.Cutoff.Format(time.RFC3339))
			fmt.Fprintf(out, "Matched: %d\n", result.Matched)
			if dryRun {
				fmt.Fprintln(out, "Dry run, nothing archived or deleted.")
				for _, line := range result.Sample {
					fmt.Fprintf(out, "  %s\n", line)
				}
				return nil
			}
			if !purgeOnly {
				fmt.Fprintf(out, "Archived: %d -> %s\n", result.Archived, archivePath)
			}
			fmt.Fprintf(out, "Purged: %d\n", result.Purged)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 90, "retention window in days")
	cmd.Flags().StringVar(&archivePath, "archive-path", "", "JSON Lines archive file (defaults to AUDIT_ARCHIVE_PATH)")
	cmd.Flags().BoolVar(&purgeOnly, "purge-only", false, "delete without archiving")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report matched records without touching anything")
	return cmd
}
