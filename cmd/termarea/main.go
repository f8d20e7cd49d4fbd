package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"termarea/domain/annotation"
	"termarea/domain/core"
	"termarea/domain/job"
	"termarea/internal"
	"termarea/internal/config"
	"termarea/internal/container"
	"termarea/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "termarea",
		Short: "Per-image, per-term annotation area statistics",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := godotenv.Load(); err != nil {
				internal.DefaultLogger.Debug("no .env file found, using system environment variables")
			}
		},
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newServeCmd(),
		newMigrateCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and wires the container
func setup(ctx context.Context) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	return container.New(ctx, cfg, logger)
}

func newRunCmd() *cobra.Command {
	var (
		projectID    int64
		terms        string
		images       string
		users        string
		jobs         string
		reviewedOnly bool
		jobID        string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute the area report for a selection of terms and images",
		Long: `Compute annotation counts, total/mean areas and area ratios per image and
per term, write them as a CSV report and register it with the job tracker.

Example: termarea run --project 7 --terms 1,2 --images 100,200 --reviewed-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := job.Parameters{
				JobID:        core.ID(jobID),
				ProjectID:    annotation.ID(projectID),
				ReviewedOnly: reviewedOnly,
			}
			var err error
			if params.TermIDs, err = annotation.ParseIDList(terms); err != nil {
				return fmt.Errorf("--terms: %w", err)
			}
			if params.ImageIDs, err = annotation.ParseIDList(images); err != nil {
				return fmt.Errorf("--images: %w", err)
			}
			if params.UserIDs, err = annotation.ParseIDList(users); err != nil {
				return fmt.Errorf("--users: %w", err)
			}
			if params.JobIDs, err = annotation.ParseIDList(jobs); err != nil {
				return fmt.Errorf("--jobs: %w", err)
			}

			c, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			result, err := c.ReportService.Generate(cmd.Context(), params)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "job %s: %d images, report written to %s\n", result.JobID, result.Summary.Len(), result.Path)
			return nil
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "Project identifier")
	cmd.Flags().StringVar(&terms, "terms", "", "Comma-separated term identifiers")
	cmd.Flags().StringVar(&images, "images", "", "Comma-separated image identifiers")
	cmd.Flags().StringVar(&users, "users", "", "Comma-separated user identifiers (empty = any user)")
	cmd.Flags().StringVar(&jobs, "jobs", "", "Comma-separated job identifiers whose user-job annotations are included")
	cmd.Flags().BoolVar(&reviewedOnly, "reviewed-only", false, "Only use reviewed annotations")
	cmd.Flags().StringVar(&jobID, "job-id", "", "Job identifier to report progress under (generated when empty)")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve report jobs over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			gin.SetMode(c.Config.Server.GinMode)
			server := ui.NewServer(c.ReportService, c.Tracker, c.Logger)
			return server.Run(cmd.Context(), ":"+c.Config.Server.Port)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the annotation and job tracking tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			return c.Migrate(cmd.Context())
		},
	}
}
