package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazukari/sc3kit/internal/config"
	"github.com/hazukari/sc3kit/internal/db"
	"github.com/hazukari/sc3kit/internal/executor"
	"github.com/hazukari/sc3kit/internal/forge"
	"github.com/hazukari/sc3kit/internal/hub"
	"github.com/hazukari/sc3kit/internal/observability"
	"github.com/hazukari/sc3kit/internal/pipeline"
	"github.com/hazukari/sc3kit/internal/registry"
	"github.com/hazukari/sc3kit/internal/workflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook hub that executes the workflow for forge events",
	Long:  "Run the webhook hub. It accepts forge push/pull_request webhooks and manual dispatches, executes runs one at a time, and serves the run history API.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadSettings()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Hub.Addr = addr
		}
		wfPath, _ := cmd.Flags().GetString("workflow")
		if wfPath == "" {
			wfPath = cfg.Pipeline.WorkflowFile
		}
		wf, err := workflow.Load(wfPath)
		if err != nil {
			return err
		}

		dbConn, err := db.InitDB()
		if err != nil {
			return err
		}
		defer func() { _ = dbConn.Close() }()

		workspace, err := config.WorkspaceDir()
		if err != nil {
			return err
		}

		logger := observability.NewLogger(cfg.LogLevel, os.Stderr)
		reg := registry.New(dbConn)
		metrics := observability.GetMetrics()

		p := pipeline.New(wf, reg, executor.New(false), forge.New(cfg.Forge.APIBase, cfg.Forge.Token(), logger), logger)
		p.Workspace = workspace
		p.Metrics = metrics

		srv := hub.New(cfg.Hub, wf, p, reg, logger, metrics)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from settings)")
	serveCmd.Flags().String("workflow", "", "Workflow file to load (default from settings)")
	rootCmd.AddCommand(serveCmd)
}
