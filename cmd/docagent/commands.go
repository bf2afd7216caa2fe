package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/docagent/internal/cli"
	"github.com/hyperjump/docagent/internal/config"
	"github.com/hyperjump/docagent/internal/models"
	"github.com/hyperjump/docagent/internal/pipeline"
	"github.com/hyperjump/docagent/internal/server"
	"github.com/hyperjump/docagent/internal/storage"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>",
		Short: "Extract, chunk and store a document",
		Long: `Extracts text from the file, splits it into overlapping chunks and adds them
to the collection. A collection that already holds entries is left unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			p, _, logger, err := opts.open()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer p.Close()

			res, err := p.Ingest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return cli.WriteIngestResult(cmd.OutOrStdout(), res, format)
		},
	}
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <query...>",
		Short: "Answer a question from the ingested document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			query, err := joinQuery(args)
			if err != nil {
				return err
			}
			p, _, logger, err := opts.open()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer p.Close()

			res, err := p.AskQuery(cmd.Context(), models.Query{Text: query})
			if err != nil {
				return err
			}
			return cli.WriteAskResult(cmd.OutOrStdout(), res, format)
		},
	}
}

type runOutput struct {
	Ingest *models.IngestResult `json:"ingest"`
	Ask    *models.AskResult    `json:"ask"`
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file> <query...>",
		Short: "Ingest a document and answer one question about it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			query, err := joinQuery(args[1:])
			if err != nil {
				return err
			}
			p, _, logger, err := opts.open()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer p.Close()

			ing, res, err := p.Run(cmd.Context(), args[0], query)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == cli.OutputJSON {
				return cli.WriteJSON(out, runOutput{Ingest: ing, Ask: res})
			}
			if err := cli.WriteIngestResult(out, ing, format); err != nil {
				return err
			}
			fmt.Fprintln(out)
			return cli.WriteAskResult(out, res, format)
		},
	}
}

func newServerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Serve the ask, ingest and status HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cfg, logger, err := opts.open()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer p.Close()

			srv := server.NewServer(p, cfg, logger)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)
			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-sigChan:
			}

			logger.Info("Shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(ctx)
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the collection's entry count, embedder and database size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath, storage.WithDriver(cfg.Storage.Driver))
			if err != nil {
				return err
			}
			defer store.Close()
			st, err := pipeline.ReadStatus(cmd.Context(), store, cfg.Collection)
			if err != nil {
				return err
			}
			size, err := storage.DatabaseSizeBytes(cfg.Storage.DatabasePath)
			if err != nil {
				logger.Warn("database size unavailable", zap.Error(err))
			}
			return cli.WriteStatus(cmd.OutOrStdout(), &cli.StatusReport{
				Status:         st,
				DatabasePath:   cfg.Storage.DatabasePath,
				DiskUsageBytes: size,
			}, format)
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = defaultConfigFile
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docagent version %s\n", version)
		},
	}
}
