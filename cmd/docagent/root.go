package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/docagent/internal/cli"
	"github.com/hyperjump/docagent/internal/config"
	"github.com/hyperjump/docagent/internal/models"
	"github.com/hyperjump/docagent/internal/pipeline"
	"github.com/hyperjump/docagent/pkg/utils"
)

const defaultConfigFile = "config.yaml"

// openPipeline builds the production pipeline; tests replace it.
var openPipeline = pipeline.Open

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	debug      bool
	output     string
	collection string
	topK       int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "docagent",
		Short: "Ask questions about a document with retrieval-augmented generation",
		Long: `docagent ingests one document (PDF, DOCX, XLSX or plain text) into a local
vector collection, retrieves the chunks most similar to a question, picks a
task from the question (summarize, extract HR action items, or answer) and
asks a hosted language model to perform it.

The generation API key is read from TOGETHER_API_KEY (or the variable named by
generation.api_key_env); a .env file in the working directory is loaded first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file path (default ./config.yaml if present)")
	pf.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	pf.StringVarP(&opts.output, "output", "o", string(cli.OutputText), "output format: text or json")
	pf.StringVar(&opts.collection, "collection", "", "collection name (overrides config)")
	pf.IntVarP(&opts.topK, "top-k", "k", 0, "number of chunks to retrieve (overrides config)")

	root.AddCommand(
		newIngestCmd(opts),
		newAskCmd(opts),
		newRunCmd(opts),
		newServerCmd(opts),
		newStatusCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// resolveConfigPath returns the explicit path, or ./config.yaml when it exists.
// An empty result means defaults only.
func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if cwd, err := os.Getwd(); err == nil {
		fallback := filepath.Join(cwd, defaultConfigFile)
		if _, err := os.Stat(fallback); err == nil {
			return fallback
		}
	}
	return ""
}

// load reads the config, applies flag overrides and builds the logger.
func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	path := resolveConfigPath(o.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if o.collection != "" {
		cfg.Collection = o.collection
	}
	if o.topK != 0 {
		cfg.Retrieval.TopK = o.topK
	}
	debug := cfg.Debug || o.debug
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", path), zap.Bool("debug", debug))
	return cfg, logger, nil
}

// open loads the config and opens the pipeline it describes.
func (o *rootOptions) open() (*pipeline.Pipeline, *config.Config, *zap.Logger, error) {
	cfg, logger, err := o.load()
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := openPipeline(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}
	return p, cfg, logger, nil
}

func (o *rootOptions) format() (cli.OutputFormat, error) {
	return cli.ParseOutputFormat(o.output)
}

// joinQuery joins positional arguments so multi-word questions work without quotes.
// The joined text is passed on as typed.
func joinQuery(args []string) (string, error) {
	q := strings.Join(args, " ")
	if strings.TrimSpace(q) == "" {
		return "", fmt.Errorf("%w: query cannot be empty", models.ErrConfig)
	}
	return q, nil
}
