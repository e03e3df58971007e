package main

import (
	"fmt"
	"os"

	"github.com/durck/crawl/pkg/config"
	"github.com/durck/crawl/pkg/indexer"
	"github.com/durck/crawl/pkg/indexer/bleve"
	"github.com/durck/crawl/pkg/indexer/es"
	"github.com/durck/crawl/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl - filesystem document text extraction for security audits",
	Long: `Crawl walks a mounted directory tree (often an SMB/NFS share or a site
mirror), extracts text from every document it can read, and appends one
record per file to a CSV index. Interrupted runs resume from a session
store; the completed CSV can be imported into a full-text search index
and served behind a small read-only HTTP API.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./crawl.yaml, ~/.config/crawl/crawl.yaml, /etc/crawl/crawl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig builds the layered configuration with the command's flags as
// the highest-precedence layer, then applies the verbosity shorthands.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = "DEBUG"
	}
	if quiet {
		cfg.LogLevel = "ERROR"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogLevel, cfg.LogFile)
}

// newIndexer builds the configured full-text backend. Credentials come
// from the secrets file or environment, never from flags.
func newIndexer(cfg *config.Config, indexName string) (indexer.Indexer, error) {
	switch cfg.Index.Backend {
	case "bleve":
		path := cfg.Index.BlevePath
		if path == "" {
			path = indexName + ".bleve"
		}
		return bleve.New(path)
	case "", "es":
		creds, err := config.LoadCredentials()
		if err != nil {
			return nil, err
		}
		// A user without a stored password gets one prompt; fully
		// anonymous clusters skip auth entirely.
		if creds[config.KeyIndexUser] != "" && creds[config.KeyIndexPass] == "" {
			pass, err := config.PromptSecret("index password for " + creds[config.KeyIndexUser])
			if err != nil {
				return nil, err
			}
			creds[config.KeyIndexPass] = pass
		}
		return es.New(es.Config{
			Addresses: cfg.Index.Addresses,
			Index:     indexName,
			Username:  creds[config.KeyIndexUser],
			Password:  creds[config.KeyIndexPass],
			Insecure:  true,
		})
	default:
		return nil, fmt.Errorf("unknown index backend: %s", cfg.Index.Backend)
	}
}

func indexNameOrDefault(cfg *config.Config, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if cfg.Index.Name != "" {
		return cfg.Index.Name, nil
	}
	fmt.Fprintln(os.Stderr, "error: index name required (--index or index.name in config)")
	return "", fmt.Errorf("index name required")
}
