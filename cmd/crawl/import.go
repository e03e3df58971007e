package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/durck/crawl/pkg/indexer/bridge"
)

var (
	importIndexName string
	importInit      bool
	importDrop      bool
	importDelete    bool
	importBatchSize int
)

var importCmd = &cobra.Command{
	Use:   "import [csv]",
	Short: "Load a completed crawl CSV into the full-text index",
	Long: `Batch-upsert the records of a crawl CSV into the configured search
index. The CSV may belong to a crawl still in flight; the importer stops
at the last complete row. With --init the index is created first; --drop
deletes it; --delete removes the CSV's documents instead of adding them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importIndexName, "index", "i", "", "Index name")
	importCmd.Flags().BoolVar(&importInit, "init", false, "Create the index with its mappings")
	importCmd.Flags().BoolVar(&importDrop, "drop", false, "Delete the index")
	importCmd.Flags().BoolVar(&importDelete, "delete", false, "Delete the CSV's documents instead of importing")
	importCmd.Flags().IntVar(&importBatchSize, "batch", 0, "Batch size (default: index.batch-size)")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	name, err := indexNameOrDefault(cfg, importIndexName)
	if err != nil {
		return err
	}
	ix, err := newIndexer(cfg, name)
	if err != nil {
		return err
	}
	defer ix.Close()

	if importDrop {
		if err := ix.Drop(); err != nil {
			return fmt.Errorf("dropping index: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Index dropped: %s\n", name)
		return nil
	}
	if importInit {
		if err := ix.Init(); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Index created: %s\n", name)
		if len(args) == 0 {
			return nil
		}
	}
	if len(args) == 0 {
		return fmt.Errorf("csv file required (or use --init/--drop)")
	}

	batch := importBatchSize
	if batch <= 0 {
		batch = cfg.Index.BatchSize
	}
	im := bridge.NewImporter(ix, batch, logger)

	if importDelete {
		res, err := im.Delete(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Done: %d documents deleted, %d errors\n", res.Total, res.Errors)
		return nil
	}

	res, err := im.Import(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Done: %d documents imported, %d errors\n", res.Total, res.Errors)
	return nil
}
