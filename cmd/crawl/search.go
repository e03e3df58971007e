package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/durck/crawl/pkg/indexer"
)

var (
	searchIndexName string
	searchCount     int
	searchOffset    int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the full-text index from the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchIndexName, "index", "i", "", "Index name")
	searchCmd.Flags().IntVarP(&searchCount, "count", "c", 10, "Results per page")
	searchCmd.Flags().IntVarP(&searchOffset, "offset", "o", 0, "Results offset")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	name, err := indexNameOrDefault(cfg, searchIndexName)
	if err != nil {
		return err
	}
	ix, err := newIndexer(cfg, name)
	if err != nil {
		return err
	}
	defer ix.Close()

	res, err := ix.Search(indexer.Query{
		Expression: args[0],
		From:       searchOffset,
		Size:       searchCount,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(out, "%s\n\n", cyan(fmt.Sprintf("Found %d results", res.Total)))
	for _, hit := range res.Hits {
		location := ""
		if hit.Doc.Server != "" {
			location = fmt.Sprintf(" [%s/%s]", hit.Doc.Server, hit.Doc.Share)
		}
		fmt.Fprintf(out, "%s%s %s\n", green(hit.Doc.URL), cyan(location), dim(hit.Doc.ID))
		if len(hit.Highlights) > 0 {
			fmt.Fprintln(out, strings.Join(hit.Highlights, " ... "))
		}
		fmt.Fprintln(out)
	}
	return nil
}
