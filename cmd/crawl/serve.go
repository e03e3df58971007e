package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/durck/crawl/pkg/serve"
)

var (
	serveAddr      string
	serveIndexName string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only search API over HTTP",
	Long: `Expose the full-text index behind a small read-only HTTP façade:
GET /search?q=  ranked hits with highlights
GET /suggest?q= title autocompletion
GET /cache/{id} stored document text
GET /healthz, GET /metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVarP(&serveIndexName, "index", "i", "", "Index name")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	name, err := indexNameOrDefault(cfg, serveIndexName)
	if err != nil {
		return err
	}
	ix, err := newIndexer(cfg, name)
	if err != nil {
		return err
	}
	defer ix.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := serve.New(ix, reg, logger)
	return srv.ListenAndServe(serveAddr)
}
