package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/problembook/internal/api"
	"github.com/jackzampolin/problembook/internal/ingest"
	"github.com/jackzampolin/problembook/internal/server"
)

var ingestReq ingest.Request

var ingestCmd = &cobra.Command{
	Use:   "ingest <pdf-path>",
	Short: "Register a textbook PDF in local storage",
	Long: `Register a textbook PDF as a book directly in the configured storage,
without a running server. The PDF is copied into the resources directory.
With --render every page is rendered to a preview PNG for OCR.

Use 'problembook api books ingest' to ingest through a running server
instead; sqlite allows only one writer at a time.

Examples:
  problembook ingest ~/scans/algebra-7.pdf --render
  problembook ingest geometry.pdf --id geometry-8 --title "Геометрия 8"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		logger := newLogger(cfg)

		h, err := getHome(cfg)
		if err != nil {
			return err
		}
		store, _, err := server.OpenStorage(ctx, cfg, h, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		svc := ingest.New(ingest.Config{Books: store, Layout: h, Logger: logger})
		req := ingestReq
		req.PDFPath = args[0]
		res, err := svc.Ingest(ctx, req)
		if err != nil {
			return err
		}
		return api.Output(res)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestReq.BookID, "id", "", "Book id (default: derived from the file name)")
	ingestCmd.Flags().StringVar(&ingestReq.Title, "title", "", "Book title")
	ingestCmd.Flags().StringVar(&ingestReq.Author, "author", "", "Book author")
	ingestCmd.Flags().StringVar(&ingestReq.Subject, "subject", "", "Subject, e.g. algebra")
	ingestCmd.Flags().BoolVar(&ingestReq.RenderPreviews, "render", false, "Render page previews after ingest")

	rootCmd.AddCommand(ingestCmd)
}
