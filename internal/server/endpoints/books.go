package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/problembook/internal/api"
	"github.com/jackzampolin/problembook/internal/export"
	"github.com/jackzampolin/problembook/internal/ingest"
	"github.com/jackzampolin/problembook/internal/storage"
	"github.com/jackzampolin/problembook/internal/svcctx"
)

// ListBooksResponse is the response for listing books.
type ListBooksResponse struct {
	Books []storage.Book `json:"books"`
}

// ListBooksEndpoint handles GET /api/books.
type ListBooksEndpoint struct{}

func (e *ListBooksEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books", e.handler
}

func (e *ListBooksEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	List books
//	@Tags		books
//	@Produce	json
//	@Success	200	{object}	ListBooksResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/api/books [get]
func (e *ListBooksEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.StorageFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "storage not initialized")
		return
	}
	books, err := store.ListBooks(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if books == nil {
		books = []storage.Book{}
	}
	writeJSON(w, http.StatusOK, ListBooksResponse{Books: books})
}

func (e *ListBooksEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List books",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListBooksResponse
			if err := client.Get(cmd.Context(), "/api/books", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// BookResponse is a book with its chapters.
type BookResponse struct {
	storage.Book
	Chapters []storage.Chapter `json:"chapters"`
}

// GetBookEndpoint handles GET /api/books/{id}.
type GetBookEndpoint struct{}

func (e *GetBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}", e.handler
}

func (e *GetBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Get book
//	@Tags		books
//	@Produce	json
//	@Param		id	path		string	true	"Book ID"
//	@Success	200	{object}	BookResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/books/{id} [get]
func (e *GetBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.StorageFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "storage not initialized")
		return
	}
	id := r.PathValue("id")
	book, err := store.GetBook(r.Context(), id)
	if err != nil {
		writeServiceError(w, fmt.Errorf("book %s: %w", id, err))
		return
	}
	chapters, err := store.ListChapters(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if chapters == nil {
		chapters = []storage.Chapter{}
	}
	writeJSON(w, http.StatusOK, BookResponse{Book: *book, Chapters: chapters})
}

func (e *GetBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <book-id>",
		Short: "Get a book and its chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp BookResponse
			if err := client.Get(cmd.Context(), "/api/books/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// IngestEndpoint handles POST /api/books/ingest.
type IngestEndpoint struct{}

func (e *IngestEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books/ingest", e.handler
}

func (e *IngestEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Ingest a textbook PDF
//	@Description	Register a PDF already on the server's filesystem as a book and optionally render page previews
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ingest.Request	true	"Ingest request"
//	@Success		201		{object}	ingest.Result
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/books/ingest [post]
func (e *IngestEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ingest.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	svc := svcctx.IngestFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "ingest not initialized")
		return
	}
	res, err := svc.Ingest(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (e *IngestEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req ingest.Request
	cmd := &cobra.Command{
		Use:   "ingest <pdf-path>",
		Short: "Register a PDF on the server as a book",
		Long: `Register a textbook PDF as a book. The path is resolved on the server.

For a local ingest without a running server use "problembook ingest".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.PDFPath = args[0]
			client := api.NewClient(getServerURL())
			var resp ingest.Result
			if err := client.Post(cmd.Context(), "/api/books/ingest", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&req.BookID, "id", "", "Book id (defaults to the file name)")
	cmd.Flags().StringVar(&req.Title, "title", "", "Book title")
	cmd.Flags().StringVar(&req.Author, "author", "", "Book author")
	cmd.Flags().StringVar(&req.Subject, "subject", "", "Subject, e.g. algebra")
	cmd.Flags().BoolVar(&req.RenderPreviews, "render", false, "Render page previews after registering")
	return cmd
}

// RenderPreviewsRequest is the body of POST /api/books/{id}/previews.
type RenderPreviewsRequest struct {
	StartPage int  `json:"start_page"`
	EndPage   int  `json:"end_page"`
	Force     bool `json:"force,omitempty"`
}

// RenderPreviewsResponse reports how many preview images were written.
type RenderPreviewsResponse struct {
	BookID   string `json:"book_id"`
	Rendered int    `json:"rendered"`
}

// RenderPreviewsEndpoint handles POST /api/books/{id}/previews.
type RenderPreviewsEndpoint struct{}

func (e *RenderPreviewsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books/{id}/previews", e.handler
}

func (e *RenderPreviewsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Render page previews
//	@Description	Render pages of a registered book to the PNG images OCR reads. Existing images are kept unless force is set.
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Book ID"
//	@Param			request	body		RenderPreviewsRequest	true	"Page range"
//	@Success		200		{object}	RenderPreviewsResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/books/{id}/previews [post]
func (e *RenderPreviewsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req RenderPreviewsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	svc := svcctx.IngestFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "ingest not initialized")
		return
	}
	id := r.PathValue("id")
	n, err := svc.RenderPreviews(r.Context(), id, req.StartPage, req.EndPage, req.Force)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RenderPreviewsResponse{BookID: id, Rendered: n})
}

func (e *RenderPreviewsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req RenderPreviewsRequest
	cmd := &cobra.Command{
		Use:   "previews <book-id>",
		Short: "Render page preview images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp RenderPreviewsResponse
			path := "/api/books/" + url.PathEscape(args[0]) + "/previews"
			if err := client.Post(cmd.Context(), path, req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&req.StartPage, "start", 1, "First page")
	cmd.Flags().IntVar(&req.EndPage, "end", 1<<30, "Last page (defaults to the end of the book)")
	cmd.Flags().BoolVar(&req.Force, "force", false, "Re-render existing images")
	return cmd
}

// ExportBookEndpoint handles GET /api/books/{id}/export.
type ExportBookEndpoint struct{}

func (e *ExportBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}/export", e.handler
}

func (e *ExportBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Export book
//	@Description	Render a book's problems and solutions. Formats: markdown, latex, json, anki, xlsx, html.
//	@Tags			books
//	@Produce		octet-stream
//	@Param			id		path		string	true	"Book ID"
//	@Param			format	query		string	false	"Export format"	default(markdown)
//	@Success		200		{file}		file
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/books/{id}/export [get]
func (e *ExportBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	exporter := svcctx.ExporterFrom(r.Context())
	if exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "exporter not initialized")
		return
	}
	raw := r.URL.Query().Get("format")
	if raw == "" {
		raw = string(export.Markdown)
	}
	format, err := export.ParseFormat(raw)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	id := r.PathValue("id")
	data, err := exporter.Export(r.Context(), id, format)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.MimeType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+"."+format.Extension()))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (e *ExportBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export <book-id>",
		Short: "Download a book export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if output == "" {
				output = args[0] + "." + f.Extension()
			}
			client := api.NewClient(getServerURL())
			path := "/api/books/" + url.PathEscape(args[0]) + "/export?format=" + url.QueryEscape(string(f))
			data, _, err := client.GetRaw(cmd.Context(), path)
			if err != nil {
				return err
			}
			if err := api.WriteFile(output, data); err != nil {
				return err
			}
			if output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", len(data), output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.Markdown), fmt.Sprintf("Export format %v", export.Formats()))
	cmd.Flags().StringVar(&output, "out", "", "Output file, - for stdout (defaults to <book-id>.<ext>)")
	return cmd
}
