package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/problembook/internal/api"
	"github.com/jackzampolin/problembook/internal/batch"
	"github.com/jackzampolin/problembook/internal/export"
	"github.com/jackzampolin/problembook/internal/jobs"
	"github.com/jackzampolin/problembook/internal/svcctx"
)

// startJob answers a Start* call. A rejected request still created a failed
// job, so its id is returned alongside the error.
func startJob(w http.ResponseWriter, id string, err error) {
	if err != nil {
		writeJSON(w, statusFor(err), struct {
			ErrorResponse
			JobID string `json:"job_id,omitempty"`
		}{ErrorResponse{Error: err.Error()}, id})
		return
	}
	writeJSON(w, http.StatusAccepted, JobStartedResponse{JobID: id, Status: string(jobs.StatePending)})
}

// StartOCREndpoint handles POST /api/jobs/ocr.
type StartOCREndpoint struct{}

func (e *StartOCREndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/jobs/ocr", e.handler
}

func (e *StartOCREndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start batch OCR
//	@Description	OCR an inclusive page range, parse problems and store them. Returns immediately with the job id.
//	@Tags			jobs
//	@Accept			json
//	@Produce		json
//	@Param			request	body		batch.OCRRequest	true	"Page range"
//	@Success		202		{object}	JobStartedResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/jobs/ocr [post]
func (e *StartOCREndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req batch.OCRRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bp := svcctx.BatchFrom(r.Context())
	if bp == nil {
		writeError(w, http.StatusServiceUnavailable, "batch processor not initialized")
		return
	}
	id, err := bp.StartBatchOCR(r.Context(), req)
	startJob(w, id, err)
}

func (e *StartOCREndpoint) Command(getServerURL func() string) *cobra.Command {
	var req batch.OCRRequest
	var watch bool
	cmd := &cobra.Command{
		Use:   "ocr <book-id>",
		Short: "Start batch OCR over a page range",
		Long: `OCR pages [start, end] of a book, parse the problems on each page,
stitch problems that span pages and store the result.

Pages that already have stored OCR text reuse it unless --force is set.
With --incremental those pages are skipped entirely.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.BookID = args[0]
			if req.EndPage == 0 {
				req.EndPage = req.StartPage
			}
			return postJob(cmd, getServerURL(), "/api/jobs/ocr", req, watch)
		},
	}
	cmd.Flags().IntVar(&req.StartPage, "start", 1, "First page (1-based)")
	cmd.Flags().IntVar(&req.EndPage, "end", 0, "Last page, inclusive (defaults to --start)")
	cmd.Flags().StringVar(&req.ChapterID, "chapter", "", "Chapter id the problems belong to (e.g. algebra-7:1)")
	cmd.Flags().BoolVar(&req.Incremental, "incremental", false, "Skip pages that already have OCR text")
	cmd.Flags().BoolVar(&req.Force, "force", false, "Re-run OCR even when stored text exists")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the job until it finishes")
	return cmd
}

// StartSolveRequest is the body of POST /api/jobs/solve.
type StartSolveRequest struct {
	ProblemIDs []string `json:"problem_ids"`
	Provider   string   `json:"provider,omitempty"`
}

// StartSolveEndpoint handles POST /api/jobs/solve.
type StartSolveEndpoint struct{}

func (e *StartSolveEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/jobs/solve", e.handler
}

func (e *StartSolveEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start batch solve
//	@Description	Generate AI solutions for a list of problems, one at a time. Problems that already have a solution are skipped.
//	@Tags			jobs
//	@Accept			json
//	@Produce		json
//	@Param			request	body		StartSolveRequest	true	"Problems to solve"
//	@Success		202		{object}	JobStartedResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/jobs/solve [post]
func (e *StartSolveEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req StartSolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bp := svcctx.BatchFrom(r.Context())
	if bp == nil {
		writeError(w, http.StatusServiceUnavailable, "batch processor not initialized")
		return
	}
	id, err := bp.StartBatchSolve(r.Context(), req.ProblemIDs, req.Provider)
	startJob(w, id, err)
}

func (e *StartSolveEndpoint) Command(getServerURL func() string) *cobra.Command {
	var provider string
	var watch bool
	cmd := &cobra.Command{
		Use:   "solve <problem-id>...",
		Short: "Start batch solve for problems",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := StartSolveRequest{ProblemIDs: args, Provider: provider}
			return postJob(cmd, getServerURL(), "/api/jobs/solve", req, watch)
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Solver provider (claude, openai, mistral, deepseek)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the job until it finishes")
	return cmd
}

// StartExportRequest is the body of POST /api/jobs/export.
type StartExportRequest struct {
	BookID string `json:"book_id"`
	Format string `json:"format"`
}

// StartExportEndpoint handles POST /api/jobs/export.
type StartExportEndpoint struct{}

func (e *StartExportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/jobs/export", e.handler
}

func (e *StartExportEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start export
//	@Description	Render a book in the background. The result is cached; fetch it with GET /api/books/{id}/export.
//	@Tags			jobs
//	@Accept			json
//	@Produce		json
//	@Param			request	body		StartExportRequest	true	"Book and format"
//	@Success		202		{object}	JobStartedResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/jobs/export [post]
func (e *StartExportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req StartExportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bp := svcctx.BatchFrom(r.Context())
	if bp == nil {
		writeError(w, http.StatusServiceUnavailable, "batch processor not initialized")
		return
	}
	id, err := bp.StartExport(r.Context(), req.BookID, req.Format)
	startJob(w, id, err)
}

func (e *StartExportEndpoint) Command(getServerURL func() string) *cobra.Command {
	var format string
	var watch bool
	cmd := &cobra.Command{
		Use:   "export <book-id>",
		Short: "Start an export job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := StartExportRequest{BookID: args[0], Format: format}
			return postJob(cmd, getServerURL(), "/api/jobs/export", req, watch)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.Markdown), fmt.Sprintf("Export format %v", export.Formats()))
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the job until it finishes")
	return cmd
}

// postJob starts a job and either prints the id or follows it to the end.
func postJob(cmd *cobra.Command, serverURL, path string, body any, watch bool) error {
	client := api.NewClient(serverURL)
	var resp JobStartedResponse
	if err := client.Post(cmd.Context(), path, body, &resp); err != nil {
		return err
	}
	if !watch {
		return api.Output(resp)
	}
	return watchJob(cmd.Context(), client, resp.JobID, cmd.ErrOrStderr())
}
