package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/problembook/internal/api"
	"github.com/jackzampolin/problembook/internal/storage"
	"github.com/jackzampolin/problembook/internal/svcctx"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 200
)

// ProblemResponse is a problem with its preferred solution, if any.
type ProblemResponse struct {
	storage.Problem
	Solution *storage.Solution `json:"solution,omitempty"`
}

// GetProblemEndpoint handles GET /api/problems/{id}.
type GetProblemEndpoint struct{}

func (e *GetProblemEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/problems/{id}", e.handler
}

func (e *GetProblemEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get problem
//	@Description	Get a problem and its preferred solution (verified first, then highest rated, then newest)
//	@Tags			problems
//	@Produce		json
//	@Param			id	path		string	true	"Problem ID, e.g. algebra-7:1:102"
//	@Success		200	{object}	ProblemResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/problems/{id} [get]
func (e *GetProblemEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.StorageFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "storage not initialized")
		return
	}
	id := r.PathValue("id")
	problem, err := store.GetProblem(r.Context(), id)
	if err != nil {
		writeServiceError(w, fmt.Errorf("problem %s: %w", id, err))
		return
	}

	resp := ProblemResponse{Problem: *problem}
	if problem.HasSolution {
		sol, err := store.GetSolutionForProblem(r.Context(), id)
		switch {
		case err == nil:
			resp.Solution = sol
		case !errors.Is(err, storage.ErrNotFound):
			writeServiceError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *GetProblemEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <problem-id>",
		Short: "Get a problem and its solution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ProblemResponse
			if err := client.Get(cmd.Context(), "/api/problems/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// SearchFormulasResponse is the response for formula search.
type SearchFormulasResponse struct {
	Query    string            `json:"query"`
	Problems []storage.Problem `json:"problems"`
	Cached   bool              `json:"cached"`
}

// SearchFormulasEndpoint handles GET /api/formulas.
type SearchFormulasEndpoint struct{}

func (e *SearchFormulasEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/formulas", e.handler
}

func (e *SearchFormulasEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Search problems by formula
//	@Description	Substring search over extracted LaTeX formulas. Results are cached per normalized query.
//	@Tags			problems
//	@Produce		json
//	@Param			q		query		string	true	"Formula fragment, e.g. x^2"
//	@Param			limit	query		int		false	"Maximum results"	default(20)
//	@Success		200		{object}	SearchFormulasResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/formulas [get]
func (e *SearchFormulasEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.StorageFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "storage not initialized")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, err := intQuery(r, "limit", defaultSearchLimit)
	if err != nil || limit < 1 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	limit = min(limit, maxSearchLimit)

	// The cache holds the widest result for a query; smaller limits slice it.
	fc := svcctx.FormulaCacheFrom(r.Context())
	if fc != nil {
		if hit, ok := fc.Get(q); ok {
			writeJSON(w, http.StatusOK, SearchFormulasResponse{Query: q, Problems: hit[:min(limit, len(hit))], Cached: true})
			return
		}
	}

	problems, err := store.SearchByFormula(r.Context(), q, maxSearchLimit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if problems == nil {
		problems = []storage.Problem{}
	}
	if fc != nil {
		fc.Set(q, problems)
	}
	writeJSON(w, http.StatusOK, SearchFormulasResponse{Query: q, Problems: problems[:min(limit, len(problems))]})
}

func (e *SearchFormulasEndpoint) Command(getServerURL func() string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search problems by formula",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("q", args[0])
			q.Set("limit", strconv.Itoa(limit))
			client := api.NewClient(getServerURL())
			var resp SearchFormulasResponse
			if err := client.Get(cmd.Context(), "/api/formulas?"+q.Encode(), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultSearchLimit, "Maximum results")
	return cmd
}

// AskRequest is the body of the hint and solve endpoints.
type AskRequest struct {
	Provider string `json:"provider,omitempty"`
	// Theory is optional chapter theory passed to the model as context.
	Theory string `json:"theory,omitempty"`
	// Level is the hint strength, 1 (nudge) to 3 (outline). Hint only.
	Level int `json:"level,omitempty"`
}

// HintResponse carries a generated hint.
type HintResponse struct {
	ProblemID string `json:"problem_id"`
	Provider  string `json:"provider"`
	Level     int    `json:"level"`
	Hint      string `json:"hint"`
}

// HintEndpoint handles POST /api/problems/{id}/hint.
type HintEndpoint struct{}

func (e *HintEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/problems/{id}/hint", e.handler
}

func (e *HintEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a hint
//	@Description	Ask a model for a hint without revealing the answer. Hints are not stored.
//	@Tags			problems
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Problem ID"
//	@Param			request	body		AskRequest	false	"Provider and level"
//	@Success		200		{object}	HintResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/problems/{id}/hint [post]
func (e *HintEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	req, problem, ok := readAsk(w, r)
	if !ok {
		return
	}
	if req.Level == 0 {
		req.Level = 1
	}
	if req.Level < 1 || req.Level > 3 {
		writeError(w, http.StatusBadRequest, "level must be between 1 and 3")
		return
	}

	solver := svcctx.SolverFrom(r.Context())
	provider := req.Provider
	if provider == "" {
		provider = solver.Default()
	}
	hint, err := solver.Hint(r.Context(), problem, provider, req.Theory, req.Level)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HintResponse{ProblemID: problem.ID, Provider: provider, Level: req.Level, Hint: hint})
}

func (e *HintEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req AskRequest
	cmd := &cobra.Command{
		Use:   "hint <problem-id>",
		Short: "Ask for a hint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HintResponse
			if err := client.Post(cmd.Context(), "/api/problems/"+url.PathEscape(args[0])+"/hint", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&req.Provider, "provider", "p", "", "Model provider")
	cmd.Flags().IntVarP(&req.Level, "level", "l", 1, "Hint level 1-3")
	return cmd
}

// SolveEndpoint handles POST /api/problems/{id}/solve.
type SolveEndpoint struct{}

func (e *SolveEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/problems/{id}/solve", e.handler
}

func (e *SolveEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Solve one problem
//	@Description	Generate and store a solution synchronously. A previous solution from the same provider is replaced.
//	@Tags			problems
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Problem ID"
//	@Param			request	body		AskRequest	false	"Provider"
//	@Success		200		{object}	storage.Solution
//	@Failure		404		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/problems/{id}/solve [post]
func (e *SolveEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	req, problem, ok := readAsk(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	store := svcctx.StorageFrom(ctx)

	sol, err := svcctx.SolverFrom(ctx).Solve(ctx, problem, req.Provider, req.Theory)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := store.SaveSolution(ctx, sol); err != nil {
		writeServiceError(w, fmt.Errorf("failed to save solution: %w", err))
		return
	}
	if err := store.UpdateProblemSolutionStatus(ctx, problem.ID, true); err != nil {
		writeServiceError(w, fmt.Errorf("failed to update problem: %w", err))
		return
	}
	if exp := svcctx.ExporterFrom(ctx); exp != nil {
		book, _, _ := strings.Cut(problem.ID, ":")
		exp.Invalidate(book)
	}
	writeJSON(w, http.StatusOK, sol)
}

func (e *SolveEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req AskRequest
	cmd := &cobra.Command{
		Use:   "solve <problem-id>",
		Short: "Solve one problem now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp storage.Solution
			if err := client.Post(cmd.Context(), "/api/problems/"+url.PathEscape(args[0])+"/solve", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&req.Provider, "provider", "p", "", "Model provider")
	return cmd
}

// readAsk decodes an optional AskRequest body and loads the problem. It
// writes the error response and returns false on failure.
func readAsk(w http.ResponseWriter, r *http.Request) (AskRequest, *storage.Problem, bool) {
	var req AskRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return req, nil, false
		}
	}
	store := svcctx.StorageFrom(r.Context())
	if store == nil || svcctx.SolverFrom(r.Context()) == nil {
		writeError(w, http.StatusServiceUnavailable, "solver not initialized")
		return req, nil, false
	}
	id := r.PathValue("id")
	problem, err := store.GetProblem(r.Context(), id)
	if err != nil {
		writeServiceError(w, fmt.Errorf("problem %s: %w", id, err))
		return req, nil, false
	}
	return req, problem, true
}
