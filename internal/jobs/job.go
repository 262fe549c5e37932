package jobs

import (
	"time"
)

// Kind identifies the job variant.
type Kind string

const (
	KindBatchOCR   Kind = "batch_ocr"
	KindBatchSolve Kind = "batch_solve"
	KindExport     Kind = "export"
)

// BatchOCRParams describes an OCR run over an inclusive page range.
type BatchOCRParams struct {
	BookID    string `json:"book_id"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
	ChapterID string `json:"chapter_id"`
}

// BatchSolveParams describes an AI solve run over a list of problems.
type BatchSolveParams struct {
	ProblemIDs []string `json:"problem_ids"`
	Provider   string   `json:"provider"`
}

// ExportParams describes rendering a book into a file format.
type ExportParams struct {
	BookID string `json:"book_id"`
	Format string `json:"format"`
}

// JobType is a tagged variant: Kind selects which payload is set.
type JobType struct {
	Kind       Kind              `json:"kind"`
	BatchOCR   *BatchOCRParams   `json:"batch_ocr,omitempty"`
	BatchSolve *BatchSolveParams `json:"batch_solve,omitempty"`
	Export     *ExportParams     `json:"export,omitempty"`
}

// BatchOCR builds a batch OCR job type.
func BatchOCR(bookID string, start, end int, chapterID string) JobType {
	return JobType{Kind: KindBatchOCR, BatchOCR: &BatchOCRParams{
		BookID: bookID, StartPage: start, EndPage: end, ChapterID: chapterID,
	}}
}

// BatchSolve builds a batch solve job type.
func BatchSolve(problemIDs []string, provider string) JobType {
	return JobType{Kind: KindBatchSolve, BatchSolve: &BatchSolveParams{
		ProblemIDs: append([]string(nil), problemIDs...), Provider: provider,
	}}
}

// Export builds an export job type.
func Export(bookID, format string) JobType {
	return JobType{Kind: KindExport, Export: &ExportParams{BookID: bookID, Format: format}}
}

// State is the lifecycle position of a job.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Status is the job state plus the payload of that state. Progress and
// Message belong to Running, Result to Completed, Error to Failed.
type Status struct {
	State    State
	Progress float64
	Message  string
	Result   any
	Error    string
}

// Job is a registered background job.
type Job struct {
	ID        string
	Type      JobType
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StatusView is the read-only shape exposed to clients.
type StatusView struct {
	JobID     string   `json:"job_id"`
	Kind      Kind     `json:"kind"`
	Status    State    `json:"status"`
	Progress  *float64 `json:"progress"`
	Message   *string  `json:"message"`
	Result    any      `json:"result"`
	Error     *string  `json:"error"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// View renders the job for clients with RFC3339 timestamps.
func (j *Job) View() StatusView {
	v := StatusView{
		JobID:     j.ID,
		Kind:      j.Type.Kind,
		Status:    j.Status.State,
		CreatedAt: j.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.UTC().Format(time.RFC3339),
	}
	switch j.Status.State {
	case StateRunning:
		p, m := j.Status.Progress, j.Status.Message
		v.Progress, v.Message = &p, &m
	case StateCompleted:
		p := 100.0
		v.Progress = &p
		v.Result = j.Status.Result
	case StateFailed:
		e := j.Status.Error
		v.Error = &e
	}
	return v
}

func (j *Job) clone() *Job {
	c := *j
	return &c
}
