package endpoints

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/problembook/internal/api"
	"github.com/jackzampolin/problembook/internal/jobs"
	"github.com/jackzampolin/problembook/internal/svcctx"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// WatchJobEndpoint handles GET /api/jobs/{id}/ws.
type WatchJobEndpoint struct{}

func (e *WatchJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs/{id}/ws", e.handler
}

func (e *WatchJobEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Stream job status
//	@Description	Upgrades to a websocket and sends a jobs.StatusView JSON message after every transition. The server closes the socket once the job is terminal.
//	@Tags			jobs
//	@Param			id	path	string	true	"Job ID"
//	@Success		101
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/jobs/{id}/ws [get]
func (e *WatchJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jm := svcctx.JobManagerFrom(r.Context())
	if jm == nil {
		writeError(w, http.StatusServiceUnavailable, "job manager not initialized")
		return
	}
	id := r.PathValue("id")
	if _, ok := jm.GetJob(id); !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	updates, cancel := jm.Subscribe(id)
	defer cancel()

	// Drain client frames so close messages and pongs are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	logger := svcctx.LoggerFrom(r.Context()).With("job_id", id)
	for {
		select {
		case v, ok := <-updates:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(v); err != nil {
				logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (e *WatchJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <id>",
		Short: "Stream job status until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchJob(cmd.Context(), api.NewClient(getServerURL()), args[0], cmd.ErrOrStderr())
		},
	}
}

// watchJob follows a job over its websocket, printing progress lines to
// progress and the final status through api.Output.
func watchJob(ctx context.Context, client *api.Client, id string, progress io.Writer) error {
	url, err := client.WebsocketURL("/api/jobs/" + id + "/ws")
	if err != nil {
		return err
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("watch job %s: %s", id, resp.Status)
		}
		return fmt.Errorf("watch job %s: %w", id, err)
	}
	defer conn.Close()

	var last jobs.StatusView
	for {
		var v jobs.StatusView
		if err := conn.ReadJSON(&v); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && last.JobID != "" {
				break
			}
			return fmt.Errorf("watch job %s: %w", id, err)
		}
		last = v
		if v.Progress != nil && v.Message != nil {
			fmt.Fprintf(progress, "[%5.1f%%] %s\n", *v.Progress, *v.Message)
		}
		if v.Status.IsTerminal() {
			break
		}
	}
	return api.Output(last)
}
