package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jackzampolin/problembook/internal/config"
	"github.com/jackzampolin/problembook/internal/jobs"
	"github.com/jackzampolin/problembook/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer writes a memory-backed config on an ephemeral port.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf(`server:
  host: 127.0.0.1
  port: 0
storage:
  backend: memory
paths:
  resources_dir: %[1]s/resources
  preview_dir: %[1]s/resources/.preview
  ocr_cache_dir: %[1]s/resources/.ocr_cache
`, dir)
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	mgr, err := config.NewManager(cfgPath)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	srv, err := New(Config{ConfigManager: mgr, HomePath: filepath.Join(dir, "home"), Logger: testLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

// startServer runs srv until the test ends and returns its base URL.
func startServer(t *testing.T, srv *Server) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		cancel()
		t.Fatalf("Start() error = %v", err)
	case <-time.After(10 * time.Second):
		cancel()
		t.Fatal("server did not become ready")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Start() returned %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Error("server did not stop")
		}
	})
	return "http://" + srv.Addr()
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestServer_Lifecycle(t *testing.T) {
	srv := newTestServer(t)
	baseURL := startServer(t, srv)

	if !srv.IsRunning() {
		t.Error("IsRunning() = false after Ready")
	}

	t.Run("health", func(t *testing.T) {
		var body map[string]string
		if code := getJSON(t, baseURL+"/health", &body); code != http.StatusOK || body["status"] != "ok" {
			t.Errorf("health = %d %v", code, body)
		}
	})

	t.Run("ready", func(t *testing.T) {
		var body map[string]string
		if code := getJSON(t, baseURL+"/ready", &body); code != http.StatusOK {
			t.Errorf("ready = %d %v", code, body)
		}
	})

	t.Run("status", func(t *testing.T) {
		var body struct {
			Storage string `json:"storage"`
			Jobs    int    `json:"jobs"`
		}
		if code := getJSON(t, baseURL+"/status", &body); code != http.StatusOK || body.Storage != "memory" {
			t.Errorf("status = %d %+v", code, body)
		}
	})

	t.Run("empty books", func(t *testing.T) {
		var body struct {
			Books []storage.Book `json:"books"`
		}
		if code := getJSON(t, baseURL+"/api/books", &body); code != http.StatusOK || len(body.Books) != 0 {
			t.Errorf("books = %d %+v", code, body)
		}
	})

	t.Run("double start", func(t *testing.T) {
		if err := srv.Start(context.Background()); err == nil {
			t.Error("second Start() succeeded")
		}
	})
}

func TestServer_ExportJobOverWebsocket(t *testing.T) {
	srv := newTestServer(t)
	baseURL := startServer(t, srv)

	ctx := context.Background()
	store := srv.Services().Storage
	if err := store.CreateBook(ctx, &storage.Book{ID: "geometry-8", Title: "Геометрия 8"}); err != nil {
		t.Fatal(err)
	}
	if err := store.EnsureChapter(ctx, &storage.Chapter{ID: "geometry-8:1", BookID: "geometry-8", Number: 1, Title: "Четырёхугольники"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateOrUpdateProblems(ctx, []storage.Problem{{
		ID:            "geometry-8:1:12",
		ChapterID:     "geometry-8:1",
		Number:        "12",
		DisplayName:   "12",
		Content:       "Найдите угол $\\alpha$.",
		LatexFormulas: []string{"\\alpha"},
	}}); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(baseURL+"/api/jobs/export", "application/json",
		strings.NewReader(`{"book_id":"geometry-8","format":"md"}`))
	if err != nil {
		t.Fatal(err)
	}
	var started struct {
		JobID string `json:"job_id"`
	}
	json.NewDecoder(resp.Body).Decode(&started)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted || started.JobID == "" {
		t.Fatalf("start export = %d %+v", resp.StatusCode, started)
	}

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/jobs/" + started.JobID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	var last jobs.StatusView
	for {
		var v jobs.StatusView
		if err := conn.ReadJSON(&v); err != nil {
			break
		}
		last = v
	}
	if last.Status != jobs.StateCompleted {
		t.Fatalf("final status = %+v", last)
	}

	resp, err = http.Get(baseURL + "/api/books/geometry-8/export?format=md")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "\\alpha") {
		t.Errorf("export = %d\n%s", resp.StatusCode, body)
	}
}

func TestServer_RejectedJobKeepsID(t *testing.T) {
	srv := newTestServer(t)
	baseURL := startServer(t, srv)

	resp, err := http.Post(baseURL+"/api/jobs/export", "application/json",
		strings.NewReader(`{"book_id":"geometry-8","format":"pdf"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusBadRequest || body["job_id"] == "" || body["error"] == "" {
		t.Errorf("rejected export = %d %v", resp.StatusCode, body)
	}
}

func TestServer_StopsOnCancel(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case <-srv.Ready():
	case <-time.After(10 * time.Second):
		t.Fatal("server did not become ready")
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func TestServer_RequireInit(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/api/books", http.StatusServiceUnavailable},
		{"/api/jobs", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if code := getJSON(t, ts.URL+tt.path, nil); code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, code, tt.want)
			}
		})
	}
}

func TestOpenStorage_UnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "cassandra"
	dir, err := NewHome(t.TempDir(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := OpenStorage(context.Background(), cfg, dir, testLogger()); err == nil {
		t.Error("OpenStorage() accepted an unknown backend")
	}
}

func TestOpenStorage_SQLiteDefaultPath(t *testing.T) {
	cfg := config.DefaultConfig()
	dir, err := NewHome(t.TempDir(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatal(err)
	}
	store, client, err := OpenStorage(context.Background(), cfg, dir, testLogger())
	if err != nil {
		t.Fatalf("OpenStorage() error = %v", err)
	}
	defer store.Close()
	if client != nil {
		t.Error("sqlite backend returned a defra client")
	}
	if _, err := os.Stat(dir.DatabasePath()); err != nil {
		t.Errorf("database file: %v", err)
	}
}
