package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T) (*Manager, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)}
	m := NewManager(ManagerConfig{Now: clock.Now})
	t.Cleanup(m.Shutdown)
	return m, clock
}

func flush(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func TestManager_CreateAndGet(t *testing.T) {
	m, _ := newTestManager(t)

	id := m.CreateJob(BatchOCR("algebra-7", 1, 10, "algebra-7:1"))
	if id == "" {
		t.Fatal("empty job id")
	}

	j, ok := m.GetJob(id)
	if !ok {
		t.Fatal("job not visible immediately after CreateJob")
	}
	if j.Status.State != StatePending {
		t.Errorf("state = %s, want pending", j.Status.State)
	}
	if j.Type.Kind != KindBatchOCR || j.Type.BatchOCR.EndPage != 10 {
		t.Errorf("type = %+v", j.Type)
	}

	if _, ok := m.GetJob("missing"); ok {
		t.Error("GetJob(missing) should return false")
	}
}

func TestManager_Lifecycle(t *testing.T) {
	m, clock := newTestManager(t)
	id := m.CreateJob(BatchSolve([]string{"p1"}, "openai"))
	created, _ := m.GetJob(id)

	clock.Advance(time.Second)
	m.UpdateProgress(id, 40, "solving p1")
	flush(t, m)

	j, _ := m.GetJob(id)
	if j.Status.State != StateRunning || j.Status.Progress != 40 || j.Status.Message != "solving p1" {
		t.Errorf("status = %+v", j.Status)
	}
	if !j.UpdatedAt.After(created.UpdatedAt) {
		t.Error("UpdatedAt should advance on transition")
	}

	m.CompleteJob(id, map[string]int{"processed": 1})
	flush(t, m)

	j, _ = m.GetJob(id)
	if j.Status.State != StateCompleted {
		t.Fatalf("state = %s, want completed", j.Status.State)
	}

	// Terminal states are final.
	m.UpdateProgress(id, 10, "late")
	m.FailJob(id, "late failure")
	m.CancelJob(id)
	flush(t, m)

	j, _ = m.GetJob(id)
	if j.Status.State != StateCompleted {
		t.Errorf("terminal job changed to %s", j.Status.State)
	}
}

func TestManager_CancelTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *Manager, id string)
		want  State
	}{
		{"from pending", func(m *Manager, id string) {}, StateCancelled},
		{"from running", func(m *Manager, id string) { m.UpdateProgress(id, 5, "ocr") }, StateCancelled},
		{"after failed", func(m *Manager, id string) { m.FailJob(id, "book not found") }, StateFailed},
		{"after completed", func(m *Manager, id string) { m.CompleteJob(id, nil) }, StateCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t)
			id := m.CreateJob(Export("b", "markdown"))
			tt.setup(m, id)
			m.CancelJob(id)
			flush(t, m)

			j, _ := m.GetJob(id)
			if j.Status.State != tt.want {
				t.Errorf("state = %s, want %s", j.Status.State, tt.want)
			}
			if tt.want == StateCancelled && !m.IsCancelled(id) {
				t.Error("IsCancelled() = false")
			}
		})
	}
}

func TestManager_NoProgressAfterCancel(t *testing.T) {
	m, _ := newTestManager(t)
	id := m.CreateJob(BatchOCR("b", 1, 3, "b:1"))

	m.UpdateProgress(id, 10, "page 1")
	m.CancelJob(id)
	m.UpdateProgress(id, 50, "page 2")
	flush(t, m)

	j, _ := m.GetJob(id)
	if j.Status.State != StateCancelled {
		t.Errorf("state = %s, want cancelled", j.Status.State)
	}
}

func TestManager_UpdatesLinearized(t *testing.T) {
	m, _ := newTestManager(t)
	id := m.CreateJob(BatchOCR("b", 1, 100, "b:1"))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.UpdateProgress(id, float64(i), "tick")
		}(i)
	}
	wg.Wait()
	m.CompleteJob(id, "done")
	flush(t, m)

	j, _ := m.GetJob(id)
	if j.Status.State != StateCompleted || j.Status.Result != "done" {
		t.Errorf("status = %+v", j.Status)
	}
}

func TestManager_CleanupOldJobs(t *testing.T) {
	m, clock := newTestManager(t)

	done := m.CreateJob(Export("b", "json"))
	running := m.CreateJob(Export("b", "latex"))
	m.CompleteJob(done, nil)
	m.UpdateProgress(running, 50, "rendering")
	flush(t, m)

	clock.Advance(23 * time.Hour)
	m.CleanupOldJobs()
	flush(t, m)
	if _, ok := m.GetJob(done); !ok {
		t.Error("job inside retention window was removed")
	}

	clock.Advance(2 * time.Hour)
	recent := m.CreateJob(Export("b", "anki"))
	m.FailJob(recent, "boom")
	m.CleanupOldJobs()
	flush(t, m)

	if _, ok := m.GetJob(done); ok {
		t.Error("old terminal job should be removed")
	}
	if _, ok := m.GetJob(running); !ok {
		t.Error("non-terminal job must never be removed")
	}
	if _, ok := m.GetJob(recent); !ok {
		t.Error("recent terminal job should be kept")
	}
}

func TestManager_ListJobsNewestFirst(t *testing.T) {
	m, clock := newTestManager(t)
	first := m.CreateJob(Export("b", "json"))
	clock.Advance(time.Minute)
	second := m.CreateJob(Export("b", "json"))

	list := m.ListJobs()
	if len(list) != 2 || list[0].ID != second || list[1].ID != first {
		t.Errorf("ListJobs order wrong: %v", list)
	}
}

func TestManager_ShutdownDropsUpdates(t *testing.T) {
	clock := &testClock{now: time.Now()}
	m := NewManager(ManagerConfig{Now: clock.Now})
	id := m.CreateJob(Export("b", "json"))
	m.UpdateProgress(id, 30, "working")
	if err := m.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}

	m.Shutdown()
	m.CompleteJob(id, "ignored")
	m.Shutdown()

	if err := m.Flush(context.Background()); err != nil {
		t.Errorf("Flush after shutdown = %v", err)
	}
	j, _ := m.GetJob(id)
	if j.Status.State != StateRunning || j.Status.Progress != 30 {
		t.Errorf("state should freeze at last value, got %+v", j.Status)
	}
}

func TestManager_Subscribe(t *testing.T) {
	m, _ := newTestManager(t)
	id := m.CreateJob(BatchOCR("b", 1, 2, "b:1"))

	ch, cancel := m.Subscribe(id)
	defer cancel()

	initial := <-ch
	if initial.Status != StatePending {
		t.Errorf("initial status = %s", initial.Status)
	}

	m.UpdateProgress(id, 50, "half")
	m.CompleteJob(id, map[string]int{"processed_pages": 2})

	var last StatusView
	timeout := time.After(2 * time.Second)
	for open := true; open; {
		select {
		case v, ok := <-ch:
			if !ok {
				open = false
				break
			}
			last = v
		case <-timeout:
			t.Fatal("subscription was not closed after terminal state")
		}
	}
	if last.Status != StateCompleted {
		t.Errorf("last status = %s, want completed", last.Status)
	}

	// Subscribing to a finished job yields its final view and a closed channel.
	ch2, cancel2 := m.Subscribe(id)
	defer cancel2()
	if v := <-ch2; v.Status != StateCompleted {
		t.Errorf("late subscriber status = %s", v.Status)
	}
	if _, ok := <-ch2; ok {
		t.Error("late subscriber channel should be closed")
	}
}

func TestManager_UnsubscribeClosesChannel(t *testing.T) {
	m, _ := newTestManager(t)
	id := m.CreateJob(Export("b", "json"))
	ch, cancel := m.Subscribe(id)
	<-ch
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
}

func TestJob_View(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	j := &Job{
		ID:        "abc",
		Type:      Export("b", "json"),
		Status:    Status{State: StateRunning, Progress: 62.5, Message: "Parsing page 3"},
		CreatedAt: created,
		UpdatedAt: created.Add(time.Minute),
	}

	data, err := json.Marshal(j.View())
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"job_id", "status", "progress", "message", "result", "error", "created_at", "updated_at"} {
		if _, ok := got[key]; !ok {
			t.Errorf("view missing key %q", key)
		}
	}
	if got["status"] != "running" || got["progress"] != 62.5 || got["error"] != nil {
		t.Errorf("view = %v", got)
	}
	if got["created_at"] != "2025-01-02T03:04:05Z" {
		t.Errorf("created_at = %v", got["created_at"])
	}

	j.Status = Status{State: StateFailed, Error: "Book not found"}
	v := j.View()
	if v.Error == nil || *v.Error != "Book not found" || v.Progress != nil {
		t.Errorf("failed view = %+v", v)
	}
}

func TestClampPercent(t *testing.T) {
	for in, want := range map[float64]float64{-5: 0, 0: 0, 55.5: 55.5, 100: 100, 140: 100} {
		if got := clampPercent(in); got != want {
			t.Errorf("clampPercent(%v) = %v, want %v", in, got, want)
		}
	}
}
