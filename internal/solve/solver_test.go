package solve

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/problembook/internal/providers"
	"github.com/jackzampolin/problembook/internal/retry"
	"github.com/jackzampolin/problembook/internal/storage"
)

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond}
}

func testProblem() *storage.Problem {
	return &storage.Problem{ID: "algebra-7:1:101", Number: "101", Content: "Вычислите $2^{10}$."}
}

func TestLLMSolver_Requests(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "  Ответ: $1024$  "
	s := NewLLMSolver(LLMSolverConfig{Client: mock, Retry: fastPolicy()})

	t.Run("solve", func(t *testing.T) {
		got, err := s.Solve(context.Background(), testProblem(), "")
		if err != nil {
			t.Fatal(err)
		}
		if got != "Ответ: $1024$" {
			t.Errorf("Solve() = %q", got)
		}
		req := mock.LastRequest()
		if req.Temperature != 0.3 || req.MaxTokens != 4096 {
			t.Errorf("params = %v/%d", req.Temperature, req.MaxTokens)
		}
		if req.Messages[0].Role != "system" || req.Messages[0].Content != SolveSystemPrompt {
			t.Errorf("system message = %+v", req.Messages[0])
		}
		if !strings.Contains(req.Messages[1].Content, "Вычислите $2^{10}$.") {
			t.Error("user prompt should contain the problem")
		}
		if !strings.Contains(req.Messages[1].Content, "None provided") {
			t.Error("empty theory should render as None provided")
		}
	})

	t.Run("hint", func(t *testing.T) {
		if _, err := s.Hint(context.Background(), testProblem(), "степени", 2); err != nil {
			t.Fatal(err)
		}
		req := mock.LastRequest()
		if req.Temperature != 0.5 || req.MaxTokens != 1024 {
			t.Errorf("params = %v/%d", req.Temperature, req.MaxTokens)
		}
		if req.Messages[0].Content != HintSystemPrompt {
			t.Errorf("system message = %q", req.Messages[0].Content)
		}
		if !strings.Contains(req.Messages[1].Content, HintLevelInstruction(2)) {
			t.Error("user prompt should carry the level instruction")
		}
	})
}

func TestLLMSolver_EmptyAnswerFails(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "   "
	s := NewLLMSolver(LLMSolverConfig{Client: mock, Retry: fastPolicy()})
	if _, err := s.Solve(context.Background(), testProblem(), ""); err == nil {
		t.Error("expected error for empty answer")
	}
}

func TestLLMSolver_RetriesTransientFailure(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ShouldFail = true
	s := NewLLMSolver(LLMSolverConfig{
		Client: mock,
		Retry:  retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})
	if _, err := s.Solve(context.Background(), testProblem(), ""); err == nil {
		t.Fatal("expected error")
	}
	if mock.RequestCount() != 3 {
		t.Errorf("requests = %d, want 3", mock.RequestCount())
	}
}

func TestPrompts(t *testing.T) {
	p := SolutionPrompt("2+2", "арифметика")
	if !strings.HasPrefix(p, "Solve the following math problem step by step.") {
		t.Errorf("prompt start = %.50q", p)
	}
	if !strings.Contains(p, "Problem:\n2+2\n\nRelevant theory/context from textbook:\nарифметика\n\nRequirements:") {
		t.Error("prompt body mismatch")
	}
	if !strings.HasSuffix(p, "\n\nSolution:") {
		t.Errorf("prompt end = %q", p[len(p)-20:])
	}

	tests := []struct {
		level int
		want  string
	}{
		{1, "VERY minimal"},
		{2, "moderate"},
		{3, "strong"},
		{7, "appropriate for the problem"},
	}
	for _, tt := range tests {
		h := HintPrompt("x", "", tt.level)
		if !strings.Contains(h, tt.want) {
			t.Errorf("level %d prompt missing %q", tt.level, tt.want)
		}
		if !strings.HasSuffix(h, "\n\nHint:") {
			t.Errorf("level %d prompt should end with Hint:", tt.level)
		}
	}
}

func TestSolver_DefaultPreference(t *testing.T) {
	tests := []struct {
		name       string
		registered []string
		want       string
	}{
		{"claude first", []string{"mistral", "openai", "claude"}, "claude"},
		{"openai over mistral", []string{"mistral", "openai"}, "openai"},
		{"mistral alone", []string{"mistral"}, "mistral"},
		{"other provider", []string{"deepseek"}, "deepseek"},
		{"none", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := providers.NewRegistry(nil)
			for _, name := range tt.registered {
				reg.RegisterLLM(name, providers.NewMockClient())
			}
			s := NewSolver(Config{Clients: reg})
			if got := s.Default(); got != tt.want {
				t.Errorf("Default() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSolver_Solve(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "$2^{10} = 1024$, ответ: $1024$"
	reg := providers.NewRegistry(nil)
	reg.RegisterLLM("openai", mock)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSolver(Config{Clients: reg, Retry: fastPolicy(), Now: func() time.Time { return now }})

	sol, err := s.Solve(context.Background(), testProblem(), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if sol.Provider != "openai" || sol.ProblemID != "algebra-7:1:101" {
		t.Errorf("solution = %+v", sol)
	}
	if !strings.HasPrefix(sol.ID, "algebra-7:1:101:S:") {
		t.Errorf("ID = %s", sol.ID)
	}
	if !reflect.DeepEqual(sol.LatexFormulas, []string{"2^{10} = 1024", "1024"}) {
		t.Errorf("formulas = %v", sol.LatexFormulas)
	}
	if !sol.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v", sol.CreatedAt)
	}
}

func TestSolver_UnknownProvider(t *testing.T) {
	s := NewSolver(Config{Clients: providers.NewRegistry(nil)})
	if _, err := s.Solve(context.Background(), testProblem(), "", ""); !errors.Is(err, providers.ErrNoProvider) {
		t.Errorf("no providers: error = %v", err)
	}
	if _, err := s.Hint(context.Background(), testProblem(), "gemini", "", 1); !errors.Is(err, providers.ErrNoProvider) {
		t.Errorf("unknown provider: error = %v", err)
	}
}

type stubProvider struct{ name string }

func (p stubProvider) Name() string { return p.name }
func (p stubProvider) Solve(context.Context, *storage.Problem, string) (string, error) {
	return "stub", nil
}
func (p stubProvider) Hint(context.Context, *storage.Problem, string, int) (string, error) {
	return "stub hint", nil
}

func TestSolver_RegisteredProviderWins(t *testing.T) {
	reg := providers.NewRegistry(nil)
	reg.RegisterLLM("claude", providers.NewMockClient())
	s := NewSolver(Config{Clients: reg})
	s.Register(stubProvider{name: "claude"})
	s.Register(stubProvider{name: "local"})

	if got := s.Available(); !reflect.DeepEqual(got, []string{"claude", "local"}) {
		t.Errorf("Available() = %v", got)
	}
	hint, err := s.Hint(context.Background(), testProblem(), "", "", 1)
	if err != nil || hint != "stub hint" {
		t.Errorf("Hint() = %q, %v", hint, err)
	}
}
