// Package solve produces step-by-step solutions and graded hints for stored
// problems using the configured chat providers.
package solve

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jackzampolin/problembook/internal/parser"
	"github.com/jackzampolin/problembook/internal/providers"
	"github.com/jackzampolin/problembook/internal/retry"
	"github.com/jackzampolin/problembook/internal/storage"
)

// SolutionProvider answers problems with full solutions or hints.
type SolutionProvider interface {
	Solve(ctx context.Context, problem *storage.Problem, theory string) (string, error)
	Hint(ctx context.Context, problem *storage.Problem, theory string, level int) (string, error)
	Name() string
}

// LLMSolverConfig configures an LLMSolver.
type LLMSolverConfig struct {
	Name   string
	Client providers.LLMClient
	// Model overrides the client's default model.
	Model  string
	Retry  retry.Policy
	Logger *slog.Logger
}

// LLMSolver is a SolutionProvider backed by a chat client.
type LLMSolver struct {
	name   string
	client providers.LLMClient
	model  string
	policy retry.Policy
	logger *slog.Logger
}

// NewLLMSolver creates a solver over a chat client.
func NewLLMSolver(cfg LLMSolverConfig) *LLMSolver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Client.Name()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	if cfg.Retry.Logger == nil {
		cfg.Retry.Logger = cfg.Logger
	}
	return &LLMSolver{
		name:   cfg.Name,
		client: cfg.Client,
		model:  cfg.Model,
		policy: cfg.Retry,
		logger: cfg.Logger,
	}
}

func (s *LLMSolver) Name() string { return s.name }

// Solve asks for a full solution.
func (s *LLMSolver) Solve(ctx context.Context, problem *storage.Problem, theory string) (string, error) {
	return s.chat(ctx, "solve", &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: SolveSystemPrompt},
			{Role: "user", Content: SolutionPrompt(problem.Content, theory)},
		},
		Model:       s.model,
		Temperature: 0.3,
		MaxTokens:   4096,
	})
}

// Hint asks for a hint; level runs from 1 (minimal) to 3 (strong).
func (s *LLMSolver) Hint(ctx context.Context, problem *storage.Problem, theory string, level int) (string, error) {
	return s.chat(ctx, "hint", &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: HintSystemPrompt},
			{Role: "user", Content: HintPrompt(problem.Content, theory, level)},
		},
		Model:       s.model,
		Temperature: 0.5,
		MaxTokens:   1024,
	})
}

func (s *LLMSolver) chat(ctx context.Context, op string, req *providers.ChatRequest) (string, error) {
	var content string
	err := retry.DoWithClassifier(ctx, s.policy, s.name+" "+op, func(ctx context.Context) error {
		resp, err := s.client.Chat(ctx, req)
		if err != nil {
			return err
		}
		content = strings.TrimSpace(resp.Content)
		if content == "" {
			return fmt.Errorf("%s returned an empty %s", s.name, op)
		}
		return nil
	}, retry.Classify)
	if err != nil {
		return "", err
	}
	return content, nil
}

// LLMSource resolves chat clients by name. *providers.Registry satisfies it.
type LLMSource interface {
	GetLLM(name string) (providers.LLMClient, error)
	ListLLM() []string
}

// defaultPreference orders providers when the caller does not name one.
var defaultPreference = []string{providers.ClaudeName, providers.OpenAIName, providers.MistralName}

// Config configures a Solver.
type Config struct {
	// Clients supplies registry-backed solvers. Optional.
	Clients LLMSource
	Retry   retry.Policy
	Logger  *slog.Logger
	Now     func() time.Time
}

// Solver routes requests to a named SolutionProvider and turns answers
// into solutions.
type Solver struct {
	clients LLMSource
	policy  retry.Policy
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	explicit map[string]SolutionProvider
}

// NewSolver creates a Solver.
func NewSolver(cfg Config) *Solver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Solver{
		clients:  cfg.Clients,
		policy:   cfg.Retry,
		logger:   cfg.Logger,
		now:      cfg.Now,
		explicit: make(map[string]SolutionProvider),
	}
}

// Register adds a provider that takes precedence over a registry client of
// the same name.
func (s *Solver) Register(p SolutionProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.explicit[p.Name()] = p
}

// Available returns the sorted provider names.
func (s *Solver) Available() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.explicit))
	for name := range s.explicit {
		names = append(names, name)
	}
	s.mu.RUnlock()

	if s.clients != nil {
		for _, name := range s.clients.ListLLM() {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	slices.Sort(names)
	return names
}

// Default returns the provider used when none is named: claude, then
// openai, then mistral, then the first available.
func (s *Solver) Default() string {
	available := s.Available()
	for _, name := range defaultPreference {
		if slices.Contains(available, name) {
			return name
		}
	}
	if len(available) > 0 {
		return available[0]
	}
	return ""
}

// Provider resolves name, or the default provider when name is empty.
func (s *Solver) Provider(name string) (SolutionProvider, error) {
	if name == "" {
		name = s.Default()
		if name == "" {
			return nil, fmt.Errorf("no AI providers configured: %w", providers.ErrNoProvider)
		}
	}

	s.mu.RLock()
	p, ok := s.explicit[name]
	s.mu.RUnlock()
	if ok {
		return p, nil
	}

	if s.clients == nil {
		return nil, fmt.Errorf("provider %s not available: %w", name, providers.ErrNoProvider)
	}
	client, err := s.clients.GetLLM(name)
	if err != nil {
		return nil, fmt.Errorf("provider %s not available: %w", name, err)
	}
	return NewLLMSolver(LLMSolverConfig{
		Name:   name,
		Client: client,
		Retry:  s.policy,
		Logger: s.logger,
	}), nil
}

// Solve produces an unsaved solution for problem.
func (s *Solver) Solve(ctx context.Context, problem *storage.Problem, provider, theory string) (*storage.Solution, error) {
	p, err := s.Provider(provider)
	if err != nil {
		return nil, err
	}

	start := s.now()
	content, err := p.Solve(ctx, problem, theory)
	if err != nil {
		return nil, fmt.Errorf("failed to solve %s: %w", problem.ID, err)
	}
	now := s.now()
	s.logger.Debug("problem solved",
		"problem_id", problem.ID,
		"provider", p.Name(),
		"chars", len(content),
		"duration", now.Sub(start))

	formulas := parser.ExtractFormulas(content)
	if formulas == nil {
		formulas = []string{}
	}
	return &storage.Solution{
		ID:            storage.NewSolutionID(problem.ID),
		ProblemID:     problem.ID,
		Provider:      p.Name(),
		Content:       content,
		LatexFormulas: formulas,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Hint produces a hint for problem.
func (s *Solver) Hint(ctx context.Context, problem *storage.Problem, provider, theory string, level int) (string, error) {
	p, err := s.Provider(provider)
	if err != nil {
		return "", err
	}
	hint, err := p.Hint(ctx, problem, theory, level)
	if err != nil {
		return "", fmt.Errorf("failed to get hint for %s: %w", problem.ID, err)
	}
	return hint, nil
}
