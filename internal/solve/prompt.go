package solve

import (
	"bytes"
	_ "embed"
	"text/template"
)

const (
	SolveSystemPrompt = "You are an expert math teacher. Solve problems step by step, explaining each step clearly. Use LaTeX for math formulas."
	HintSystemPrompt  = "You are an expert math teacher. Provide helpful hints without giving away the full solution. Use LaTeX for math formulas."
)

//go:embed solution.tmpl
var solutionPromptTmpl string

//go:embed hint.tmpl
var hintPromptTmpl string

var (
	solutionTemplate = template.Must(template.New("solution").Parse(solutionPromptTmpl))
	hintTemplate     = template.Must(template.New("hint").Parse(hintPromptTmpl))
)

type promptData struct {
	Problem string
	Context string
	Level   string
}

func contextOrNone(ctx string) string {
	if ctx == "" {
		return "None provided"
	}
	return ctx
}

// SolutionPrompt builds the user prompt asking for a full solution.
func SolutionPrompt(problem, theory string) string {
	var buf bytes.Buffer
	data := promptData{Problem: problem, Context: contextOrNone(theory)}
	if err := solutionTemplate.Execute(&buf, data); err != nil {
		return solutionPromptTmpl
	}
	return buf.String()
}

// HintLevelInstruction describes how much a hint at level may reveal.
func HintLevelInstruction(level int) string {
	switch level {
	case 1:
		return "Provide a VERY minimal hint - just point in the right direction without specifics."
	case 2:
		return "Provide a moderate hint - give a clue about the approach or formula to use."
	case 3:
		return "Provide a strong hint - outline the steps without giving the final answer."
	default:
		return "Provide a hint appropriate for the problem."
	}
}

// HintPrompt builds the user prompt asking for a hint at the given level.
func HintPrompt(problem, theory string, level int) string {
	var buf bytes.Buffer
	data := promptData{
		Problem: problem,
		Context: contextOrNone(theory),
		Level:   HintLevelInstruction(level),
	}
	if err := hintTemplate.Execute(&buf, data); err != nil {
		return hintPromptTmpl
	}
	return buf.String()
}
