package reconcile

import (
	"testing"

	"github.com/jackzampolin/problembook/internal/parser"
)

func strptr(s string) *string { return &s }

func TestSplitTrailingChapterHeading(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantPage  string
		wantCarry *string
	}{
		{"heading carried", "702. Foo.\nГлава 5. Bar", "702. Foo.", strptr("Глава 5. Bar")},
		{"no heading", "701. Foo.", "701. Foo.", nil},
		{"trailing blank lines", "702. Foo.\nГлава V\n\n  \n", "702. Foo.", strptr("Глава V")},
		{"heading only", "Глава 3", "", strptr("Глава 3")},
		{"heading mid-page stays", "Глава 3\n10. Задача.", "Глава 3\n10. Задача.", nil},
		{"blank", "  \n\n", "", nil},
		{"empty", "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, carry := SplitTrailingChapterHeading(tt.text)
			if page != tt.wantPage {
				t.Errorf("page = %q, want %q", page, tt.wantPage)
			}
			switch {
			case tt.wantCarry == nil && carry != nil:
				t.Errorf("carry = %q, want nil", *carry)
			case tt.wantCarry != nil && carry == nil:
				t.Errorf("carry = nil, want %q", *tt.wantCarry)
			case tt.wantCarry != nil && *carry != *tt.wantCarry:
				t.Errorf("carry = %q, want %q", *carry, *tt.wantCarry)
			}
		})
	}
}

func TestProcessCrossPage_ContinuesFromPrev(t *testing.T) {
	prevLast := &parser.ParsedProblem{Number: "15", Content: "Решите систему\nуравнений и найдите", ContinuesToNext: true}
	tail := ExtractContinuationTail(*prevLast)
	if tail == nil || *tail != "уравнений и найдите" {
		t.Fatalf("tail = %v", tail)
	}

	current := []parser.ParsedProblem{
		{Number: "15", Content: "значение x."},
		{Number: "16", Content: "Другая задача."},
	}
	ProcessCrossPage(prevLast, tail, current, nil)

	if !current[0].ContinuesFromPrev {
		t.Error("first problem should continue from previous page")
	}
	if want := "уравнений и найдите\n\nзначение x."; current[0].Content != want {
		t.Errorf("content = %q, want %q", current[0].Content, want)
	}
	if current[1].ContinuesFromPrev || current[1].ContinuesToNext {
		t.Error("second problem should be untouched")
	}
}

func TestProcessCrossPage_NoTail(t *testing.T) {
	current := []parser.ParsedProblem{{Number: "3", Content: "текст"}}
	ProcessCrossPage(&parser.ParsedProblem{Number: "3"}, nil, current, nil)
	if !current[0].ContinuesFromPrev || current[0].Content != "текст" {
		t.Errorf("current = %+v", current[0])
	}
}

func TestProcessCrossPage_ContinuesToNext(t *testing.T) {
	current := []parser.ParsedProblem{{Number: "1"}, {Number: "2"}}
	next := []parser.ParsedProblem{{Number: "2"}, {Number: "3"}}
	ProcessCrossPage(nil, nil, current, next)

	if current[0].ContinuesToNext {
		t.Error("problem 1 should not continue")
	}
	if !current[1].ContinuesToNext {
		t.Error("problem 2 should continue to next page")
	}
}

func TestProcessCrossPage_ExactNumberEquality(t *testing.T) {
	current := []parser.ParsedProblem{{Number: "15"}}
	ProcessCrossPage(&parser.ParsedProblem{Number: "15.1"}, strptr("x"), current, []parser.ParsedProblem{{Number: "015"}})
	if current[0].ContinuesFromPrev || current[0].ContinuesToNext {
		t.Errorf("no fuzzy matching expected: %+v", current[0])
	}
}

func TestProcessCrossPage_EmptyCurrent(t *testing.T) {
	ProcessCrossPage(&parser.ParsedProblem{Number: "1"}, nil, nil, []parser.ParsedProblem{{Number: "1"}})
}

func TestExtractContinuationTail(t *testing.T) {
	tests := []struct {
		name string
		p    parser.ParsedProblem
		want *string
	}{
		{"not continuing", parser.ParsedProblem{Content: "a\nb", ContinuesToNext: false}, nil},
		{"empty", parser.ParsedProblem{Content: "  ", ContinuesToNext: true}, nil},
		{"single line", parser.ParsedProblem{Content: "одна строка", ContinuesToNext: true}, nil},
		{"terminated period", parser.ParsedProblem{Content: "a\nb.", ContinuesToNext: true}, nil},
		{"terminated question", parser.ParsedProblem{Content: "a\nb?", ContinuesToNext: true}, nil},
		{"terminated paren", parser.ParsedProblem{Content: "a\n(см. рис. 3)", ContinuesToNext: true}, nil},
		{"terminated semicolon", parser.ParsedProblem{Content: "a\nb;", ContinuesToNext: true}, nil},
		{"terminated bang", parser.ParsedProblem{Content: "a\nb!", ContinuesToNext: true}, nil},
		{"unterminated", parser.ParsedProblem{Content: "заголовок\nпервая\nвторая без точки", ContinuesToNext: true}, strptr("первая\nвторая без точки")},
		{"unterminated cyrillic end", parser.ParsedProblem{Content: "a\nнайдите", ContinuesToNext: true}, strptr("найдите")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractContinuationTail(tt.p)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("got %q, want nil", *got)
			case tt.want != nil && got == nil:
				t.Errorf("got nil, want %q", *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("got %q, want %q", *got, *tt.want)
			}
		})
	}
}

func TestIsIncomplete(t *testing.T) {
	tests := map[string]bool{
		"конец.":  false,
		"x = 5;":  false,
		"рис. 1)": false,
		"и далее": true,
		"  ":      false,
		"$x^2$":   true,
	}
	for line, want := range tests {
		if got := IsIncomplete(line); got != want {
			t.Errorf("IsIncomplete(%q) = %v, want %v", line, got, want)
		}
	}
}
