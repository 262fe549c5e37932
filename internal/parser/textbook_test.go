package parser

import (
	"reflect"
	"testing"
)

func TestTextbookParser_DetectProblemStart(t *testing.T) {
	p := NewTextbookParser()

	tests := []struct {
		line   string
		want   string
		wantOK bool
	}{
		{"Задача 1: Решить уравнение", "1", true},
		{"Задача №5. Найти", "5", true},
		{"## Задача 1.2 Найти", "1.2", true},
		{"Упражнение 7) Вычислить", "7", true},
		{"Problem 3: Evaluate", "3", true},
		{"1. Вычислить интеграл", "1", true},
		{"1) $x^2 + 3$", "1", true},
		{"№125. Решить", "125", true},
		{"#12 Найти", "12", true},
		{"Найдите значение", "", false},
		{"1) маленькая буква", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := p.DetectProblemStart(tt.line)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("DetectProblemStart(%q) = %q, %v; want %q, %v", tt.line, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTextbookParser_DetectSubProblem(t *testing.T) {
	p := NewTextbookParser()

	tests := []struct {
		line   string
		want   string
		wantOK bool
	}{
		{"а) 2+2", "а", true},
		{"б. 3+3", "б", true},
		{"Б. Ответ", "", false},
		{"S) x", "", false},
		{"b] x", "b", true},
		{"(ё) y", "ё", true},
		{"ab) z", "", false},
		{"1) z", "", false},
	}
	for _, tt := range tests {
		got, ok := p.DetectSubProblem(tt.line)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("DetectSubProblem(%q) = %q, %v; want %q, %v", tt.line, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestTextbookParser_ParseProblems(t *testing.T) {
	p := NewTextbookParser()
	text := `
Теорема Пифагора: $c^2 = a^2 + b^2$

Задача 1: Найти гипотенузу если $a=3$, $b=4$
Решение: $c = \sqrt{9+16} = 5$

Задача 2: Найти катет если $c=5$, $a=3$
а) первый случай
продолжение
б) второй случай
`
	res := p.ParseProblems(text)
	if len(res.Problems) != 2 {
		t.Fatalf("got %d problems, want 2", len(res.Problems))
	}

	first := res.Problems[0]
	if first.Number != "1" {
		t.Errorf("first number = %q", first.Number)
	}
	wantContent := "Задача 1: Найти гипотенузу если $a=3$, $b=4$\nРешение: $c = \\sqrt{9+16} = 5$"
	if first.Content != wantContent {
		t.Errorf("first content = %q, want %q", first.Content, wantContent)
	}

	second := res.Problems[1]
	if len(second.SubProblems) != 2 {
		t.Fatalf("got %d subs, want 2", len(second.SubProblems))
	}
	if second.SubProblems[0].Content != "а) первый случай\nпродолжение" {
		t.Errorf("sub а content = %q", second.SubProblems[0].Content)
	}
	if second.Content != "Задача 2: Найти катет если $c=5$, $a=3$" {
		t.Errorf("second content = %q", second.Content)
	}
}

func TestTextbookParser_TheoryClosesProblem(t *testing.T) {
	p := NewTextbookParser()
	text := "Задача 4. Докажите\nчто угол прямой\nОпределение 2: Прямой угол\nравен 90 градусам"

	res := p.ParseProblems(text)
	if len(res.Problems) != 1 || res.Problems[0].Content != "Задача 4. Докажите\nчто угол прямой" {
		t.Errorf("problems = %+v", res.Problems)
	}

	blocks := p.ParseTheory(text)
	if len(blocks) != 1 {
		t.Fatalf("got %d theory blocks, want 1", len(blocks))
	}
	b := blocks[0]
	if b.Type != TheoryDefinition || b.Title != "2 Прямой угол" || b.Content != "равен 90 градусам" {
		t.Errorf("block = %+v", b)
	}
}

func TestTextbookParser_NoProblems(t *testing.T) {
	res := NewTextbookParser().ParseProblems("просто текст\nбез задач")
	if res.Problems == nil || len(res.Problems) != 0 {
		t.Errorf("Problems = %#v, want empty", res.Problems)
	}
}

func TestExtractFormulas(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"inline", "Решите $x^2=4$ и $y=1$", []string{"x^2=4", "y=1"}},
		{"bracket", `Формула \[a+b\]`, []string{"a+b"}},
		{"dedup", "$x$ и снова $x$", []string{"x"}},
		{"none", "без формул", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractFormulas(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractFormulas(%q) = %#v, want %#v", tt.text, got, tt.want)
			}
		})
	}
}
