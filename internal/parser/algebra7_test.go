package parser

import (
	"strings"
	"testing"
)

func TestIsAlgebra7(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"algebra-7", true},
		{"Algebra-7", true},
		{"  algebra-7.pdf ", true},
		{"ALGEBRA-7.pdf", true},
		{"algebra-8", false},
		{"geometry-7", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsAlgebra7(tt.id); got != tt.want {
			t.Errorf("IsAlgebra7(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestIsChapterHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Глава 5. Разложение многочленов на множители", true},
		{"ГЛАВА IV", true},
		{"глава 12: Функции", true},
		{"  Глава 3", true},
		{"Глава", false},
		{"Глава пятая", false},
		{"Главная мысль", false},
		{"Глава 5a. Неверно", false},
		{"702. Глава 5", false},
	}
	for _, tt := range tests {
		if got := IsChapterHeading(tt.line); got != tt.want {
			t.Errorf("IsChapterHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestParseAlgebra7_NumberedExercisesAndSubProblems(t *testing.T) {
	text := `
71. Результаты проверки скорости чтения...

# Упражнения для повторения

72. Найдите значение выражения:
a) 2+2
б) 3+3
`
	res := ParseAlgebra7(text)
	if len(res.Problems) != 2 {
		t.Fatalf("got %d problems, want 2", len(res.Problems))
	}
	if res.Problems[0].Number != "71" || res.Problems[1].Number != "72" {
		t.Errorf("numbers = %q, %q", res.Problems[0].Number, res.Problems[1].Number)
	}
	subs := res.Problems[1].SubProblems
	if len(subs) != 2 {
		t.Fatalf("got %d sub-problems, want 2", len(subs))
	}
	if subs[0].Letter != "a" || subs[0].Content != "2+2" {
		t.Errorf("first sub = %+v", subs[0])
	}
	if subs[1].Letter != "б" || subs[1].Content != "3+3" {
		t.Errorf("second sub = %+v", subs[1])
	}
	if res.Problems[1].Content != "Найдите значение выражения:" {
		t.Errorf("parent content = %q", res.Problems[1].Content)
	}
}

func TestParseAlgebra7_IgnoresStepLists(t *testing.T) {
	text := `
Пример 2. Найдём значение выражения
1) $6^{2}=36$
2) $(-2)^{5}=-32$

73. Настоящая задача.
`
	res := ParseAlgebra7(text)
	if len(res.Problems) != 1 || res.Problems[0].Number != "73" {
		t.Fatalf("problems = %+v, want only 73", res.Problems)
	}
}

func TestParseAlgebra7_ZadachaPrefix(t *testing.T) {
	text := `
## 5. Выражения с переменными
Задача 1. Завод ежедневно перерабатывает 5 т молока.
Задача 2: Ширина прямоугольника равна 5 см.
Задача 3) Периметр квадрата 12 см.
`
	res := ParseAlgebra7(text)
	if len(res.Problems) != 3 {
		t.Fatalf("got %d problems, want 3", len(res.Problems))
	}
	wantPrefix := []string{"Завод", "Ширина", "Периметр"}
	for i, p := range res.Problems {
		if p.Number != string(rune('1'+i)) {
			t.Errorf("problem %d number = %q", i, p.Number)
		}
		if !strings.HasPrefix(p.Content, wantPrefix[i]) {
			t.Errorf("problem %d content = %q, want prefix %q", i, p.Content, wantPrefix[i])
		}
	}
}

func TestParseAlgebra7_ChapterHeadingTerminatesProblem(t *testing.T) {
	text := `
702. Трёхзначное число оканчивается цифрой 6.
Если её зачеркнуть, то полученное число будет меньше данного на 366.
Найдите данное трёхзначное число.
Глава 5. Разложение многочленов на множители
`
	res := ParseAlgebra7(text)
	if len(res.Problems) != 1 {
		t.Fatalf("got %d problems, want 1", len(res.Problems))
	}
	content := res.Problems[0].Content
	if strings.Contains(content, "Глава 5") {
		t.Errorf("content should not contain chapter heading: %q", content)
	}
	if !strings.HasSuffix(content, "Найдите данное трёхзначное число.") {
		t.Errorf("content = %q", content)
	}
}

func TestParseAlgebra7_LinesAfterHeadingBeforeNextProblemDropped(t *testing.T) {
	text := "701. Первая.\nГлава 5\nвводный текст главы\n702. Вторая."
	res := ParseAlgebra7(text)
	if len(res.Problems) != 2 {
		t.Fatalf("got %d problems, want 2", len(res.Problems))
	}
	if res.Problems[0].Content != "Первая." {
		t.Errorf("first content = %q", res.Problems[0].Content)
	}
}

func TestParseAlgebra7_SubProblemContentStaysInSubProblem(t *testing.T) {
	text := "10. Упростите:\n(а) $2x + 3x$\nи запишите ответ\nб) $x - x$"
	res := ParseAlgebra7(text)
	if len(res.Problems) != 1 {
		t.Fatalf("got %d problems", len(res.Problems))
	}
	p := res.Problems[0]
	if p.Content != "Упростите:" {
		t.Errorf("parent content = %q, continuation line leaked into parent", p.Content)
	}
	if len(p.SubProblems) != 2 {
		t.Fatalf("got %d subs", len(p.SubProblems))
	}
	if p.SubProblems[0].Letter != "а" || p.SubProblems[0].Content != "$2x + 3x$\nи запишите ответ" {
		t.Errorf("sub а = %+v", p.SubProblems[0])
	}
}

func TestParseAlgebra7_OnlyLowercaseLettersStartParts(t *testing.T) {
	res := ParseAlgebra7("71. Найдите периметр.\nS. Ответ дайте в см.\nА) 1+1\nα) 2+2\nё) 3+3\n(b) 4+4")
	if len(res.Problems) != 1 {
		t.Fatalf("got %d problems", len(res.Problems))
	}
	p := res.Problems[0]
	var letters []string
	for _, sub := range p.SubProblems {
		letters = append(letters, sub.Letter)
	}
	if got := strings.Join(letters, ","); got != "ё,b" {
		t.Errorf("letters = %s, want ё,b", got)
	}
	if !strings.Contains(p.Content, "S. Ответ дайте в см.") || !strings.Contains(p.Content, "α) 2+2") {
		t.Errorf("content lines lost: %q", p.Content)
	}
}

func TestParseAlgebra7_DuplicateLettersMergedWithinParent(t *testing.T) {
	res := ParseAlgebra7("5. Вычислите\nа) 1+1\nа) 2+2\n6. Другая\nа) 3+3")
	if len(res.Problems) != 2 {
		t.Fatalf("got %d problems", len(res.Problems))
	}
	if n := len(res.Problems[0].SubProblems); n != 1 {
		t.Errorf("problem 5 has %d subs, want 1", n)
	}
	if res.Problems[0].SubProblems[0].Content != "1+1\n2+2" {
		t.Errorf("merged content = %q", res.Problems[0].SubProblems[0].Content)
	}
	if res.Problems[1].SubProblems[0].Letter != "а" {
		t.Error("letter may repeat under a different parent")
	}
}

func TestParseAlgebra7_Empty(t *testing.T) {
	res := ParseAlgebra7("")
	if res.Problems == nil || len(res.Problems) != 0 {
		t.Errorf("Problems = %#v, want empty non-nil", res.Problems)
	}
}
