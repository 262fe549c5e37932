// Package storagetest holds behavior tests every storage.Storage backend
// must pass.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/jackzampolin/problembook/internal/storage"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) storage.Storage

// Run executes the shared suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Storage)
	}{
		{"BookNotFound", testBookNotFound},
		{"GetOrCreatePageCreatesBook", testGetOrCreatePage},
		{"UpdatePageOCR", testUpdatePageOCR},
		{"UpsertIsIdempotent", testUpsertIdempotent},
		{"SubProblemLetters", testSubProblemLetters},
		{"ConflictingRowSkipped", testConflictSkipped},
		{"DeleteProblemsByPage", testDeleteByPage},
		{"SolutionStatusSurvivesUpsert", testSolutionStatus},
		{"Solutions", testSolutions},
		{"SearchByFormula", testSearchByFormula},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func seedChapter(t *testing.T, s storage.Storage, bookID string, num int) string {
	t.Helper()
	ctx := context.Background()
	if err := s.CreateBook(ctx, &storage.Book{ID: bookID, Title: "Алгебра", FilePath: "resources/" + bookID + ".pdf"}); err != nil {
		t.Fatalf("CreateBook() error = %v", err)
	}
	ch := &storage.Chapter{ID: storage.ChapterID(bookID, num), BookID: bookID, Number: num, Title: "Глава"}
	if err := s.EnsureChapter(ctx, ch); err != nil {
		t.Fatalf("EnsureChapter() error = %v", err)
	}
	return ch.ID
}

func mustPage(t *testing.T, s storage.Storage, bookID string, n int) *storage.Page {
	t.Helper()
	p, err := s.GetOrCreatePage(context.Background(), bookID, n)
	if err != nil {
		t.Fatalf("GetOrCreatePage() error = %v", err)
	}
	return p
}

func problem(bookID, chapterID, pageID string, page int, number string) storage.Problem {
	return storage.Problem{
		ID:          storage.ProblemID(bookID, storage.ChapterNumber(chapterID), number),
		ChapterID:   chapterID,
		PageID:      pageID,
		Number:      number,
		DisplayName: "Задача " + number,
		Content:     "Решите уравнение $x^2 = " + number + "$.",
		PageNumber:  page,
	}
}

func sub(parent storage.Problem, letter string) storage.Problem {
	return storage.Problem{
		ID:          storage.SubProblemID(parent.ID, letter),
		ChapterID:   parent.ChapterID,
		PageID:      parent.PageID,
		ParentID:    parent.ID,
		Number:      letter,
		DisplayName: letter + ")",
		Content:     "часть " + letter,
		PageNumber:  parent.PageNumber,
	}
}

func countChapter(t *testing.T, s storage.Storage, chapterID string) int {
	t.Helper()
	list, err := s.ListProblemsByChapter(context.Background(), chapterID)
	if err != nil {
		t.Fatalf("ListProblemsByChapter() error = %v", err)
	}
	return len(list)
}

func testBookNotFound(t *testing.T, s storage.Storage) {
	_, err := s.GetBook(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetBook(missing) error = %v, want ErrNotFound", err)
	}
	_, err = s.GetProblem(context.Background(), "missing:1:1")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetProblem(missing) error = %v, want ErrNotFound", err)
	}
}

func testGetOrCreatePage(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	p := mustPage(t, s, "geometry-8", 12)
	if p.ID != "geometry-8:page:12" || p.PageNumber != 12 {
		t.Errorf("page = %+v", p)
	}
	if _, err := s.GetBook(ctx, "geometry-8"); err != nil {
		t.Errorf("book should be created on demand: %v", err)
	}

	again := mustPage(t, s, "geometry-8", 12)
	if again.ID != p.ID {
		t.Errorf("second call returned %s", again.ID)
	}
	if _, err := s.GetPage(ctx, "geometry-8", 13); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetPage(13) error = %v", err)
	}
}

func testUpdatePageOCR(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	p := mustPage(t, s, "b", 3)
	if err := s.UpdatePageOCR(ctx, p.ID, "1. Текст", 2); err != nil {
		t.Fatalf("UpdatePageOCR() error = %v", err)
	}
	got, err := s.GetPage(ctx, "b", 3)
	if err != nil {
		t.Fatal(err)
	}
	if got.OCRText != "1. Текст" || got.ProblemCount != 2 || !got.HasProblems {
		t.Errorf("page = %+v", got)
	}
}

func testUpsertIdempotent(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	ch := seedChapter(t, s, "b", 1)
	page := mustPage(t, s, "b", 5)

	p1 := problem("b", ch, page.ID, 5, "1")
	list := []storage.Problem{p1, sub(p1, "а"), sub(p1, "б"), problem("b", ch, page.ID, 5, "2")}

	for i := 0; i < 3; i++ {
		n, err := s.CreateOrUpdateProblems(ctx, list)
		if err != nil {
			t.Fatalf("CreateOrUpdateProblems() error = %v", err)
		}
		if n != len(list) {
			t.Errorf("run %d wrote %d rows, want %d", i, n, len(list))
		}
	}
	if got := countChapter(t, s, ch); got != len(list) {
		t.Errorf("chapter has %d problems, want %d", got, len(list))
	}

	got, err := s.GetProblem(ctx, "b:1:1")
	if err != nil {
		t.Fatal(err)
	}
	if got.PageID != page.ID || got.DisplayName != "Задача 1" {
		t.Errorf("problem = %+v", got)
	}
}

func testSubProblemLetters(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	ch := seedChapter(t, s, "b", 1)
	page := mustPage(t, s, "b", 1)

	p1 := problem("b", ch, page.ID, 1, "1")
	p2 := problem("b", ch, page.ID, 1, "2")
	n, err := s.CreateOrUpdateProblems(ctx, []storage.Problem{p1, sub(p1, "а"), p2, sub(p2, "а")})
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("wrote %d rows, want 4: same letter under different parents is allowed", n)
	}

	dup := sub(p1, "а")
	dup.ID = p1.ID + ":а-dup"
	n, err = s.CreateOrUpdateProblems(ctx, []storage.Problem{dup})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("duplicate letter under the same parent must be rejected")
	}
}

func testConflictSkipped(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	ch := seedChapter(t, s, "b", 2)
	page := mustPage(t, s, "b", 9)

	p := problem("b", ch, page.ID, 9, "7")
	if _, err := s.CreateOrUpdateProblems(ctx, []storage.Problem{p}); err != nil {
		t.Fatal(err)
	}

	clash := p
	clash.ID = "b:2:7-other"
	ok := problem("b", ch, page.ID, 9, "8")
	n, err := s.CreateOrUpdateProblems(ctx, []storage.Problem{clash, ok})
	if err != nil {
		t.Fatalf("a conflicting row must not fail the batch: %v", err)
	}
	if n != 1 {
		t.Errorf("wrote %d rows, want 1", n)
	}
	if _, err := s.GetProblem(ctx, ok.ID); err != nil {
		t.Errorf("row after the conflict should be stored: %v", err)
	}
}

func testDeleteByPage(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	ch := seedChapter(t, s, "b", 1)
	page := mustPage(t, s, "b", 4)
	other := mustPage(t, s, "b", 5)

	p1 := problem("b", ch, page.ID, 4, "10")
	keep := problem("b", ch, other.ID, 5, "11")
	if _, err := s.CreateOrUpdateProblems(ctx, []storage.Problem{p1, sub(p1, "a"), sub(p1, "b"), keep}); err != nil {
		t.Fatal(err)
	}

	n, err := s.DeleteProblemsByPage(ctx, page.ID)
	if err != nil {
		t.Fatalf("DeleteProblemsByPage() error = %v", err)
	}
	if n != 3 {
		t.Errorf("deleted %d rows, want 3", n)
	}
	if got := countChapter(t, s, ch); got != 1 {
		t.Errorf("chapter has %d problems left, want 1", got)
	}

	n, err = s.DeleteProblemsByPage(ctx, page.ID)
	if err != nil || n != 0 {
		t.Errorf("second delete = (%d, %v), want (0, nil)", n, err)
	}
}

func testSolutionStatus(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	ch := seedChapter(t, s, "b", 1)
	page := mustPage(t, s, "b", 1)
	p := problem("b", ch, page.ID, 1, "3")
	if _, err := s.CreateOrUpdateProblems(ctx, []storage.Problem{p}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateProblemSolutionStatus(ctx, p.ID, true); err != nil {
		t.Fatal(err)
	}

	p.Content = "обновлённый текст"
	if _, err := s.CreateOrUpdateProblems(ctx, []storage.Problem{p}); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetProblem(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.HasSolution {
		t.Error("has_solution must survive a content upsert")
	}
	if got.Content != "обновлённый текст" {
		t.Errorf("content = %q", got.Content)
	}
}

func testSolutions(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	ch := seedChapter(t, s, "b", 1)
	page := mustPage(t, s, "b", 1)
	p := problem("b", ch, page.ID, 1, "5")
	if _, err := s.CreateOrUpdateProblems(ctx, []storage.Problem{p}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetSolutionForProblem(ctx, p.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("no solution yet: error = %v", err)
	}

	first := &storage.Solution{ID: storage.NewSolutionID(p.ID), ProblemID: p.ID, Provider: "openai", Content: "x = 1"}
	if err := s.SaveSolution(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := &storage.Solution{ID: storage.NewSolutionID(p.ID), ProblemID: p.ID, Provider: "openai", Content: "x = 2"}
	if err := s.SaveSolution(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetSolutionForProblem(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != first.ID || got.Content != "x = 2" {
		t.Errorf("solution = %+v, want id %s replaced content", got, first.ID)
	}
}

func testSearchByFormula(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	ch := seedChapter(t, s, "b", 1)
	page := mustPage(t, s, "b", 1)

	a := problem("b", ch, page.ID, 1, "1")
	a.LatexFormulas = []string{"x^2 + 1"}
	b := problem("b", ch, page.ID, 1, "2")
	b.LatexFormulas = []string{"\\sqrt{y}"}
	if _, err := s.CreateOrUpdateProblems(ctx, []storage.Problem{a, b}); err != nil {
		t.Fatal(err)
	}

	got, err := s.SearchByFormula(ctx, "x^2", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != a.ID {
		t.Errorf("SearchByFormula(x^2) = %v", got)
	}
}
