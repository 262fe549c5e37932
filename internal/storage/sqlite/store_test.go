package sqlite

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/jackzampolin/problembook/internal/storage"
	"github.com/jackzampolin/problembook/internal/storage/storagetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return openTestStore(t)
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestChapterUniquePerBook(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.CreateBook(ctx, &storage.Book{ID: "b", Title: "B", FilePath: "b.pdf"}); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureChapter(ctx, &storage.Chapter{ID: "b:1", BookID: "b", Number: 1, Title: "Первая"}); err != nil {
		t.Fatal(err)
	}
	// Re-ensuring with an empty title keeps the stored one.
	if err := s.EnsureChapter(ctx, &storage.Chapter{ID: "b:1", BookID: "b", Number: 1}); err != nil {
		t.Fatal(err)
	}
	chapters, err := s.ListChapters(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(chapters) != 1 || chapters[0].Title != "Первая" {
		t.Errorf("chapters = %+v", chapters)
	}

	if err := s.EnsureChapter(ctx, &storage.Chapter{ID: "b:one", BookID: "b", Number: 1}); err == nil {
		t.Error("duplicate chapter number should fail")
	}
}

func TestGetBook_NotFound_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + bookColumns + " FROM books WHERE id = ?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author", "subject", "file_path", "total_pages", "created_at"}))

	s := New(db, nil)
	_, err = s.GetBook(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetBook() error = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestGetBook_QueryError_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	boom := errors.New("disk I/O error")
	mock.ExpectQuery("SELECT .* FROM books").WillReturnError(boom)

	_, err = New(db, nil).GetBook(context.Background(), "b")
	if !errors.Is(err, boom) || errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetBook() error = %v, want wrapped driver error", err)
	}
}

func TestDeleteProblemsByPage_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM problems WHERE parent_id IN")).
		WithArgs("b:page:3").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM problems WHERE page_id = ?")).
		WithArgs("b:page:3").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := New(db, nil).DeleteProblemsByPage(context.Background(), "b:page:3")
	if err != nil {
		t.Fatalf("DeleteProblemsByPage() error = %v", err)
	}
	if n != 6 {
		t.Errorf("deleted = %d, want 6", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestCreateOrUpdateProblems_SkipsFailingRow_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO problems").
		WillReturnError(errors.New("UNIQUE constraint failed: problems.chapter_id, problems.number"))
	mock.ExpectExec("INSERT INTO problems").
		WillReturnResult(sqlmock.NewResult(1, 1))

	problems := []storage.Problem{
		{ID: "b:1:1", ChapterID: "b:1", Number: "1", DisplayName: "Задача 1", Content: "a"},
		{ID: "b:1:2", ChapterID: "b:1", Number: "2", DisplayName: "Задача 2", Content: "b"},
	}
	n, err := New(db, nil).CreateOrUpdateProblems(context.Background(), problems)
	if err != nil {
		t.Fatalf("CreateOrUpdateProblems() error = %v", err)
	}
	if n != 1 {
		t.Errorf("written = %d, want 1", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestUpdatePageOCR_Error_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE pages SET ocr_text = ?")).
		WithArgs("text", true, 3, sqlmock.AnyArg(), "b:page:1").
		WillReturnError(errors.New("database is locked"))

	err = New(db, nil).UpdatePageOCR(context.Background(), "b:page:1", "text", 3)
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestChapterNumber(t *testing.T) {
	tests := map[string]int{
		"algebra-7:3": 3,
		"b:12":        12,
		"b:intro":     1,
		"":            1,
		"7":           7,
	}
	for in, want := range tests {
		if got := storage.ChapterNumber(in); got != want {
			t.Errorf("ChapterNumber(%q) = %d, want %d", in, got, want)
		}
	}
}
