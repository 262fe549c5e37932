package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackzampolin/problembook/internal/storage"
)

// Source is the read side of storage an export needs.
type Source interface {
	GetBook(ctx context.Context, id string) (*storage.Book, error)
	ListChapters(ctx context.Context, bookID string) ([]storage.Chapter, error)
	ListProblemsByChapter(ctx context.Context, chapterID string) ([]storage.Problem, error)
	GetSolutionForProblem(ctx context.Context, problemID string) (*storage.Solution, error)
}

// Document is a book loaded for rendering.
type Document struct {
	Book     storage.Book
	Chapters []ChapterDoc
}

// ChapterDoc is a chapter with its top-level problems in insertion order.
type ChapterDoc struct {
	Chapter  storage.Chapter
	Problems []ProblemDoc
}

// ProblemDoc is a top-level problem with its sub-problems and best solution.
type ProblemDoc struct {
	Problem  storage.Problem
	Subs     []storage.Problem
	Solution *storage.Solution
}

// Load reads everything an export renders for bookID.
func Load(ctx context.Context, src Source, bookID string) (*Document, error) {
	book, err := src.GetBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("book not found: %s: %w", bookID, err)
	}
	chapters, err := src.ListChapters(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}

	doc := &Document{Book: *book}
	for _, ch := range chapters {
		problems, err := src.ListProblemsByChapter(ctx, ch.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list problems of %s: %w", ch.ID, err)
		}

		cd := ChapterDoc{Chapter: ch}
		index := make(map[string]int)
		for _, p := range problems {
			if p.IsSubProblem() {
				if i, ok := index[p.ParentID]; ok {
					cd.Problems[i].Subs = append(cd.Problems[i].Subs, p)
				}
				continue
			}
			pd := ProblemDoc{Problem: p}
			if p.HasSolution {
				sol, err := src.GetSolutionForProblem(ctx, p.ID)
				switch {
				case err == nil:
					pd.Solution = sol
				case !errors.Is(err, storage.ErrNotFound):
					return nil, fmt.Errorf("failed to load solution for %s: %w", p.ID, err)
				}
			}
			index[p.ID] = len(cd.Problems)
			cd.Problems = append(cd.Problems, pd)
		}
		doc.Chapters = append(doc.Chapters, cd)
	}
	return doc, nil
}
