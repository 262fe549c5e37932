package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const problemsSheet = "Problems"

// renderXLSX writes one row per top-level problem.
func renderXLSX(doc *Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(problemsSheet); err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	index, _ := f.GetSheetIndex(problemsSheet)
	f.SetActiveSheet(index)

	headers := []string{
		"Глава",
		"Задача",
		"Страница",
		"Условие",
		"Пункты",
		"Решение есть",
		"Решение",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(problemsSheet, cell, h); err != nil {
			return nil, err
		}
	}

	row := 2
	for _, ch := range doc.Chapters {
		for _, p := range ch.Problems {
			subs := make([]string, 0, len(p.Subs))
			for _, sub := range p.Subs {
				subs = append(subs, fmt.Sprintf("%s) %s", sub.Number, sub.Content))
			}
			solution := ""
			if p.Solution != nil {
				solution = p.Solution.Content
			}
			hasSolution := "нет"
			if p.Problem.HasSolution {
				hasSolution = "да"
			}

			values := []any{
				chapterTitle(ch.Chapter.Number, ch.Chapter.Title),
				p.Problem.Number,
				p.Problem.PageNumber,
				p.Problem.Content,
				strings.Join(subs, "\n"),
				hasSolution,
				solution,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				if err := f.SetCellValue(problemsSheet, cell, v); err != nil {
					return nil, err
				}
			}
			row++
		}
	}

	_ = f.SetColWidth(problemsSheet, "A", "A", 24)
	_ = f.SetColWidth(problemsSheet, "B", "C", 10)
	_ = f.SetColWidth(problemsSheet, "D", "E", 60)
	_ = f.SetColWidth(problemsSheet, "F", "F", 14)
	_ = f.SetColWidth(problemsSheet, "G", "G", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
