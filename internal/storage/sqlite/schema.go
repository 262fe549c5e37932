package sqlite

// schema is applied on every Open. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT,
		subject TEXT,
		file_path TEXT NOT NULL,
		total_pages INTEGER DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chapters (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE,
		UNIQUE(book_id, number)
	)`,
	`CREATE TABLE IF NOT EXISTS pages (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		page_number INTEGER NOT NULL,
		ocr_text TEXT,
		has_problems BOOLEAN DEFAULT FALSE,
		problem_count INTEGER DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE,
		UNIQUE(book_id, page_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pages_book ON pages(book_id)`,
	`CREATE TABLE IF NOT EXISTS problems (
		id TEXT PRIMARY KEY,
		chapter_id TEXT NOT NULL,
		page_id TEXT,
		parent_id TEXT,
		number TEXT NOT NULL,
		display_name TEXT NOT NULL,
		content TEXT NOT NULL,
		latex_formulas TEXT,
		page_number INTEGER,
		difficulty INTEGER,
		has_solution BOOLEAN DEFAULT FALSE,
		continues_from_page INTEGER,
		continues_to_page INTEGER,
		is_cross_page BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL,
		FOREIGN KEY (chapter_id) REFERENCES chapters(id) ON DELETE CASCADE,
		FOREIGN KEY (page_id) REFERENCES pages(id) ON DELETE SET NULL,
		FOREIGN KEY (parent_id) REFERENCES problems(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_problems_chapter ON problems(chapter_id)`,
	`CREATE INDEX IF NOT EXISTS idx_problems_page ON problems(page_id)`,
	`CREATE INDEX IF NOT EXISTS idx_problems_parent ON problems(parent_id)`,
	// Top-level problems are unique per chapter, sub-problems per parent.
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_problems_main
		ON problems(chapter_id, number) WHERE parent_id IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_problems_sub
		ON problems(parent_id, number) WHERE parent_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS solutions (
		id TEXT PRIMARY KEY,
		problem_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		content TEXT NOT NULL,
		latex_formulas TEXT,
		is_verified BOOLEAN DEFAULT FALSE,
		rating INTEGER,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (problem_id) REFERENCES problems(id) ON DELETE CASCADE,
		UNIQUE(problem_id, provider)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_solutions_problem ON solutions(problem_id)`,
}
