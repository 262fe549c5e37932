package defrastore

// Collection names. Every collection stores the application id under key.
const (
	colBook     = "PbBook"
	colChapter  = "PbChapter"
	colPage     = "PbPage"
	colProblem  = "PbProblem"
	colSolution = "PbSolution"
)

var schemas = []string{
	`type PbBook {
		key: String @index
		title: String
		author: String
		subject: String
		file_path: String
		total_pages: Int
		created_at: String
	}`,
	`type PbChapter {
		key: String @index
		book_id: String @index
		number: Int
		title: String
		description: String
	}`,
	`type PbPage {
		key: String @index
		book_id: String @index
		page_number: Int
		ocr_text: String
		has_problems: Boolean
		problem_count: Int
		created_at: String
		updated_at: String
	}`,
	`type PbProblem {
		key: String @index
		chapter_id: String @index
		page_id: String @index
		parent_id: String @index
		number: String
		display_name: String
		content: String
		latex_formulas: String
		page_number: Int
		difficulty: Int
		has_solution: Boolean
		continues_from_page: Int
		continues_to_page: Int
		is_cross_page: Boolean
		seq: Int
		created_at: String
	}`,
	`type PbSolution {
		key: String @index
		solution_id: String
		problem_id: String @index
		provider: String
		content: String
		latex_formulas: String
		is_verified: Boolean
		rating: Int
		created_at: String
		updated_at: String
	}`,
}

var (
	bookFields     = []string{"key", "title", "author", "subject", "file_path", "total_pages", "created_at"}
	chapterFields  = []string{"key", "book_id", "number", "title", "description"}
	pageFields     = []string{"key", "book_id", "page_number", "ocr_text", "has_problems", "problem_count", "created_at", "updated_at"}
	problemFields  = []string{"key", "chapter_id", "page_id", "parent_id", "number", "display_name", "content", "latex_formulas", "page_number", "difficulty", "has_solution", "continues_from_page", "continues_to_page", "is_cross_page", "seq", "created_at"}
	solutionFields = []string{"key", "solution_id", "problem_id", "provider", "content", "latex_formulas", "is_verified", "rating", "created_at", "updated_at"}
)
