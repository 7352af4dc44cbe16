// Package book defines books and their chapters.
package book

import "time"

// Supported book formats.
const (
	FormatFB2  = "FB2"
	FormatEPUB = "EPUB"
)

// ValidFormat reports whether format is an accepted book format.
func ValidFormat(format string) bool {
	return format == FormatFB2 || format == FormatEPUB
}

// Book is an uploaded or manually created book owned by a user.
type Book struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	CoverPath   string    `json:"cover,omitempty" db:"cover_path"`
	Format      string    `json:"book_format" db:"book_format"`
	FilePath    string    `json:"file,omitempty" db:"file_path"`
	Authors     string    `json:"authors" db:"authors"`
	Genres      string    `json:"genres" db:"genres"`
	Language    string    `json:"language" db:"language"`
	FileSize    int64     `json:"file_size,omitempty" db:"file_size"`
	UploadedAt  time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// Chapter is one ordered section of a book. Order is unique per book and
// numbering starts at 1.
type Chapter struct {
	ID      string `json:"id" db:"id"`
	BookID  string `json:"-" db:"book_id"`
	Title   string `json:"title" db:"title"`
	Content string `json:"content,omitempty" db:"content"`
	Order   int    `json:"order" db:"chapter_order"`
}

// Summary is the list representation of a chapter (no content body).
type Summary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
}

// Summarize strips the content body for chapter listings.
func (c Chapter) Summarize() Summary {
	return Summary{ID: c.ID, Title: c.Title, Order: c.Order}
}
