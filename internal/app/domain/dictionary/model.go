// Package dictionary defines per-user dictionary entries.
package dictionary

// Entry is a saved word with its translation.
type Entry struct {
	ID            string `json:"id" db:"id"`
	UserID        string `json:"-" db:"user_id"`
	Word          string `json:"word" db:"word"`
	Translation   string `json:"translation" db:"translation"`
	Transcription string `json:"transcription" db:"transcription"`
	Language      string `json:"language" db:"language"`
}
