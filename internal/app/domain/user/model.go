// Package user defines accounts and learning profiles.
package user

import "time"

// CEFR proficiency levels.
const (
	LevelA1 = "A1"
	LevelA2 = "A2"
	LevelB1 = "B1"
	LevelB2 = "B2"
	LevelC1 = "C1"
	LevelC2 = "C2"
)

// ProfileLanguages are the languages a profile can learn or speak natively.
var ProfileLanguages = []string{"ru", "en", "es", "fr", "de", "zh", "ja"}

// Levels enumerates valid CEFR levels.
var Levels = []string{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

// User is an authenticated reader account.
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Profile carries the learning settings attached to a user.
type Profile struct {
	UserID          string    `json:"-" db:"user_id"`
	NativeLanguage  string    `json:"native_language" db:"native_language"`
	LanguageToLearn string    `json:"language_to_learn" db:"language_to_learn"`
	CurrentLevel    string    `json:"current_level" db:"current_level"`
	GoogleID        string    `json:"google_id,omitempty" db:"google_id"`
	AvatarURL       string    `json:"avatar_url,omitempty" db:"avatar_url"`
	IsGoogleUser    bool      `json:"is_google_user" db:"is_google_user"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// ValidProfileLanguage reports whether code is a supported profile language.
func ValidProfileLanguage(code string) bool {
	for _, l := range ProfileLanguages {
		if l == code {
			return true
		}
	}
	return false
}

// ValidLevel reports whether level is a known CEFR level.
func ValidLevel(level string) bool {
	for _, l := range Levels {
		if l == level {
			return true
		}
	}
	return false
}
