// Package translation defines stored translations and the language and
// provider vocabulary shared by the translate pipeline.
package translation

import "time"

// Provider identifiers.
const (
	ServiceAuto      = "auto"
	ServiceDeepL     = "deepl"
	ServiceGoogle    = "google"
	ServiceContextil = "contextil"
	ServiceChatGPT   = "chatgpt"
)

// LanguageAuto requests source-language detection.
const LanguageAuto = "auto"

// SupportedLanguages are the translation target/source languages.
var SupportedLanguages = []string{
	"ru", "en", "de", "fr", "es", "it", "pt", "pl", "nl",
	"ja", "zh", "ko", "ar", "hi", "tr", "uk", "bg", "cs",
}

// LanguageNames maps language codes to display names.
var LanguageNames = map[string]string{
	"ru": "Русский", "en": "Английский", "de": "Немецкий",
	"fr": "Французский", "es": "Испанский", "it": "Итальянский",
	"pt": "Португальский", "pl": "Польский", "nl": "Голландский",
	"ja": "Японский", "zh": "Китайский", "ko": "Корейский",
	"ar": "Арабский", "hi": "Хинди", "tr": "Турецкий",
	"uk": "Украинский", "bg": "Болгарский", "cs": "Чешский",
	"auto": "Автоопределение",
}

// ServiceNames maps provider identifiers to display names.
var ServiceNames = map[string]string{
	ServiceDeepL:     "DeepL",
	ServiceGoogle:    "Google Translate",
	ServiceContextil: "Contextil",
	ServiceChatGPT:   "ChatGPT",
	ServiceAuto:      "Автоматический",
}

// SupportedLanguage reports whether code may be used as a target language.
func SupportedLanguage(code string) bool {
	for _, l := range SupportedLanguages {
		if l == code {
			return true
		}
	}
	return false
}

// LanguageName returns the display name for a language code, falling back to
// the code itself.
func LanguageName(code string) string {
	if name, ok := LanguageNames[code]; ok {
		return name
	}
	return code
}

// ServiceName returns the display name for a provider identifier.
func ServiceName(service string) string {
	if name, ok := ServiceNames[service]; ok {
		return name
	}
	return service
}

// Translation is a persisted translation result. The (UserID, OriginalText,
// TargetLanguage, Service) tuple is unique.
type Translation struct {
	ID               string    `json:"id" db:"id"`
	UserID           string    `json:"-" db:"user_id"`
	OriginalText     string    `json:"original_text" db:"original_text"`
	TranslatedText   string    `json:"translated_text" db:"translated_text"`
	SourceLanguage   string    `json:"source_language" db:"source_language"`
	TargetLanguage   string    `json:"target_language" db:"target_language"`
	Service          string    `json:"translator_service" db:"translator_service"`
	Context          string    `json:"context,omitempty" db:"context"`
	Confidence       *float64  `json:"confidence,omitempty" db:"confidence"`
	ProcessingTimeMS *int      `json:"processing_time_ms,omitempty" db:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// HistoryFilter narrows translation history queries.
type HistoryFilter struct {
	Service        string
	TargetLanguage string
	SourceLanguage string
	Search         string
	Page           int
	PerPage        int
}
