// Package httpapi exposes the reader's REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/readlingo/bookreader/internal/app/domain/book"
	"github.com/readlingo/bookreader/internal/app/domain/dictionary"
	"github.com/readlingo/bookreader/internal/app/domain/translation"
	"github.com/readlingo/bookreader/internal/app/domain/user"
	"github.com/readlingo/bookreader/internal/app/services/auth"
	"github.com/readlingo/bookreader/internal/app/services/books"
	"github.com/readlingo/bookreader/internal/app/services/chat"
	dictionarysvc "github.com/readlingo/bookreader/internal/app/services/dictionary"
	"github.com/readlingo/bookreader/internal/app/services/flashcards"
	"github.com/readlingo/bookreader/internal/app/services/profile"
	translationsvc "github.com/readlingo/bookreader/internal/app/services/translation"
	"github.com/readlingo/bookreader/internal/app/storage"
	"github.com/readlingo/bookreader/internal/middleware"
	"github.com/readlingo/bookreader/pkg/logger"
)

// Services bundles the application services the API exposes.
type Services struct {
	Auth         *auth.Service
	Books        *books.Service
	Flashcards   *flashcards.Service
	Dictionary   *dictionarysvc.Service
	Profile      *profile.Service
	Chat         *chat.Service
	Translations *translationsvc.Service
}

type handler struct {
	svc Services
	log *logger.Logger
}

// NewHandler returns a router exposing the REST API under /api.
func NewHandler(svc Services, log *logger.Logger) *mux.Router {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{svc: svc, log: log}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/google", h.googleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", h.refresh).Methods(http.MethodPost)

	api.HandleFunc("/books", h.listBooks).Methods(http.MethodGet)
	api.HandleFunc("/books", h.createBook).Methods(http.MethodPost)
	api.HandleFunc("/books/upload_fb2", h.uploadFB2).Methods(http.MethodPost)
	api.HandleFunc("/books/{id}", h.getBook).Methods(http.MethodGet)
	api.HandleFunc("/books/{id}", h.updateBook).Methods(http.MethodPut)
	api.HandleFunc("/books/{id}", h.deleteBook).Methods(http.MethodDelete)
	api.HandleFunc("/books/{id}/chapters", h.bookChapters).Methods(http.MethodGet)
	api.HandleFunc("/books/{id}/chapter_content", h.chapterContent).Methods(http.MethodGet)

	api.HandleFunc("/flashcards", h.listCards).Methods(http.MethodGet)
	api.HandleFunc("/flashcards", h.createCard).Methods(http.MethodPost)
	api.HandleFunc("/flashcards/review_session", h.reviewSession).Methods(http.MethodGet)
	api.HandleFunc("/flashcards/stats", h.cardStats).Methods(http.MethodGet)
	api.HandleFunc("/flashcards/due_today", h.dueToday).Methods(http.MethodGet)
	api.HandleFunc("/flashcards/reset_progress", h.resetProgress).Methods(http.MethodPost)
	api.HandleFunc("/flashcards/{id}", h.getCard).Methods(http.MethodGet)
	api.HandleFunc("/flashcards/{id}", h.updateCard).Methods(http.MethodPut)
	api.HandleFunc("/flashcards/{id}", h.deleteCard).Methods(http.MethodDelete)
	api.HandleFunc("/flashcards/{id}/submit_answer", h.submitAnswer).Methods(http.MethodPost)

	api.HandleFunc("/profile", h.getProfile).Methods(http.MethodGet)
	api.HandleFunc("/profile", h.updateProfile).Methods(http.MethodPut)

	api.HandleFunc("/dictionary", h.listEntries).Methods(http.MethodGet)
	api.HandleFunc("/dictionary", h.createEntry).Methods(http.MethodPost)
	api.HandleFunc("/dictionary/{id}", h.getEntry).Methods(http.MethodGet)
	api.HandleFunc("/dictionary/{id}", h.updateEntry).Methods(http.MethodPut)
	api.HandleFunc("/dictionary/{id}", h.deleteEntry).Methods(http.MethodDelete)

	api.HandleFunc("/conversations", h.listConversations).Methods(http.MethodGet)
	api.HandleFunc("/conversations", h.createConversation).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}", h.getConversation).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}", h.renameConversation).Methods(http.MethodPut)
	api.HandleFunc("/conversations/{id}", h.deleteConversation).Methods(http.MethodDelete)
	api.HandleFunc("/conversations/{id}/messages", h.conversationMessages).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/send_message", h.sendMessage).Methods(http.MethodPost)

	api.HandleFunc("/translate", h.translate).Methods(http.MethodPost)
	api.HandleFunc("/history", h.history).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}", h.getTranslation).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}", h.updateTranslation).Methods(http.MethodPut)
	api.HandleFunc("/history/{id}", h.deleteTranslation).Methods(http.MethodDelete)

	return r
}

// --- auth --------------------------------------------------------------------

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.svc.Auth.Register(r.Context(), payload.Username, payload.Email, payload.Password, payload.FirstName, payload.LastName)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.svc.Auth.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) googleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		IDToken string `json:"id_token"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.svc.Auth.GoogleLogin(r.Context(), payload.IDToken)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Refresh string `json:"refresh"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	access, err := h.svc.Auth.Refresh(r.Context(), payload.Refresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

// --- books -------------------------------------------------------------------

func (h *handler) listBooks(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	items, err := h.svc.Books.List(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) createBook(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload book.Book
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.svc.Books.Create(r.Context(), userID, payload)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) uploadFB2(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, books.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(books.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse upload: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("file field is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	created, chapters, err := h.svc.Books.UploadFB2(r.Context(), userID, header.Filename, data)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"book":     created,
		"chapters": len(chapters),
	})
}

func (h *handler) getBook(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	b, err := h.svc.Books.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *handler) updateBook(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload book.Book
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.svc.Books.Update(r.Context(), userID, mux.Vars(r)["id"], payload)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Books.Delete(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) bookChapters(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	chapters, err := h.svc.Books.Chapters(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, chapters)
}

func (h *handler) chapterContent(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	order, err := strconv.Atoi(r.URL.Query().Get("chapter"))
	if err != nil || order < 1 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("chapter must be a positive integer"))
		return
	}

	ch, total, err := h.svc.Books.ChapterContent(r.Context(), userID, mux.Vars(r)["id"], order)
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chapter":        ch,
		"total_chapters": total,
	})
}

// --- flashcards --------------------------------------------------------------

type cardPayload struct {
	Word        string `json:"word"`
	Translation string `json:"translation"`
	Example     string `json:"example"`
}

func (h *handler) listCards(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	cards, err := h.svc.Flashcards.List(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (h *handler) createCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload cardPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.svc.Flashcards.Create(r.Context(), userID, payload.Word, payload.Translation, payload.Example)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) reviewSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = n
	}

	cards, err := h.svc.Flashcards.ReviewSession(r.Context(), userID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (h *handler) cardStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.Flashcards.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) dueToday(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	count, err := h.svc.Flashcards.DueToday(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"due_today": count})
}

func (h *handler) resetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	count, err := h.svc.Flashcards.ResetProgress(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cards_reset": count})
}

func (h *handler) getCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Flashcards.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) updateCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload cardPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.svc.Flashcards.Update(r.Context(), userID, mux.Vars(r)["id"], payload.Word, payload.Translation, payload.Example)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Flashcards.Delete(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload struct {
		Quality int `json:"quality"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	outcome, err := h.svc.Flashcards.SubmitAnswer(r.Context(), userID, mux.Vars(r)["id"], payload.Quality)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// --- profile -----------------------------------------------------------------

func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Profile.Get(r.Context(), userID)
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload user.Profile
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.svc.Profile.Update(r.Context(), userID, payload)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// --- dictionary --------------------------------------------------------------

func (h *handler) listEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	entries, err := h.svc.Dictionary.List(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) createEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload dictionary.Entry
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.svc.Dictionary.Create(r.Context(), userID, payload)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) getEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	e, err := h.svc.Dictionary.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *handler) updateEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload dictionary.Entry
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.svc.Dictionary.Update(r.Context(), userID, mux.Vars(r)["id"], payload)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Dictionary.Delete(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- conversations -----------------------------------------------------------

func (h *handler) listConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	convos, err := h.svc.Chat.ListConversations(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, convos)
}

func (h *handler) createConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.svc.Chat.CreateConversation(r.Context(), userID, payload.Title)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) getConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Chat.GetConversation(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) renameConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.svc.Chat.RenameConversation(r.Context(), userID, mux.Vars(r)["id"], payload.Title)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Chat.DeleteConversation(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) conversationMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	messages, err := h.svc.Chat.Messages(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	exchange, err := h.svc.Chat.SendMessage(r.Context(), userID, mux.Vars(r)["id"], payload.Message)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, exchange)
}

// --- translation -------------------------------------------------------------

func (h *handler) translate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload translationsvc.Request
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.svc.Translations.Translate(r.Context(), userID, payload)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := translation.HistoryFilter{
		Service:        q.Get("translator_service"),
		TargetLanguage: q.Get("target_language"),
		SourceLanguage: q.Get("source_language"),
		Search:         q.Get("search"),
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	page, err := h.svc.Translations.History(r.Context(), userID, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handler) getTranslation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	t, err := h.svc.Translations.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handler) updateTranslation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload struct {
		TranslatedText string `json:"translated_text"`
		Context        string `json:"context"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.svc.Translations.Update(r.Context(), userID, mux.Vars(r)["id"], payload.TranslatedText, payload.Context)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteTranslation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Translations.Delete(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers -----------------------------------------------------------------

// caller extracts the authenticated user. The auth middleware guarantees it on
// protected routes; the guard covers misconfigured wiring.
func (h *handler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return "", false
	}
	return userID, true
}

// statusFor maps service errors to HTTP statuses, falling back when no
// sentinel matches.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidGoogleToken):
		return http.StatusUnauthorized
	case errors.Is(err, translationsvc.ErrProvider):
		return http.StatusServiceUnavailable
	}
	return fallback
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
