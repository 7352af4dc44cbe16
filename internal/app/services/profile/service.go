// Package profile manages the caller's learning profile.
package profile

import (
	"context"
	"fmt"

	"github.com/readlingo/bookreader/internal/app/domain/user"
	"github.com/readlingo/bookreader/internal/app/storage"
	"github.com/readlingo/bookreader/pkg/logger"
)

// Service reads and updates learning profiles.
type Service struct {
	users storage.UserStore
	log   *logger.Logger
}

// New constructs a profile service.
func New(users storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("profile")
	}
	return &Service{users: users, log: log}
}

// Get returns the caller's profile.
func (s *Service) Get(ctx context.Context, userID string) (user.Profile, error) {
	return s.users.GetProfile(ctx, userID)
}

// Update changes the learning settings. Empty fields keep their values.
func (s *Service) Update(ctx context.Context, userID string, update user.Profile) (user.Profile, error) {
	p, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return user.Profile{}, err
	}

	if update.NativeLanguage != "" {
		if !user.ValidProfileLanguage(update.NativeLanguage) {
			return user.Profile{}, fmt.Errorf("unsupported native language %q", update.NativeLanguage)
		}
		p.NativeLanguage = update.NativeLanguage
	}
	if update.LanguageToLearn != "" {
		if !user.ValidProfileLanguage(update.LanguageToLearn) {
			return user.Profile{}, fmt.Errorf("unsupported language to learn %q", update.LanguageToLearn)
		}
		p.LanguageToLearn = update.LanguageToLearn
	}
	if update.CurrentLevel != "" {
		if !user.ValidLevel(update.CurrentLevel) {
			return user.Profile{}, fmt.Errorf("unknown level %q", update.CurrentLevel)
		}
		p.CurrentLevel = update.CurrentLevel
	}
	if update.AvatarURL != "" {
		p.AvatarURL = update.AvatarURL
	}
	return s.users.UpdateProfile(ctx, p)
}
