package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/readlingo/bookreader/internal/app/domain/user"
	"github.com/readlingo/bookreader/internal/app/storage"
	"github.com/readlingo/bookreader/internal/app/storage/memory"
)

func TestUpdate(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	u, err := store.CreateUser(ctx, user.User{Username: "anna"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := store.CreateProfile(ctx, user.Profile{UserID: u.ID}); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	p, err := svc.Update(ctx, u.ID, user.Profile{
		NativeLanguage:  "ru",
		LanguageToLearn: "en",
		CurrentLevel:    user.LevelB2,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.NativeLanguage != "ru" || p.LanguageToLearn != "en" || p.CurrentLevel != "B2" {
		t.Fatalf("profile %+v", p)
	}

	// Partial updates keep the other fields.
	p, err = svc.Update(ctx, u.ID, user.Profile{CurrentLevel: user.LevelC1})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.NativeLanguage != "ru" || p.CurrentLevel != "C1" {
		t.Fatalf("partial update %+v", p)
	}

	if _, err := svc.Update(ctx, u.ID, user.Profile{NativeLanguage: "xx"}); err == nil {
		t.Fatal("bad language should fail")
	}
	if _, err := svc.Update(ctx, u.ID, user.Profile{CurrentLevel: "Z9"}); err == nil {
		t.Fatal("bad level should fail")
	}
	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
