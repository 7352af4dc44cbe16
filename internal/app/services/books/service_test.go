package books

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/readlingo/bookreader/internal/app/domain/book"
	"github.com/readlingo/bookreader/internal/app/storage"
	"github.com/readlingo/bookreader/internal/app/storage/memory"
)

const sampleFB2 = `<?xml version="1.0" encoding="UTF-8"?>
<FictionBook xmlns="http://www.gribuser.ru/xml/fictionbook/2.0">
  <description>
    <title-info>
      <genre>prose</genre>
      <author><first-name>Антон</first-name><last-name>Чехов</last-name></author>
      <book-title>Рассказы</book-title>
      <lang>ru</lang>
    </title-info>
  </description>
  <body>
    <section><title><p>Первая</p></title><p>Текст первой главы.</p></section>
    <section><title><p>Вторая</p></title><p>Текст второй главы.</p></section>
  </body>
</FictionBook>`

func newTestService() (*Service, *memory.Store) {
	store := memory.New()
	return New(store, nil), store
}

func TestUploadFB2(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	b, chapters, err := svc.UploadFB2(ctx, "u1", "rasskazy.fb2", []byte(sampleFB2))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if b.Title != "Рассказы" || b.Authors != "Антон Чехов" || b.Language != "ru" {
		t.Fatalf("metadata %+v", b)
	}
	if b.Format != book.FormatFB2 {
		t.Fatalf("format %q", b.Format)
	}
	if len(chapters) != 2 || chapters[0].Title != "Первая" || chapters[1].Order != 2 {
		t.Fatalf("chapters %+v", chapters)
	}

	list, err := svc.List(ctx, "u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v (%d books)", err, len(list))
	}
}

func TestUploadFB2Rejections(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, _, err := svc.UploadFB2(ctx, "u1", "book.epub", []byte(sampleFB2)); !errors.Is(err, ErrNotFB2) {
		t.Fatalf("expected ErrNotFB2, got %v", err)
	}
	if _, _, err := svc.UploadFB2(ctx, "u1", "book.fb2", []byte("not xml")); !errors.Is(err, ErrInvalidFB2) {
		t.Fatalf("expected ErrInvalidFB2, got %v", err)
	}
	if _, _, err := svc.UploadFB2(ctx, "u1", "book.fb2", make([]byte, MaxUploadSize+1)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestChapterContent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	b, _, err := svc.UploadFB2(ctx, "u1", "book.fb2", []byte(sampleFB2))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	ch, total, err := svc.ChapterContent(ctx, "u1", b.ID, 2)
	if err != nil {
		t.Fatalf("chapter content: %v", err)
	}
	if ch.Title != "Вторая" || total != 2 {
		t.Fatalf("chapter %+v total %d", ch, total)
	}

	if _, _, err := svc.ChapterContent(ctx, "u1", b.ID, 99); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing chapter, got %v", err)
	}

	summaries, err := svc.Chapters(ctx, "u1", b.ID)
	if err != nil || len(summaries) != 2 {
		t.Fatalf("chapters: %v (%d)", err, len(summaries))
	}
	if summaries[0].Title != "Первая" {
		t.Fatalf("summary %+v", summaries[0])
	}
}

func TestOwnerScoping(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	b, _, err := svc.UploadFB2(ctx, "owner", "book.fb2", []byte(sampleFB2))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := svc.Get(ctx, "intruder", b.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign book must look absent, got %v", err)
	}
	if err := svc.Delete(ctx, "intruder", b.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign delete must look absent, got %v", err)
	}
	if _, err := svc.Chapters(ctx, "intruder", b.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign chapters must look absent, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", book.Book{Title: "  "}); err == nil {
		t.Fatal("blank title should fail")
	}
	if _, err := svc.Create(ctx, "u1", book.Book{Title: strings.Repeat("a", 101)}); err == nil {
		t.Fatal("overlong title should fail")
	}
	if _, err := svc.Create(ctx, "u1", book.Book{Title: "ok", Format: "PDF"}); err == nil {
		t.Fatal("unknown format should fail")
	}

	b, err := svc.Create(ctx, "u1", book.Book{Title: "Manual"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Format != book.FormatFB2 || b.Language != "en" {
		t.Fatalf("defaults %+v", b)
	}
}
