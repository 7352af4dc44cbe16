// Package fb2 extracts metadata and chapters from FictionBook 2.0 documents.
package fb2

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Book is the parsed content of an FB2 file.
type Book struct {
	Title       string
	Description string
	Authors     string
	Genres      string
	Language    string
	Chapters    []Chapter
}

// Chapter is one section of the book body. Order starts at 1.
type Chapter struct {
	Title   string
	Content string
	Order   int
}

type document struct {
	TitleInfo *titleInfo `xml:"description>title-info"`
	Bodies    []body     `xml:"body"`
}

type titleInfo struct {
	Genres     []string   `xml:"genre"`
	Authors    []author   `xml:"author"`
	BookTitle  string     `xml:"book-title"`
	Annotation *textBlock `xml:"annotation"`
	Lang       string     `xml:"lang"`
}

type author struct {
	FirstName  string `xml:"first-name"`
	MiddleName string `xml:"middle-name"`
	LastName   string `xml:"last-name"`
}

type body struct {
	Sections []section `xml:"section"`
}

type section struct {
	Title      *textBlock `xml:"title"`
	Paragraphs []flatText `xml:"p"`
	Sections   []section  `xml:"section"`
}

// flatText collects all character data inside an element, flattening inline
// markup such as <emphasis>.
type flatText string

func (t *flatText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var sb strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.CharData:
			sb.Write(v)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				*t = flatText(sb.String())
				return nil
			}
			depth--
		}
	}
}

// textBlock captures the direct <p> children of an element and, as a
// fallback, all of its character data.
type textBlock struct {
	Paragraphs []string
	All        string
}

func (b *textBlock) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var all strings.Builder
	depth := 0
	var para *strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.CharData:
			all.Write(v)
			if para != nil {
				para.Write(v)
			}
		case xml.StartElement:
			if depth == 0 && v.Name.Local == "p" {
				para = &strings.Builder{}
			}
			depth++
		case xml.EndElement:
			if depth == 0 {
				b.All = all.String()
				return nil
			}
			depth--
			if depth == 0 && para != nil {
				b.Paragraphs = append(b.Paragraphs, para.String())
				para = nil
			}
		}
	}
}

func (b *textBlock) text(sep string) string {
	if b == nil {
		return ""
	}
	var parts []string
	for _, p := range b.Paragraphs {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, sep)
	}
	return strings.TrimSpace(b.All)
}

// Parse reads an FB2 document. It requires the title-info and body elements
// and tolerates documents with or without the FictionBook namespace.
func Parse(data []byte) (Book, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Book{}, fmt.Errorf("malformed XML: %w", err)
	}

	if doc.TitleInfo == nil {
		return Book{}, fmt.Errorf("missing title-info element")
	}
	if len(doc.Bodies) == 0 {
		return Book{}, fmt.Errorf("missing body element")
	}

	bk := Book{
		Title:       strings.TrimSpace(doc.TitleInfo.BookTitle),
		Description: doc.TitleInfo.Annotation.text("\n"),
		Authors:     joinAuthors(doc.TitleInfo.Authors),
		Genres:      joinNonEmpty(doc.TitleInfo.Genres, " "),
		Language:    strings.TrimSpace(doc.TitleInfo.Lang),
	}
	if bk.Title == "" {
		bk.Title = "Без названия"
	}
	if bk.Language == "" {
		bk.Language = "ru"
	}

	// Chapter order follows the section's position in the source document,
	// so a skipped empty section leaves a gap in the numbering.
	sections := doc.Bodies[0].Sections
	for i, sec := range sections {
		if ch, ok := chapterFromSection(sec, i+1); ok {
			bk.Chapters = append(bk.Chapters, ch)
		}
	}
	if len(bk.Chapters) == 0 {
		// Some files wrap every chapter in an outer section with no
		// paragraphs of its own; fall back to all nested sections.
		for i, sec := range collectNested(sections) {
			if ch, ok := chapterFromSection(sec, i+1); ok {
				bk.Chapters = append(bk.Chapters, ch)
			}
		}
	}

	return bk, nil
}

func chapterFromSection(sec section, order int) (Chapter, bool) {
	title := sec.Title.text(" ")
	if title == "" {
		title = fmt.Sprintf("Глава %d", order)
	}

	var paragraphs []string
	for _, p := range sec.Paragraphs {
		if trimmed := strings.TrimSpace(string(p)); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	if len(paragraphs) == 0 {
		return Chapter{}, false
	}

	return Chapter{
		Title:   title,
		Content: strings.Join(paragraphs, "\n\n"),
		Order:   order,
	}, true
}

func joinAuthors(authors []author) string {
	var names []string
	for _, a := range authors {
		parts := make([]string, 0, 3)
		for _, p := range []string{a.FirstName, a.MiddleName, a.LastName} {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			names = append(names, strings.Join(parts, " "))
		}
	}
	return strings.Join(names, ", ")
}

func joinNonEmpty(values []string, sep string) string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, sep)
}

func collectNested(sections []section) []section {
	var out []section
	for _, sec := range sections {
		out = append(out, sec)
		out = append(out, collectNested(sec.Sections)...)
	}
	return out
}
