package bookstack

import (
	"encoding/json"
	"fmt"
)

// BookStack REST resources. Each record keeps the fields this exporter
// relies on and collects everything else the server returned in Extra, so
// unknown API fields survive a round trip without being silently dropped.

// Shelf groups books in BookStack's content hierarchy.
type Shelf struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (s *Shelf) UnmarshalJSON(data []byte) error {
	type alias Shelf
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Extra = extraFields(data, "id", "name", "slug", "description", "created_at", "updated_at")
	*s = Shelf(a)
	return nil
}

func (s *Shelf) String() string {
	return fmt.Sprintf("Shelf(id=%d, name=%q, slug=%q)", s.ID, s.Name, s.Slug)
}

// Book belongs to at most one shelf and holds chapters.
type Book struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (b *Book) UnmarshalJSON(data []byte) error {
	type alias Book
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Extra = extraFields(data, "id", "name", "slug", "description", "created_at", "updated_at")
	*b = Book(a)
	return nil
}

func (b *Book) String() string {
	return fmt.Sprintf("Book(id=%d, name=%q, slug=%q)", b.ID, b.Name, b.Slug)
}

// Chapter belongs to exactly one book and holds pages.
type Chapter struct {
	ID          int    `json:"id"`
	BookID      int    `json:"book_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (c *Chapter) UnmarshalJSON(data []byte) error {
	type alias Chapter
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Extra = extraFields(data, "id", "book_id", "name", "slug", "description", "created_at", "updated_at")
	*c = Chapter(a)
	return nil
}

func (c *Chapter) String() string {
	return fmt.Sprintf("Chapter(id=%d, name=%q, book_id=%d)", c.ID, c.Name, c.BookID)
}

// Page belongs to exactly one chapter. Markdown holds the full page body;
// writes are full replacements, never merges.
type Page struct {
	ID        int    `json:"id"`
	BookID    int    `json:"book_id"`
	ChapterID int    `json:"chapter_id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Markdown  string `json:"markdown,omitempty"`
	HTML      string `json:"html,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (p *Page) UnmarshalJSON(data []byte) error {
	type alias Page
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Extra = extraFields(data, "id", "book_id", "chapter_id", "name", "slug", "markdown", "html", "created_at", "updated_at")
	*p = Page(a)
	return nil
}

func (p *Page) String() string {
	return fmt.Sprintf("Page(id=%d, name=%q, chapter_id=%d)", p.ID, p.Name, p.ChapterID)
}

// extraFields returns the raw JSON members that are not part of the known
// field set, or nil when there are none.
func extraFields(data []byte, known ...string) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	for _, k := range known {
		delete(fields, k)
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Listing endpoints wrap their collections in a data envelope.
type shelfList struct {
	Data []Shelf `json:"data"`
}

type bookList struct {
	Data []Book `json:"data"`
}

type chapterList struct {
	Data []Chapter `json:"data"`
}

type pageList struct {
	Data []Page `json:"data"`
}
