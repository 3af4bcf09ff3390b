package bookstack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Config holds the connection parameters for a BookStack instance.
type Config struct {
	BaseURL     string
	TokenID     string
	TokenSecret string
	Timeout     time.Duration

	// MinRequestInterval is the enforced spacing between outbound requests.
	// Zero falls back to 500ms.
	MinRequestInterval time.Duration

	// NestedChapterCreate selects POST /api/books/{id}/chapters over
	// POST /api/chapters with book_id in the body. Endpoint shape differs
	// between BookStack releases.
	NestedChapterCreate bool
}

// Client talks to the BookStack REST API. Lookups by name are
// case-insensitive, and results are cached for the lifetime of the client
// (one export run) so repeated find-or-create calls stay idempotent without
// extra round trips. The remote instance stays authoritative: the cache is
// never reused across runs.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	authHeader    string
	nestedChapter bool
	rateLimiter   *rateLimiter

	mu           sync.Mutex
	bookCache    *Book
	chapterCache map[string]*Chapter
	pageCache    map[string]*Page
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	since := time.Since(r.lastCall)
	if since < r.interval {
		time.Sleep(r.interval - since)
	}
	r.lastCall = time.Now()
}

// NewClient creates a BookStack API client with request pacing and an empty
// per-run identity cache.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	interval := cfg.MinRequestInterval
	if interval == 0 {
		interval = 500 * time.Millisecond
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		authHeader:    fmt.Sprintf("Token %s:%s", cfg.TokenID, cfg.TokenSecret),
		nestedChapter: cfg.NestedChapterCreate,
		rateLimiter:   newRateLimiter(interval),
		chapterCache:  make(map[string]*Chapter),
		pageCache:     make(map[string]*Page),
	}
}

// do issues a paced, authenticated request and returns the response body
// after status handling.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	c.rateLimiter.wait()

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Err: fmt.Errorf("read response body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return data, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{StatusCode: resp.StatusCode, URL: reqURL}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{StatusCode: resp.StatusCode}
	default:
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
		var errBody map[string]any
		if len(data) > 0 && json.Unmarshal(data, &errBody) == nil {
			apiErr.Body = errBody
			if msg, ok := errBody["error"].(string); ok && msg != "" {
				apiErr.Message = msg
			} else if errObj, ok := errBody["error"].(map[string]any); ok {
				if msg, ok := errObj["message"].(string); ok && msg != "" {
					apiErr.Message = msg
				}
			}
		}
		return nil, apiErr
	}
}

// TestConnection verifies the configured URL and token pair by listing books.
func (c *Client) TestConnection(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodGet, "/api/books", nil, nil); err != nil {
		return err
	}
	return nil
}

// ClearCache drops the per-run identity cache. After this, repeated
// find-or-create calls hit the remote instance again.
func (c *Client) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bookCache = nil
	c.chapterCache = make(map[string]*Chapter)
	c.pageCache = make(map[string]*Page)
}

// GetShelves lists all shelves visible to the token.
func (c *Client) GetShelves(ctx context.Context) ([]Shelf, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/shelves", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list shelves: %w", err)
	}
	var list shelfList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode shelves: %w", err)
	}
	return list.Data, nil
}

// FindShelf returns the shelf whose name matches case-insensitively, or nil
// when no shelf matches. An empty search result is not an error.
func (c *Client) FindShelf(ctx context.Context, name string) (*Shelf, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/shelves", url.Values{"search": {name}}, nil)
	if err != nil {
		return nil, fmt.Errorf("search shelf %q: %w", name, err)
	}
	var list shelfList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode shelf search: %w", err)
	}
	for i := range list.Data {
		if strings.EqualFold(list.Data[i].Name, name) {
			return &list.Data[i], nil
		}
	}
	return nil, nil
}

// CreateShelf creates a new shelf.
func (c *Client) CreateShelf(ctx context.Context, name, description string) (*Shelf, error) {
	payload := map[string]string{"name": name, "description": description}
	data, err := c.do(ctx, http.MethodPost, "/api/shelves", nil, payload)
	if err != nil {
		return nil, fmt.Errorf("create shelf %q: %w", name, err)
	}
	var shelf Shelf
	if err := json.Unmarshal(data, &shelf); err != nil {
		return nil, fmt.Errorf("decode created shelf: %w", err)
	}
	log.Printf("Created new shelf: %s (ID: %d)", name, shelf.ID)
	return &shelf, nil
}

// FindOrCreateShelf looks a shelf up by name and creates it when absent.
func (c *Client) FindOrCreateShelf(ctx context.Context, name, description string) (*Shelf, error) {
	shelf, err := c.FindShelf(ctx, name)
	if err != nil {
		return nil, err
	}
	if shelf != nil {
		log.Printf("Using existing shelf: %s (ID: %d)", name, shelf.ID)
		return shelf, nil
	}
	return c.CreateShelf(ctx, name, description)
}

// FindBook returns the book whose name matches case-insensitively, or nil
// when no book matches.
func (c *Client) FindBook(ctx context.Context, name string) (*Book, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/books", url.Values{"search": {name}}, nil)
	if err != nil {
		return nil, fmt.Errorf("search book %q: %w", name, err)
	}
	var list bookList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode book search: %w", err)
	}
	for i := range list.Data {
		if strings.EqualFold(list.Data[i].Name, name) {
			return &list.Data[i], nil
		}
	}
	return nil, nil
}

// CreateBook creates a new book.
func (c *Client) CreateBook(ctx context.Context, name, description string) (*Book, error) {
	payload := map[string]string{"name": name, "description": description}
	data, err := c.do(ctx, http.MethodPost, "/api/books", nil, payload)
	if err != nil {
		return nil, fmt.Errorf("create book %q: %w", name, err)
	}
	var book Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("decode created book: %w", err)
	}
	log.Printf("Created new book: %s (ID: %d)", name, book.ID)
	return &book, nil
}

// FindOrCreateBook looks a book up by name and creates it when absent. The
// result is cached for the rest of the run.
func (c *Client) FindOrCreateBook(ctx context.Context, name, description string) (*Book, error) {
	c.mu.Lock()
	if c.bookCache != nil && strings.EqualFold(c.bookCache.Name, name) {
		book := c.bookCache
		c.mu.Unlock()
		return book, nil
	}
	c.mu.Unlock()

	book, err := c.FindBook(ctx, name)
	if err != nil {
		return nil, err
	}
	if book == nil {
		book, err = c.CreateBook(ctx, name, description)
		if err != nil {
			return nil, err
		}
	} else {
		log.Printf("Using existing book: %s (ID: %d)", name, book.ID)
	}

	c.mu.Lock()
	c.bookCache = book
	c.mu.Unlock()
	return book, nil
}

// AssignBookToShelf links a book to a shelf. This is best-effort: a failed
// link is logged and reported as false, never as an error, so the rest of
// an export can proceed.
func (c *Client) AssignBookToShelf(ctx context.Context, bookID, shelfID int) bool {
	payload := map[string][]int{"books": {bookID}}
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/shelves/%d/books", shelfID), nil, payload)
	if err != nil {
		log.Printf("Failed to assign book %d to shelf %d: %v", bookID, shelfID, err)
		return false
	}
	log.Printf("Assigned book %d to shelf %d", bookID, shelfID)
	return true
}

func chapterCacheKey(bookID int, name string) string {
	return fmt.Sprintf("%d:%s", bookID, strings.ToLower(name))
}

func pageCacheKey(chapterID int, name string) string {
	return fmt.Sprintf("%d:%s", chapterID, strings.ToLower(name))
}

// FindChapter returns the chapter with the given name inside a book, or nil
// when absent. A 404 on the chapter listing means the book is still empty
// and is treated as an empty result, not an error.
func (c *Client) FindChapter(ctx context.Context, bookID int, name string) (*Chapter, error) {
	key := chapterCacheKey(bookID, name)
	c.mu.Lock()
	if chapter, ok := c.chapterCache[key]; ok {
		c.mu.Unlock()
		return chapter, nil
	}
	c.mu.Unlock()

	data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/books/%d/chapters", bookID), nil, nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("search chapter %q in book %d: %w", name, bookID, err)
	}
	var list chapterList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode chapter list: %w", err)
	}
	for i := range list.Data {
		if strings.EqualFold(list.Data[i].Name, name) {
			chapter := &list.Data[i]
			c.mu.Lock()
			c.chapterCache[key] = chapter
			c.mu.Unlock()
			return chapter, nil
		}
	}
	return nil, nil
}

// CreateChapter creates a new chapter inside a book. The endpoint shape is
// configuration-sensitive, see Config.NestedChapterCreate.
func (c *Client) CreateChapter(ctx context.Context, bookID int, name, description string) (*Chapter, error) {
	var (
		data []byte
		err  error
	)
	if c.nestedChapter {
		payload := map[string]any{"name": name, "description": description}
		data, err = c.do(ctx, http.MethodPost, fmt.Sprintf("/api/books/%d/chapters", bookID), nil, payload)
	} else {
		payload := map[string]any{"name": name, "description": description, "book_id": bookID}
		data, err = c.do(ctx, http.MethodPost, "/api/chapters", nil, payload)
	}
	if err != nil {
		return nil, fmt.Errorf("create chapter %q: %w", name, err)
	}
	var chapter Chapter
	if err := json.Unmarshal(data, &chapter); err != nil {
		return nil, fmt.Errorf("decode created chapter: %w", err)
	}
	log.Printf("Created new chapter: %s (ID: %d)", name, chapter.ID)
	return &chapter, nil
}

// FindOrCreateChapter looks a chapter up by name inside a book and creates
// it when absent. The result is cached for the rest of the run.
func (c *Client) FindOrCreateChapter(ctx context.Context, bookID int, name, description string) (*Chapter, error) {
	chapter, err := c.FindChapter(ctx, bookID, name)
	if err != nil {
		return nil, err
	}
	if chapter == nil {
		chapter, err = c.CreateChapter(ctx, bookID, name, description)
		if err != nil {
			return nil, err
		}
	} else {
		log.Printf("Using existing chapter: %s (ID: %d)", name, chapter.ID)
	}

	c.mu.Lock()
	c.chapterCache[chapterCacheKey(bookID, name)] = chapter
	c.mu.Unlock()
	return chapter, nil
}

// FindPage returns the page with the given name inside a chapter, or nil
// when absent.
func (c *Client) FindPage(ctx context.Context, chapterID int, name string) (*Page, error) {
	key := pageCacheKey(chapterID, name)
	c.mu.Lock()
	if page, ok := c.pageCache[key]; ok {
		c.mu.Unlock()
		return page, nil
	}
	c.mu.Unlock()

	data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/chapters/%d/pages", chapterID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search page %q in chapter %d: %w", name, chapterID, err)
	}
	var list pageList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode page list: %w", err)
	}
	for i := range list.Data {
		if strings.EqualFold(list.Data[i].Name, name) {
			page := &list.Data[i]
			c.mu.Lock()
			c.pageCache[key] = page
			c.mu.Unlock()
			return page, nil
		}
	}
	return nil, nil
}

// CreatePage creates a new markdown page inside a chapter.
func (c *Client) CreatePage(ctx context.Context, chapterID int, name, markdown string) (*Page, error) {
	payload := map[string]string{"title": name, "markdown": markdown}
	data, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/chapters/%d/pages", chapterID), nil, payload)
	if err != nil {
		return nil, fmt.Errorf("create page %q: %w", name, err)
	}
	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decode created page: %w", err)
	}
	log.Printf("Created new page: %s (ID: %d)", name, page.ID)
	return &page, nil
}

// UpdatePage replaces an existing page's title and markdown body.
func (c *Client) UpdatePage(ctx context.Context, pageID int, name, markdown string) (*Page, error) {
	payload := map[string]string{"title": name, "markdown": markdown}
	data, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/pages/%d", pageID), nil, payload)
	if err != nil {
		return nil, fmt.Errorf("update page %q: %w", name, err)
	}
	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decode updated page: %w", err)
	}
	log.Printf("Updated page: %s (ID: %d)", name, pageID)
	return &page, nil
}

// CreateOrUpdatePage writes a page by name inside a chapter: found pages are
// fully overwritten, absent pages are created.
func (c *Client) CreateOrUpdatePage(ctx context.Context, chapterID int, name, markdown string) (*Page, error) {
	existing, err := c.FindPage(ctx, chapterID, name)
	if err != nil {
		return nil, err
	}

	var page *Page
	if existing != nil {
		page, err = c.UpdatePage(ctx, existing.ID, name, markdown)
	} else {
		page, err = c.CreatePage(ctx, chapterID, name, markdown)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.pageCache[pageCacheKey(chapterID, name)] = page
	c.mu.Unlock()
	return page, nil
}
