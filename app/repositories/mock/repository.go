package mock

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"spacetraveling/app/repositories"
)

const cursorPrefix = "mock-page:"

// ContentRepository is an in-memory content service. Query pages through
// the documents in insertion order and hands out cursors of the form
// "mock-page:<offset>:<size>".
type ContentRepository struct {
	docs  []repositories.RawDocument
	mutex sync.RWMutex

	// Err, when set, is returned by every call.
	Err error
	// Calls counts Query and GetByUID invocations.
	Calls int
}

func NewContentRepository(docs ...repositories.RawDocument) *ContentRepository {
	return &ContentRepository{docs: docs}
}

func (m *ContentRepository) Add(docs ...repositories.RawDocument) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.docs = append(m.docs, docs...)
}

func (m *ContentRepository) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.docs = nil
	m.Err = nil
	m.Calls = 0
}

func (m *ContentRepository) SetErr(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Err = err
}

func (m *ContentRepository) CallCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.Calls
}

func (m *ContentRepository) Query(ctx context.Context, params repositories.QueryParams) (*repositories.QueryResponse, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Calls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}

	offset, size := 0, params.PageSize
	if params.Cursor != "" {
		var err error
		offset, size, err = parseCursor(params.Cursor)
		if err != nil {
			return nil, err
		}
	}
	if size <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", size)
	}

	var matching []repositories.RawDocument
	for _, doc := range m.docs {
		if params.DocumentType == "" || doc.Type == "" || doc.Type == params.DocumentType {
			matching = append(matching, doc)
		}
	}

	resp := &repositories.QueryResponse{}
	if offset >= len(matching) {
		return resp, nil
	}
	end := offset + size
	if end > len(matching) {
		end = len(matching)
	}
	resp.Results = append(resp.Results, matching[offset:end]...)
	if end < len(matching) {
		resp.NextPage = fmt.Sprintf("%s%d:%d", cursorPrefix, end, size)
	}
	return resp, nil
}

func (m *ContentRepository) GetByUID(ctx context.Context, docType, uid string) (*repositories.RawDocument, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Calls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	for _, doc := range m.docs {
		if doc.UID == uid && (doc.Type == "" || doc.Type == docType) {
			d := doc
			return &d, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func parseCursor(cursor string) (int, int, error) {
	rest, ok := strings.CutPrefix(cursor, cursorPrefix)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", repositories.ErrInvalidCursor, cursor)
	}
	offsetStr, sizeStr, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", repositories.ErrInvalidCursor, cursor)
	}
	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		return 0, 0, fmt.Errorf("%w: %s", repositories.ErrInvalidCursor, cursor)
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s", repositories.ErrInvalidCursor, cursor)
	}
	return offset, size, nil
}

// PageStore is an in-memory repositories.PageStore. Missing markers expire
// according to Now.
type PageStore struct {
	pages   map[string]*repositories.StoredPage
	missing map[string]time.Time
	mutex   sync.RWMutex

	Now func() time.Time
}

func NewPageStore() *PageStore {
	return &PageStore{
		pages:   make(map[string]*repositories.StoredPage),
		missing: make(map[string]time.Time),
		Now:     time.Now,
	}
}

func (s *PageStore) Get(slug string) (*repositories.StoredPage, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	page, ok := s.pages[slug]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *page
	return &cp, nil
}

func (s *PageStore) Put(page *repositories.StoredPage) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	cp := *page
	s.pages[page.Slug] = &cp
	delete(s.missing, page.Slug)
	return nil
}

func (s *PageStore) MarkMissing(slug string, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.pages, slug)
	if ttl <= 0 {
		delete(s.missing, slug)
		return nil
	}
	s.missing[slug] = s.Now().Add(ttl)
	return nil
}

func (s *PageStore) IsMissing(slug string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	expires, ok := s.missing[slug]
	if !ok {
		return false, nil
	}
	if !s.Now().Before(expires) {
		delete(s.missing, slug)
		return false, nil
	}
	return true, nil
}

// MissingCount is the number of unexpired missing markers.
func (s *PageStore) MissingCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	now := s.Now()
	n := 0
	for _, expires := range s.missing {
		if now.Before(expires) {
			n++
		}
	}
	return n
}

func (s *PageStore) List() ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	slugs := make([]string, 0, len(s.pages))
	for slug := range s.pages {
		slugs = append(slugs, slug)
	}
	return slugs, nil
}

func (s *PageStore) Clear() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.pages = make(map[string]*repositories.StoredPage)
	s.missing = make(map[string]time.Time)
	return nil
}
