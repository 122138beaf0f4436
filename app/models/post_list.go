package models

import (
	"errors"
	"sync"
)

var (
	ErrLoadInProgress = errors.New("a page is already being loaded")
	ErrNoMorePages    = errors.New("no more pages to load")
)

// ListState is the lifecycle of a post list view.
type ListState int

const (
	ListIdle ListState = iota
	ListLoading
	ListLoaded
	ListErrored
)

func (s ListState) String() string {
	switch s {
	case ListIdle:
		return "idle"
	case ListLoading:
		return "loading"
	case ListLoaded:
		return "loaded"
	case ListErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// LoadTicket identifies one page load started by PostList.Begin.
type LoadTicket struct {
	generation uint64
	cursor     PageCursor
}

// Cursor is the cursor the load must fetch. Empty means the first page.
func (t LoadTicket) Cursor() PageCursor {
	return t.cursor
}

// PostList holds the state of one list view: the summaries shown so far and
// the cursor of the next page. At most one load is in flight at a time, and
// pages are only ever appended.
type PostList struct {
	mu         sync.Mutex
	state      ListState
	summaries  []PostSummary
	cursor     PageCursor
	loaded     bool
	err        error
	generation uint64
}

func NewPostList() *PostList {
	return &PostList{}
}

// NewPostListFrom starts a list that already shows page.
func NewPostListFrom(page PostPage) *PostList {
	l := &PostList{}
	l.apply(page)
	return l
}

// Begin moves the list to Loading and returns the ticket for the fetch.
func (l *PostList) Begin() (LoadTicket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == ListLoading {
		return LoadTicket{}, ErrLoadInProgress
	}
	if l.loaded && !l.cursor.HasMore() {
		return LoadTicket{}, ErrNoMorePages
	}
	l.state = ListLoading
	return LoadTicket{generation: l.generation, cursor: l.cursor}, nil
}

// Complete appends page if the ticket is still current. It reports whether
// the page was applied.
func (l *PostList) Complete(t LoadTicket, page PostPage) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t.generation != l.generation || l.state != ListLoading {
		return false
	}
	l.apply(page)
	return true
}

// Fail records err if the ticket is still current. Summaries already shown
// are kept and the same cursor is retried by the next Begin.
func (l *PostList) Fail(t LoadTicket, err error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t.generation != l.generation || l.state != ListLoading {
		return false
	}
	l.state = ListErrored
	l.err = err
	return true
}

// Reset empties the list. Loads started before the reset are discarded.
func (l *PostList) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.generation++
	l.state = ListIdle
	l.summaries = nil
	l.cursor = ""
	l.loaded = false
	l.err = nil
}

func (l *PostList) apply(page PostPage) {
	l.summaries = append(l.summaries, page.Summaries...)
	l.cursor = page.Cursor
	l.loaded = true
	l.err = nil
	l.state = ListLoaded
}

func (l *PostList) State() ListState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Summaries returns a copy of everything loaded so far, in fetch order.
func (l *PostList) Summaries() []PostSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]PostSummary, len(l.summaries))
	copy(out, l.summaries)
	return out
}

func (l *PostList) Cursor() PageCursor {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor
}

func (l *PostList) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// HasMore reports whether the "load more" control should be shown.
func (l *PostList) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.loaded || l.cursor.HasMore()
}
