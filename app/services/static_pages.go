package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"spacetraveling/app/models"
	"spacetraveling/app/repositories"
	"spacetraveling/logger"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

const (
	buildPageSize     = 20
	generationTimeout = 30 * time.Second
)

// StaticPageOptions configures which post pages are resolved ahead of time.
type StaticPageOptions struct {
	// Fallback generates pages on demand for slugs that were not built.
	Fallback bool
	// PrerenderLimit caps how many posts Build resolves.
	PrerenderLimit int
	// MissingTTL is how long a slug the content service does not know keeps
	// answering NotFound without asking again. Zero asks on every request.
	MissingTTL time.Duration
}

// Page is a post page ready to be rendered.
type Page struct {
	View        models.PostView
	ETag        string
	GeneratedAt time.Time
}

// BuildReport lists what Build stored.
type BuildReport struct {
	Built   []string
	Missing []string
}

// StaticPageService keeps post pages in a PageStore. Pages are built ahead
// of time by Build or generated on demand when Fallback is set; at most one
// generation per slug runs at a time.
type StaticPageService struct {
	posts *PostService
	store repositories.PageStore
	opts  StaticPageOptions
	group singleflight.Group
	now   func() time.Time

	mu       sync.Mutex
	failures map[string]error
}

func NewStaticPageService(posts *PostService, store repositories.PageStore, opts StaticPageOptions) *StaticPageService {
	return &StaticPageService{
		posts:    posts,
		store:    store,
		opts:     opts,
		now:      time.Now,
		failures: make(map[string]error),
	}
}

func (s *StaticPageService) Fallback() bool {
	return s.opts.Fallback
}

// Lookup reads slug from the store. ok is false when the store knows nothing
// about slug; a slug recorded as missing yields a NotFound page.
func (s *StaticPageService) Lookup(slug string) (Page, bool, error) {
	stored, err := s.store.Get(slug)
	if err == nil {
		page, err := decodePage(stored)
		return page, err == nil, err
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return Page{}, false, err
	}

	missing, err := s.store.IsMissing(slug)
	if err != nil {
		return Page{}, false, err
	}
	if missing {
		return Page{View: models.NotFoundView()}, true, nil
	}
	return Page{}, false, nil
}

// Request returns the page for slug without waiting on the content service.
// A slug that was not built is generated in the background and reported as
// Pending when Fallback is set, and as NotFound otherwise. If the last
// background generation for slug failed, that failure is returned once.
func (s *StaticPageService) Request(ctx context.Context, slug string) (Page, error) {
	if !validSlug(slug) {
		return Page{View: models.NotFoundView()}, nil
	}
	page, ok, err := s.Lookup(slug)
	if err != nil {
		return Page{}, err
	}
	if ok {
		return page, nil
	}
	if !s.opts.Fallback {
		return Page{View: models.NotFoundView()}, nil
	}
	if err := s.takeFailure(slug); err != nil {
		return Page{}, err
	}

	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), generationTimeout)
	ch := s.group.DoChan(slug, func() (interface{}, error) {
		return s.generate(bg, slug)
	})
	go func() {
		defer cancel()
		res := <-ch
		if res.Err != nil {
			s.recordFailure(slug, res.Err)
			logger.ErrorWithFields("page generation failed", logger.Fields{
				"slug":  slug,
				"error": res.Err.Error(),
			})
		}
	}()
	return Page{View: models.PendingView()}, nil
}

// Resolve returns the page for slug, generating it synchronously on a miss
// when Fallback is set.
func (s *StaticPageService) Resolve(ctx context.Context, slug string) (Page, error) {
	if !validSlug(slug) {
		return Page{View: models.NotFoundView()}, nil
	}
	page, ok, err := s.Lookup(slug)
	if err != nil {
		return Page{}, err
	}
	if ok {
		return page, nil
	}
	if !s.opts.Fallback {
		return Page{View: models.NotFoundView()}, nil
	}
	return s.Generate(ctx, slug)
}

// Generate fetches slug from the content service and stores the result,
// replacing what was stored before.
func (s *StaticPageService) Generate(ctx context.Context, slug string) (Page, error) {
	v, err, _ := s.group.Do(slug, func() (interface{}, error) {
		return s.generate(ctx, slug)
	})
	if err != nil {
		return Page{}, err
	}
	return v.(Page), nil
}

func (s *StaticPageService) generate(ctx context.Context, slug string) (Page, error) {
	post, err := s.posts.GetPost(ctx, slug)
	if errors.Is(err, ErrNotFound) {
		if err := s.store.MarkMissing(slug, s.opts.MissingTTL); err != nil {
			return Page{}, fmt.Errorf("mark %q missing: %w", slug, err)
		}
		return Page{View: models.NotFoundView()}, nil
	}
	if err != nil {
		return Page{}, err
	}

	doc, err := json.Marshal(post)
	if err != nil {
		return Page{}, fmt.Errorf("encode post %q: %w", slug, err)
	}
	stored := &repositories.StoredPage{
		Slug:        slug,
		Document:    doc,
		ETag:        computeETag(doc),
		GeneratedAt: s.now().UTC(),
	}
	if err := s.store.Put(stored); err != nil {
		return Page{}, fmt.Errorf("store page %q: %w", slug, err)
	}

	logger.InfoWithFields("page generated", logger.Fields{"slug": slug, "etag": stored.ETag})
	return Page{
		View:        models.ReadyView(post),
		ETag:        stored.ETag,
		GeneratedAt: stored.GeneratedAt,
	}, nil
}

// Build walks the post list up to PrerenderLimit posts and generates a page
// for each of them.
func (s *StaticPageService) Build(ctx context.Context) (BuildReport, error) {
	var report BuildReport
	limit := s.opts.PrerenderLimit
	if limit <= 0 {
		return report, nil
	}

	pageSize := buildPageSize
	if limit < pageSize {
		pageSize = limit
	}
	list := models.NewPostList()
	for list.HasMore() && len(list.Summaries()) < limit {
		before := len(list.Summaries())
		if err := s.posts.loadMore(ctx, list, pageSize); err != nil {
			return report, fmt.Errorf("list posts: %w", err)
		}
		if len(list.Summaries()) == before {
			break
		}
	}

	summaries := list.Summaries()
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	for _, summary := range summaries {
		page, err := s.Generate(ctx, summary.UID)
		if err != nil {
			return report, fmt.Errorf("generate %q: %w", summary.UID, err)
		}
		if page.View.State == models.ViewNotFound {
			report.Missing = append(report.Missing, summary.UID)
			continue
		}
		report.Built = append(report.Built, summary.UID)
	}
	return report, nil
}

func (s *StaticPageService) List() ([]string, error) {
	return s.store.List()
}

func (s *StaticPageService) Clear() error {
	s.mu.Lock()
	s.failures = make(map[string]error)
	s.mu.Unlock()
	return s.store.Clear()
}

func (s *StaticPageService) recordFailure(slug string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[slug] = err
}

func (s *StaticPageService) takeFailure(slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.failures[slug]
	delete(s.failures, slug)
	return err
}

func decodePage(stored *repositories.StoredPage) (Page, error) {
	var post models.PostDetail
	if err := json.Unmarshal(stored.Document, &post); err != nil {
		return Page{}, fmt.Errorf("decode stored page %q: %w", stored.Slug, err)
	}
	return Page{
		View:        models.ReadyView(&post),
		ETag:        stored.ETag,
		GeneratedAt: stored.GeneratedAt,
	}, nil
}

// computeETag returns a strong ETag for doc.
func computeETag(doc []byte) string {
	sum := blake2b.Sum256(doc)
	return fmt.Sprintf(`"%x"`, sum[:16])
}

func validSlug(slug string) bool {
	return strings.TrimSpace(slug) != "" && !strings.ContainsAny(slug, "/\"\\")
}
