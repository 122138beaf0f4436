package repositories

import (
	"context"
	"time"
)

// ContentRepository is the headless CMS the blog reads posts from.
type ContentRepository interface {
	// Query returns one page of documents. A non-empty Cursor fetches the
	// page it points to and PageSize is ignored.
	Query(ctx context.Context, params QueryParams) (*QueryResponse, error)
	// GetByUID returns ErrNotFound when no document of docType has uid.
	GetByUID(ctx context.Context, docType, uid string) (*RawDocument, error)
}

// PageStore keeps the post pages resolved ahead of time.
type PageStore interface {
	Get(slug string) (*StoredPage, error)
	Put(page *StoredPage) error
	// MarkMissing drops the page stored for slug and remembers for ttl that
	// it does not exist. A non-positive ttl only drops the page.
	MarkMissing(slug string, ttl time.Duration) error
	IsMissing(slug string) (bool, error)
	List() ([]string, error)
	Clear() error
}

type QueryParams struct {
	DocumentType string
	PageSize     int
	Cursor       string
}

type QueryResponse struct {
	Results  []RawDocument
	NextPage string
}

// StoredPage is a post page as kept in the PageStore.
type StoredPage struct {
	Slug        string    `json:"slug"`
	Document    []byte    `json:"document"`
	ETag        string    `json:"etag"`
	GeneratedAt time.Time `json:"generated_at"`
}
