package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// PostSummary is one entry of the home page list.
type PostSummary struct {
	UID                  string     `json:"uid" validate:"required"`
	FirstPublicationDate *time.Time `json:"first_publication_date"`
	Title                string     `json:"title"`
	Subtitle             string     `json:"subtitle"`
	Author               string     `json:"author"`
}

// PostDetail is a single post as shown on its own page.
type PostDetail struct {
	UID                  string         `json:"uid" validate:"required"`
	FirstPublicationDate *time.Time     `json:"first_publication_date"`
	Title                string         `json:"title"`
	Subtitle             *string        `json:"subtitle,omitempty"`
	BannerURL            string         `json:"banner_url" validate:"omitempty,url"`
	Author               string         `json:"author"`
	Content              []ContentBlock `json:"content"`
}

// ContentBlock is a heading followed by its paragraphs, in document order.
type ContentBlock struct {
	Heading string     `json:"heading"`
	Body    []BodyText `json:"body"`
}

type BodyText struct {
	Text string `json:"text"`
}

// PageCursor is the content service's token for the next page. Empty means
// there are no further pages.
type PageCursor string

func (c PageCursor) HasMore() bool {
	return c != ""
}

// PostPage is one page of summaries plus the cursor of the page after it.
type PostPage struct {
	Summaries []PostSummary `json:"results"`
	Cursor    PageCursor    `json:"next_page"`
}
