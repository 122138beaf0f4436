package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spacetraveling/app/models"
	"spacetraveling/app/repositories"
	"spacetraveling/logger"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound     = errors.New("post not found")
	ErrFetchFailure = errors.New("failed to fetch content")
	ErrInvalidInput = errors.New("invalid input")
)

// MaxPageSize is the largest page the content service serves.
const MaxPageSize = 100

var validate = validator.New()

// ListInput asks for one page of summaries. An empty Cursor asks for the
// first page.
type ListInput struct {
	PageSize int               `validate:"gt=0,lte=100"`
	Cursor   models.PageCursor `validate:"omitempty,max=2048"`
}

// PostService builds the list and post views from the content service.
type PostService struct {
	content  repositories.ContentRepository
	docType  string
	pageSize int
}

// NewPostService creates a PostService reading documents of docType.
// pageSize is the page size LoadMore requests.
func NewPostService(content repositories.ContentRepository, docType string, pageSize int) *PostService {
	if docType == "" {
		docType = "post"
	}
	if pageSize <= 0 {
		pageSize = 2
	}
	return &PostService{
		content:  content,
		docType:  docType,
		pageSize: pageSize,
	}
}

func (s *PostService) PageSize() int {
	return s.pageSize
}

// ListPage fetches one page of summaries in the order the content service
// returns them, together with the cursor of the next page.
func (s *PostService) ListPage(ctx context.Context, in ListInput) (models.PostPage, error) {
	if err := validate.Struct(in); err != nil {
		return models.PostPage{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	resp, err := s.content.Query(ctx, repositories.QueryParams{
		DocumentType: s.docType,
		PageSize:     in.PageSize,
		Cursor:       string(in.Cursor),
	})
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidCursor) {
			return models.PostPage{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return models.PostPage{}, fmt.Errorf("%w: %w", ErrFetchFailure, err)
	}

	page := models.PostPage{
		Summaries: make([]models.PostSummary, 0, len(resp.Results)),
		Cursor:    models.PageCursor(resp.NextPage),
	}
	seen := make(map[string]struct{}, len(resp.Results))
	for _, doc := range resp.Results {
		summary := toSummary(doc)
		if err := summary.Validate(); err != nil {
			return models.PostPage{}, fmt.Errorf("%w: %w", ErrFetchFailure, err)
		}
		if _, dup := seen[summary.UID]; dup {
			return models.PostPage{}, fmt.Errorf("%w: duplicate post %q in one page", ErrFetchFailure, summary.UID)
		}
		seen[summary.UID] = struct{}{}
		page.Summaries = append(page.Summaries, summary)
	}

	logger.DebugWithFields("post page fetched", logger.Fields{
		"count":    len(page.Summaries),
		"has_more": page.Cursor.HasMore(),
	})
	return page, nil
}

// LoadMore fetches the page after the last one shown in list and appends it.
// It returns models.ErrLoadInProgress while another load is running and
// models.ErrNoMorePages once the last page was loaded. On failure the items
// already in list are kept.
func (s *PostService) LoadMore(ctx context.Context, list *models.PostList) error {
	return s.loadMore(ctx, list, s.pageSize)
}

func (s *PostService) loadMore(ctx context.Context, list *models.PostList, pageSize int) error {
	ticket, err := list.Begin()
	if err != nil {
		return err
	}

	page, err := s.ListPage(ctx, ListInput{PageSize: pageSize, Cursor: ticket.Cursor()})
	if err != nil {
		list.Fail(ticket, err)
		return err
	}
	if !list.Complete(ticket, page) {
		logger.DebugWithFields("discarding superseded page", logger.Fields{"cursor": string(ticket.Cursor())})
	}
	return nil
}

// GetPost resolves one post by its slug.
func (s *PostService) GetPost(ctx context.Context, slug string) (*models.PostDetail, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, ErrNotFound
	}

	doc, err := s.content.GetByUID(ctx, s.docType, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrFetchFailure, err)
	}

	post := toDetail(*doc)
	if err := post.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailure, err)
	}
	return post, nil
}

func toSummary(doc repositories.RawDocument) models.PostSummary {
	summary := models.PostSummary{
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublicationDate.Ptr(),
		Title:                doc.Data.Title.String(),
		Author:               doc.Data.Author.String(),
	}
	if doc.Data.Subtitle != nil {
		summary.Subtitle = doc.Data.Subtitle.String()
	}
	return summary
}

func toDetail(doc repositories.RawDocument) *models.PostDetail {
	post := &models.PostDetail{
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublicationDate.Ptr(),
		Title:                doc.Data.Title.String(),
		Author:               doc.Data.Author.String(),
		Content:              make([]models.ContentBlock, 0, len(doc.Data.Content)),
	}
	if doc.Data.Subtitle != nil {
		subtitle := doc.Data.Subtitle.String()
		post.Subtitle = &subtitle
	}
	// a banner that is not a url is dropped rather than failing the page
	if banner := doc.Data.Banner.URL; banner != "" && validate.Var(banner, "url") == nil {
		post.BannerURL = banner
	}

	for _, raw := range doc.Data.Content {
		block := models.ContentBlock{
			Heading: raw.Heading.String(),
			Body:    make([]models.BodyText, 0, len(raw.Body)),
		}
		for _, body := range raw.Body {
			block.Body = append(block.Body, models.BodyText{Text: body.Text})
		}
		post.Content = append(post.Content, block)
	}
	return post
}
