package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"spacetraveling/app/httpclient"
)

const maxErrorBody = 512

// PrismicRepository reads documents from a Prismic repository through its
// REST API v2.
type PrismicRepository struct {
	client      *httpclient.BaseClient
	endpoint    *url.URL
	accessToken string
}

type apiInfo struct {
	Refs []struct {
		ID          string `json:"id"`
		Ref         string `json:"ref"`
		IsMasterRef bool   `json:"isMasterRef"`
	} `json:"refs"`
}

type searchResponse struct {
	Page     int           `json:"page"`
	NextPage *string       `json:"next_page"`
	Results  []RawDocument `json:"results"`
}

// NewPrismicRepository takes the API endpoint ("https://<repo>.cdn.prismic.io/api/v2").
// A nil httpClient uses the default logging client.
func NewPrismicRepository(endpoint, accessToken string, httpClient *http.Client) (*PrismicRepository, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse content endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("content endpoint %q must be an absolute url", endpoint)
	}
	return &PrismicRepository{
		client:      httpclient.NewBaseClientWithClient(httpClient, u.String()),
		endpoint:    u,
		accessToken: accessToken,
	}, nil
}

func (r *PrismicRepository) Query(ctx context.Context, params QueryParams) (*QueryResponse, error) {
	var req *http.Request
	if params.Cursor != "" {
		next, err := r.cursorURL(params.Cursor)
		if err != nil {
			return nil, err
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
	} else {
		if params.PageSize <= 0 {
			return nil, fmt.Errorf("page size must be positive, got %d", params.PageSize)
		}
		q := fmt.Sprintf(`[[at(document.type,"%s")]]`, params.DocumentType)
		var err error
		req, err = r.searchRequest(ctx, q, params.PageSize)
		if err != nil {
			return nil, err
		}
	}

	var resp searchResponse
	if err := r.doJSON(req, &resp); err != nil {
		return nil, err
	}

	out := &QueryResponse{Results: resp.Results}
	if resp.NextPage != nil {
		out.NextPage = publicCursor(*resp.NextPage)
	}
	return out, nil
}

func (r *PrismicRepository) GetByUID(ctx context.Context, docType, uid string) (*RawDocument, error) {
	if uid == "" || strings.ContainsAny(uid, `"\`) {
		return nil, ErrNotFound
	}
	q := fmt.Sprintf(`[[at(my.%s.uid,"%s")]]`, docType, uid)
	req, err := r.searchRequest(ctx, q, 1)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := r.doJSON(req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}
	return &resp.Results[0], nil
}

// masterRef returns the ref of the currently published content.
func (r *PrismicRepository) masterRef(ctx context.Context) (string, error) {
	req, err := r.client.NewRequest(ctx, http.MethodGet, "", r.withToken(url.Values{}))
	if err != nil {
		return "", err
	}
	var info apiInfo
	if err := r.doJSON(req, &info); err != nil {
		return "", err
	}
	for _, ref := range info.Refs {
		if ref.IsMasterRef {
			return ref.Ref, nil
		}
	}
	return "", fmt.Errorf("content service did not report a master ref")
}

func (r *PrismicRepository) searchRequest(ctx context.Context, predicate string, pageSize int) (*http.Request, error) {
	ref, err := r.masterRef(ctx)
	if err != nil {
		return nil, err
	}
	query := url.Values{
		"ref":      {ref},
		"q":        {predicate},
		"pageSize": {strconv.Itoa(pageSize)},
	}
	return r.client.NewRequest(ctx, http.MethodGet, "documents/search", r.withToken(query))
}

// publicCursor removes the access token Prismic copies into next_page links.
// Cursors end up in pages served to browsers.
func publicCursor(next string) string {
	u, err := url.Parse(next)
	if err != nil {
		return next
	}
	q := u.Query()
	if !q.Has("access_token") {
		return next
	}
	q.Del("access_token")
	u.RawQuery = q.Encode()
	return u.String()
}

// cursorURL checks that cursor is a next_page link of this repository and
// puts the configured access token on it.
func (r *PrismicRepository) cursorURL(cursor string) (string, error) {
	u, err := url.Parse(cursor)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if u.Scheme != r.endpoint.Scheme || u.Host != r.endpoint.Host {
		return "", fmt.Errorf("%w: %s is not on %s", ErrInvalidCursor, u.Host, r.endpoint.Host)
	}
	q := u.Query()
	q.Del("access_token")
	u.RawQuery = r.withToken(q).Encode()
	return u.String(), nil
}

func (r *PrismicRepository) withToken(q url.Values) url.Values {
	if r.accessToken != "" {
		q.Set("access_token", r.accessToken)
	}
	return q
}

func (r *PrismicRepository) doJSON(req *http.Request, dst interface{}) error {
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode content service response: %w", err)
	}
	return nil
}
