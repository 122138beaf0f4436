package repositories

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// RawDocument is a document as returned by the content service.
type RawDocument struct {
	ID                   string    `json:"id"`
	UID                  string    `json:"uid"`
	Type                 string    `json:"type"`
	FirstPublicationDate Timestamp `json:"first_publication_date"`
	Data                 RawData   `json:"data"`
}

type RawData struct {
	Title    TextField    `json:"title"`
	Subtitle *TextField   `json:"subtitle"`
	Author   TextField    `json:"author"`
	Banner   RawImage     `json:"banner"`
	Content  []RawContent `json:"content"`
}

type RawImage struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

type RawContent struct {
	Heading TextField `json:"heading"`
	Body    []RawBody `json:"body"`
}

type RawBody struct {
	Text string `json:"text"`
}

// Timestamp is a nullable publication date. Prismic writes offsets without
// a colon ("2021-03-15T19:25:28+0000").
type Timestamp struct {
	Time  time.Time
	Valid bool
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000-0700",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = Timestamp{Time: parsed, Valid: true}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// Ptr returns nil for a missing date.
func (t Timestamp) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, nil
		}
	}
	parsed, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return parsed, nil
}

// TextField accepts a plain string, null, or a rich text array whose
// entries are joined with a space.
type TextField string

func (f *TextField) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*f = ""
		return nil
	case len(trimmed) > 0 && trimmed[0] == '[':
		var blocks []RawBody
		if err := json.Unmarshal(trimmed, &blocks); err != nil {
			return fmt.Errorf("rich text: %w", err)
		}
		parts := make([]string, 0, len(blocks))
		for _, blk := range blocks {
			if blk.Text != "" {
				parts = append(parts, blk.Text)
			}
		}
		*f = TextField(strings.Join(parts, " "))
		return nil
	default:
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("text: %w", err)
		}
		*f = TextField(s)
		return nil
	}
}

func (f TextField) String() string {
	return string(f)
}
