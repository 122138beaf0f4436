package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidCursor = errors.New("invalid page cursor")
)

const (
	// Key prefixes in the page store
	PageKeyPrefix    = "page:"
	MissingKeyPrefix = "missing:"
)

func pageKey(slug string) []byte {
	return []byte(PageKeyPrefix + slug)
}

func missingKey(slug string) []byte {
	return []byte(MissingKeyPrefix + slug)
}

// StatusError is returned when the content service answers with a non-200
// status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("content service returned status %d: %s", e.StatusCode, e.Body)
}

// marshalEntity marshals an entity to JSON
func marshalEntity(entity interface{}) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, entity interface{}) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return nil
}
