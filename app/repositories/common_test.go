package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMarshalEntity(t *testing.T) {
	t.Run("marshal stored page", func(t *testing.T) {
		page := &StoredPage{
			Slug:        "como-utilizar-hooks",
			Document:    []byte(`{"uid":"como-utilizar-hooks"}`),
			ETag:        `"abc"`,
			GeneratedAt: time.Date(2021, 3, 15, 19, 25, 28, 0, time.UTC),
		}

		data, err := marshalEntity(page)
		assert.NoError(t, err)
		assert.NotEmpty(t, data)

		var unmarshaled StoredPage
		err = unmarshalEntity(data, &unmarshaled)
		assert.NoError(t, err)
		assert.Equal(t, page.Slug, unmarshaled.Slug)
		assert.Equal(t, page.Document, unmarshaled.Document)
		assert.True(t, page.GeneratedAt.Equal(unmarshaled.GeneratedAt))
	})

	t.Run("marshal invalid entity", func(t *testing.T) {
		invalidEntity := struct {
			Ch chan int
		}{
			Ch: make(chan int),
		}

		_, err := marshalEntity(invalidEntity)
		assert.Error(t, err)
	})
}

func TestUnmarshalEntity(t *testing.T) {
	t.Run("unmarshal invalid JSON", func(t *testing.T) {
		var page StoredPage
		err := unmarshalEntity([]byte(`{"slug":1,invalid json}`), &page)
		assert.Error(t, err)
	})

	t.Run("unmarshal into nil", func(t *testing.T) {
		err := unmarshalEntity([]byte(`{"slug":"a"}`), nil)
		assert.Error(t, err)
	})
}

func TestStatusError(t *testing.T) {
	err := &StatusError{StatusCode: 404, Body: "not here"}
	assert.Equal(t, "content service returned status 404: not here", err.Error())
}
