package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaries(uids ...string) []PostSummary {
	out := make([]PostSummary, 0, len(uids))
	for _, uid := range uids {
		out = append(out, PostSummary{UID: uid, Title: "Post " + uid})
	}
	return out
}

func uids(list []PostSummary) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.UID)
	}
	return out
}

func TestPostListLifecycle(t *testing.T) {
	l := NewPostList()
	assert.Equal(t, ListIdle, l.State())
	assert.True(t, l.HasMore())

	ticket, err := l.Begin()
	require.NoError(t, err)
	assert.Equal(t, PageCursor(""), ticket.Cursor())
	assert.Equal(t, ListLoading, l.State())

	assert.True(t, l.Complete(ticket, PostPage{Summaries: summaries("a"), Cursor: "p2"}))
	assert.Equal(t, ListLoaded, l.State())
	assert.Equal(t, PageCursor("p2"), l.Cursor())

	ticket, err = l.Begin()
	require.NoError(t, err)
	assert.Equal(t, PageCursor("p2"), ticket.Cursor())
	assert.True(t, l.Complete(ticket, PostPage{Summaries: summaries("b", "c")}))

	assert.Equal(t, []string{"a", "b", "c"}, uids(l.Summaries()))
	assert.False(t, l.HasMore())

	_, err = l.Begin()
	assert.ErrorIs(t, err, ErrNoMorePages)
}

func TestPostListRejectsOverlappingLoads(t *testing.T) {
	l := NewPostListFrom(PostPage{Summaries: summaries("a"), Cursor: "p2"})

	ticket, err := l.Begin()
	require.NoError(t, err)

	_, err = l.Begin()
	assert.ErrorIs(t, err, ErrLoadInProgress)

	assert.True(t, l.Complete(ticket, PostPage{Summaries: summaries("b"), Cursor: "p3"}))
	assert.Equal(t, []string{"a", "b"}, uids(l.Summaries()))
}

func TestPostListFailureKeepsItems(t *testing.T) {
	l := NewPostListFrom(PostPage{Summaries: summaries("a"), Cursor: "p2"})

	ticket, err := l.Begin()
	require.NoError(t, err)

	boom := errors.New("boom")
	assert.True(t, l.Fail(ticket, boom))
	assert.Equal(t, ListErrored, l.State())
	assert.ErrorIs(t, l.Err(), boom)
	assert.Equal(t, []string{"a"}, uids(l.Summaries()))

	// retry uses the same cursor
	ticket, err = l.Begin()
	require.NoError(t, err)
	assert.Equal(t, PageCursor("p2"), ticket.Cursor())
	assert.True(t, l.Complete(ticket, PostPage{Summaries: summaries("b")}))
	assert.NoError(t, l.Err())
}

func TestPostListDiscardsSupersededLoads(t *testing.T) {
	l := NewPostListFrom(PostPage{Summaries: summaries("a"), Cursor: "p2"})

	stale, err := l.Begin()
	require.NoError(t, err)

	l.Reset()
	assert.Equal(t, ListIdle, l.State())
	assert.Empty(t, l.Summaries())

	assert.False(t, l.Complete(stale, PostPage{Summaries: summaries("b")}))
	assert.False(t, l.Fail(stale, errors.New("late")))
	assert.Empty(t, l.Summaries())
	assert.Equal(t, ListIdle, l.State())
}

func TestPostListCompleteRequiresLoading(t *testing.T) {
	l := NewPostList()
	assert.False(t, l.Complete(LoadTicket{}, PostPage{Summaries: summaries("a")}))
	assert.Empty(t, l.Summaries())
}

func TestListStateString(t *testing.T) {
	assert.Equal(t, "idle", ListIdle.String())
	assert.Equal(t, "loading", ListLoading.String())
	assert.Equal(t, "loaded", ListLoaded.String())
	assert.Equal(t, "errored", ListErrored.String())
	assert.Equal(t, "pending", ViewPending.String())
	assert.Equal(t, "not_found", ViewNotFound.String())
}
