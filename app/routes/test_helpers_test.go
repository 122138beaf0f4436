package routes

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"spacetraveling/app/locale"
	"spacetraveling/app/repositories"
	"spacetraveling/app/repositories/mock"
	"spacetraveling/app/services"
	"spacetraveling/config"

	"github.com/stretchr/testify/require"
)

func setupTestTemplates(t *testing.T) string {
	tmpDir := t.TempDir()
	viewsDir := filepath.Join(tmpDir, "app", "views")

	// Create directories
	dirs := []string{
		filepath.Join(viewsDir, "posts"),
		filepath.Join(viewsDir, "shared"),
		filepath.Join(tmpDir, "static"),
	}
	for _, dir := range dirs {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}

	// Create template files
	templates := map[string]string{
		filepath.Join(viewsDir, "layout.html"):          `{{define "layout"}}<!DOCTYPE html><html><head>{{block "head" .}}{{end}}</head><body>{{template "content" .}}</body></html>{{end}}`,
		filepath.Join(viewsDir, "posts/index.html"):     `{{define "content"}}<div class="posts">{{range .Posts}}<h2>{{.Title}}</h2>{{end}}</div>{{if .Cursor.HasMore}}<button id="load-more" data-cursor="{{.Cursor}}">{{t "load_more"}}</button>{{end}}{{end}}`,
		filepath.Join(viewsDir, "posts/show.html"):      `{{define "content"}}<h1>{{.Post.Title}}</h1><span class="reading-time">{{readingTime .ReadingTime}}</span>{{end}}`,
		filepath.Join(viewsDir, "posts/pending.html"):   `{{define "content"}}<p class="loading">{{.Message}}</p>{{end}}`,
		filepath.Join(viewsDir, "posts/not_found.html"): `{{define "content"}}<h1 class="not-found">{{.Message}}</h1>{{end}}`,
		filepath.Join(viewsDir, "shared/error.html"):    `{{define "content"}}<p class="error">{{.Message}}</p>{{end}}`,
	}
	for path, content := range templates {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	// Create static test file
	cssContent := "body { background: #1a1d23; }"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "static/style.css"), []byte(cssContent), 0644))

	return tmpDir
}

func testDocs() []repositories.RawDocument {
	return []repositories.RawDocument{
		{
			UID:                  "como-utilizar-hooks",
			Type:                 "post",
			FirstPublicationDate: repositories.Timestamp{Time: time.Date(2021, 3, 15, 19, 25, 28, 0, time.UTC), Valid: true},
			Data: repositories.RawData{
				Title:   "Como utilizar Hooks",
				Author:  "Joseph Oliveira",
				Content: []repositories.RawContent{{Heading: "Intro", Body: []repositories.RawBody{{Text: "hello world"}}}},
			},
		},
		{
			UID:  "criando-um-app-cra-do-zero",
			Type: "post",
			Data: repositories.RawData{Title: "Criando um app CRA do zero", Author: "Danilo Vieira"},
		},
		{
			UID:  "third",
			Type: "post",
			Data: repositories.RawData{Title: "Third", Author: "Danilo Vieira"},
		},
	}
}

// setupTestDependencies wires the services over an in-memory content
// repository and a Badger page store.
func setupTestDependencies(t *testing.T, fallback bool) (Dependencies, *mock.ContentRepository) {
	t.Helper()
	db, err := repositories.OpenDB("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := mock.NewContentRepository(testDocs()...)
	postService := services.NewPostService(repo, "post", 2)
	pageService := services.NewStaticPageService(postService, repositories.NewBadgerPageRepository(db), services.StaticPageOptions{
		Fallback:       fallback,
		PrerenderLimit: 1,
		MissingTTL:     time.Minute,
	})
	loc, err := locale.New(time.UTC)
	require.NoError(t, err)

	return Dependencies{
		Posts:    postService,
		Pages:    pageService,
		Locale:   loc,
		BasePath: setupTestTemplates(t),
		API: config.APIConfig{
			RatePerSecond:  100,
			Burst:          100,
			AllowedOrigins: []string{"https://spacetraveling.dev"},
		},
	}, repo
}
