package service

import (
	"fmt"

	"spacetraveling/app/httpclient"
	"spacetraveling/app/locale"
	"spacetraveling/app/repositories"
	"spacetraveling/app/services"
	"spacetraveling/config"

	"github.com/dgraph-io/badger/v4"
)

// loadConfig and newContentRepository are variables so tests can swap them.
var (
	loadConfig = func() (*config.AppConfig, error) {
		return config.Load(config.GetBasePath())
	}
	newContentRepository = func(cfg config.ContentConfig) (repositories.ContentRepository, error) {
		client := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
		return repositories.NewPrismicRepository(cfg.Endpoint, cfg.AccessToken, client)
	}
)

// App holds everything a command needs.
type App struct {
	Config   config.AppConfig
	BasePath string
	DB       *badger.DB
	Posts    *services.PostService
	Pages    *services.StaticPageService
	Locale   *locale.Locale
}

func newApp(cfg config.AppConfig) (*App, error) {
	content, err := newContentRepository(cfg.Content)
	if err != nil {
		return nil, err
	}

	loc, err := locale.New(cfg.Location())
	if err != nil {
		return nil, err
	}

	db, err := repositories.OpenDB(cfg.Pages.Path)
	if err != nil {
		return nil, err
	}

	basePath := cfg.Server.ViewsPath
	if basePath == "" {
		basePath = config.GetBasePath()
	}

	posts := services.NewPostService(content, cfg.Content.DocumentType, cfg.HomePageSize)
	pages := services.NewStaticPageService(posts, repositories.NewBadgerPageRepository(db), services.StaticPageOptions{
		Fallback:       cfg.Pages.Fallback,
		PrerenderLimit: cfg.Pages.PrerenderLimit,
		MissingTTL:     cfg.Pages.MissingTTL,
	})

	return &App{
		Config:   cfg,
		BasePath: basePath,
		DB:       db,
		Posts:    posts,
		Pages:    pages,
		Locale:   loc,
	}, nil
}

func (a *App) Close() error {
	if err := a.DB.Close(); err != nil {
		return fmt.Errorf("close page store: %w", err)
	}
	return nil
}
