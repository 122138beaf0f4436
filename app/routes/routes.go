package routes

import (
	"net/http"
	"path/filepath"

	"spacetraveling/app/controllers"
	"spacetraveling/app/locale"
	"spacetraveling/app/middleware"
	"spacetraveling/app/services"
	"spacetraveling/config"

	"github.com/gorilla/mux"
)

// Dependencies are the services the routes are served from.
type Dependencies struct {
	Posts  *services.PostService
	Pages  *services.StaticPageService
	Locale *locale.Locale
	// BasePath is the directory holding app/views and static.
	BasePath string
	API      config.APIConfig
}

// SetupRoutes defines the application's routes and returns a router.
func SetupRoutes(deps Dependencies) *mux.Router {
	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecurityHeaders)

	postController := controllers.NewPostController(deps.Posts, deps.Pages, deps.Locale, deps.BasePath)

	// Serve static files
	staticDir := filepath.Join(deps.BasePath, "static")
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	router.HandleFunc("/health", controllers.Health).Methods("GET")

	limiter := middleware.NewRateLimiter(deps.API.RatePerSecond, deps.API.Burst)

	// Web routes; post pages can reach the content service, so they share
	// the API budget
	router.HandleFunc("/", postController.Index).Methods("GET")
	router.Handle("/post/{slug}", limiter.Limit(http.HandlerFunc(postController.Show))).Methods("GET")

	// API routes with JSON content type
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.CORS(deps.API.AllowedOrigins))
	api.Use(limiter.Limit)
	api.Use(middleware.ContentTypeJSON)

	posts := api.PathPrefix("/posts").Subrouter()
	posts.HandleFunc("", postController.APIList).Methods("GET", "OPTIONS")
	posts.HandleFunc("/{slug}", postController.APIShow).Methods("GET", "OPTIONS")

	return router
}
