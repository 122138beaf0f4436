package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spacetraveling/app/locale"
	"spacetraveling/app/models"
	"spacetraveling/app/repositories"
	"spacetraveling/app/services"
	"spacetraveling/logger"

	"github.com/dgraph-io/badger/v4"
)

var osExit = os.Exit

// HandleCommand runs a subcommand and returns its exit code.
func HandleCommand(args []string) int {
	if len(args) < 1 {
		printHelp()
		osExit(1)
		return 1
	}

	cmd := strings.ToLower(args[0])
	switch cmd {
	case "serve":
		return withApp(func(app *App) int {
			if err := RunAppServer(context.Background(), app); err != nil {
				fmt.Printf("Server error: %v\n", err)
				return 1
			}
			return 0
		})
	case "build":
		return withApp(build)
	case "pages":
		return handlePages(args[1:])
	case "posts":
		all := len(args) > 1 && args[1] == "--all"
		return withApp(func(app *App) int { return listPosts(app, all) })
	case "post":
		if len(args) < 2 {
			fmt.Println("Error: post slug required")
			osExit(1)
			return 1
		}
		return withApp(func(app *App) int { return showPost(app, args[1]) })
	case "help":
		printHelp()
		return 0
	default:
		fmt.Printf("Unknown command: %s\n\n", cmd)
		printHelp()
		osExit(1)
		return 1
	}
}

func handlePages(args []string) int {
	if len(args) < 1 {
		printHelp()
		osExit(1)
		return 1
	}

	switch args[0] {
	case "build":
		return withApp(build)
	case "list":
		return withApp(listPages)
	case "clean":
		return withApp(cleanPages)
	case "backup":
		return withApp(backup)
	case "restore":
		if len(args) < 2 {
			fmt.Println("Error: backup file path required for restore")
			osExit(1)
			return 1
		}
		return withApp(func(app *App) int { return restore(app, args[1]) })
	default:
		fmt.Printf("Unknown pages command: %s\n\n", args[0])
		printHelp()
		osExit(1)
		return 1
	}
}

func printHelp() {
	helpText := `Usage: spacetraveling <command> [options]

Commands:
  serve                           Build the configured pages and run the blog server
  build                           Build post pages into the page store
  pages build                     Same as build
  pages list                      List the slugs held by the page store
  pages clean                     Remove every page from the page store
  pages backup                    Create a backup of the page store
  pages restore [file]            Restore the page store from a backup
  posts [--all]                   Print the home page list (--all loads every page)
  post [slug]                     Print a single post
  help                            Display this help message
`
	fmt.Println(helpText)
}

func withApp(run func(app *App) int) int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		return 1
	}
	logger.Init(cfg.Logging.Level)

	app, err := newApp(*cfg)
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			fmt.Printf("%v\n", err)
		}
	}()
	return run(app)
}

// build resolves the configured number of posts into the page store.
func build(app *App) int {
	if app.Config.Pages.Path == "" {
		fmt.Println("Warning: pages.path is not set, built pages are discarded on exit")
	}

	report, err := app.Pages.Build(context.Background())
	if err != nil {
		fmt.Printf("Failed to build pages: %v\n", err)
		return 1
	}
	for _, slug := range report.Built {
		fmt.Printf("  built    /post/%s\n", slug)
	}
	for _, slug := range report.Missing {
		fmt.Printf("  missing  /post/%s\n", slug)
	}
	fmt.Printf("Built %d pages\n", len(report.Built))
	return 0
}

func listPages(app *App) int {
	slugs, err := app.Pages.List()
	if err != nil {
		fmt.Printf("Failed to list pages: %v\n", err)
		return 1
	}
	if len(slugs) == 0 {
		fmt.Println("Page store is empty")
		return 0
	}
	for _, slug := range slugs {
		fmt.Println(slug)
	}
	return 0
}

func cleanPages(app *App) int {
	fmt.Print("Are you sure you want to remove every built page? [y/N] ")
	var response string
	fmt.Scanln(&response)
	if response != "y" && response != "Y" {
		fmt.Println("Operation cancelled")
		return 1
	}

	if err := app.Pages.Clear(); err != nil {
		fmt.Printf("Failed to clean page store: %v\n", err)
		return 1
	}
	fmt.Println("Page store cleaned successfully")
	return 0
}

// backup writes a Badger backup of the page store next to it.
func backup(app *App) int {
	if app.Config.Pages.Path == "" {
		fmt.Println("No page store path configured to backup")
		return 1
	}

	backupDir := filepath.Join(filepath.Dir(app.Config.Pages.Path), "backups")
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		fmt.Printf("Failed to create backup directory: %v\n", err)
		return 1
	}

	backupFile := filepath.Join(backupDir, fmt.Sprintf("pages_%d.bak", time.Now().Unix()))
	f, err := os.Create(backupFile)
	if err != nil {
		fmt.Printf("Failed to create backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	if _, err := app.DB.Backup(f, 0); err != nil {
		fmt.Printf("Failed to backup page store: %v\n", err)
		return 1
	}

	fmt.Printf("Page store backed up successfully to %s\n", backupFile)
	return 0
}

// restore replaces the page store contents with a backup. The backup is
// loaded into a scratch store first so a damaged file leaves the page store
// untouched.
func restore(app *App, backupFile string) int {
	if app.Config.Pages.Path == "" {
		fmt.Println("No page store path configured to restore into")
		return 1
	}

	f, err := os.Open(backupFile)
	if err != nil {
		fmt.Printf("Backup file does not exist: %s\n", backupFile)
		return 1
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		fmt.Printf("Failed to stat backup file: %v\n", err)
		return 1
	}
	if fi.Size() == 0 {
		fmt.Printf("Backup file is empty: %s\n", backupFile)
		return 1
	}

	scratch, err := repositories.OpenDB("")
	if err != nil {
		fmt.Printf("Failed to open scratch store: %v\n", err)
		return 1
	}
	defer scratch.Close()
	if err := loadBackup(scratch, f); err != nil {
		fmt.Printf("Failed to restore page store: %v\n", err)
		return 1
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		fmt.Printf("Failed to rewind backup file: %v\n", err)
		return 1
	}
	if err := app.Pages.Clear(); err != nil {
		fmt.Printf("Failed to clear page store: %v\n", err)
		return 1
	}
	if err := loadBackup(app.DB, f); err != nil {
		fmt.Printf("Failed to restore page store: %v\n", err)
		return 1
	}

	fmt.Println("Page store restored successfully")
	return 0
}

func loadBackup(db *badger.DB, r io.Reader) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic occurred during restore: %v", rec)
		}
	}()
	return db.Load(r, 4)
}

// listPosts prints the home page list. With all set it keeps loading pages
// until the content service reports no more.
func listPosts(app *App, all bool) int {
	ctx := context.Background()
	list := models.NewPostList()
	if err := app.Posts.LoadMore(ctx, list); err != nil {
		fmt.Printf("Failed to load posts: %v\n", err)
		return 1
	}
	for all && list.HasMore() {
		if err := app.Posts.LoadMore(ctx, list); err != nil {
			fmt.Printf("Failed to load more posts: %v\n", err)
			return 1
		}
	}

	for _, post := range list.Summaries() {
		fmt.Printf("%s  %-32s  %s\n", app.Locale.FormatDate(post.FirstPublicationDate), post.UID, post.Title)
		if post.Subtitle != "" {
			fmt.Printf("    %s\n", post.Subtitle)
		}
	}
	if list.HasMore() {
		fmt.Printf("\n%s (posts --all)\n", app.Locale.T(locale.KeyLoadMore))
	}
	return 0
}

func showPost(app *App, slug string) int {
	post, err := app.Posts.GetPost(context.Background(), slug)
	if errors.Is(err, services.ErrNotFound) {
		fmt.Printf("Post not found: %s\n", slug)
		return 1
	}
	if err != nil {
		fmt.Printf("Failed to load post: %v\n", err)
		return 1
	}

	fmt.Println(post.Title)
	if post.HasSubtitle() {
		fmt.Println(*post.Subtitle)
	}
	fmt.Printf("%s | %s | %s\n\n",
		app.Locale.FormatDate(post.FirstPublicationDate),
		post.Author,
		app.Locale.ReadingTime(post.ReadingTime()))
	for _, block := range post.Content {
		fmt.Printf("## %s\n\n", block.Heading)
		for _, body := range block.Body {
			fmt.Printf("%s\n\n", body.Text)
		}
	}
	return 0
}
