package service

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"spacetraveling/app/repositories"
	"spacetraveling/app/repositories/mock"
	"spacetraveling/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(f func()) string {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func mockStdin(input string, f func()) {
	oldStdin := os.Stdin
	r, w, _ := os.Pipe()
	os.Stdin = r

	// Write input in a goroutine to avoid blocking
	go func() {
		w.Write([]byte(input))
		w.Close()
	}()

	f()

	os.Stdin = oldStdin
}

func testDocs() []repositories.RawDocument {
	subtitle := repositories.TextField("Tudo sobre como criar a sua primeira aplicação utilizando Create React App")
	return []repositories.RawDocument{
		{
			UID:                  "como-utilizar-hooks",
			Type:                 "post",
			FirstPublicationDate: repositories.Timestamp{Time: time.Date(2021, 3, 15, 19, 25, 28, 0, time.UTC), Valid: true},
			Data: repositories.RawData{
				Title:  "Como utilizar Hooks",
				Author: "Joseph Oliveira",
				Content: []repositories.RawContent{{
					Heading: "Proin et varius",
					Body:    []repositories.RawBody{{Text: "Lorem ipsum dolor sit amet"}},
				}},
			},
		},
		{
			UID:                  "criando-um-app-cra-do-zero",
			Type:                 "post",
			FirstPublicationDate: repositories.Timestamp{Time: time.Date(2021, 3, 25, 19, 27, 35, 0, time.UTC), Valid: true},
			Data: repositories.RawData{
				Title:    "Criando um app CRA do zero",
				Subtitle: &subtitle,
				Author:   "Danilo Vieira",
			},
		},
		{
			UID:  "third",
			Type: "post",
			Data: repositories.RawData{Title: "Third", Author: "Danilo Vieira"},
		},
	}
}

// setupTestApp points the commands at an in-memory content repository and a
// page store under a temporary directory.
func setupTestApp(t *testing.T) (*mock.ContentRepository, string) {
	t.Helper()
	tmpDir := t.TempDir()
	repo := mock.NewContentRepository(testDocs()...)

	oldLoad, oldRepo := loadConfig, newContentRepository
	t.Cleanup(func() {
		loadConfig, newContentRepository = oldLoad, oldRepo
	})

	loadConfig = func() (*config.AppConfig, error) {
		cfg := config.Default()
		cfg.Content.Endpoint = "https://spacetraveling.cdn.prismic.io/api/v2"
		cfg.Pages.Path = filepath.Join(tmpDir, "pages")
		cfg.Pages.PrerenderLimit = 2
		cfg.Display.Timezone = "UTC"
		cfg.Logging.Level = "error"
		return &cfg, nil
	}
	newContentRepository = func(config.ContentConfig) (repositories.ContentRepository, error) {
		return repo, nil
	}
	return repo, tmpDir
}

func runCommand(t *testing.T, args ...string) (string, int) {
	t.Helper()
	exitCode := 0
	oldOsExit := osExit
	defer func() { osExit = oldOsExit }()
	osExit = func(code int) {
		exitCode = code
		panic("exit")
	}

	output := captureOutput(func() {
		defer func() {
			if r := recover(); r != nil {
				if r != "exit" {
					panic(r)
				}
			}
		}()
		if code := HandleCommand(args); code != 0 {
			exitCode = code
		}
	})
	return output, exitCode
}

func TestHandleCommand(t *testing.T) {
	setupTestApp(t)

	tests := []struct {
		name           string
		args           []string
		expectedOutput string
		expectedExit   int
	}{
		{
			name:           "no arguments",
			args:           []string{},
			expectedOutput: "Usage: spacetraveling <command> [options]",
			expectedExit:   1,
		},
		{
			name:           "help command",
			args:           []string{"help"},
			expectedOutput: "Usage: spacetraveling <command> [options]",
			expectedExit:   0,
		},
		{
			name:           "unknown command",
			args:           []string{"unknown"},
			expectedOutput: "Unknown command: unknown",
			expectedExit:   1,
		},
		{
			name:           "unknown pages command",
			args:           []string{"pages", "compact"},
			expectedOutput: "Unknown pages command: compact",
			expectedExit:   1,
		},
		{
			name:           "post without slug",
			args:           []string{"post"},
			expectedOutput: "Error: post slug required",
			expectedExit:   1,
		},
		{
			name:           "restore without file",
			args:           []string{"pages", "restore"},
			expectedOutput: "Error: backup file path required for restore",
			expectedExit:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, exitCode := runCommand(t, tt.args...)

			assert.Contains(t, output, tt.expectedOutput)
			assert.Equal(t, tt.expectedExit, exitCode)
		})
	}
}

func TestConfigurationErrors(t *testing.T) {
	setupTestApp(t)
	loadConfig = func() (*config.AppConfig, error) {
		return nil, errors.New("content.endpoint is required")
	}

	output, exitCode := runCommand(t, "posts")

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, output, "Failed to load configuration: content.endpoint is required")
}

func TestBuildAndListPages(t *testing.T) {
	setupTestApp(t)

	t.Run("empty store", func(t *testing.T) {
		output, exitCode := runCommand(t, "pages", "list")
		assert.Equal(t, 0, exitCode)
		assert.Contains(t, output, "Page store is empty")
	})

	t.Run("build", func(t *testing.T) {
		output, exitCode := runCommand(t, "pages", "build")
		assert.Equal(t, 0, exitCode)
		assert.Contains(t, output, "built    /post/como-utilizar-hooks")
		assert.Contains(t, output, "built    /post/criando-um-app-cra-do-zero")
		assert.NotContains(t, output, "/post/third")
		assert.Contains(t, output, "Built 2 pages")
	})

	t.Run("list after build", func(t *testing.T) {
		output, exitCode := runCommand(t, "pages", "list")
		assert.Equal(t, 0, exitCode)
		assert.Contains(t, output, "como-utilizar-hooks\ncriando-um-app-cra-do-zero\n")
	})
}

func TestBuildContentServiceDown(t *testing.T) {
	repo, _ := setupTestApp(t)
	repo.SetErr(errors.New("connection refused"))

	output, exitCode := runCommand(t, "build")

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, output, "Failed to build pages")
}

func TestCleanPages(t *testing.T) {
	setupTestApp(t)
	_, exitCode := runCommand(t, "build")
	require.Equal(t, 0, exitCode)

	t.Run("cancelled", func(t *testing.T) {
		var output string
		mockStdin("n\n", func() {
			output, _ = runCommand(t, "pages", "clean")
		})

		assert.Contains(t, output, "Operation cancelled")
		listed, _ := runCommand(t, "pages", "list")
		assert.Contains(t, listed, "como-utilizar-hooks")
	})

	t.Run("confirmed", func(t *testing.T) {
		var output string
		mockStdin("y\n", func() {
			output, _ = runCommand(t, "pages", "clean")
		})

		assert.Contains(t, output, "Page store cleaned successfully")
		listed, _ := runCommand(t, "pages", "list")
		assert.Contains(t, listed, "Page store is empty")
	})
}

func TestBackupAndRestore(t *testing.T) {
	_, tmpDir := setupTestApp(t)

	t.Run("restore non-existent backup", func(t *testing.T) {
		output, exitCode := runCommand(t, "pages", "restore", filepath.Join(tmpDir, "nonexistent.bak"))
		assert.Equal(t, 1, exitCode)
		assert.Contains(t, output, "Backup file does not exist")
	})

	t.Run("restore empty backup", func(t *testing.T) {
		empty := filepath.Join(tmpDir, "empty.bak")
		require.NoError(t, os.WriteFile(empty, nil, 0644))

		output, exitCode := runCommand(t, "pages", "restore", empty)
		assert.Equal(t, 1, exitCode)
		assert.Contains(t, output, "Backup file is empty")
	})

	t.Run("backup then restore", func(t *testing.T) {
		_, exitCode := runCommand(t, "build")
		require.Equal(t, 0, exitCode)

		output, exitCode := runCommand(t, "pages", "backup")
		require.Equal(t, 0, exitCode)
		assert.Contains(t, output, "Page store backed up successfully")

		backups, err := filepath.Glob(filepath.Join(tmpDir, "backups", "pages_*.bak"))
		require.NoError(t, err)
		require.Len(t, backups, 1)

		mockStdin("y\n", func() {
			runCommand(t, "pages", "clean")
		})
		listed, _ := runCommand(t, "pages", "list")
		require.Contains(t, listed, "Page store is empty")

		output, exitCode = runCommand(t, "pages", "restore", backups[0])
		assert.Equal(t, 0, exitCode)
		assert.Contains(t, output, "Page store restored successfully")

		listed, _ = runCommand(t, "pages", "list")
		assert.Contains(t, listed, "como-utilizar-hooks")
	})
}

func TestRestoreDamagedBackupKeepsPages(t *testing.T) {
	_, tmpDir := setupTestApp(t)
	_, exitCode := runCommand(t, "build")
	require.Equal(t, 0, exitCode)

	damaged := filepath.Join(tmpDir, "damaged.bak")
	require.NoError(t, os.WriteFile(damaged, []byte("truncated backup"), 0644))

	output, exitCode := runCommand(t, "pages", "restore", damaged)
	assert.Equal(t, 1, exitCode)
	assert.Contains(t, output, "Failed to restore page store")

	listed, _ := runCommand(t, "pages", "list")
	assert.Contains(t, listed, "como-utilizar-hooks")
}

func TestRestoreRequiresPagePath(t *testing.T) {
	_, tmpDir := setupTestApp(t)
	withPath := loadConfig
	loadConfig = func() (*config.AppConfig, error) {
		cfg, err := withPath()
		if err != nil {
			return nil, err
		}
		cfg.Pages.Path = ""
		return cfg, nil
	}

	backupFile := filepath.Join(tmpDir, "pages.bak")
	require.NoError(t, os.WriteFile(backupFile, []byte("data"), 0644))

	output, exitCode := runCommand(t, "pages", "restore", backupFile)
	assert.Equal(t, 1, exitCode)
	assert.Contains(t, output, "No page store path configured to restore into")
}

func TestPostsCommand(t *testing.T) {
	setupTestApp(t)

	t.Run("first page", func(t *testing.T) {
		output, exitCode := runCommand(t, "posts")
		assert.Equal(t, 0, exitCode)
		assert.Contains(t, output, "15 mar 2021")
		assert.Contains(t, output, "Como utilizar Hooks")
		assert.Contains(t, output, "Tudo sobre como criar a sua primeira aplicação")
		assert.NotContains(t, output, "Third")
		assert.Contains(t, output, "Carregar mais posts")
	})

	t.Run("all pages", func(t *testing.T) {
		output, exitCode := runCommand(t, "posts", "--all")
		assert.Equal(t, 0, exitCode)
		assert.Contains(t, output, "Third")
		assert.NotContains(t, output, "Carregar mais posts")
	})
}

func TestPostCommand(t *testing.T) {
	setupTestApp(t)

	t.Run("existing post", func(t *testing.T) {
		output, exitCode := runCommand(t, "post", "como-utilizar-hooks")
		assert.Equal(t, 0, exitCode)
		assert.Contains(t, output, "Como utilizar Hooks\n")
		assert.Contains(t, output, "15 mar 2021 | Joseph Oliveira | 1 min")
		assert.Contains(t, output, "## Proin et varius")
		assert.Contains(t, output, "Lorem ipsum dolor sit amet")
	})

	t.Run("unknown post", func(t *testing.T) {
		output, exitCode := runCommand(t, "post", "ghost")
		assert.Equal(t, 1, exitCode)
		assert.Contains(t, output, "Post not found: ghost")
	})
}
