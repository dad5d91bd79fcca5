package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/postboard/internal/config"
	"github.com/debemdeboas/postboard/internal/db"
	"github.com/debemdeboas/postboard/internal/model"
	"github.com/debemdeboas/postboard/internal/repository"
)

func TestDraftFromFile(t *testing.T) {
	modified := time.Date(2023, 3, 4, 5, 6, 7, 0, time.UTC)

	tests := []struct {
		name       string
		file       string
		content    string
		wantTitle  string
		wantAuthor string
		wantBody   string
		wantDate   time.Time
		wantErr    bool
	}{
		{
			name:       "plain markdown uses file name",
			file:       "/tmp/hello-world.md",
			content:    "Some text",
			wantTitle:  "hello-world",
			wantAuthor: "admin",
			wantBody:   "Some text",
			wantDate:   modified,
		},
		{
			name:       "front matter wins",
			file:       "x.md",
			content:    "%%%\ntitle = \"Real title\"\n[[author]]\nfullname = \"Bob\"\n%%%\nBody",
			wantTitle:  "Real title",
			wantAuthor: "Bob",
			wantBody:   "Body",
			wantDate:   modified,
		},
		{
			name:       "front matter date wins",
			file:       "x.md",
			content:    "%%%\ntitle = \"Dated\"\ndate = 2021-01-02T03:04:05Z\n%%%\nBody",
			wantTitle:  "Dated",
			wantAuthor: "admin",
			wantBody:   "Body",
			wantDate:   time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		{
			name:    "broken front matter",
			file:    "x.md",
			content: "%%%\ntitle = \"never closed\"\n",
			wantErr: true,
		},
		{
			name:    "empty content is rejected",
			file:    "x.md",
			content: "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := draftFromFile(tt.file, []byte(tt.content), "admin", modified)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if draft.Title != tt.wantTitle || draft.Author != tt.wantAuthor || draft.Content != tt.wantBody {
				t.Errorf("Unexpected draft %+v", draft)
			}
			if !draft.Date.Equal(tt.wantDate) {
				t.Errorf("Date = %v, want %v", draft.Date, tt.wantDate)
			}
		})
	}
}

func TestImportFile(t *testing.T) {
	quiet := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	db.SetLogger(quiet)
	repository.SetLogger(quiet)

	testDB := db.NewSQLite(":memory:")
	if err := testDB.InitDB(); err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	defer testDB.Close()

	repo := repository.NewDBPostRepository(testDB, nil)
	if err := repo.Init(context.Background()); err != nil {
		t.Fatalf("Failed to init repo: %v", err)
	}

	path := filepath.Join(t.TempDir(), "first.md")
	if err := os.WriteFile(path, []byte("# First"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	fileTime := time.Date(2020, 6, 7, 8, 9, 10, 0, time.UTC)
	if err := os.Chtimes(path, fileTime, fileTime); err != nil {
		t.Fatalf("Failed to set file times: %v", err)
	}

	post, err := importFile(context.Background(), repo, path, "admin")
	if err != nil {
		t.Fatalf("Failed to import: %v", err)
	}

	got, err := repo.Get(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("Imported post not found: %v", err)
	}
	if got.Title != "first" || got.Author != "admin" || got.Content != "# First" {
		t.Errorf("Unexpected post %+v", got)
	}
	if !got.CreatedDate.Equal(fileTime) || !got.ModifiedDate.Equal(fileTime) {
		t.Errorf("Expected the file time as post dates, got created %v modified %v", got.CreatedDate, got.ModifiedDate)
	}

	if _, err := importFile(context.Background(), repo, filepath.Join(t.TempDir(), "missing.md"), ""); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestOpenRepositoryCloses(t *testing.T) {
	quiet := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	db.SetLogger(quiet)
	repository.SetLogger(quiet)

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.Backend = config.StorageSQLite
	cfg.Database.Path = filepath.Join(t.TempDir(), "posts.db")

	repo, closeRepo, err := openRepository(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to open repository: %v", err)
	}
	if _, err := repo.List(context.Background()); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if err := closeRepo(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := repo.Create(context.Background(), model.PostDraft{Title: "t", Content: "c"}); err == nil {
		t.Error("Expected writes to fail after close")
	}
}
