// migrate imports a directory of markdown files as posts into the configured storage.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/debemdeboas/postboard/internal/config"
	"github.com/debemdeboas/postboard/internal/db"
	"github.com/debemdeboas/postboard/internal/logger"
	"github.com/debemdeboas/postboard/internal/model"
	"github.com/debemdeboas/postboard/internal/repository"
	"github.com/debemdeboas/postboard/internal/util"
	"github.com/debemdeboas/postboard/internal/util/compression"
)

func main() {
	path := flag.String("path", "", "Path to the directory containing .md files")
	author := flag.String("author", "", "Author for posts without one in their front matter")
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	_ = godotenv.Load()

	log := logger.New(config.DefaultLogLevel)
	config.SetLogger(log)
	db.SetLogger(log)
	repository.SetLogger(log)

	if *path == "" {
		log.Fatal().Msg("The --path flag is required")
	}

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatal().Err(err).Msgf(config.ErrLoadConfigFmt, err)
	}
	cfg := config.AppConfig

	ctx := context.Background()
	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msgf(config.ErrInitializeStorageFmt, err)
	}
	defer func() {
		if err := closeRepo(); err != nil {
			log.Error().Err(err).Msg("Error closing storage")
		}
	}()

	files, err := os.ReadDir(*path)
	if err != nil {
		_ = closeRepo()
		log.Fatal().Err(err).Str("path", *path).Msg("Error reading directory")
	}

	var imported int
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".md") {
			continue
		}

		post, err := importFile(ctx, repo, filepath.Join(*path, file.Name()), *author)
		if err != nil {
			log.Error().Err(err).Str("file", file.Name()).Msg("Error importing file")
			continue
		}
		imported++
		log.Info().Str("file", file.Name()).Str("post_id", string(post.ID)).Msg("Imported post")
	}

	log.Info().Int("imported", imported).Msg("Import finished")
}

// openRepository returns the configured storage and a func releasing it.
func openRepository(ctx context.Context, cfg *config.Config) (repository.PostRepository, func() error, error) {
	noop := func() error { return nil }

	compressor, err := compression.New(cfg.Storage.Compression)
	if err != nil {
		return nil, noop, err
	}

	if cfg.Storage.Backend == config.StorageS3 {
		client, err := repository.NewS3Client(ctx,
			os.Getenv(config.EnvS3AccessKeyID),
			os.Getenv(config.EnvS3SecretAccessKey),
			cfg.S3.Region,
			cfg.S3.Endpoint,
		)
		if err != nil {
			return nil, noop, err
		}
		repo := repository.NewS3PostRepository(client, cfg.S3.Bucket, cfg.S3.Prefix, compressor)
		return repo, noop, repo.Init(ctx)
	}

	database := db.NewSQLite(cfg.Database.Path)
	if err := database.InitDB(); err != nil {
		return nil, noop, err
	}
	closeDB := database.Close

	repo := repository.NewDBPostRepository(database, compressor)
	if err := repo.Init(ctx); err != nil {
		_ = closeDB()
		return nil, noop, err
	}
	return repo, closeDB, nil
}

// draftFromFile builds a post from a markdown file. The front matter, when
// present, supplies the title, author and date and is not part of the content.
// Without a front matter date the post is dated modified.
func draftFromFile(name string, content []byte, defaultAuthor string, modified time.Time) (model.PostDraft, error) {
	draft := model.PostDraft{
		Title:   strings.TrimSuffix(filepath.Base(name), ".md"),
		Author:  defaultAuthor,
		Content: string(content),
		Date:    modified,
	}

	fm, err := util.GetFrontMatter(content)
	switch {
	case errors.Is(err, util.ErrNoFrontMatter):
	case err != nil:
		return draft, err
	default:
		if fm.Title != "" {
			draft.Title = fm.Title
		}
		if a := fm.AuthorName(); a != "" {
			draft.Author = a
		}
		if !fm.Date.IsZero() {
			draft.Date = fm.Date
		}
		draft.Content = string(fm.Body)
	}

	return draft, draft.Validate()
}

func importFile(ctx context.Context, repo repository.PostRepository, path, defaultAuthor string) (*model.Post, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	draft, err := draftFromFile(path, content, defaultAuthor, info.ModTime())
	if err != nil {
		return nil, err
	}

	return repo.Create(ctx, draft)
}
