package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/debemdeboas/postboard/internal/cache"
	"github.com/debemdeboas/postboard/internal/db"
	"github.com/debemdeboas/postboard/internal/model"
	"github.com/debemdeboas/postboard/internal/util"
	"github.com/debemdeboas/postboard/internal/util/compression"
)

type snapshot struct {
	count  int
	latest *time.Time
}

type DBPostRepository struct { // implements PostRepository
	postsCache *cache.Cache[model.PostID, *model.Post]

	notifierMu     sync.RWMutex
	changeNotifier func(Change)

	// Guards lastSnapshot; writes through this repository refresh it
	// so Watch only reacts to changes made elsewhere.
	snapMu       sync.Mutex
	lastSnapshot snapshot

	db         db.DB
	compressor compression.Compressor

	now func() time.Time
}

func NewDBPostRepository(db db.DB, compressor compression.Compressor) *DBPostRepository {
	if compressor == nil {
		compressor = compression.ZstdCompressor{}
	}

	return &DBPostRepository{
		postsCache: cache.NewCache[model.PostID, *model.Post](),

		db:         db,
		compressor: compressor,

		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *DBPostRepository) Init(ctx context.Context) error {
	posts, err := r.loadPosts(ctx)
	if err != nil {
		return fmt.Errorf("error initializing posts: %w", err)
	}

	r.postsCache.SetTo(posts)

	snap, err := r.currentSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("error initializing posts: %w", err)
	}
	r.setSnapshot(snap)

	repoLogger.Info().Int("posts", len(posts)).Msg("Posts loaded")
	return nil
}

func (r *DBPostRepository) loadPosts(ctx context.Context) (map[model.PostID]*model.Post, error) {
	rows, err := r.db.Query(ctx, `SELECT id, title, author, content, content_hash, created_at, modified_at FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("error querying posts: %w", err)
	}
	defer rows.Close()

	posts := make(map[model.PostID]*model.Post)
	for rows.Next() {
		post, err := r.scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts[post.ID] = post
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}

	return posts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *DBPostRepository) scanPost(row scanner) (*model.Post, error) {
	var post model.Post
	var compressed []byte

	err := row.Scan(&post.ID, &post.Title, &post.Author, &compressed, &post.ContentHash, &post.CreatedDate, &post.ModifiedDate)
	if err != nil {
		return nil, fmt.Errorf("error scanning post: %w", err)
	}

	content, err := r.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("error decompressing content of post %s: %w", post.ID, err)
	}
	post.Content = string(content)

	return &post, nil
}

func (r *DBPostRepository) currentSnapshot(ctx context.Context) (snapshot, error) {
	var count int
	var latestTimeStr sql.NullString

	err := r.db.QueryRow(ctx, `SELECT COUNT(*), MAX(modified_at) FROM posts`).Scan(&count, &latestTimeStr)
	if err != nil {
		return snapshot{}, fmt.Errorf("error scanning latest modified time: %w", err)
	}

	if !latestTimeStr.Valid {
		return snapshot{count: count}, nil // It was NULL, so no posts.
	}

	latest, err := parseSQLiteTime(latestTimeStr.String)
	if err != nil {
		return snapshot{}, err
	}

	return snapshot{count: count, latest: &latest}, nil
}

// The go-sqlite3 driver returns a string for MAX(), so we must parse it.
// It can be in a format with a space separator.
func parseSQLiteTime(s string) (time.Time, error) {
	timeFormats := []string{
		"2006-01-02 15:04:05.999999999-07:00", // Space separator with timezone
		time.RFC3339Nano,                      // 'T' separator with timezone
		time.RFC3339,                          // 'T' separator, no nanos
		time.DateTime,                         // CURRENT_TIMESTAMP
	}

	var parseErr error
	for _, format := range timeFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t, nil
		}
		parseErr = err
	}

	return time.Time{}, fmt.Errorf("error parsing latest modified time '%s' with any known format: %w", s, parseErr)
}

func (r *DBPostRepository) setSnapshot(s snapshot) {
	r.snapMu.Lock()
	defer r.snapMu.Unlock()
	r.lastSnapshot = s
}

func (r *DBPostRepository) refreshSnapshot(ctx context.Context) {
	snap, err := r.currentSnapshot(ctx)
	if err != nil {
		repoLogger.Warn().Err(err).Msg("Error refreshing posts snapshot")
		return
	}
	r.setSnapshot(snap)
}

func sortByModified(posts []model.Post) {
	slices.SortStableFunc(posts, func(a, b model.Post) int {
		if c := -a.ModifiedDate.Compare(b.ModifiedDate); c != 0 {
			return c
		}
		return -a.CreatedDate.Compare(b.CreatedDate)
	})
}

func (r *DBPostRepository) List(_ context.Context) ([]model.Post, error) {
	cached := r.postsCache.Values()

	posts := make([]model.Post, 0, len(cached))
	for _, p := range cached {
		posts = append(posts, *p)
	}
	sortByModified(posts)

	return posts, nil
}

func (r *DBPostRepository) Get(_ context.Context, id model.PostID) (*model.Post, error) {
	post, ok := r.postsCache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}
	copied := *post
	return &copied, nil
}

func (r *DBPostRepository) Create(ctx context.Context, draft model.PostDraft) (*model.Post, error) {
	now := draft.CreatedAt(r.now())

	post := &model.Post{
		ID:      model.PostID(uuid.New().String()),
		Title:   draft.Title,
		Author:  draft.Author,
		Content: draft.Content,

		CreatedDate:  now,
		ModifiedDate: now,
	}

	compressed, err := r.compressor.Compress([]byte(post.Content))
	if err != nil {
		return nil, fmt.Errorf("error compressing content: %w", err)
	}

	// Calculate the content hash for the compressed content
	post.ContentHash = util.ContentHash(compressed)

	_, err = r.db.Exec(ctx,
		`INSERT INTO posts (id, title, author, content, content_hash, created_at, modified_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.ID, post.Title, post.Author, compressed, post.ContentHash, post.CreatedDate, post.ModifiedDate,
	)
	if err != nil {
		return nil, fmt.Errorf("error saving post: %w", err)
	}

	r.postsCache.Set(post.ID, post)
	r.refreshSnapshot(ctx)

	repoLogger.Debug().Str("post_id", string(post.ID)).Str("title", post.Title).Msg("Post saved")
	r.notify(Change{Kind: ChangeCreated, ID: post.ID})

	copied := *post
	return &copied, nil
}

func (r *DBPostRepository) Update(ctx context.Context, id model.PostID, update model.PostUpdate) (*model.Post, error) {
	compressed, err := r.compressor.Compress([]byte(update.Content))
	if err != nil {
		return nil, fmt.Errorf("error compressing content: %w", err)
	}
	hash := util.ContentHash(compressed)
	now := r.now()

	res, err := r.db.Exec(ctx,
		`UPDATE posts SET title = ?, content = ?, content_hash = ?, modified_at = ? WHERE id = ?`,
		update.Title, compressed, hash, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("error updating post: %w", err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("error updating post: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}

	post, err := r.readPost(ctx, id)
	if err != nil {
		return nil, err
	}

	r.postsCache.Set(post.ID, post)
	r.refreshSnapshot(ctx)

	repoLogger.Debug().Str("post_id", string(id)).Msg("Post content set")
	r.notify(Change{Kind: ChangeUpdated, ID: id})

	copied := *post
	return &copied, nil
}

func (r *DBPostRepository) readPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, title, author, content, content_hash, created_at, modified_at FROM posts WHERE id = ?`, id)

	post, err := r.scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
		}
		return nil, err
	}
	return post, nil
}

func (r *DBPostRepository) Delete(ctx context.Context, id model.PostID) error {
	res, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting post: %w", err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("error deleting post: %w", err)
	} else if n == 0 {
		return fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}

	r.postsCache.Delete(id)
	r.refreshSnapshot(ctx)

	repoLogger.Debug().Str("post_id", string(id)).Msg("Post deleted")
	r.notify(Change{Kind: ChangeDeleted, ID: id})
	return nil
}

func (r *DBPostRepository) SetChangeNotifier(notifier func(Change)) {
	r.notifierMu.Lock()
	defer r.notifierMu.Unlock()
	r.changeNotifier = notifier
}

func (r *DBPostRepository) notify(c Change) {
	r.notifierMu.RLock()
	notifier := r.changeNotifier
	r.notifierMu.RUnlock()

	if notifier != nil {
		notifier(c)
	}
}

// Watch polls the database for changes made by other writers until ctx is done.
func (r *DBPostRepository) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.reloadIfChanged(ctx); err != nil {
				repoLogger.Error().Err(err).Msg("Error reloading posts")
			}
		}
	}
}

func (r *DBPostRepository) reloadIfChanged(ctx context.Context) error {
	snap, err := r.currentSnapshot(ctx)
	if err != nil {
		return err
	}

	r.snapMu.Lock()
	last := r.lastSnapshot
	r.snapMu.Unlock()

	if snap.count == last.count && sameTime(snap.latest, last.latest) {
		repoLogger.Debug().Msg("No posts modified, skipping reload")
		return nil
	}

	repoLogger.Debug().Msg("Posts may have changed, performing full reload")

	posts, err := r.loadPosts(ctx)
	if err != nil {
		return err
	}

	var changes []Change
	for id, post := range posts {
		cached, ok := r.postsCache.Get(id)
		switch {
		case !ok:
			repoLogger.Info().Str("post_id", string(id)).Str("title", post.Title).Msg("New post detected")
			changes = append(changes, Change{Kind: ChangeCreated, ID: id})
		case cached.ContentHash != post.ContentHash || cached.Title != post.Title:
			repoLogger.Info().Str("post_id", string(id)).Str("title", post.Title).Msg("Post content changed, reloading")
			changes = append(changes, Change{Kind: ChangeUpdated, ID: id})
		}
	}
	for _, cached := range r.postsCache.Values() {
		if _, ok := posts[cached.ID]; !ok {
			repoLogger.Info().Str("post_id", string(cached.ID)).Msg("Post removed")
			changes = append(changes, Change{Kind: ChangeDeleted, ID: cached.ID})
		}
	}

	r.postsCache.SetTo(posts)
	r.setSnapshot(snap)

	for _, c := range changes {
		r.notify(c)
	}
	return nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
