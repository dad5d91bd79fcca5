package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/debemdeboas/postboard/internal/model"
	"github.com/debemdeboas/postboard/internal/util"
	"github.com/debemdeboas/postboard/internal/util/compression"
)

// ObjectStore is the subset of *s3.Client the repository needs.
type ObjectStore interface {
	s3.ListObjectsV2APIClient

	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type S3PostRepository struct { // implements PostRepository
	client ObjectStore
	bucket string
	prefix string

	compressor compression.Compressor

	notifierMu     sync.RWMutex
	changeNotifier func(Change)

	now func() time.Time
}

// NewS3Client builds a client for an S3-compatible endpoint with static credentials.
// An empty endpoint uses the AWS default for the region.
func NewS3Client(ctx context.Context, accessKeyID, accessKeySecret, region, endpoint string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing S3 client: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func NewS3PostRepository(client ObjectStore, bucket, prefix string, compressor compression.Compressor) *S3PostRepository {
	if compressor == nil {
		compressor = compression.ZstdCompressor{}
	}

	return &S3PostRepository{
		client:     client,
		bucket:     bucket,
		prefix:     prefix,
		compressor: compressor,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *S3PostRepository) key(id model.PostID) string {
	return r.prefix + string(id) + ".json"
}

func (r *S3PostRepository) idFromKey(key string) (model.PostID, bool) {
	name, ok := strings.CutPrefix(key, r.prefix)
	if !ok {
		return "", false
	}
	name, ok = strings.CutSuffix(name, ".json")
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return model.PostID(name), true
}

// Init checks that the bucket is reachable.
func (r *S3PostRepository) Init(ctx context.Context) error {
	_, err := r.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(r.bucket),
		Prefix:  aws.String(r.prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("error listing bucket %s: %w", r.bucket, err)
	}

	repoLogger.Info().Str("bucket", r.bucket).Str("prefix", r.prefix).Msg("S3 post storage ready")
	return nil
}

func (r *S3PostRepository) List(ctx context.Context) ([]model.Post, error) {
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(r.prefix),
	})

	posts := make([]model.Post, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing posts: %w", err)
		}

		for _, obj := range page.Contents {
			id, ok := r.idFromKey(aws.ToString(obj.Key))
			if !ok {
				continue
			}

			post, err := r.Get(ctx, id)
			if errors.Is(err, ErrPostNotFound) {
				// Deleted between list and get
				continue
			} else if err != nil {
				return nil, err
			}
			posts = append(posts, *post)
		}
	}

	sortByModified(posts)
	return posts, nil
}

func (r *S3PostRepository) Get(ctx context.Context, id model.PostID) (*model.Post, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(id)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
		}
		return nil, fmt.Errorf("error reading post %s: %w", id, err)
	}
	defer out.Body.Close()

	compressed, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading post %s: %w", id, err)
	}

	data, err := r.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("error decompressing post %s: %w", id, err)
	}

	var post model.Post
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, fmt.Errorf("error decoding post %s: %w", id, err)
	}
	post.ContentHash = util.ContentHash(compressed)

	return &post, nil
}

func (r *S3PostRepository) put(ctx context.Context, post *model.Post) error {
	data, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("error encoding post: %w", err)
	}

	compressed, err := r.compressor.Compress(data)
	if err != nil {
		return fmt.Errorf("error compressing post: %w", err)
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.key(post.ID)),
		Body:        bytes.NewReader(compressed),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("error saving post %s: %w", post.ID, err)
	}

	post.ContentHash = util.ContentHash(compressed)
	return nil
}

func (r *S3PostRepository) exists(ctx context.Context, id model.PostID) (bool, error) {
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(id)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("error checking post %s: %w", id, err)
	}
	return true, nil
}

func (r *S3PostRepository) Create(ctx context.Context, draft model.PostDraft) (*model.Post, error) {
	now := draft.CreatedAt(r.now())
	post := &model.Post{
		ID:      model.PostID(uuid.New().String()),
		Title:   draft.Title,
		Author:  draft.Author,
		Content: draft.Content,

		CreatedDate:  now,
		ModifiedDate: now,
	}

	if err := r.put(ctx, post); err != nil {
		return nil, err
	}

	repoLogger.Debug().Str("post_id", string(post.ID)).Str("title", post.Title).Msg("Post saved")
	r.notify(Change{Kind: ChangeCreated, ID: post.ID})
	return post, nil
}

func (r *S3PostRepository) Update(ctx context.Context, id model.PostID, update model.PostUpdate) (*model.Post, error) {
	post, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	post.Update(update)
	post.ModifiedDate = r.now()

	if err := r.put(ctx, post); err != nil {
		return nil, err
	}

	repoLogger.Debug().Str("post_id", string(id)).Msg("Post content set")
	r.notify(Change{Kind: ChangeUpdated, ID: id})
	return post, nil
}

func (r *S3PostRepository) Delete(ctx context.Context, id model.PostID) error {
	// DeleteObject succeeds for missing keys, so check first
	ok, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}

	_, err = r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(id)),
	})
	if err != nil {
		return fmt.Errorf("error deleting post %s: %w", id, err)
	}

	repoLogger.Debug().Str("post_id", string(id)).Msg("Post deleted")
	r.notify(Change{Kind: ChangeDeleted, ID: id})
	return nil
}

func (r *S3PostRepository) SetChangeNotifier(notifier func(Change)) {
	r.notifierMu.Lock()
	defer r.notifierMu.Unlock()
	r.changeNotifier = notifier
}

func (r *S3PostRepository) notify(c Change) {
	r.notifierMu.RLock()
	notifier := r.changeNotifier
	r.notifierMu.RUnlock()

	if notifier != nil {
		notifier(c)
	}
}
