package repository

import (
	"context"
	"errors"
	"strings"

	"forum/internal/database"
	"forum/internal/models"

	"gorm.io/gorm"
)

// MaxPageSize caps an explicit list limit.
const MaxPageSize = 100

// PostListOptions narrows a post listing. A zero Limit returns every match
// and ignores Offset.
type PostListOptions struct {
	Query  string
	Limit  int
	Offset int
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	Exists(ctx context.Context, id uint) (bool, error)
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	List(ctx context.Context, opts PostListOptions, viewerID uint) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.Post, error)
	ListFavoritedBy(ctx context.Context, userID uint) ([]*models.Post, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(post).Error; err != nil {
		if database.IsForeignKeyViolation(err) {
			return models.NewNotFoundError("User", post.UserID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := r.withDetails(ctx, viewerID).
		Where("posts.id = ?", id).
		Take(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, opts PostListOptions, viewerID uint) ([]*models.Post, error) {
	q := r.withDetails(ctx, viewerID)

	if term := strings.TrimSpace(opts.Query); term != "" {
		pattern := containsPattern(term)
		q = q.Where(
			"(LOWER(posts.title) LIKE LOWER(?) ESCAPE '!' OR LOWER(posts.content) LIKE LOWER(?) ESCAPE '!')",
			pattern, pattern,
		)
	}

	q = q.Order("posts.created_at DESC").Order("posts.id DESC")
	if opts.Limit > 0 {
		limit := opts.Limit
		if limit > MaxPageSize {
			limit = MaxPageSize
		}
		q = q.Limit(limit)
		if opts.Offset > 0 {
			q = q.Offset(opts.Offset)
		}
	}

	var posts []*models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withDetails(ctx, userID).
		Where("posts.user_id = ?", userID).
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListFavoritedBy returns the user's favorites, most recently favorited first.
func (r *postRepository) ListFavoritedBy(ctx context.Context, userID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withDetails(ctx, userID).
		Joins("JOIN favorites fav ON fav.post_id = posts.id AND fav.user_id = ?", userID).
		Order("fav.created_at DESC").
		Order("fav.id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// withDetails selects the read-time aggregates and the viewer's ledger flags.
// A zero viewer matches no ledger row, so both flags read false.
func (r *postRepository) withDetails(ctx context.Context, viewerID uint) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select(
			"posts.*, "+
				"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count, "+
				"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count, "+
				"(SELECT COUNT(*) FROM favorites WHERE favorites.post_id = posts.id) AS favorites_count, "+
				"EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) AS liked, "+
				"EXISTS(SELECT 1 FROM favorites WHERE favorites.post_id = posts.id AND favorites.user_id = ?) AS favorited",
			viewerID, viewerID,
		).
		Preload("User", selectAuthor)
}

func selectAuthor(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username", "profile_picture_url")
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern builds a LIKE pattern matching term literally, escaped with '!'.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
