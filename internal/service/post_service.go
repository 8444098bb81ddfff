package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"forum/internal/models"
	"forum/internal/notifications"
	"forum/internal/repository"
)

const (
	maxTitleLen   = 255
	maxContentLen = 50000
)

type PostService struct {
	postRepo  repository.PostRepository
	publisher notifications.Publisher
}

type CreatePostInput struct {
	UserID   uint
	Title    string
	Content  string
	ImageURL string
}

type ListPostsInput struct {
	Query    string
	Limit    int
	Offset   int
	ViewerID uint
}

func NewPostService(postRepo repository.PostRepository, publisher notifications.Publisher) *PostService {
	return &PostService{postRepo: postRepo, publisher: publisher}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)

	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 255 characters)")
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 50000 characters)")
	}

	post := &models.Post{
		UserID:  in.UserID,
		Title:   title,
		Content: content,
	}
	if imageURL := strings.TrimSpace(in.ImageURL); imageURL != "" {
		post.ImageURL = &imageURL
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	created, err := s.postRepo.GetByID(ctx, post.ID, in.UserID)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.publisher, notifications.Event{
		Type: notifications.EventPostCreated,
		Payload: notifications.PostCreatedPayload{
			PostID:   created.ID,
			UserID:   created.UserID,
			Username: created.User.Username,
			Title:    created.Title,
		},
	})
	return created, nil
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	if in.Limit < 0 || in.Offset < 0 {
		return nil, models.NewValidationError("limit and offset must not be negative")
	}
	if in.Offset > 0 && in.Limit == 0 {
		return nil, models.NewValidationError("offset requires limit")
	}
	return s.postRepo.List(ctx, repository.PostListOptions{
		Query:  in.Query,
		Limit:  in.Limit,
		Offset: in.Offset,
	}, in.ViewerID)
}

func (s *PostService) GetPost(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id, viewerID)
}

// ListByUser returns the user's own posts, newest first.
func (s *PostService) ListByUser(ctx context.Context, userID uint) ([]*models.Post, error) {
	return s.postRepo.ListByUser(ctx, userID)
}

// ListFavorites returns the posts the user favorited, most recent favorite first.
func (s *PostService) ListFavorites(ctx context.Context, userID uint) ([]*models.Post, error) {
	return s.postRepo.ListFavoritedBy(ctx, userID)
}
