// Package seed populates a database with fake forum activity for development
// and load testing.
package seed

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"forum/internal/auth"
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is the password every seeded account logs in with.
const DefaultPassword = "password123"

// Options controls how much data a Seeder writes.
type Options struct {
	Users           int
	Posts           int
	CommentsPerPost int
	// LikeRatio and FavoriteRatio are the chance that a given user reacts to a given post.
	LikeRatio     float64
	FavoriteRatio float64
	// MaxDays spreads post timestamps over the trailing window.
	MaxDays int
	// RandSeed makes the generated content reproducible; zero picks a time-based seed.
	RandSeed int64
	Clean    bool
}

// DefaultOptions mirrors the flags of cmd/seed.
func DefaultOptions() Options {
	return Options{
		Users:           50,
		Posts:           200,
		CommentsPerPost: 3,
		LikeRatio:       0.15,
		FavoriteRatio:   0.05,
		MaxDays:         90,
		Clean:           true,
	}
}

// Summary counts the rows a run created.
type Summary struct {
	Users     int
	Posts     int
	Comments  int
	Likes     int
	Favorites int
}

// Seeder writes fake users and their activity.
type Seeder struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	now   time.Time
}

// NewSeeder binds a Seeder to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	return &Seeder{
		db:    db,
		opts:  opts,
		faker: gofakeit.New(seed),
		now:   time.Now().UTC(),
	}
}

// Run clears the tables when asked and then seeds users, posts, comments,
// likes and favorites in that order.
func (s *Seeder) Run() (Summary, error) {
	var sum Summary

	if s.opts.Clean {
		if err := s.ClearAll(); err != nil {
			return sum, err
		}
	}

	users, err := s.SeedUsers(s.opts.Users)
	if err != nil {
		return sum, fmt.Errorf("seed users: %w", err)
	}
	sum.Users = len(users)

	posts, err := s.SeedPosts(users, s.opts.Posts)
	if err != nil {
		return sum, fmt.Errorf("seed posts: %w", err)
	}
	sum.Posts = len(posts)

	if sum.Comments, err = s.SeedComments(users, posts, s.opts.CommentsPerPost); err != nil {
		return sum, fmt.Errorf("seed comments: %w", err)
	}
	if sum.Likes, err = s.SeedReactions(models.RelationLike, users, posts, s.opts.LikeRatio); err != nil {
		return sum, fmt.Errorf("seed likes: %w", err)
	}
	if sum.Favorites, err = s.SeedReactions(models.RelationFavorite, users, posts, s.opts.FavoriteRatio); err != nil {
		return sum, fmt.Errorf("seed favorites: %w", err)
	}

	middleware.Logger.Info("seeding complete",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("likes", sum.Likes),
		slog.Int("favorites", sum.Favorites),
	)
	return sum, nil
}

// ClearAll deletes every row, children first.
func (s *Seeder) ClearAll() error {
	tx := s.db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range []any{&models.Favorite{}, &models.Like{}, &models.Comment{}, &models.Post{}, &models.User{}} {
		if err := tx.Delete(m).Error; err != nil {
			return fmt.Errorf("clear %T: %w", m, err)
		}
	}
	return nil
}

// SeedUsers creates count users sharing DefaultPassword. The hash is computed once.
func (s *Seeder) SeedUsers(count int) ([]models.User, error) {
	if count <= 0 {
		return nil, nil
	}

	hash, err := auth.HashPassword(DefaultPassword)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, count)
	users := make([]models.User, 0, count)
	for len(users) < count {
		username := s.username()
		if _, dup := seen[username]; dup {
			continue
		}
		seen[username] = struct{}{}
		users = append(users, models.User{
			Username: username,
			Email:    username + "@example.com",
			Password: hash,
		})
	}

	if err := s.db.CreateInBatches(&users, 100).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// username draws a fake handle and forces it into the accepted alphabet.
func (s *Seeder) username() string {
	for {
		var b strings.Builder
		for _, r := range strings.ToLower(s.faker.Username()) {
			if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
				b.WriteRune(r)
			}
		}
		name := fmt.Sprintf("%s%d", b.String(), s.faker.Number(10, 9999))
		if len(name) > 30 {
			name = name[len(name)-30:]
		}
		if validation.ValidateUsername(name) == nil {
			return name
		}
	}
}

// SeedPosts spreads count posts across users with timestamps in the trailing window.
func (s *Seeder) SeedPosts(users []models.User, count int) ([]models.Post, error) {
	if len(users) == 0 || count <= 0 {
		return nil, nil
	}

	start := s.now.Add(-time.Duration(s.opts.MaxDays) * 24 * time.Hour)
	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		created := s.faker.DateRange(start, s.now).UTC()
		post := models.Post{
			Title:     truncate(strings.TrimSuffix(s.faker.Sentence(s.faker.Number(3, 8)), "."), 255),
			Content:   s.faker.Paragraph(s.faker.Number(1, 3), s.faker.Number(2, 5), 12, "\n\n"),
			UserID:    author.ID,
			CreatedAt: created,
			UpdatedAt: created,
		}
		if s.faker.Number(1, 4) == 1 {
			url := fmt.Sprintf("https://picsum.photos/seed/%s/800/600", s.faker.UUID())
			post.ImageURL = &url
		}
		posts = append(posts, post)
	}

	if err := s.db.CreateInBatches(&posts, 100).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// SeedComments adds up to perPost comments to each post, each dated after its post.
func (s *Seeder) SeedComments(users []models.User, posts []models.Post, perPost int) (int, error) {
	if len(users) == 0 || perPost <= 0 {
		return 0, nil
	}

	var comments []models.Comment
	for _, post := range posts {
		n := s.faker.Number(0, perPost)
		for j := 0; j < n; j++ {
			created := s.faker.DateRange(post.CreatedAt, s.now).UTC()
			comments = append(comments, models.Comment{
				PostID:    post.ID,
				UserID:    users[s.faker.Number(0, len(users)-1)].ID,
				Content:   s.faker.Sentence(s.faker.Number(4, 16)),
				CreatedAt: created,
				UpdatedAt: created,
			})
		}
	}
	if len(comments) == 0 {
		return 0, nil
	}

	if err := s.db.CreateInBatches(&comments, 200).Error; err != nil {
		return 0, err
	}
	return len(comments), nil
}

// SeedReactions toggles rel on for each (user, post) pair with probability ratio.
// Every pair is visited once so the ledger uniqueness holds.
func (s *Seeder) SeedReactions(rel models.Relation, users []models.User, posts []models.Post, ratio float64) (int, error) {
	if err := rel.Validate(); err != nil {
		return 0, err
	}
	if ratio <= 0 {
		return 0, nil
	}

	var rows []any
	for _, post := range posts {
		for _, user := range users {
			if s.faker.Float64Range(0, 1) >= ratio {
				continue
			}
			rows = append(rows, rel.Row(post.ID, user.ID))
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
