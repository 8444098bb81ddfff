package repository

import (
	"context"
	"errors"

	"forum/internal/database"
	"forum/internal/models"
	"forum/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InteractionRepository manages the like and favorite ledgers.
type InteractionRepository interface {
	// Toggle flips the (post, user) edge and reports whether it now exists.
	Toggle(ctx context.Context, rel models.Relation, postID, userID uint) (bool, error)
	Count(ctx context.Context, rel models.Relation, postID uint) (int64, error)
	IsActive(ctx context.Context, rel models.Relation, postID, userID uint) (bool, error)
	PostIDsByUser(ctx context.Context, rel models.Relation, userID uint) ([]uint, error)
}

type interactionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository returns a new InteractionRepository implementation.
func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

// Toggle runs delete-or-insert in one transaction. The unique (post_id, user_id)
// index is the only serialization point between concurrent writers.
func (r *interactionRepository) Toggle(ctx context.Context, rel models.Relation, postID, userID uint) (bool, error) {
	if err := rel.Validate(); err != nil {
		return false, models.NewValidationError(err.Error())
	}

	var active bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var posts int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&posts).Error; err != nil {
			return err
		}
		if posts == 0 {
			return models.NewNotFoundError("Post", postID)
		}

		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(rel.Row(0, 0))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			active = false
			return nil
		}

		inserted, err := insertEdge(tx, rel, postID, userID)
		if err != nil {
			return err
		}
		active = inserted
		return nil
	})
	if err != nil {
		return false, wrapLedgerError(err, postID)
	}
	return active, nil
}

// insertEdge inserts the edge, treating a row that already exists as success.
func insertEdge(tx *gorm.DB, rel models.Relation, postID, userID uint) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rel.Row(postID, userID))
	if res.Error != nil {
		if database.IsUniqueViolation(res.Error) {
			observability.InteractionRaces.WithLabelValues(string(rel)).Inc()
			return true, nil
		}
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// a concurrent writer got there first; the edge exists either way
		observability.InteractionRaces.WithLabelValues(string(rel)).Inc()
	}
	return true, nil
}

func wrapLedgerError(err error, postID uint) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if database.IsForeignKeyViolation(err) {
		return models.NewNotFoundError("Post", postID)
	}
	return models.NewInternalError(err)
}

func (r *interactionRepository) Count(ctx context.Context, rel models.Relation, postID uint) (int64, error) {
	if err := rel.Validate(); err != nil {
		return 0, models.NewValidationError(err.Error())
	}
	var n int64
	if err := r.db.WithContext(ctx).Table(rel.Table()).Where("post_id = ?", postID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *interactionRepository) IsActive(ctx context.Context, rel models.Relation, postID, userID uint) (bool, error) {
	if err := rel.Validate(); err != nil {
		return false, models.NewValidationError(err.Error())
	}
	var n int64
	err := r.db.WithContext(ctx).
		Table(rel.Table()).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

// PostIDsByUser lists the posts the user has an edge to, newest edge first.
func (r *interactionRepository) PostIDsByUser(ctx context.Context, rel models.Relation, userID uint) ([]uint, error) {
	if err := rel.Validate(); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	ids := []uint{}
	err := r.db.WithContext(ctx).
		Table(rel.Table()).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
