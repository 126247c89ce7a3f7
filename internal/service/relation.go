package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/model"
)

// RelationStore manages a (subject, object) marker table with a unique
// pair constraint. Favorites, shopping carts and follows share it.
type RelationStore[T any] struct {
	db            *gorm.DB
	subjectColumn string
	objectColumn  string
	build         func(subject, object uint) *T
}

func newRelationStore[T any](db *gorm.DB, subjectColumn, objectColumn string, build func(subject, object uint) *T) *RelationStore[T] {
	return &RelationStore[T]{
		db:            db,
		subjectColumn: subjectColumn,
		objectColumn:  objectColumn,
		build:         build,
	}
}

// NewFavoriteStore returns the store behind recipe favorites.
func NewFavoriteStore(db *gorm.DB) *RelationStore[model.Favorite] {
	return newRelationStore(db, "user_id", "recipe_id", func(user, recipe uint) *model.Favorite {
		return &model.Favorite{UserID: user, RecipeID: recipe}
	})
}

// NewShoppingCartStore returns the store behind shopping cart membership.
func NewShoppingCartStore(db *gorm.DB) *RelationStore[model.ShoppingCart] {
	return newRelationStore(db, "user_id", "recipe_id", func(user, recipe uint) *model.ShoppingCart {
		return &model.ShoppingCart{UserID: user, RecipeID: recipe}
	})
}

// NewFollowStore returns the store behind subscriptions.
func NewFollowStore(db *gorm.DB) *RelationStore[model.Follow] {
	return newRelationStore(db, "follower_id", "followee_id", func(follower, followee uint) *model.Follow {
		return &model.Follow{FollowerID: follower, FolloweeID: followee}
	})
}

// Add creates the pair. An existing pair yields ErrAlreadyExists, including
// when a concurrent insert wins the race on the unique index.
func (s *RelationStore[T]) Add(ctx context.Context, subject, object uint) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(s.build(subject, object)).Error
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

// Remove deletes the pair, or reports ErrRelationNotFound when it is absent.
func (s *RelationStore[T]) Remove(ctx context.Context, subject, object uint) error {
	res := s.db.WithContext(ctx).
		Where(s.subjectColumn+" = ? AND "+s.objectColumn+" = ?", subject, object).
		Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRelationNotFound
	}
	return nil
}

// Exists reports whether the pair is present.
func (s *RelationStore[T]) Exists(ctx context.Context, subject, object uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(new(T)).
		Where(s.subjectColumn+" = ? AND "+s.objectColumn+" = ?", subject, object).
		Count(&count).Error
	return count > 0, err
}

// Marked answers the existence question for many objects with one query.
func (s *RelationStore[T]) Marked(ctx context.Context, subject uint, objects []uint) (map[uint]bool, error) {
	marked := make(map[uint]bool, len(objects))
	if len(objects) == 0 {
		return marked, nil
	}
	var ids []uint
	err := s.db.WithContext(ctx).Model(new(T)).
		Where(s.subjectColumn+" = ? AND "+s.objectColumn+" IN ?", subject, objects).
		Pluck(s.objectColumn, &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load relation markers: %w", err)
	}
	for _, id := range ids {
		marked[id] = true
	}
	return marked, nil
}

// ObjectsOf is a subquery selecting every object marked by subject.
func (s *RelationStore[T]) ObjectsOf(subject uint) *gorm.DB {
	return s.db.Model(new(T)).Select(s.objectColumn).Where(s.subjectColumn+" = ?", subject)
}

// DeleteByObject removes every marker pointing at object inside tx.
func (s *RelationStore[T]) DeleteByObject(tx *gorm.DB, object uint) error {
	return tx.Where(s.objectColumn+" = ?", object).Delete(new(T)).Error
}
