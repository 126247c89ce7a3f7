package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/model"
	"github.com/pageza/foodgram/backend/internal/types"
)

// UserService handles user profiles and subscriptions between users.
type UserService struct {
	db      *gorm.DB
	recipes *RecipeService
	follows *RelationStore[model.Follow]
}

// Ensure UserService implements IUserService
var _ IUserService = (*UserService)(nil)

// NewUserService creates a new UserService instance
func NewUserService(db *gorm.DB, recipes *RecipeService) *UserService {
	return &UserService{
		db:      db,
		recipes: recipes,
		follows: NewFollowStore(db),
	}
}

func (s *UserService) loadUser(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) views(ctx context.Context, viewer Identity, users []model.User) ([]types.UserView, error) {
	subscribed := map[uint]bool{}
	if viewer.Authenticated && len(users) > 0 {
		ids := make([]uint, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		var err error
		if subscribed, err = s.follows.Marked(ctx, viewer.UserID, ids); err != nil {
			return nil, err
		}
	}
	views := make([]types.UserView, len(users))
	for i := range users {
		views[i] = userView(&users[i], subscribed[users[i].ID])
	}
	return views, nil
}

// ListUsers returns a page of users ordered by id.
func (s *UserService) ListUsers(ctx context.Context, viewer Identity, page types.PageRequest) ([]types.UserView, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []model.User
	err := s.db.WithContext(ctx).Order("id").Offset(page.Offset()).Limit(page.Limit).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	views, err := s.views(ctx, viewer, users)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// GetUser returns a single user as seen by viewer.
func (s *UserService) GetUser(ctx context.Context, viewer Identity, id uint) (*types.UserView, error) {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, viewer, []model.User{*user})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Me returns the profile of the requester. Anonymous callers are rejected.
func (s *UserService) Me(ctx context.Context, viewer Identity) (*types.UserView, error) {
	if err := RequireAuthenticated(viewer); err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	view := userView(user, false)
	return &view, nil
}

// Subscribe makes viewer follow the author identified by followeeID.
func (s *UserService) Subscribe(ctx context.Context, viewer Identity, followeeID uint, recipesLimit int) (*types.SubscriptionView, error) {
	if err := RequireAuthenticated(viewer); err != nil {
		return nil, err
	}
	if viewer.UserID == followeeID {
		return nil, ErrSelfFollow
	}
	followee, err := s.loadUser(ctx, followeeID)
	if err != nil {
		return nil, objectNotFound(err)
	}
	if err := s.follows.Add(ctx, viewer.UserID, followeeID); err != nil {
		return nil, err
	}
	views, err := s.subscriptionViews(ctx, []model.User{*followee}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Unsubscribe removes the follow relation.
func (s *UserService) Unsubscribe(ctx context.Context, viewer Identity, followeeID uint) error {
	if err := RequireAuthenticated(viewer); err != nil {
		return err
	}
	if _, err := s.loadUser(ctx, followeeID); err != nil {
		return objectNotFound(err)
	}
	return s.follows.Remove(ctx, viewer.UserID, followeeID)
}

// Subscription returns a single author with a preview of their recipes.
func (s *UserService) Subscription(ctx context.Context, viewer Identity, followeeID uint, recipesLimit int) (*types.SubscriptionView, error) {
	if err := RequireAuthenticated(viewer); err != nil {
		return nil, err
	}
	followee, err := s.loadUser(ctx, followeeID)
	if err != nil {
		return nil, err
	}
	views, err := s.subscriptionViews(ctx, []model.User{*followee}, recipesLimit)
	if err != nil {
		return nil, err
	}
	subscribed, err := s.follows.Exists(ctx, viewer.UserID, followeeID)
	if err != nil {
		return nil, err
	}
	views[0].IsSubscribed = subscribed
	return &views[0], nil
}

// Subscriptions lists the authors viewer follows, most recent first.
func (s *UserService) Subscriptions(ctx context.Context, viewer Identity, page types.PageRequest, recipesLimit int) ([]types.SubscriptionView, int64, error) {
	if err := RequireAuthenticated(viewer); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Follow{}).Where("follower_id = ?", viewer.UserID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []model.User
	err := s.db.WithContext(ctx).
		Select("users.*").
		Joins("JOIN follows ON follows.followee_id = users.id").
		Where("follows.follower_id = ?", viewer.UserID).
		Order("follows.created_at DESC").
		Order("follows.id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	views, err := s.subscriptionViews(ctx, users, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

type authorRecipeCount struct {
	AuthorID uint
	Count    int64
}

// subscriptionViews loads the recipes and recipe counts of every author in
// two queries. The views are built for a follower, so IsSubscribed is set.
// A recipesLimit below one means no cap.
func (s *UserService) subscriptionViews(ctx context.Context, authors []model.User, recipesLimit int) ([]types.SubscriptionView, error) {
	views := make([]types.SubscriptionView, len(authors))
	if len(authors) == 0 {
		return views, nil
	}
	ids := make([]uint, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
	}

	var counts []authorRecipeCount
	err := s.db.WithContext(ctx).Model(&model.Recipe{}).
		Select("author_id, COUNT(*) AS count").
		Where("author_id IN ?", ids).
		Group("author_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count author recipes: %w", err)
	}
	countByAuthor := make(map[uint]int64, len(counts))
	for _, c := range counts {
		countByAuthor[c.AuthorID] = c.Count
	}

	var recipes []model.Recipe
	err = s.db.WithContext(ctx).
		Where("author_id IN ?", ids).
		Order("created_at DESC").
		Order("id DESC").
		Find(&recipes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load author recipes: %w", err)
	}
	byAuthor := make(map[uint][]types.RecipeSummary, len(authors))
	for i := range recipes {
		r := &recipes[i]
		if recipesLimit > 0 && len(byAuthor[r.AuthorID]) >= recipesLimit {
			continue
		}
		byAuthor[r.AuthorID] = append(byAuthor[r.AuthorID], s.recipes.summary(r))
	}

	for i := range authors {
		a := &authors[i]
		summaries := byAuthor[a.ID]
		if summaries == nil {
			summaries = []types.RecipeSummary{}
		}
		views[i] = types.SubscriptionView{
			UserView:     userView(a, true),
			Recipes:      summaries,
			RecipesCount: countByAuthor[a.ID],
		}
	}
	return views, nil
}
