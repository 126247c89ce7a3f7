// Package seed loads the reference catalog and demo accounts from JSON files.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/model"
	"github.com/pageza/foodgram/backend/internal/service"
)

type ingredientRecord struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type tagRecord struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

type userRecord struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// Result counts the rows inserted per file. Rows that already exist are
// skipped and not counted.
type Result struct {
	Ingredients int64
	Tags        int64
	Users       int64
}

// Load reads ingredients.json, tags.json and users.json from dir. A missing
// file is skipped so the catalog can be loaded on its own.
func Load(ctx context.Context, db *gorm.DB, dir string, logger *zap.Logger) (Result, error) {
	var res Result

	var ingredients []ingredientRecord
	if ok, err := readFile(dir, "ingredients.json", &ingredients); err != nil {
		return res, err
	} else if ok {
		rows := make([]model.Ingredient, len(ingredients))
		for i, r := range ingredients {
			rows[i] = model.Ingredient{Name: strings.TrimSpace(r.Name), MeasurementUnit: strings.TrimSpace(r.MeasurementUnit)}
		}
		if res.Ingredients, err = insert(ctx, db, rows); err != nil {
			return res, fmt.Errorf("failed to load ingredients: %w", err)
		}
		logger.Info("loaded ingredients", zap.Int64("inserted", res.Ingredients), zap.Int("total", len(rows)))
	}

	var tags []tagRecord
	if ok, err := readFile(dir, "tags.json", &tags); err != nil {
		return res, err
	} else if ok {
		rows := make([]model.Tag, len(tags))
		for i, r := range tags {
			rows[i] = model.Tag{Name: r.Name, Color: r.Color, Slug: r.Slug}
		}
		if res.Tags, err = insert(ctx, db, rows); err != nil {
			return res, fmt.Errorf("failed to load tags: %w", err)
		}
		logger.Info("loaded tags", zap.Int64("inserted", res.Tags), zap.Int("total", len(rows)))
	}

	var users []userRecord
	if ok, err := readFile(dir, "users.json", &users); err != nil {
		return res, err
	} else if ok {
		rows := make([]model.User, len(users))
		for i, r := range users {
			hash, err := service.HashPassword(r.Password)
			if err != nil {
				return res, fmt.Errorf("failed to hash password for %s: %w", r.Username, err)
			}
			rows[i] = model.User{
				Email:        strings.ToLower(r.Email),
				Username:     r.Username,
				FirstName:    r.FirstName,
				LastName:     r.LastName,
				PasswordHash: hash,
			}
		}
		if res.Users, err = insert(ctx, db, rows); err != nil {
			return res, fmt.Errorf("failed to load users: %w", err)
		}
		logger.Info("loaded users", zap.Int64("inserted", res.Users), zap.Int("total", len(rows)))
	}

	return res, nil
}

func readFile(dir, name string, dst any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return true, nil
}

// insert adds rows one by one, ignoring rows that violate a unique index.
func insert[T any](ctx context.Context, db *gorm.DB, rows []T) (int64, error) {
	var inserted int64
	for i := range rows {
		res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows[i])
		if res.Error != nil {
			return inserted, res.Error
		}
		inserted += res.RowsAffected
	}
	return inserted, nil
}
