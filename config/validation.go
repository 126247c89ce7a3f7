package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateConfig checks struct-level constraints plus the rules that only
// apply to a particular environment.
func ValidateConfig(cfg *Config) error {
	var problems []ValidationError

	if err := getValidator().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			problems = append(problems, ValidationError{
				Field:   fe.Namespace(),
				Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
			})
		}
	}

	if cfg.Env == Production || cfg.Env == CI {
		if cfg.JWT.Secret == DefaultJWTSecret {
			problems = append(problems, ValidationError{Field: "Config.JWT.Secret", Message: "jwt_secret secret is required"})
		}
	}
	if cfg.Env == Production {
		if cfg.Database.Driver != "postgres" {
			problems = append(problems, ValidationError{Field: "Config.Database.Driver", Message: "production requires postgres"})
		}
		if cfg.Database.Password == "" {
			problems = append(problems, ValidationError{Field: "Config.Database.Password", Message: "db_password secret is required"})
		}
	}

	if len(problems) == 0 {
		return nil
	}
	lines := make([]string, len(problems))
	for i, p := range problems {
		lines[i] = p.Error()
	}
	return fmt.Errorf("configuration validation failed:\n%s", strings.Join(lines, "\n"))
}
