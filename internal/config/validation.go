package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and backend combinations.
func (c *Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("failed to validate config: %w", err)
		}
		for _, fe := range fieldErrs {
			problems = append(problems, fmt.Sprintf("%s: must satisfy %s (got %v)", fieldPath(fe), constraint(fe), fe.Value()))
		}
	}

	if c.NLP.Embedding.Provider == "http" && c.NLP.Embedding.Endpoint == "" {
		problems = append(problems, "nlp.embedding.endpoint: required when provider is http")
	}
	if c.NLP.Sentiment.Provider == "http" && c.NLP.Sentiment.Endpoint == "" {
		problems = append(problems, "nlp.sentiment.endpoint: required when provider is http")
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		problems = append(problems, "storage.path: required when storage is enabled")
	}

	if len(problems) == 0 {
		return nil
	}
	return &InvalidConfigError{
		Message: strings.Join(problems, "\n"),
		Hint:    "Fix the listed keys in the config file or the matching TRIPSENSE_ variables",
	}
}

// fieldPath turns Config.NLP.Embedding.CacheSize into nlp.embedding.cachesize.
func fieldPath(fe validator.FieldError) string {
	ns := strings.TrimPrefix(fe.Namespace(), "Config.")
	return strings.ToLower(ns)
}

func constraint(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
