// conf/validate.go

package conf

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateLLMSettings(&settings.LLM); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateEthicsSettings(&settings.Ethics); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateQueueSettings(&settings.Queue); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateOutputSettings(&settings.Output); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLLMSettings(settings *LLMSettings) error {
	var errs []string

	if strings.TrimSpace(settings.BaseURL) == "" {
		errs = append(errs, "LLM base URL must not be empty")
	}
	if strings.TrimSpace(settings.Model) == "" {
		errs = append(errs, "LLM model must not be empty")
	}
	if settings.Timeout <= 0 {
		errs = append(errs, "LLM timeout must be greater than 0 seconds")
	}
	if settings.Temperature < 0 || settings.Temperature > 2 {
		errs = append(errs, "LLM temperature must be between 0.0 and 2.0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid LLM settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateEthicsSettings(settings *EthicsSettings) error {
	var errs []string

	if settings.AutoHumanReviewThreshold < 0 || settings.AutoHumanReviewThreshold > 100 {
		errs = append(errs, "auto human review threshold must be between 0 and 100")
	}
	if settings.AutoNotifyThreshold < 0 || settings.AutoNotifyThreshold > 100 {
		errs = append(errs, "auto notify threshold must be between 0 and 100")
	}
	if settings.CategoryHighScoreThreshold < 0 || settings.CategoryHighScoreThreshold > 10 {
		errs = append(errs, "category high score threshold must be between 0 and 10")
	}
	if strings.TrimSpace(settings.RubricPrompt) == "" {
		errs = append(errs, "rubric prompt must not be empty")
	}
	if len(settings.ContentTypes) == 0 {
		errs = append(errs, "at least one content type must be configured")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid ethics settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateQueueSettings(settings *QueueSettings) error {
	var errs []string

	if settings.RetryAttempts < 1 {
		errs = append(errs, "queue retry attempts must be at least 1")
	}
	if settings.RetryDelay < 0 {
		errs = append(errs, "queue retry delay must not be negative")
	}
	if settings.Timeout <= 0 {
		errs = append(errs, "queue per-attempt timeout must be greater than 0 seconds")
	}
	if settings.MaxSize < 1 {
		errs = append(errs, "queue max size must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid queue settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateOutputSettings(settings *OutputSettings) error {
	var errs []string

	if !settings.SQLite.Enabled && !settings.MySQL.Enabled {
		errs = append(errs, "either SQLite or MySQL output must be enabled")
	}
	if settings.SQLite.Enabled && settings.MySQL.Enabled {
		errs = append(errs, "only one of SQLite or MySQL output may be enabled")
	}
	if settings.SQLite.Enabled && strings.TrimSpace(settings.SQLite.Path) == "" {
		errs = append(errs, "SQLite database path must not be empty")
	}
	if settings.MySQL.Enabled {
		if strings.TrimSpace(settings.MySQL.Host) == "" {
			errs = append(errs, "MySQL host must not be empty")
		}
		if strings.TrimSpace(settings.MySQL.Database) == "" {
			errs = append(errs, "MySQL database name must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid output settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	if !settings.Enabled {
		return nil
	}
	port, err := strconv.Atoi(settings.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid webserver settings: port must be a number between 1 and 65535")
	}
	return nil
}
