package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.LLM.BaseURL = "https://api.mistral.ai/v1"
	s.LLM.Model = "some-model"
	s.LLM.Timeout = 300
	s.LLM.Temperature = 0.7
	s.Ethics.AutoHumanReviewThreshold = 50
	s.Ethics.AutoNotifyThreshold = 51
	s.Ethics.CategoryHighScoreThreshold = 8
	s.Ethics.RubricPrompt = "rubric"
	s.Ethics.ContentTypes = []string{"message", "ad"}
	s.Queue.RetryAttempts = 3
	s.Queue.RetryDelay = 60
	s.Queue.Timeout = 300
	s.Queue.MaxSize = 1000
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "ethicsaudit.db"
	s.WebServer.Enabled = true
	s.WebServer.Port = "8080"
	return s
}

func TestValidateSettings_Valid(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettings_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantMsg string
	}{
		{
			name:    "empty base URL",
			mutate:  func(s *Settings) { s.LLM.BaseURL = " " },
			wantMsg: "base URL",
		},
		{
			name:    "empty model",
			mutate:  func(s *Settings) { s.LLM.Model = "" },
			wantMsg: "model must not be empty",
		},
		{
			name:    "temperature out of range",
			mutate:  func(s *Settings) { s.LLM.Temperature = 2.5 },
			wantMsg: "temperature",
		},
		{
			name:    "review threshold out of range",
			mutate:  func(s *Settings) { s.Ethics.AutoHumanReviewThreshold = 101 },
			wantMsg: "auto human review threshold",
		},
		{
			name:    "empty rubric",
			mutate:  func(s *Settings) { s.Ethics.RubricPrompt = "" },
			wantMsg: "rubric prompt",
		},
		{
			name:    "no content types",
			mutate:  func(s *Settings) { s.Ethics.ContentTypes = nil },
			wantMsg: "content type",
		},
		{
			name:    "zero retry attempts",
			mutate:  func(s *Settings) { s.Queue.RetryAttempts = 0 },
			wantMsg: "retry attempts",
		},
		{
			name:    "no database enabled",
			mutate:  func(s *Settings) { s.Output.SQLite.Enabled = false },
			wantMsg: "must be enabled",
		},
		{
			name: "both databases enabled",
			mutate: func(s *Settings) {
				s.Output.MySQL.Enabled = true
				s.Output.MySQL.Host = "localhost"
				s.Output.MySQL.Database = "audits"
			},
			wantMsg: "only one",
		},
		{
			name:    "invalid port",
			mutate:  func(s *Settings) { s.WebServer.Port = "http" },
			wantMsg: "port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)

			err := ValidateSettings(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateSettings_CollectsAllErrors(t *testing.T) {
	t.Parallel()
	s := validSettings()
	s.LLM.Model = ""
	s.Queue.RetryAttempts = 0

	err := ValidateSettings(s)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}
