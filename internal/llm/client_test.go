package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/conf"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/errors"
)

const testBaseURL = "https://llm.test/v1"

func testClient() *Client {
	settings := &conf.Settings{}
	settings.LLM.APIKey = "test-key"
	settings.LLM.BaseURL = testBaseURL
	settings.LLM.Model = "test-model"
	settings.LLM.Timeout = 30
	settings.LLM.MaxTokens = 2000
	settings.LLM.Temperature = 0.7
	settings.Ethics.RubricPrompt = "You are an ethics auditor."
	return New(settings)
}

func activateMock(t *testing.T, c *Client) {
	t.Helper()
	httpmock.ActivateNonDefault(c.HTTPClient)
	t.Cleanup(httpmock.DeactivateAndReset)
}

func completionResponder(content string) httpmock.Responder {
	return httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{
		"id":    "cmpl-1",
		"model": "test-model",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     120,
			"completion_tokens": 80,
			"total_tokens":      200,
		},
	})
}

func TestChat_Success(t *testing.T) {
	c := testClient()
	activateMock(t, c)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "test-model", body["model"])

			return completionResponder("hello")(req)
		})

	resp, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", ExtractContent(resp))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestChat_HTTPErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"unauthorized", http.StatusUnauthorized},
		{"rate limited", http.StatusTooManyRequests},
		{"server error", http.StatusInternalServerError},
		{"bad gateway", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient()
			activateMock(t, c)

			httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
				httpmock.NewStringResponder(tt.status, `{"error":"nope"}`))

			_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryHTTP))

			var transportErr *TransportError
			require.ErrorAs(t, err, &transportErr)
			assert.Equal(t, tt.status, transportErr.StatusCode)
		})
	}
}

func TestChat_NetworkError(t *testing.T) {
	c := testClient()
	activateMock(t, c)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		httpmock.NewErrorResponder(fmt.Errorf("connection refused")))

	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
}

func TestChat_OptionsOverrideDefaults(t *testing.T) {
	c := testClient()
	activateMock(t, c)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "other-model", body["model"])
			assert.InDelta(t, 0.1, body["temperature"], 1e-9)
			assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
			return completionResponder("ok")(req)
		})

	temp := 0.1
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, &ChatOptions{
		Model:          "other-model",
		Temperature:    &temp,
		ResponseFormat: "json_object",
	})
	require.NoError(t, err)
}

func TestEthicsAudit_Success(t *testing.T) {
	c := testClient()
	activateMock(t, c)

	verdict := `{
		"risk_score": 72,
		"risk_level": "high",
		"risk_summary": "unsubstantiated medical claims",
		"risk_breakdown": {"misinformation_accuracy": {"score": 9, "issues": ["cure claim"]}},
		"mitigation_suggestions": ["add evidence"],
		"requires_human_review": true
	}`

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			var body struct {
				Messages       []Message      `json:"messages"`
				Temperature    float64        `json:"temperature"`
				ResponseFormat map[string]any `json:"response_format"`
			}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			require.Len(t, body.Messages, 2)
			assert.Equal(t, "system", body.Messages[0].Role)
			assert.Equal(t, "You are an ethics auditor.", body.Messages[0].Content)
			assert.Equal(t, "user", body.Messages[1].Role)
			assert.InDelta(t, 0.3, body.Temperature, 1e-9)
			assert.Equal(t, map[string]any{"type": "json_object"}, body.ResponseFormat)
			return completionResponder(verdict)(req)
		})

	result, raw, err := c.EthicsAudit(context.Background(), "miracle cure ad", "ad")
	require.NoError(t, err)
	assert.Equal(t, verdict, raw)
	require.NotNil(t, result.RiskScore)
	assert.Equal(t, 72, *result.RiskScore)
	assert.Equal(t, "high", result.RiskLevel)
	assert.True(t, result.RequiresHumanReview)
}

func TestEthicsAudit_MalformedVerdict(t *testing.T) {
	c := testClient()
	activateMock(t, c)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		completionResponder("Sorry, I can't produce JSON today."))

	result, raw, err := c.EthicsAudit(context.Background(), "some content", "message")
	require.NoError(t, err, "malformed model output is not a transport failure")
	assert.Equal(t, "Sorry, I can't produce JSON today.", raw)
	assert.Nil(t, result.RiskScore, "malformed output decodes to a zero result")
}

func TestTestConnection(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		c := testClient()
		activateMock(t, c)
		httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
			completionResponder("OK"))
		assert.NoError(t, c.TestConnection(context.Background()))
	})

	t.Run("empty response", func(t *testing.T) {
		c := testClient()
		activateMock(t, c)
		httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
			completionResponder(""))
		assert.Error(t, c.TestConnection(context.Background()))
	})
}

func TestExtractContent_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, ExtractContent(nil))
	assert.Empty(t, ExtractContent(&ChatResponse{}))
}
