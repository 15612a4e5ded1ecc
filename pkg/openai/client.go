package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/korjavin/cookalong/pkg/logger"
	"github.com/korjavin/cookalong/pkg/models"
	"github.com/sashabaranov/go-openai"
)

const schedulerPrompt = `You are a cooking scheduler assistant.
Your job is to produce a complete cooking timeline for multiple recipes.
- Each recipe has its steps with a duration hint in seconds.
- Keep the steps of each recipe in order AND interleave them across recipes to minimize idle time.
- Overlap "background" tasks (like roasting, simmering, waiting) with other work where possible.
- Label each step with:
  - "foreground" if it requires active attention,
  - "background" if it can run concurrently.
- Never schedule two "foreground" steps at the same time.
- Assign start and end times (in seconds) to create a continuous global timeline.
- Output a JSON object with the shape:
  {
    "items": [
      {
        "recipeId": "123",
        "recipeName": "Pasta",
        "stepIndex": 0,
        "text": "...",
        "attention": "foreground",
        "startSec": 0,
        "endSec": 120
      }
    ],
    "totalDurationSec": 2400
  }`

// Client represents an OpenAI API client
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *logger.Logger
}

// New creates a new OpenAI client
func New(apiKey, apiBase, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	if apiBase != "" {
		config.BaseURL = apiBase
	}

	client := openai.NewClientWithConfig(config)
	return &Client{
		client:  client,
		model:   model,
		timeout: 60 * time.Second,
		logger:  logger.New("openai"),
	}
}

type promptRecipe struct {
	RecipeID   string       `json:"recipeId"`
	RecipeName string       `json:"recipeName"`
	Steps      []promptStep `json:"steps"`
}

type promptStep struct {
	Text        string           `json:"text"`
	DurationSec int              `json:"durationSec"`
	Attention   models.Attention `json:"attention"`
}

// GenerateSchedule asks the model to interleave the recipes into one timeline.
// The result is parsed but not validated.
func (c *Client) GenerateSchedule(ctx context.Context, recipes []models.Recipe) (models.ScheduleResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload := make([]promptRecipe, 0, len(recipes))
	for _, recipe := range recipes {
		pr := promptRecipe{RecipeID: recipe.ID, RecipeName: recipe.Name}
		for _, step := range recipe.Steps {
			pr.Steps = append(pr.Steps, promptStep{Text: step.Text, DurationSec: step.DurationSec, Attention: step.Attention})
		}
		payload = append(payload, pr)
	}

	recipesJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return models.ScheduleResult{}, fmt.Errorf("failed to marshal recipes: %w", err)
	}

	prompt := fmt.Sprintf("Here are the recipes and their steps:\n\n%s\n\nReturn only valid JSON in the format described above.", recipesJSON)

	c.logger.Info("Requesting schedule for %d recipes", len(recipes))
	c.logger.Debug("OpenAI prompt (first 100 chars): %s", truncateString(prompt, 100))

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: schedulerPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.2,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)

	if err != nil {
		return models.ScheduleResult{}, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return models.ScheduleResult{}, fmt.Errorf("no response from OpenAI API")
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("OpenAI response (first 100 chars): %s", truncateString(content, 100))

	// Some models still wrap JSON in markdown fences
	content = cleanJSONResponse(content)

	var schedule models.ScheduleResult
	if err := json.Unmarshal([]byte(content), &schedule); err != nil {
		c.logger.Error("Failed to parse response: %v, Content: %s", err, truncateString(content, 500))
		return models.ScheduleResult{}, fmt.Errorf("failed to parse OpenAI response: %w", err)
	}

	c.logger.Info("Got schedule with %d items (%ds)", len(schedule.Items), schedule.TotalDurationSec)
	return schedule, nil
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// cleanJSONResponse strips ```json ... ``` delimiters around a response
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		// the first line might be "```json"
		firstLineEnd := strings.Index(s, "\n")
		if firstLineEnd != -1 {
			s = s[firstLineEnd+1:]
		}

		if strings.HasSuffix(s, "```") {
			s = s[:len(s)-3]
		}

		s = strings.TrimSpace(s)
	}

	return s
}
