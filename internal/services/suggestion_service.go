package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/foresy-api/internal/constants"
	apierrors "github.com/yukikurage/foresy-api/internal/errors"
)

var (
	ErrSuggestionsNotConfigured = apierrors.NewDomainError(apierrors.KindUnavailable, "entry suggestions are not configured")
	ErrSuggestionTextRequired   = apierrors.NewDomainError(apierrors.KindDomainValidation, "text is required")
	ErrSuggestionTextTooLong    = apierrors.NewDomainError(apierrors.KindDomainValidation, fmt.Sprintf("text must be at most %d characters", constants.MaxSuggestionTextLength))
	ErrSuggestionFailed         = apierrors.NewDomainError(apierrors.KindUnavailable, "entry suggestions are temporarily unavailable")
)

// ChatCompleter is the subset of the OpenAI client used for suggestions.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// SuggestedEntry is a draft entry proposed from free text. Nothing is persisted.
type SuggestedEntry struct {
	Date        time.Time       `json:"date"`
	Quantity    decimal.Decimal `json:"quantity"`
	Description string          `json:"description"`
}

type rawSuggestion struct {
	Date        string  `json:"date"`
	Quantity    float64 `json:"quantity"`
	Description string  `json:"description"`
}

// SuggestionService turns a free text activity summary into draft CRA entries.
type SuggestionService struct {
	client ChatCompleter
	cras   *CraService
	log    logrus.FieldLogger
}

// NewSuggestionService creates a SuggestionService. A nil client disables suggestions.
func NewSuggestionService(client ChatCompleter, craService *CraService, log logrus.FieldLogger) *SuggestionService {
	return &SuggestionService{
		client: client,
		cras:   craService,
		log:    log,
	}
}

// NewOpenAIClient returns an OpenAI client, or nil when no key is configured.
func NewOpenAIClient(apiKey string) ChatCompleter {
	if apiKey == "" {
		return nil
	}
	return openai.NewClient(apiKey)
}

// SuggestEntries asks the model for entries of the CRA's month and keeps
// only the ones that would pass entry validation.
func (s *SuggestionService) SuggestEntries(ctx context.Context, actorID, craID uint64, text string) ([]SuggestedEntry, error) {
	if s.client == nil {
		return nil, ErrSuggestionsNotConfigured
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrSuggestionTextRequired
	}
	if len([]rune(text)) > constants.MaxSuggestionTextLength {
		return nil, ErrSuggestionTextTooLong
	}

	cra, err := s.cras.GetCra(ctx, actorID, craID)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`You are a timesheet assistant. Extract worked days from the text below for the month %04d-%02d.

Text:
%s

Return a JSON array only, no prose:
[
  {
    "date": "YYYY-MM-DD",
    "quantity": 1,
    "description": "short description of the work"
  }
]

Rules:
- every date must be inside %04d-%02d
- quantity is the number of days worked on that date, between 0.25 and 1 in steps of 0.25
- return [] when no worked day can be found`, cra.Year, cra.Month, text, cra.Year, cra.Month)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4o,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"cra_id": cra.ID, "error_type": fmt.Sprintf("%T", err)}).Warn("OpenAI request failed")
		return nil, ErrSuggestionFailed
	}
	if len(resp.Choices) == 0 {
		return nil, ErrSuggestionFailed
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(content, "```json"), "```"), "```")

	var raw []rawSuggestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		s.log.WithField("cra_id", cra.ID).Warn("OpenAI response was not valid JSON")
		return nil, ErrSuggestionFailed
	}

	suggestions := make([]SuggestedEntry, 0, len(raw))
	for _, item := range raw {
		if len(suggestions) == constants.MaxSuggestedEntries {
			break
		}
		date, err := time.Parse("2006-01-02", strings.TrimSpace(item.Date))
		if err != nil || !cra.Contains(date) {
			continue
		}
		quantity := decimal.NewFromFloat(item.Quantity).Round(2)
		if validateQuantity(quantity) != nil {
			continue
		}
		description := strings.TrimSpace(item.Description)
		if len([]rune(description)) > constants.MaxEntryDescriptionLength {
			description = string([]rune(description)[:constants.MaxEntryDescriptionLength])
		}
		suggestions = append(suggestions, SuggestedEntry{Date: date, Quantity: quantity, Description: description})
	}

	return suggestions, nil
}
