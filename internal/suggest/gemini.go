package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/immoledger/backend/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// Gemini asks a Gemini model for category suggestions.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a suggester for the Gemini API.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if model == "" {
		model = DefaultModelName
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create genai client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Suggest(ctx context.Context, transactions []models.BankTransaction, categories []string) ([]Suggestion, error) {
	if len(transactions) == 0 {
		return []Suggestion{}, nil
	}

	prompt, err := Prompt(transactions, categories)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("could not generate suggestions: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("empty response from model %s", g.model)
	}

	return ParseSuggestions(raw, transactions, categories)
}

type promptTransaction struct {
	ID             string `json:"transaction_id"`
	Date           string `json:"date"`
	Amount         string `json:"amount"`
	SenderReceiver string `json:"sender_receiver"`
	Description    string `json:"description"`
	Reference      string `json:"reference"`
}

// Prompt builds the instructions for the model.
func Prompt(transactions []models.BankTransaction, categories []string) (string, error) {
	input := make([]promptTransaction, 0, len(transactions))
	for _, t := range transactions {
		input = append(input, promptTransaction{
			ID:             t.ID.String(),
			Date:           t.TransactionDate.Format("2006-01-02"),
			Amount:         t.Amount.String(),
			SenderReceiver: t.SenderReceiver,
			Description:    t.Description,
			Reference:      t.Reference,
		})
	}

	data, err := json.Marshal(input)
	if err != nil {
		return "", err
	}

	return "You categorize bank transactions of a landlord in Germany.\n\n" +
		"Categories:\n- " + strings.Join(categories, "\n- ") + "\n\n" +
		"Transactions (positive amounts are incoming money):\n" + string(data) + "\n\n" +
		"Return a JSON array with one object per transaction you can categorize.\n" +
		"Each object must have these fields:\n" +
		"- \"transaction_id\": string, the id of the transaction\n" +
		"- \"category\": string, one of the categories above\n" +
		"- \"confidence\": number between 0 and 100\n" +
		"- \"reason\": string, a short explanation in German\n\n" +
		"Return ONLY valid raw JSON. Do NOT wrap the response in code fences.\n", nil
}

type modelSuggestion struct {
	TransactionID string  `json:"transaction_id"`
	Category      string  `json:"category"`
	Confidence    float64 `json:"confidence"`
	Reason        string  `json:"reason"`
}

// ParseSuggestions parses the model output.
//
// Suggestions for unknown transactions or categories are dropped, confidence
// is clamped to 0 to 100.
func ParseSuggestions(raw string, transactions []models.BankTransaction, categories []string) ([]Suggestion, error) {
	var parsed []modelSuggestion
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("could not parse model response: %w", err)
	}

	known := make(map[uuid.UUID]struct{}, len(transactions))
	for _, t := range transactions {
		known[t.ID] = struct{}{}
	}

	suggestions := make([]Suggestion, 0, len(parsed))
	for _, p := range parsed {
		id, err := uuid.Parse(p.TransactionID)
		if err != nil {
			log.Warn().Str("transaction", p.TransactionID).Msg("Suggestion for invalid transaction ID dropped")
			continue
		}

		if _, ok := known[id]; !ok {
			log.Warn().Str("transaction", p.TransactionID).Msg("Suggestion for unknown transaction dropped")
			continue
		}

		if len(categories) > 0 && !slices.Contains(categories, p.Category) {
			log.Warn().Str("transaction", p.TransactionID).Str("category", p.Category).Msg("Suggestion with unknown category dropped")
			continue
		}

		suggestions = append(suggestions, Suggestion{
			TransactionID: id,
			Category:      p.Category,
			Confidence:    int(math.Round(math.Max(0, math.Min(100, p.Confidence)))),
			Reason:        p.Reason,
		})
	}

	return suggestions, nil
}

// cleanModelJSON removes Markdown code fences and text around the JSON array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
