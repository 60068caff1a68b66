package gemini

import (
	"context"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"libraquant/internal/domain"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.5-flash"

// Canned replies shown instead of an analysis
const (
	UnavailableText = "AI Analysis Unavailable. System environment key missing. \n\n" +
		"Technical Insight: \nRisk/Reward Ratio: 1:2.5\nTrend: Bullish\nResistance: Target 2 observed."
	FailedText = "Unable to generate analysis at this time."
	EmptyText  = "Analysis failed to generate."
)

// Analyst asks Gemini for a short technical read of a signal
type Analyst struct {
	client *genai.Client
	model  string
}

// NewAnalyst creates an analyst. Without an API key it only returns the
// canned unavailable text.
func NewAnalyst(ctx context.Context, apiKey, model string) (*Analyst, error) {
	if model == "" {
		model = DefaultModel
	}
	if apiKey == "" {
		log.Println("[WARN] GEMINI_API_KEY not set, signal analysis disabled")
		return &Analyst{model: model}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Analyst{client: client, model: model}, nil
}

// AnalyzeSignal never fails; errors become fallback text
func (a *Analyst) AnalyzeSignal(ctx context.Context, signal domain.Signal) string {
	if a.client == nil {
		return UnavailableText
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: "You are a senior technical analyst of Indian index options. " +
			"Do not give financial advice, only technical analysis."}}},
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(BuildPrompt(signal)), config)
	if err != nil {
		log.Printf("ERROR: Gemini analysis of %s failed: %v", signal.ID, err)
		return FailedText
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return EmptyText
	}
	return text
}

// BuildPrompt describes the signal for the model
func BuildPrompt(s domain.Signal) string {
	targets := make([]string, len(s.Targets))
	for i, t := range s.Targets {
		targets[i] = fmt.Sprintf("%.2f", t)
	}

	return fmt.Sprintf(`Analyze this option trade signal:
Instrument: %s
Strike/Symbol: %s %s
Action: %s
Entry: %.2f
Stop Loss: %.2f
Targets: %s
Current Status: %s

Provide a concise bullet-point summary (max 50 words) covering:
1. Risk to Reward Ratio calculation.
2. Psychological levels nearby based on the strike price.
3. Management advice (aggressive vs safe).`,
		s.Instrument, s.Symbol, s.Type, s.Action, s.EntryPrice, s.StopLoss,
		strings.Join(targets, ", "), s.Status)
}
