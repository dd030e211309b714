package region

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// Normalizer maps a free-form destination ("Haeundae Beach", "해운대") to
// the administrative region name used as the knowledge-store filter
// ("Haeundae-gu").
type Normalizer interface {
	Normalize(ctx context.Context, destination string) (string, error)
}

var _ Normalizer = (*GeminiNormalizer)(nil)

// GeminiNormalizer asks a Gemini model for the administrative region of a
// destination. On model failure it falls back to the rule-based normalizer
// so planning can proceed with a best-effort filter.
type GeminiNormalizer struct {
	client   *genai.Client
	model    string
	fallback RuleNormalizer
	logger   *slog.Logger
}

func NewGeminiNormalizer(ctx context.Context, apiKey, model string, logger *slog.Logger) (*GeminiNormalizer, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiNormalizer{client: client, model: model, logger: logger}, nil
}

const normalizePrompt = `Return only the administrative district (gu/gun/si level)
that contains the following travel destination, romanized, with no explanation.
Destination: %s`

func (n *GeminiNormalizer) Normalize(ctx context.Context, destination string) (string, error) {
	prompt := fmt.Sprintf(normalizePrompt, destination)
	result, err := n.client.Models.GenerateContent(ctx, n.model, genai.Text(prompt), nil)
	if err != nil {
		n.logger.WarnContext(ctx, "model normalization failed, using rule-based fallback",
			slog.String("destination", destination), slog.Any("error", err))
		return n.fallback.Normalize(ctx, destination)
	}
	region := strings.TrimSpace(result.Text())
	if region == "" {
		return n.fallback.Normalize(ctx, destination)
	}
	return region, nil
}

var _ Normalizer = (*RuleNormalizer)(nil)

// RuleNormalizer is the offline fallback: it keeps a token that already
// looks like an administrative district and otherwise passes the
// destination through unchanged, which the store's suffix matching can
// still work with.
type RuleNormalizer struct{}

var districtSuffixes = []string{"-gu", "-gun", "-si", "-dong", "-eup"}

func (RuleNormalizer) Normalize(_ context.Context, destination string) (string, error) {
	for _, token := range strings.Fields(destination) {
		lower := strings.ToLower(token)
		for _, suffix := range districtSuffixes {
			if strings.HasSuffix(lower, suffix) {
				return token, nil
			}
		}
	}
	return strings.TrimSpace(destination), nil
}
