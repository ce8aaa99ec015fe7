package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/thebtf/braindump/pkg/models"
)

const (
	maxTitleWords = 6
	maxInsights   = 4
)

// InsightsUnavailablePrefix starts the fallback insights text.
const InsightsUnavailablePrefix = "Insights unavailable: "

// Advice is the structured answer of GiveAdvice.
type Advice struct {
	Tasks           []string `json:"tasks"`
	RecommendedTask string   `json:"recommended_task"`
	Reason          string   `json:"reason"`
	Error           string   `json:"error,omitempty"`
}

// Enrichment is the combined result of Organize.
type Enrichment struct {
	Title    string
	Category models.Category
	Insights []string
}

// Enricher wraps a Provider with fallbacks. Every method returns a usable value.
type Enricher struct {
	provider  Provider
	fallbacks metric.Int64Counter
}

// NewEnricher creates an Enricher. A nil provider makes every call use its fallback.
func NewEnricher(provider Provider) *Enricher {
	counter, err := otel.Meter("github.com/thebtf/braindump/internal/llm").Int64Counter(
		"braindump.enrichment.fallbacks",
		metric.WithDescription("Enrichment calls answered with a fallback value"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create enrichment fallback counter")
	}
	return &Enricher{provider: provider, fallbacks: counter}
}

// Available reports whether a provider is configured and accepting calls.
func (e *Enricher) Available() bool {
	return e.provider != nil && e.provider.IsAvailable()
}

func (e *Enricher) complete(ctx context.Context, op string, req ChatRequest) (string, error) {
	if e.provider == nil {
		return "", ErrNotConfigured
	}
	out, err := e.provider.Complete(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("op", op).Msg("Language model call failed, using fallback")
		return "", err
	}
	return out, nil
}

func (e *Enricher) fellBack(ctx context.Context, op string) {
	if e.fallbacks != nil {
		e.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
}

// GenerateTitle returns a title of at most six words, or "Untitled".
func (e *Enricher) GenerateTitle(ctx context.Context, text string) string {
	out, err := e.complete(ctx, "title", ChatRequest{System: titlePrompt, User: text, MaxTokens: 20, Temperature: 0.3})
	if err != nil {
		e.fellBack(ctx, "title")
		return models.UntitledNote
	}
	title := CleanTitle(out)
	if title == models.UntitledNote {
		e.fellBack(ctx, "title")
	}
	return title
}

// GenerateCategory returns one of the closed set, defaulting to Personal.
func (e *Enricher) GenerateCategory(ctx context.Context, text string) models.Category {
	out, err := e.complete(ctx, "category", ChatRequest{System: categoryPrompt, User: text, MaxTokens: 5, Temperature: 0})
	if err != nil {
		e.fellBack(ctx, "category")
		return models.DefaultCategory
	}
	c, ok := MatchCategory(out)
	if !ok {
		log.Debug().Str("answer", out).Msg("Category answer outside the closed set")
		e.fellBack(ctx, "category")
		return models.DefaultCategory
	}
	return c
}

// GenerateInsights returns 2-4 bullet insights, or an explanatory string starting
// with InsightsUnavailablePrefix.
func (e *Enricher) GenerateInsights(ctx context.Context, text string) string {
	out, err := e.complete(ctx, "insights", ChatRequest{System: insightsPrompt, User: text, MaxTokens: 200, Temperature: 0.7})
	if err != nil {
		e.fellBack(ctx, "insights")
		return InsightsUnavailablePrefix + err.Error()
	}
	if len(ParseInsights(out)) == 0 {
		e.fellBack(ctx, "insights")
		return InsightsUnavailablePrefix + "empty answer"
	}
	return out
}

// GiveAdvice extracts tasks from text and recommends one. Failures are reported
// in Advice.Error.
func (e *Enricher) GiveAdvice(ctx context.Context, text string) Advice {
	out, err := e.complete(ctx, "advice", ChatRequest{System: advicePrompt, User: text, MaxTokens: 300, Temperature: 0.4, JSON: true})
	if err != nil {
		e.fellBack(ctx, "advice")
		return Advice{Error: err.Error()}
	}
	advice, err := ParseAdvice(out)
	if err != nil {
		e.fellBack(ctx, "advice")
		return Advice{Error: err.Error()}
	}
	return advice
}

// Organize generates title, category and insights concurrently.
func (e *Enricher) Organize(ctx context.Context, text string) Enrichment {
	var res Enrichment
	var insights string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res.Title = e.GenerateTitle(gctx, text)
		return nil
	})
	g.Go(func() error {
		res.Category = e.GenerateCategory(gctx, text)
		return nil
	})
	g.Go(func() error {
		insights = e.GenerateInsights(gctx, text)
		return nil
	})
	_ = g.Wait()

	res.Insights = ParseInsights(insights)
	return res
}

// CleanTitle normalizes a model answer into a title, falling back to "Untitled".
func CleanTitle(raw string) string {
	line := strings.TrimSpace(raw)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if len(line) > 6 && strings.EqualFold(line[:6], "title:") {
		line = line[6:]
	}

	words := strings.Fields(line)
	if len(words) > maxTitleWords {
		words = words[:maxTitleWords]
	}
	title := strings.Join(words, " ")
	title = strings.TrimFunc(title, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune("\"'`“”‘’*", r)
	})
	title = strings.TrimRightFunc(title, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(".,;:!?\"'“”‘’", r)
	})
	if title == "" {
		return models.UntitledNote
	}
	return title
}

// MatchCategory maps a model answer to a category. Only exact names are accepted,
// after trimming whitespace and a trailing period.
func MatchCategory(raw string) (models.Category, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, ".")
	s = strings.TrimSpace(s)
	c := models.Category(s)
	return c, c.IsValid()
}

// ParseInsights splits insight text into bullets. Text without bullets becomes
// a single entry.
func ParseInsights(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•")
		line = trimNumbering(line)
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	if len(out) > maxInsights {
		out = out[:maxInsights]
	}
	return out
}

// trimNumbering removes a leading "1." or "2)" marker.
func trimNumbering(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return line[i+1:]
	}
	return line
}

// ParseAdvice decodes the advice JSON, tolerating code fences and surrounding prose.
func ParseAdvice(raw string) (Advice, error) {
	s := strings.TrimSpace(raw)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return Advice{}, fmt.Errorf("advice answer is not JSON")
	}

	var advice Advice
	if err := json.Unmarshal([]byte(s[start:end+1]), &advice); err != nil {
		return Advice{}, fmt.Errorf("decode advice: %w", err)
	}
	advice.Error = ""
	if advice.Tasks == nil {
		advice.Tasks = []string{}
	}
	return advice, nil
}
