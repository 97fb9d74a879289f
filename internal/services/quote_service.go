package services

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"strings"

	"learnverse/internal/config"
	"learnverse/internal/models"
	"learnverse/internal/observability"
	contextutils "learnverse/internal/utils"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxQuoteResponseBytes = 64 << 10

// FallbackQuotes are served when the quote upstream is unset or fails
var FallbackQuotes = []models.Quote{
	{Text: "The only way to learn is by doing.", Author: "Isaac Asimov"},
	{Text: "Education is not the filling of a pot but the lighting of a fire.", Author: "W.B. Yeats"},
	{Text: "The beautiful thing about learning is that no one can take it away from you.", Author: "B.B. King"},
	{Text: "The more that you read, the more things you will know. The more that you learn, the more places you'll go.", Author: "Dr. Seuss"},
	{Text: "Live as if you were to die tomorrow. Learn as if you were to live forever.", Author: "Mahatma Gandhi"},
	{Text: "The capacity to learn is a gift; the ability to learn is a skill; the willingness to learn is a choice.", Author: "Brian Herbert"},
	{Text: "Anyone who stops learning is old, whether at twenty or eighty.", Author: "Henry Ford"},
	{Text: "Tell me and I forget. Teach me and I remember. Involve me and I learn.", Author: "Benjamin Franklin"},
}

// QuoteServiceInterface defines the motivational quote operation
type QuoteServiceInterface interface {
	RandomQuote(ctx context.Context) models.Quote
}

// QuoteService fetches motivational quotes from an HTTP upstream
type QuoteService struct {
	url    string
	client *http.Client
	logger *observability.Logger
}

// NewQuoteService creates a new QuoteService instance
func NewQuoteService(cfg *config.Config, logger *observability.Logger) *QuoteService {
	timeout := cfg.Quotes.Timeout
	if timeout <= 0 {
		timeout = config.QuoteHTTPTimeout
	}
	return &QuoteService{
		url: cfg.Quotes.URL,
		client: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
			),
		},
		logger: logger,
	}
}

// RandomQuote returns an upstream quote, or a built-in one when the upstream cannot serve
func (s *QuoteService) RandomQuote(ctx context.Context) models.Quote {
	ctx, span := observability.TraceQuoteFunction(ctx, "RandomQuote")
	defer span.End()

	if s.url == "" {
		span.SetAttributes(attribute.Bool("quote.fallback", true))
		return fallbackQuote()
	}

	quote, err := s.fetch(ctx)
	if err != nil {
		s.logger.Warn(ctx, "Quote upstream failed, using fallback", map[string]interface{}{
			"url":   s.url,
			"error": err.Error(),
		})
		span.SetAttributes(attribute.Bool("quote.fallback", true), attribute.String("error", err.Error()))
		return fallbackQuote()
	}
	span.SetAttributes(attribute.Bool("quote.fallback", false))
	return quote
}

func (s *QuoteService) fetch(ctx context.Context) (models.Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return models.Quote{}, contextutils.WrapError(err, "failed to create quote request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.Quote{}, contextutils.WrapError(err, "failed to fetch quote")
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Warn(ctx, "Failed to close response body", map[string]interface{}{"error": cerr.Error()})
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return models.Quote{}, contextutils.ErrorWithContextf("quote upstream returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxQuoteResponseBytes))
	if err != nil {
		return models.Quote{}, contextutils.WrapError(err, "failed to read quote response")
	}
	return decodeQuote(body)
}

// upstreamQuote covers the field names used by the common quote APIs
type upstreamQuote struct {
	Content string `json:"content"`
	Text    string `json:"text"`
	Q       string `json:"q"`
	Author  string `json:"author"`
	A       string `json:"a"`
}

// decodeQuote accepts a quote object or a non-empty array of them
func decodeQuote(body []byte) (models.Quote, error) {
	var raw upstreamQuote
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var list []upstreamQuote
		if err := json.Unmarshal(body, &list); err != nil {
			return models.Quote{}, contextutils.WrapError(err, "failed to decode quote list")
		}
		if len(list) == 0 {
			return models.Quote{}, contextutils.ErrorWithContextf("quote upstream returned an empty list")
		}
		raw = list[0]
	} else if err := json.Unmarshal(body, &raw); err != nil {
		return models.Quote{}, contextutils.WrapError(err, "failed to decode quote")
	}

	q := models.Quote{Text: firstNonEmpty(raw.Content, raw.Text, raw.Q), Author: firstNonEmpty(raw.Author, raw.A)}
	if q.Text == "" {
		return models.Quote{}, contextutils.ErrorWithContextf("quote upstream response has no text")
	}
	if q.Author == "" {
		q.Author = "Unknown"
	}
	return q, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func fallbackQuote() models.Quote {
	return FallbackQuotes[rand.Intn(len(FallbackQuotes))]
}
