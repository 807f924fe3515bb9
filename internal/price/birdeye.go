package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"solana-paper-trading/internal/domain"
)

// DefaultBirdeyeBaseURL is the public Birdeye API endpoint.
const DefaultBirdeyeBaseURL = "https://public-api.birdeye.so"

// BirdeyeSource implements Source against the Birdeye HTTP API.
// Each call is a single attempt; the oracle decides what happens on failure.
type BirdeyeSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// BirdeyeOption configures BirdeyeSource.
type BirdeyeOption func(*BirdeyeSource)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) BirdeyeOption {
	return func(s *BirdeyeSource) {
		s.baseURL = u
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) BirdeyeOption {
	return func(s *BirdeyeSource) {
		s.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) BirdeyeOption {
	return func(s *BirdeyeSource) {
		s.client = client
	}
}

// NewBirdeyeSource creates a Birdeye price source.
func NewBirdeyeSource(apiKey string, opts ...BirdeyeOption) *BirdeyeSource {
	s := &BirdeyeSource{
		baseURL: DefaultBirdeyeBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile-time interface check.
var _ Source = (*BirdeyeSource)(nil)

// Name identifies the source in logs and metrics.
func (s *BirdeyeSource) Name() string {
	return "birdeye"
}

// get performs one API request and decodes the JSON body into out.
func (s *BirdeyeSource) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("birdeye request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("birdeye api error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

// Price resolves the current price of a token.
func (s *BirdeyeSource) Price(ctx context.Context, token string) (*domain.PriceQuote, error) {
	endpoint := "/public/price?address=" + url.QueryEscape(token)

	var resp birdeyePriceResponse
	if err := s.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("birdeye: empty price data for %s", token)
	}

	return &domain.PriceQuote{
		Price:      decimal.NewFromFloat(resp.Data.Value),
		Timestamp:  time.Now().UTC(),
		Confidence: resp.Data.Confidence,
		Source:     "birdeye",
	}, nil
}

// HistoricalPrice resolves the price of a token at a point in time.
func (s *BirdeyeSource) HistoricalPrice(ctx context.Context, token string, at time.Time) (*domain.PriceQuote, error) {
	endpoint := fmt.Sprintf("/public/historical_price?address=%s&time=%d",
		url.QueryEscape(token), at.Unix())

	var resp birdeyePriceResponse
	if err := s.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("birdeye: empty historical price data for %s", token)
	}

	return &domain.PriceQuote{
		Price:     decimal.NewFromFloat(resp.Data.Value),
		Timestamp: at,
		Source:    "birdeye",
	}, nil
}

// PriceHistory resolves hourly prices within [start, end].
func (s *BirdeyeSource) PriceHistory(ctx context.Context, token string, start, end time.Time) ([]*domain.PriceQuote, error) {
	endpoint := fmt.Sprintf("/public/price_history?address=%s&type=1H&start_time=%d&end_time=%d",
		url.QueryEscape(token), start.Unix(), end.Unix())

	var resp birdeyeHistoryResponse
	if err := s.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	quotes := make([]*domain.PriceQuote, 0, len(resp.Data.Items))
	for _, item := range resp.Data.Items {
		quotes = append(quotes, &domain.PriceQuote{
			Price:     decimal.NewFromFloat(item.Value),
			Timestamp: time.Unix(item.UnixTime, 0).UTC(),
			Source:    "birdeye",
		})
	}

	return quotes, nil
}

// Birdeye API response shapes.

type birdeyePriceResponse struct {
	Data *birdeyePriceData `json:"data"`
}

type birdeyePriceData struct {
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
}

type birdeyeHistoryResponse struct {
	Data birdeyeHistoryData `json:"data"`
}

type birdeyeHistoryData struct {
	Items []birdeyeHistoryItem `json:"items"`
}

type birdeyeHistoryItem struct {
	Value    float64 `json:"value"`
	UnixTime int64   `json:"unixTime"`
}
