package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trackex/internal/apperr"
)

// Prediction is the next-business-day price estimate for one ticker.
type Prediction struct {
	Ticker          string          `json:"ticker"`
	LastDate        string          `json:"last_date"`
	NextBusinessDay string          `json:"next_business_day"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	PredictedPrice  decimal.Decimal `json:"predicted_price"`
	Error           string          `json:"error,omitempty"`
}

// Predictor estimates the next price of a ticker.
//
//go:generate mockery --name Predictor --output ../mocks --outpkg mocks
type Predictor interface {
	Predict(ctx context.Context, ticker string) (*Prediction, error)
}

// Client calls a prediction service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

var _ Predictor = (*Client)(nil)

// Predict fetches GET {base}/predict?ticker=...
func (c *Client) Predict(ctx context.Context, ticker string) (*Prediction, error) {
	u := c.baseURL + "/predict?" + url.Values{"ticker": {ticker}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build prediction request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prediction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("prediction service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var p Prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode prediction: %w", err)
	}
	if p.Ticker == "" {
		p.Ticker = strings.ToUpper(ticker)
	}
	return &p, nil
}

// Request asks which tickers are worth buying with a given amount.
type Request struct {
	Tickers    []string        `json:"tickers"`
	Investment decimal.Decimal `json:"investment_amount"`
}

// Recommendation splits predictions into buys and everything else.
type Recommendation struct {
	Recommended []Prediction `json:"recommended_stocks"`
	Other       []Prediction `json:"other_stocks"`
}

// Advisor turns predictions into an investment recommendation.
type Advisor struct {
	predictor Predictor
}

// NewAdvisor creates an Advisor.
func NewAdvisor(p Predictor) *Advisor {
	return &Advisor{predictor: p}
}

// Recommend predicts every ticker. A ticker is recommended when its current
// price fits the investment and its predicted price is higher; failed
// predictions are reported under Other with their error.
func (a *Advisor) Recommend(ctx context.Context, req Request) (*Recommendation, error) {
	if len(req.Tickers) == 0 {
		return nil, apperr.Required("tickers")
	}
	if !req.Investment.IsPositive() {
		return nil, apperr.Invalid("investment_amount", "must be a positive amount")
	}

	out := &Recommendation{Recommended: []Prediction{}, Other: []Prediction{}}
	for _, ticker := range req.Tickers {
		ticker = strings.TrimSpace(ticker)
		if ticker == "" {
			continue
		}
		p, err := a.predictor.Predict(ctx, ticker)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			out.Other = append(out.Other, Prediction{Ticker: strings.ToUpper(ticker), Error: err.Error()})
			continue
		}
		if p.Error == "" && p.CurrentPrice.LessThanOrEqual(req.Investment) && p.PredictedPrice.GreaterThan(p.CurrentPrice) {
			out.Recommended = append(out.Recommended, *p)
		} else {
			out.Other = append(out.Other, *p)
		}
	}
	return out, nil
}
