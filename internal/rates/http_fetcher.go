package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/oftenai/often-gateway/internal/domain"
)

const fetchTimeout = 5 * time.Second

// HTTPFetcher fetches USD prices from a price oracle HTTP endpoint of the
// form GET {baseURL}?symbol=ETH -> {"price": "3421.55"}. Grounded on the
// teacher pack's raw-HTTP provider client shape (internal/provider/openai
// /client.go), reused here for a much smaller single-field payload.
type HTTPFetcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPFetcher creates a fetcher against baseURL with the oracle's short,
// non-blocking timeout (§5: "Rate oracle fetch: short timeout (≤ 5 s)").
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: fetchTimeout},
	}
}

type priceResponse struct {
	Price float64 `json:"price,string"`
}

// FetchUSDPrice fetches the current USD price of one whole unit of
// currency.
func (f *HTTPFetcher) FetchUSDPrice(ctx context.Context, currency domain.Currency) (float64, error) {
	reqURL := f.baseURL + "?symbol=" + url.QueryEscape(string(currency))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("rates: build request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rates: fetch %s: %w", currency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rates: oracle returned status %d for %s", resp.StatusCode, currency)
	}

	var parsed priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("rates: decode response for %s: %w", currency, err)
	}
	if parsed.Price <= 0 {
		return 0, fmt.Errorf("rates: oracle returned non-positive price for %s", currency)
	}
	return parsed.Price, nil
}
