package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"bookshop-access/internal/domain"
	"bookshop-access/internal/domain/ports/adapter"
)

var _ adapter.PaymentProvider = (*CheckoutProvider)(nil)

// CheckoutProvider talks to the external payment processor's order API using
// direct HTTP calls: a client-credentials token grant followed by an
// authoritative order lookup. Tokens are cached in memory until shortly
// before expiry and never persisted.
type CheckoutProvider struct {
	name         string
	baseURL      string
	clientID     string
	clientSecret string
	client       *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewCheckoutProvider(name, baseURL, clientID, clientSecret string, timeout time.Duration) *CheckoutProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CheckoutProvider{
		name:         name,
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: timeout},
	}
}

func (p *CheckoutProvider) Name() string { return p.name }

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// orderResponse mirrors the provider's order detail payload. Only the fields
// verification needs are decoded.
type orderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Amount struct {
			CurrencyCode string `json:"currency_code"`
			Value        string `json:"value"`
		} `json:"amount"`
	} `json:"purchase_units"`
	Payer struct {
		EmailAddress string `json:"email_address"`
		PayerID      string `json:"payer_id"`
	} `json:"payer"`
}

// GetAccessToken performs the client-credentials grant, reusing a cached
// token while it has more than a minute of life left.
func (p *CheckoutProvider) GetAccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.token != "" && time.Until(p.tokenExp) > time.Minute {
		tok := p.token
		p.mu.Unlock()
		return tok, nil
	}
	p.mu.Unlock()

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(p.clientID, p.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read token response: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("%w: unmarshal token response: %v", domain.ErrProviderUnavailable, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrProviderUnavailable)
	}

	p.mu.Lock()
	p.token = tr.AccessToken
	p.tokenExp = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	p.mu.Unlock()
	return tr.AccessToken, nil
}

// GetOrder fetches authoritative order details. A 404 maps to
// domain.ErrNotFound; network errors, timeouts and 5xx map to
// domain.ErrProviderUnavailable. Everything else is decoded and returned
// as-is for the verifier to judge.
func (p *CheckoutProvider) GetOrder(ctx context.Context, transactionID, token string) (*adapter.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v2/checkout/orders/"+url.PathEscape(transactionID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create order request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: order request: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read order response: %v", domain.ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, transactionID)
	case resp.StatusCode == http.StatusUnauthorized:
		// stale cached token; drop it so the next call re-authenticates
		p.mu.Lock()
		p.token = ""
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: token rejected", domain.ErrProviderUnavailable)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: order endpoint status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: order endpoint status %d, body: %s", domain.ErrProviderUnavailable, resp.StatusCode, string(body))
	}

	var or orderResponse
	if err := json.Unmarshal(body, &or); err != nil {
		return nil, fmt.Errorf("%w: unmarshal order response: %v, body: %s", domain.ErrProviderUnavailable, err, string(body))
	}

	order := &adapter.Order{
		ID:         or.ID,
		RawStatus:  or.Status,
		Status:     strings.ToLower(or.Status),
		PayerEmail: or.Payer.EmailAddress,
		PayerID:    or.Payer.PayerID,
	}
	if len(or.PurchaseUnits) > 0 {
		amt := or.PurchaseUnits[0].Amount
		order.Currency = amt.CurrencyCode
		v, err := strconv.ParseFloat(amt.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad amount %q", domain.ErrProviderUnavailable, amt.Value)
		}
		order.Amount = v
	}
	return order, nil
}
