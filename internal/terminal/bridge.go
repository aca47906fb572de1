package terminal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mt5-pnl-reporter/internal/config"
	"mt5-pnl-reporter/internal/models"
)

// APIError represents a bridge API error with status code and response body.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bridge API error %d: %s", e.Status, e.Body)
}

// BridgeClient talks to a local terminal bridge over HTTP/JSON. The bridge
// owns the actual terminal process; this client only establishes the login
// session and reads positions, orders and quotes.
type BridgeClient struct {
	client  *http.Client
	baseURL string
	logger  logrus.FieldLogger
}

// NewBridgeClient creates a bridge client for the given base URL.
func NewBridgeClient(baseURL string, timeout time.Duration, logger logrus.FieldLogger) *BridgeClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BridgeClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// WithHTTPClient allows overriding the HTTP client (tests, custom transport).
func (b *BridgeClient) WithHTTPClient(c *http.Client) *BridgeClient {
	if c != nil {
		b.client = c
	}
	return b
}

// ============ Wire structures ============

type sessionRequest struct {
	Login        int64  `json:"login"`
	Password     string `json:"password"`
	Server       string `json:"server"`
	TerminalPath string `json:"terminal_path,omitempty"`
}

type sessionResponse struct {
	Connected bool   `json:"connected"`
	Login     int64  `json:"login"`
	Server    string `json:"server"`
	Message   string `json:"message,omitempty"`
}

// bridgePosition mirrors the terminal's position tuple. Zero stop-loss or
// take-profit means the level is not set.
type bridgePosition struct {
	Ticket       int64   `json:"ticket"`
	Symbol       string  `json:"symbol"`
	Side         string  `json:"type"` // buy | sell
	Volume       float64 `json:"volume"`
	PriceOpen    float64 `json:"price_open"`
	PriceCurrent float64 `json:"price_current"`
	StopLoss     float64 `json:"sl"`
	TakeProfit   float64 `json:"tp"`
	Magic        int64   `json:"magic"`
	Comment      string  `json:"comment"`
	Time         int64   `json:"time"` // unix seconds
}

type positionsResponse struct {
	Positions []bridgePosition `json:"positions"`
}

type bridgeOrder struct {
	Ticket        int64   `json:"ticket"`
	Symbol        string  `json:"symbol"`
	Kind          string  `json:"type"` // buy_limit | sell_limit | buy_stop | ...
	VolumeInitial float64 `json:"volume_initial"`
	PriceOpen     float64 `json:"price_open"`
	StopLoss      float64 `json:"sl"`
	TakeProfit    float64 `json:"tp"`
	Magic         int64   `json:"magic"`
	Comment       string  `json:"comment"`
	TimeSetup     int64   `json:"time_setup"`
}

type ordersResponse struct {
	Orders []bridgeOrder `json:"orders"`
}

type quoteResponse struct {
	Quote Quote `json:"quote"`
}

// optional converts the terminal's zero-means-unset convention into an
// explicit absent marker.
func optional(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return models.Float64(v)
}

func (p bridgePosition) toRecord() models.PositionRecord {
	return models.PositionRecord{
		Ticket:       p.Ticket,
		Symbol:       p.Symbol,
		Side:         models.PositionSide(p.Side),
		Volume:       p.Volume,
		OpenPrice:    p.PriceOpen,
		CurrentPrice: p.PriceCurrent,
		StopLoss:     optional(p.StopLoss),
		TakeProfit:   optional(p.TakeProfit),
		Magic:        p.Magic,
		Comment:      p.Comment,
		OpenedAt:     time.Unix(p.Time, 0).UTC(),
	}
}

func (o bridgeOrder) toRecord() models.PendingOrderRecord {
	return models.PendingOrderRecord{
		Ticket:       o.Ticket,
		Symbol:       o.Symbol,
		Kind:         models.OrderKind(o.Kind),
		Volume:       o.VolumeInitial,
		TriggerPrice: o.PriceOpen,
		StopLoss:     optional(o.StopLoss),
		TakeProfit:   optional(o.TakeProfit),
		Magic:        o.Magic,
		Comment:      o.Comment,
		PlacedAt:     time.Unix(o.TimeSetup, 0).UTC(),
	}
}

// ============ API methods ============

// Connect establishes a session for the given account and verifies the
// bridge actually logged into the requested account before handing it out.
func (b *BridgeClient) Connect(ctx context.Context, acct config.Account) (Session, error) {
	body := sessionRequest{
		Login:        acct.Login,
		Password:     acct.Password,
		Server:       acct.Server,
		TerminalPath: acct.TerminalPath,
	}

	var resp sessionResponse
	if err := b.makeRequest(ctx, http.MethodPost, b.baseURL+"/session", body, &resp); err != nil {
		return nil, fmt.Errorf("connecting login %d: %w", acct.Login, err)
	}
	if !resp.Connected {
		return nil, fmt.Errorf("bridge refused session for login %d: %s", acct.Login, resp.Message)
	}
	if resp.Login != acct.Login {
		// The bridge's terminal is logged into someone else; tear it down
		// rather than report another account's records.
		if err := b.shutdown(ctx); err != nil {
			b.logger.WithError(err).Warn("failed to shut down mismatched session")
		}
		return nil, fmt.Errorf("bridge connected to login %d, expected %d", resp.Login, acct.Login)
	}

	b.logger.WithFields(logrus.Fields{
		"login":  resp.Login,
		"server": resp.Server,
	}).Info("terminal session established")

	return &bridgeSession{client: b}, nil
}

func (b *BridgeClient) shutdown(ctx context.Context) error {
	return b.makeRequest(ctx, http.MethodDelete, b.baseURL+"/session", nil, nil)
}

// bridgeSession is the live connection handle. The bridge is single-session,
// so the session just delegates to the owning client.
type bridgeSession struct {
	client *BridgeClient
}

func (s *bridgeSession) Positions(ctx context.Context) ([]models.PositionRecord, error) {
	var resp positionsResponse
	if err := s.client.makeRequest(ctx, http.MethodGet, s.client.baseURL+"/positions", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}
	records := make([]models.PositionRecord, 0, len(resp.Positions))
	for _, p := range resp.Positions {
		records = append(records, p.toRecord())
	}
	return records, nil
}

func (s *bridgeSession) Orders(ctx context.Context) ([]models.PendingOrderRecord, error) {
	var resp ordersResponse
	if err := s.client.makeRequest(ctx, http.MethodGet, s.client.baseURL+"/orders", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching orders: %w", err)
	}
	records := make([]models.PendingOrderRecord, 0, len(resp.Orders))
	for _, o := range resp.Orders {
		records = append(records, o.toRecord())
	}
	return records, nil
}

func (s *bridgeSession) Quote(ctx context.Context, symbol string) (*Quote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	endpoint := s.client.baseURL + "/quote?" + params.Encode()

	var resp quoteResponse
	if err := s.client.makeRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching quote for %s: %w", symbol, err)
	}
	if resp.Quote.Symbol == "" {
		return nil, fmt.Errorf("no quote found for symbol: %s", symbol)
	}
	q := resp.Quote
	return &q, nil
}

func (s *bridgeSession) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.shutdown(ctx); err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	return nil
}

// makeRequest performs one HTTP round-trip against the bridge and decodes the
// JSON response into response when it is non-nil.
func (b *BridgeClient) makeRequest(ctx context.Context, method, endpoint string,
	body interface{}, response interface{}) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(payload))
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("User-Agent", "plreport/1.0")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			b.logger.WithError(err).Warn("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) // 64KB cap to avoid huge payloads
		if err != nil {
			return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s -> failed to read error body", method, endpoint)}
		}
		return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s -> %s", method, endpoint, string(raw))}
	}

	if response == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(response); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Ensure BridgeClient implements Terminal at compile time.
var _ Terminal = (*BridgeClient)(nil)
