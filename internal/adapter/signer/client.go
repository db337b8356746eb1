// Package signer talks to the remote signing service that holds wallet keys.
package signer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/goescrow/internal/adapter/blockchain/tonaddr"
	"github.com/iho/goescrow/internal/usecase"
)

const maxBodyBytes = 1 << 20

// Config configures a Client.
type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// Client implements usecase.Signer over HTTP.
type Client struct {
	httpClient *http.Client
	logger     zerolog.Logger
	baseURL    string
	token      string

	mu        sync.RWMutex
	addresses map[int32]string
}

var _ usecase.Signer = (*Client)(nil)

// NewClient creates a new Client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With().Str("component", "signer").Logger(),
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		token:      cfg.Token,
		addresses:  make(map[int32]string),
	}
}

type walletResponse struct {
	Address string `json:"address"`
}

type signRequest struct {
	Destination    string `json:"destination"`
	Comment        string `json:"comment"`
	Amount         string `json:"amount"`
	SubwalletIndex int32  `json:"subwalletIndex"`
	Seqno          uint32 `json:"seqno"`
}

type signResponse struct {
	Payload string `json:"payload"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// WalletAddress returns the normalized address of a subwallet. Addresses never
// change, so they are remembered after the first lookup.
func (c *Client) WalletAddress(ctx context.Context, subwalletIndex int32) (string, error) {
	c.mu.RLock()
	addr, ok := c.addresses[subwalletIndex]
	c.mu.RUnlock()
	if ok {
		return addr, nil
	}

	path := "/v1/wallets/" + strconv.FormatInt(int64(subwalletIndex), 10)

	var resp walletResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}

	addr, err := tonaddr.Normalize(resp.Address)
	if err != nil {
		return "", fmt.Errorf("signer returned invalid address for subwallet %d: %w", subwalletIndex, err)
	}

	c.mu.Lock()
	c.addresses[subwalletIndex] = addr
	c.mu.Unlock()

	return addr, nil
}

// Sign returns the signed external message for order.
func (c *Client) Sign(ctx context.Context, order usecase.TransferOrder) ([]byte, error) {
	req := signRequest{
		Destination:    order.Destination,
		Comment:        order.Comment,
		Amount:         strconv.FormatInt(order.Amount, 10),
		SubwalletIndex: order.SubwalletIndex,
		Seqno:          order.Seqno,
	}

	var resp signResponse
	if err := c.do(ctx, http.MethodPost, "/v1/sign", req, &resp); err != nil {
		return nil, err
	}

	payload, err := base64.StdEncoding.DecodeString(resp.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode signed payload: %w", err)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("signer returned an empty payload")
	}

	c.logger.Debug().
		Int32("subwallet", order.SubwalletIndex).
		Uint32("seqno", order.Seqno).
		Msg("order signed")

	return payload, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("signer %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("signer %s: read body: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = json.Unmarshal(raw, &e)
		return fmt.Errorf("signer %s: status %d: %s", path, resp.StatusCode, e.Error)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("signer %s: decode response: %w", path, err)
	}

	return nil
}
