// Package toncenter implements the blockchain port over the toncenter v2 HTTP API.
package toncenter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/iho/goescrow/internal/adapter/blockchain/tonaddr"
	"github.com/iho/goescrow/internal/domain"
)

const (
	DefaultBaseURL = "https://toncenter.com/api/v2"
	defaultTimeout = 10 * time.Second
	apiKeyHeader   = "X-API-Key"
	maxBodyBytes   = 8 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	// RPS is the sustained request rate. toncenter allows 1 rps without a key.
	RPS     float64
	Timeout time.Duration
}

// Client calls toncenter. Every request waits on a shared rate limiter.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
	baseURL    string
	apiKey     string
}

// NewClient creates a new Client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	burst := int(cfg.RPS)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RPS), burst),
		logger:     logger.With().Str("component", "toncenter").Logger(),
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
	}
}

type envelope[T any] struct {
	Result T      `json:"result"`
	Error  string `json:"error"`
	Code   int    `json:"code"`
	OK     bool   `json:"ok"`
}

type transactionID struct {
	Lt   string `json:"lt"`
	Hash string `json:"hash"`
}

type message struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Value       string `json:"value"`
	Message     string `json:"message"`
}

type transaction struct {
	InMsg         *message      `json:"in_msg"`
	TransactionID transactionID `json:"transaction_id"`
	Fee           string        `json:"fee"`
	OutMsgs       []message     `json:"out_msgs"`
	Utime         int64         `json:"utime"`
}

type masterchainInfo struct {
	Last struct {
		Seqno int64 `json:"seqno"`
	} `json:"last"`
}

type walletInformation struct {
	Seqno uint32 `json:"seqno"`
}

type sentMessage struct {
	Hash string `json:"hash"`
}

type feeEstimate struct {
	SourceFees struct {
		InFwdFee   int64 `json:"in_fwd_fee"`
		StorageFee int64 `json:"storage_fee"`
		GasFee     int64 `json:"gas_fee"`
		FwdFee     int64 `json:"fwd_fee"`
	} `json:"source_fees"`
}

// GetTransactions returns the latest transactions of address, newest first.
// Transactions that cannot be interpreted are skipped.
func (c *Client) GetTransactions(ctx context.Context, address string, limit int) ([]domain.ChainTransaction, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("archival", "true")

	var raw []transaction
	if err := get(ctx, c, "/getTransactions", q, &raw); err != nil {
		return nil, err
	}

	txs := make([]domain.ChainTransaction, 0, len(raw))
	for _, r := range raw {
		tx, err := toChainTransaction(r)
		if err != nil {
			c.logger.Debug().Err(err).Str("hash", r.TransactionID.Hash).Msg("skipping unusable transaction")
			continue
		}
		txs = append(txs, tx)
	}

	return txs, nil
}

// SendSignedPayload broadcasts a signed external message and returns its hash.
func (c *Client) SendSignedPayload(ctx context.Context, payload []byte) (string, error) {
	var sent sentMessage
	body := map[string]string{"boc": base64.StdEncoding.EncodeToString(payload)}
	if err := post(ctx, c, "/sendBocReturnHash", body, &sent); err != nil {
		return "", err
	}
	if sent.Hash == "" {
		return "", domain.WrapError(domain.KindChainCallFailed, domain.ErrChainCallFailed, "sendBocReturnHash returned no hash")
	}
	return sent.Hash, nil
}

// GetChainHeight returns the latest masterchain seqno.
func (c *Client) GetChainHeight(ctx context.Context) (int64, error) {
	var info masterchainInfo
	if err := get(ctx, c, "/getMasterchainInfo", nil, &info); err != nil {
		return 0, err
	}
	return info.Last.Seqno, nil
}

// GetAddressBalance returns the balance of address in nanotons.
func (c *Client) GetAddressBalance(ctx context.Context, address string) (int64, error) {
	q := url.Values{}
	q.Set("address", address)

	var balance string
	if err := get(ctx, c, "/getAddressBalance", q, &balance); err != nil {
		return 0, err
	}

	n, err := strconv.ParseInt(balance, 10, 64)
	if err != nil {
		return 0, domain.WrapError(domain.KindChainCallFailed, err, "parse balance %q", balance)
	}
	return n, nil
}

// GetWalletSequence returns the wallet seqno. Uninitialized wallets report 0.
func (c *Client) GetWalletSequence(ctx context.Context, address string) (uint32, error) {
	q := url.Values{}
	q.Set("address", address)

	var info walletInformation
	if err := get(ctx, c, "/getWalletInformation", q, &info); err != nil {
		return 0, err
	}
	return info.Seqno, nil
}

// EstimateFee returns the total source fees of sending payload from address.
func (c *Client) EstimateFee(ctx context.Context, address string, payload []byte) (int64, error) {
	body := map[string]any{
		"address":       address,
		"body":          base64.StdEncoding.EncodeToString(payload),
		"ignore_chksig": true,
	}

	var est feeEstimate
	if err := post(ctx, c, "/estimateFee", body, &est); err != nil {
		return 0, err
	}

	f := est.SourceFees
	return f.InFwdFee + f.StorageFee + f.GasFee + f.FwdFee, nil
}

func get[T any](ctx context.Context, c *Client, path string, q url.Values, out *T) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	return do(c, req, path, out)
}

func post[T any](ctx context.Context, c *Client, path string, body any, out *T) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return do(c, req, path, out)
}

func do[T any](c *Client, req *http.Request, path string, out *T) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return domain.WrapError(domain.KindChainCallFailed,
			fmt.Errorf("%w: %w", err, domain.ErrNotSubmitted), "%s: rate limiter", path)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.KindChainCallFailed, err, "%s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.WrapError(domain.KindChainCallFailed, err, "%s: read body", path)
	}

	var env envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.WrapError(domain.KindChainCallFailed, err, "%s: status %d: decode response", path, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK || !env.OK {
		// An explicit error envelope is a rejection. A gateway timeout is not:
		// the upstream may have relayed the message before giving up.
		cause := domain.ErrNotSubmitted
		if resp.StatusCode == http.StatusGatewayTimeout {
			cause = domain.ErrChainCallFailed
		}
		return domain.WrapError(domain.KindChainCallFailed, cause,
			"%s: status %d: %s", path, resp.StatusCode, env.Error)
	}

	*out = env.Result
	return nil
}

func toChainTransaction(r transaction) (domain.ChainTransaction, error) {
	if r.TransactionID.Hash == "" {
		return domain.ChainTransaction{}, fmt.Errorf("missing hash")
	}

	lt, err := strconv.ParseUint(r.TransactionID.Lt, 10, 64)
	if err != nil {
		return domain.ChainTransaction{}, fmt.Errorf("parse lt %q: %w", r.TransactionID.Lt, err)
	}

	fee, err := parseNano(r.Fee)
	if err != nil {
		return domain.ChainTransaction{}, fmt.Errorf("parse fee: %w", err)
	}

	tx := domain.ChainTransaction{
		Hash:       r.TransactionID.Hash,
		Lt:         lt,
		Fee:        fee,
		ObservedAt: time.Unix(r.Utime, 0).UTC(),
	}

	if r.InMsg != nil {
		in, err := toChainMessage(*r.InMsg)
		if err != nil {
			return domain.ChainTransaction{}, fmt.Errorf("in_msg: %w", err)
		}
		tx.InMsg = &in
	}

	for i, m := range r.OutMsgs {
		out, err := toChainMessage(m)
		if err != nil {
			return domain.ChainTransaction{}, fmt.Errorf("out_msgs[%d]: %w", i, err)
		}
		tx.OutMsgs = append(tx.OutMsgs, out)
	}

	return tx, nil
}

func toChainMessage(m message) (domain.ChainMessage, error) {
	amount, err := parseNano(m.Value)
	if err != nil {
		return domain.ChainMessage{}, fmt.Errorf("parse value: %w", err)
	}

	source, err := normalizeOptional(m.Source)
	if err != nil {
		return domain.ChainMessage{}, err
	}

	destination, err := normalizeOptional(m.Destination)
	if err != nil {
		return domain.ChainMessage{}, err
	}

	return domain.ChainMessage{
		Source:      source,
		Destination: destination,
		Amount:      amount,
		Comment:     m.Message,
	}, nil
}

// External messages have no source; that is not an error.
func normalizeOptional(addr string) (string, error) {
	if addr == "" {
		return "", nil
	}
	return tonaddr.Normalize(addr)
}

func parseNano(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
