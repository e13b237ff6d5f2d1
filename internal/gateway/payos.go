package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// MaxDescriptionLen: ограничение PayOS на description.
const MaxDescriptionLen = 25

type PayOSClient struct {
	opts        Options
	checksumKey string
	http        *http.Client
}

func NewPayOSClient(opts Options, checksumKey string) *PayOSClient {
	return &PayOSClient{opts: opts, checksumKey: checksumKey, http: opts.client()}
}

type CheckoutRequest struct {
	OrderCode   int64
	Amount      int64
	Description string
	ReturnURL   string
	CancelURL   string
}

type CheckoutResult struct {
	CheckoutURL   string
	PaymentLinkID string
}

type checkoutBody struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	Signature   string `json:"signature"`
}

// CanonicalString: поля в алфавитном порядке, значения без экранирования.
func CanonicalString(r CheckoutRequest) string {
	return "amount=" + strconv.FormatInt(r.Amount, 10) +
		"&cancelUrl=" + r.CancelURL +
		"&description=" + r.Description +
		"&orderCode=" + strconv.FormatInt(r.OrderCode, 10) +
		"&returnUrl=" + r.ReturnURL
}

// Sign: hex(HMAC-SHA256(checksumKey, CanonicalString)).
func Sign(checksumKey string, r CheckoutRequest) string {
	mac := hmac.New(sha256.New, []byte(checksumKey))
	mac.Write([]byte(CanonicalString(r)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *PayOSClient) CreateCheckout(ctx context.Context, in CheckoutRequest) (*CheckoutResult, error) {
	if c.checksumKey == "" {
		return nil, ErrNotConfigured
	}
	if len([]rune(in.Description)) > MaxDescriptionLen {
		return nil, fmt.Errorf("%w: description longer than %d", ErrRejected, MaxDescriptionLen)
	}

	env, err := do(ctx, c.opts, c.http, http.MethodPost, "/v2/payment-requests", checkoutBody{
		OrderCode:   in.OrderCode,
		Amount:      in.Amount,
		Description: in.Description,
		ReturnURL:   in.ReturnURL,
		CancelURL:   in.CancelURL,
		Signature:   Sign(c.checksumKey, in),
	})
	if err != nil {
		return nil, err
	}
	if env.Code != CodeOK {
		return nil, fmt.Errorf("%w: code=%s desc=%s", ErrRejected, env.Code, env.Desc)
	}

	var data struct {
		CheckoutURL   string `json:"checkoutUrl"`
		PaymentLinkID string `json:"paymentLinkId"`
	}
	if len(env.Data) == 0 || json.Unmarshal(env.Data, &data) != nil || data.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: missing checkoutUrl", ErrBadResponse)
	}
	return &CheckoutResult{CheckoutURL: data.CheckoutURL, PaymentLinkID: data.PaymentLinkID}, nil
}

func (c *PayOSClient) CheckoutStatus(ctx context.Context, transactionID string) (*RemoteStatus, error) {
	env, err := do(ctx, c.opts, c.http, http.MethodGet, "/v2/payment-requests/"+url.PathEscape(transactionID), nil)
	if err != nil {
		return nil, err
	}

	st := &RemoteStatus{Code: env.Code, TransactionID: transactionID}
	if len(env.Data) > 0 {
		var data struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
		st.Status = data.Status
	}
	return st, nil
}
