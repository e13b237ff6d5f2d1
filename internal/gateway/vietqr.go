package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

type VietQRAccount struct {
	AccountNo   string
	AccountName string
	AcqID       string
}

type VietQRClient struct {
	opts    Options
	account VietQRAccount
	http    *http.Client
}

func NewVietQRClient(opts Options, account VietQRAccount) *VietQRClient {
	return &VietQRClient{opts: opts, account: account, http: opts.client()}
}

type QRRequest struct {
	Amount      int64
	AddInfo     string // id заказа: ключ корреляции для callback
	CallbackURL string
}

type QRResult struct {
	QRData string
}

type generateBody struct {
	AccountNo   string `json:"accountNo"`
	AccountName string `json:"accountName"`
	AcqID       string `json:"acqId"`
	Amount      int64  `json:"amount"`
	AddInfo     string `json:"addInfo"`
	Format      string `json:"format"`
	Template    string `json:"template"`
	CallbackURL string `json:"callbackUrl"`
}

func (c *VietQRClient) GenerateQR(ctx context.Context, in QRRequest) (*QRResult, error) {
	env, err := do(ctx, c.opts, c.http, http.MethodPost, "/v2/generate", generateBody{
		AccountNo:   c.account.AccountNo,
		AccountName: c.account.AccountName,
		AcqID:       c.account.AcqID,
		Amount:      in.Amount,
		AddInfo:     in.AddInfo,
		Format:      "text",
		Template:    "compact",
		CallbackURL: in.CallbackURL,
	})
	if err != nil {
		return nil, err
	}
	if env.Code != CodeOK {
		return nil, fmt.Errorf("%w: code=%s desc=%s", ErrRejected, env.Code, env.Desc)
	}

	var data struct {
		QRDataURL string `json:"qrDataURL"`
	}
	if len(env.Data) == 0 || json.Unmarshal(env.Data, &data) != nil || data.QRDataURL == "" {
		return nil, fmt.Errorf("%w: missing qrDataURL", ErrBadResponse)
	}
	return &QRResult{QRData: data.QRDataURL}, nil
}

// RemoteStatus: состояние платежа на стороне провайдера.
type RemoteStatus struct {
	Code          string
	Status        string
	TransactionID string
}

func (c *VietQRClient) TransactionStatus(ctx context.Context, orderID string) (*RemoteStatus, error) {
	env, err := do(ctx, c.opts, c.http, http.MethodGet, "/v2/transactions/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}

	st := &RemoteStatus{Code: env.Code}
	if len(env.Data) > 0 {
		var data struct {
			Status        string `json:"status"`
			TransactionID string `json:"transactionId"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
		st.Status = data.Status
		st.TransactionID = data.TransactionID
	}
	return st, nil
}
