// Package qbo is a minimal client for the QuickBooks Online v3 API,
// covering the queries and updates the categorization workflow needs.
package qbo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/jask/easycat/internal/apperrors"
)

const (
	SandboxBaseURL    = "https://sandbox-quickbooks.api.intuit.com"
	ProductionBaseURL = "https://quickbooks.api.intuit.com"

	apiVersion   = "v3"
	minorVersion = "75"

	// transactionPageCap bounds one fetch; the remote unique id makes
	// overlapping fetches converge anyway.
	transactionPageCap = 1000
)

// APIError is any non-success response from QuickBooks.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quickbooks: status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return apperrors.ErrExternalService }

// Client calls the QuickBooks API for one realm. The token source supplies
// a currently-valid bearer credential before every request.
type Client struct {
	baseURL string
	realmID string
	tokens  oauth2.TokenSource
	http    *http.Client
}

// NewClient builds a client. Pass SandboxBaseURL or ProductionBaseURL.
func NewClient(baseURL, realmID string, tokens oauth2.TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		realmID: realmID,
		tokens:  tokens,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type queryResponse struct {
	QueryResponse struct {
		Account  []Account  `json:"Account"`
		Purchase []Purchase `json:"Purchase"`
		Vendor   []Vendor   `json:"Vendor"`
	} `json:"QueryResponse"`
}

// CategorizationAccounts fetches all active accounts usable as spending
// categories.
func (c *Client) CategorizationAccounts(ctx context.Context) ([]Account, error) {
	q := "SELECT * FROM Account WHERE AccountType IN " +
		"('Expense', 'Other Expense', 'Cost of Goods Sold', " +
		"'Income', 'Other Income') AND Active = true"
	var resp queryResponse
	if err := c.query(ctx, q, &resp); err != nil {
		return nil, err
	}
	return resp.QueryResponse.Account, nil
}

// Transactions fetches purchases in the date range, oldest first, capped
// at one page.
func (c *Client) Transactions(ctx context.Context, start, end *time.Time) ([]Purchase, error) {
	q := "SELECT * FROM Purchase"
	var conds []string
	if start != nil {
		conds = append(conds, fmt.Sprintf("TxnDate >= '%s'", start.Format("2006-01-02")))
	}
	if end != nil {
		conds = append(conds, fmt.Sprintf("TxnDate <= '%s'", end.Format("2006-01-02")))
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += fmt.Sprintf(" ORDERBY TxnDate ASC MAXRESULTS %d", transactionPageCap)
	var resp queryResponse
	if err := c.query(ctx, q, &resp); err != nil {
		return nil, err
	}
	return resp.QueryResponse.Purchase, nil
}

// Vendors fetches all active vendors.
func (c *Client) Vendors(ctx context.Context) ([]Vendor, error) {
	var resp queryResponse
	if err := c.query(ctx, "SELECT * FROM Vendor WHERE Active = true MAXRESULTS 1000", &resp); err != nil {
		return nil, err
	}
	return resp.QueryResponse.Vendor, nil
}

// Purchase fetches one purchase in full, including its version token and
// complete line list.
func (c *Client) Purchase(ctx context.Context, remoteID string) (*Purchase, error) {
	var envelope struct {
		Purchase Purchase `json:"Purchase"`
	}
	if err := c.do(ctx, http.MethodGet, "purchase/"+remoteID, nil, nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Purchase, nil
}

// UpdatePurchase submits a sparse update of the purchase's lines, echoing
// its version token. Returns the updated record.
func (c *Client) UpdatePurchase(ctx context.Context, p *Purchase) (*Purchase, error) {
	syncToken := p.SyncToken
	if syncToken == "" {
		syncToken = "0"
	}
	payload := map[string]interface{}{
		"Id":          p.ID,
		"SyncToken":   syncToken,
		"PaymentType": p.PaymentType,
		"AccountRef":  p.AccountRef,
		"Line":        p.Lines,
		"sparse":      true,
	}
	var envelope struct {
		Purchase Purchase `json:"Purchase"`
	}
	if err := c.do(ctx, http.MethodPost, "purchase", nil, payload, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Purchase, nil
}

// CreateAccount creates a new account, optionally as a subaccount of the
// parent remote id.
func (c *Client) CreateAccount(ctx context.Context, name, accountType string, parentRemoteID *string) (*Account, error) {
	if accountType == "" {
		accountType = AccountTypeExpense
	}
	payload := map[string]interface{}{
		"Name":        name,
		"AccountType": accountType,
	}
	if parentRemoteID != nil {
		payload["SubAccount"] = true
		payload["ParentRef"] = Ref{Value: *parentRemoteID}
	}
	var envelope struct {
		Account Account `json:"Account"`
	}
	if err := c.do(ctx, http.MethodPost, "account", nil, payload, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Account, nil
}

func (c *Client) query(ctx context.Context, q string, out interface{}) error {
	params := url.Values{"query": {q}}
	return c.do(ctx, http.MethodGet, "query", params, nil, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, payload, out interface{}) error {
	tok, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("acquire token: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("minorversion", minorVersion)
	reqURL := fmt.Sprintf("%s/%s/company/%s/%s?%s", c.baseURL, apiVersion, c.realmID, endpoint, params.Encode())

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrExternalService, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", apperrors.ErrExternalService, err)
	}
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
