package qbo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/jask/easycat/internal/apperrors"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
	return NewClient(srv.URL, "realm-9", tokens)
}

func TestCategorizationAccountsRequest(t *testing.T) {
	t.Parallel()
	var gotPath, gotAuth, gotQuery, gotMinor string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("query")
		gotMinor = r.URL.Query().Get("minorversion")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"QueryResponse": map[string]interface{}{
				"Account": []map[string]interface{}{
					{"Id": "81", "Name": "Office Supplies", "AccountType": "Expense",
						"FullyQualifiedName": "Office Supplies"},
				},
			},
		})
	})

	accounts, err := c.CategorizationAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Equal(t, "81", accounts[0].ID)

	require.Equal(t, "/v3/company/realm-9/query", gotPath)
	require.Equal(t, "Bearer test-token", gotAuth)
	require.Equal(t, "75", gotMinor)
	require.Contains(t, gotQuery, "FROM Account")
	require.Contains(t, gotQuery, "'Expense'")
	require.Contains(t, gotQuery, "Active = true")
}

func TestTransactionsQueryCarriesDateRange(t *testing.T) {
	t.Parallel()
	var gotQuery string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"QueryResponse": map[string]interface{}{},
		})
	})

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	got, err := c.Transactions(context.Background(), &start, &end)
	require.NoError(t, err)
	require.Empty(t, got)

	require.Contains(t, gotQuery, "TxnDate >= '2026-07-01'")
	require.Contains(t, gotQuery, "TxnDate <= '2026-07-31'")
	require.Contains(t, gotQuery, "ORDERBY TxnDate ASC")
	require.Contains(t, gotQuery, "MAXRESULTS 1000")
}

func TestPurchaseDecodesEnvelope(t *testing.T) {
	t.Parallel()
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v3/company/realm-9/purchase/p42", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"Purchase": map[string]interface{}{
				"Id": "p42", "SyncToken": "3", "TxnDate": "2026-07-02",
				"TotalAmt": 42.5,
				"Line": []map[string]interface{}{
					{"Id": "1", "DetailType": "AccountBasedExpenseLineDetail",
						"Description": "Office Paper"},
				},
			},
		})
	})

	p, err := c.Purchase(context.Background(), "p42")
	require.NoError(t, err)
	require.Equal(t, "p42", p.ID)
	require.Equal(t, "3", p.SyncToken)
	require.True(t, decimal.NewFromFloat(42.5).Equal(p.TotalAmt))
	require.Len(t, p.Lines, 1)
	require.True(t, p.Lines[0].IsAccountExpense())
}

func TestUpdatePurchaseSendsSparsePayload(t *testing.T) {
	t.Parallel()
	var payload map[string]interface{}
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"Purchase": map[string]interface{}{"Id": "p42", "SyncToken": "4"},
		})
	})

	amt := decimal.NewFromFloat(42.5)
	updated, err := c.UpdatePurchase(context.Background(), &Purchase{
		ID:          "p42",
		PaymentType: "CreditCard",
		AccountRef:  &Ref{Value: "35", Name: "Amex"},
		Lines: []Line{{
			ID: "1", Amount: &amt, DetailType: "AccountBasedExpenseLineDetail",
			AccountDetail: &AccountDetail{AccountRef: &Ref{Value: "81", Name: "Office Supplies"}},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, "4", updated.SyncToken)

	require.Equal(t, "p42", payload["Id"])
	require.Equal(t, "0", payload["SyncToken"], "missing version token defaults to 0")
	require.Equal(t, true, payload["sparse"])
	require.Equal(t, "CreditCard", payload["PaymentType"])
	lines, ok := payload["Line"].([]interface{})
	require.True(t, ok)
	require.Len(t, lines, 1)
}

func TestCreateAccountBuildsSubaccount(t *testing.T) {
	t.Parallel()
	var payload map[string]interface{}
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"Account": map[string]interface{}{"Id": "90", "Name": "Flights", "AccountType": "Expense"},
		})
	})

	parent := "10"
	acc, err := c.CreateAccount(context.Background(), "Flights", "", &parent)
	require.NoError(t, err)
	require.Equal(t, "90", acc.ID)

	require.Equal(t, "Expense", payload["AccountType"], "empty type defaults to expense")
	require.Equal(t, true, payload["SubAccount"])
	ref, ok := payload["ParentRef"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "10", ref["value"])
}

func TestErrorResponsesWrapExternalService(t *testing.T) {
	t.Parallel()
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("throttled"))
	})

	_, err := c.Purchase(context.Background(), "p1")
	require.Error(t, err)
	require.ErrorIs(t, err, apperrors.ErrExternalService)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, "throttled", apiErr.Body)
}
