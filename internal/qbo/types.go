package qbo

import "github.com/shopspring/decimal"

// Account types QuickBooks considers eligible for categorization.
const (
	AccountTypeExpense      = "Expense"
	AccountTypeOtherExpense = "Other Expense"
	AccountTypeCOGS         = "Cost of Goods Sold"
	AccountTypeIncome       = "Income"
	AccountTypeOtherIncome  = "Other Income"
	AccountTypeBank         = "Bank"
	AccountTypeCreditCard   = "Credit Card"
)

const detailTypeAccountExpense = "AccountBasedExpenseLineDetail"

// Ref is QuickBooks' id/name reference pair.
type Ref struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

// Account is a chart-of-accounts entry.
type Account struct {
	ID             string `json:"Id"`
	Name           string `json:"Name"`
	FullName       string `json:"FullyQualifiedName,omitempty"`
	AccountType    string `json:"AccountType"`
	AccountSubType string `json:"AccountSubType,omitempty"`
	ParentRef      *Ref   `json:"ParentRef,omitempty"`
	Active         bool   `json:"Active,omitempty"`
	SubAccount     bool   `json:"SubAccount,omitempty"`
}

// FullyQualifiedName falls back to the short name when QuickBooks omits it.
func (a Account) FullyQualifiedName() string {
	if a.FullName != "" {
		return a.FullName
	}
	return a.Name
}

// ParentID returns the parent account's remote id, or nil for a top-level
// account.
func (a Account) ParentID() *string {
	if a.ParentRef == nil || a.ParentRef.Value == "" {
		return nil
	}
	v := a.ParentRef.Value
	return &v
}

// Purchase is a QuickBooks purchase/expense record. SyncToken is the
// version token the update call must echo back.
type Purchase struct {
	ID          string          `json:"Id"`
	SyncToken   string          `json:"SyncToken"`
	PaymentType string          `json:"PaymentType,omitempty"`
	TxnDate     string          `json:"TxnDate"`
	TotalAmt    decimal.Decimal `json:"TotalAmt"`
	AccountRef  *Ref            `json:"AccountRef,omitempty"`
	EntityRef   *Ref            `json:"EntityRef,omitempty"`
	DocNumber   string          `json:"DocNumber,omitempty"`
	PrivateNote string          `json:"PrivateNote,omitempty"`
	Lines       []Line          `json:"Line"`
}

// Line is one line item of a purchase.
type Line struct {
	ID            string           `json:"Id,omitempty"`
	Amount        *decimal.Decimal `json:"Amount,omitempty"`
	Description   string           `json:"Description,omitempty"`
	DetailType    string           `json:"DetailType,omitempty"`
	AccountDetail *AccountDetail   `json:"AccountBasedExpenseLineDetail,omitempty"`
}

// AccountDetail is the account-based expense detail of a line.
type AccountDetail struct {
	AccountRef     *Ref   `json:"AccountRef,omitempty"`
	TaxCodeRef     *Ref   `json:"TaxCodeRef,omitempty"`
	BillableStatus string `json:"BillableStatus,omitempty"`
}

// IsAccountExpense reports whether the line carries an account-based
// expense detail, the only kind the poster rewrites.
func (l Line) IsAccountExpense() bool {
	return l.DetailType == detailTypeAccountExpense
}

// Clone deep-copies the line so rebuilt lists never alias the fetched
// record.
func (l Line) Clone() Line {
	out := l
	if l.Amount != nil {
		amt := *l.Amount
		out.Amount = &amt
	}
	if l.AccountDetail != nil {
		detail := *l.AccountDetail
		if detail.AccountRef != nil {
			ref := *detail.AccountRef
			detail.AccountRef = &ref
		}
		if detail.TaxCodeRef != nil {
			ref := *detail.TaxCodeRef
			detail.TaxCodeRef = &ref
		}
		out.AccountDetail = &detail
	}
	return out
}

// Clone deep-copies the purchase.
func (p Purchase) Clone() Purchase {
	out := p
	if p.AccountRef != nil {
		ref := *p.AccountRef
		out.AccountRef = &ref
	}
	if p.EntityRef != nil {
		ref := *p.EntityRef
		out.EntityRef = &ref
	}
	out.Lines = make([]Line, len(p.Lines))
	for i, line := range p.Lines {
		out.Lines[i] = line.Clone()
	}
	return out
}

// Vendor is a QuickBooks vendor record.
type Vendor struct {
	ID          string `json:"Id"`
	DisplayName string `json:"DisplayName"`
	Active      bool   `json:"Active,omitempty"`
}
