package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status of a transaction in the review workflow. Transitions are
// monotonic: pending -> categorized -> posted, posted is terminal.
type Status string

const (
	StatusPending     Status = "pending"
	StatusCategorized Status = "categorized"
	StatusPosted      Status = "posted"
)

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusCategorized:
		return 1
	case StatusPosted:
		return 2
	}
	return -1
}

// Valid reports whether s is one of the known workflow states.
func (s Status) Valid() bool { return s.rank() >= 0 }

// PatternKind is the matching mode of a categorization rule.
type PatternKind string

const (
	PatternContains PatternKind = "contains"
	PatternExact    PatternKind = "exact"
	PatternRegex    PatternKind = "regex"
)

// Token is a stored OAuth credential for one QuickBooks realm.
type Token struct {
	ID           string
	RealmID      string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Category mirrors a QuickBooks chart-of-accounts entry. ParentRemoteID
// holds the parent's REMOTE id; joining it against another row's local ID
// is silently wrong. is_visible and display_order are local preferences
// that survive re-sync.
type Category struct {
	ID             string
	RemoteID       string
	Name           string
	FullName       string
	ParentRemoteID *string
	AccountType    string
	IsVisible      bool
	DisplayOrder   int
	SyncedAt       time.Time
}

// Rule is a locally authored categorization rule. Nil amount bounds mean
// unbounded on that side; bounds compare against abs(amount), inclusive.
type Rule struct {
	ID         string
	Name       string
	Pattern    string
	Kind       PatternKind
	CategoryID string
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	Priority   int
	IsActive   bool
	CreatedAt  time.Time
}

// VendorMapping is a vendor-name default category, unique per vendor name.
type VendorMapping struct {
	ID                string
	VendorName        string
	VendorRemoteID    *string
	DefaultCategoryID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Transaction is a cached QuickBooks purchase under local review.
// Expenses are negative (the remote convention is inverted on ingestion).
type Transaction struct {
	ID          string
	RemoteID    string
	AccountID   string
	AccountName string
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	VendorName  *string
	Status      Status
	CategoryID  *string
	FetchedAt   time.Time
}

// TransactionSplit is a portion of a transaction assigned to a category.
type TransactionSplit struct {
	ID            string
	TransactionID string
	CategoryID    string
	Amount        decimal.Decimal
	Memo          *string
}
