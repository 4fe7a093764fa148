package models

import "github.com/shopspring/decimal"

func init() {
	// Snapshot import/export must round-trip plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypePurchase TransactionType = "purchase"
	TypeSale     TransactionType = "sale"
)

// Valid reports whether t is one of the four known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypePurchase, TypeSale:
		return true
	}
	return false
}

// AccountType classifies a money account.
type AccountType string

const (
	AccountBank AccountType = "bank"
	AccountCash AccountType = "cash"
	AccountLoan AccountType = "loan"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountBank, AccountCash, AccountLoan:
		return true
	}
	return false
}

// PartyType distinguishes vendors (we owe them) from customers (they owe us).
type PartyType string

const (
	PartyVendor   PartyType = "vendor"
	PartyCustomer PartyType = "customer"
)

func (t PartyType) Valid() bool {
	return t == PartyVendor || t == PartyCustomer
}

// TransactionItem is one stock line of a purchase or sale transaction.
type TransactionItem struct {
	ItemID string          `json:"itemId"`
	Qty    decimal.Decimal `json:"qty"`
	Price  decimal.Decimal `json:"price"`
}

// Transaction is a single ledger entry. Amount is always a non-negative
// magnitude; the sign applied to balances is derived from Type alone.
type Transaction struct {
	ID             string            `json:"id"`
	Type           TransactionType   `json:"type"`
	Date           string            `json:"date"` // YYYY-MM-DD, lexicographically sortable
	Description    string            `json:"description"`
	Category       string            `json:"category"`
	Account        string            `json:"account,omitempty"` // empty for credit-settled trades
	PartyID        string            `json:"partyId,omitempty"`
	Amount         decimal.Decimal   `json:"amount"`
	Notes          string            `json:"notes"`
	InventoryItems []TransactionItem `json:"inventoryItems,omitempty"`
}

// Account is a bank, cash or loan account. Balance is derived state kept in
// sync by the reconciliation engine; openingBalance is the authoritative base.
type Account struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	BankName       string          `json:"bankName"`
	AccountNumber  string          `json:"accountNumber"`
	Balance        decimal.Decimal `json:"balance"`
	Type           AccountType     `json:"type"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}

// Party is a vendor or customer. CurrentBalance is derived: positive is a
// receivable, negative a payable.
type Party struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           PartyType       `json:"type"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	Address        string          `json:"address,omitempty"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
}

// InventoryItem is a catalog entry. Stock is derived state: the opening
// stock base plus the net of purchase/sale transaction lines, the same split
// accounts use for balances. MinStock is an alert threshold only, never a
// hard floor.
type InventoryItem struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	OpeningStock  decimal.Decimal `json:"openingStock"`
	Stock         decimal.Decimal `json:"stock"`
	MinStock      decimal.Decimal `json:"minStock"`
}

// TradeSide is the direction of an investment trade.
type TradeSide string

const (
	TradeBuy  TradeSide = "buy"
	TradeSell TradeSide = "sell"
)

// InvestmentTrade is one immutable row of an investment's history.
// CostBasis is recorded on sell trades: the weighted-average cost per unit at
// execution time, so later buys never reinterpret settled history.
type InvestmentTrade struct {
	ID        string          `json:"id"`
	Date      string          `json:"date"`
	Type      TradeSide       `json:"type"`
	Qty       decimal.Decimal `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Charges   decimal.Decimal `json:"charges"`
	CostBasis decimal.Decimal `json:"costBasis,omitempty"`
}

// InvestmentStatus is active while the open lot has quantity, closed at zero.
type InvestmentStatus string

const (
	InvestmentActive InvestmentStatus = "active"
	InvestmentClosed InvestmentStatus = "closed"
)

// Investment is a single weighted-average-cost open lot per asset.
type Investment struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	AssetType       string            `json:"assetType"`
	Qty             decimal.Decimal   `json:"qty"`
	AvgBuyPrice     decimal.Decimal   `json:"avgBuyPrice"`
	CurrPrice       decimal.Decimal   `json:"currPrice"`
	History         []InvestmentTrade `json:"history"`
	Status          InvestmentStatus  `json:"status"`
	TotalRealizedPL decimal.Decimal   `json:"totalRealizedPL"`
}

// Budget caps spending for one category in one month. Spend against the limit
// is computed at read time from transactions, never stored.
type Budget struct {
	ID       string          `json:"id"`
	Month    string          `json:"month"` // YYYY-MM
	Category string          `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
}

// Goal is a manually tracked savings target.
type Goal struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Target  decimal.Decimal `json:"target"`
	Current decimal.Decimal `json:"current"`
}

// CredentialItem is one login stored inside a vault record. Pass holds the
// sealed ciphertext at rest; it is only plaintext inside a reveal response.
type CredentialItem struct {
	Label string `json:"label"`
	User  string `json:"user"`
	Pass  string `json:"pass"`
	Link  string `json:"link"`
}

// Credential groups the stored logins for one client.
type Credential struct {
	ID         string           `json:"id"`
	ClientName string           `json:"clientName"`
	Email      string           `json:"email"`
	Items      []CredentialItem `json:"items"`
}

// JournalEntry is a dated note with optional photo references.
type JournalEntry struct {
	ID      string   `json:"id"`
	Date    string   `json:"date"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Photos  []string `json:"photos"`
}

// Categories holds the free-text tags offered for income and expense entries.
type Categories struct {
	Income  []string `json:"income"`
	Expense []string `json:"expense"`
}
