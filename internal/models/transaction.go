package models

import "github.com/shopspring/decimal"

// Direction tells whether money came in or went out.
type Direction string

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

// Transaction represents a single record produced from a slip, a statement
// row or a quick-entry sentence.
type Transaction struct {
	ID           string          `json:"id"`
	Amount       decimal.Decimal `json:"amount"`
	Direction    Direction       `json:"type"`
	Category     string          `json:"category"`
	Date         string          `json:"date"` // DD/MM/YYYY, Buddhist era
	Note         string          `json:"note"`
	ReferenceID  string          `json:"refNo,omitempty"`
	ReceiverName string          `json:"receiverName,omitempty"`
}

// BankType represents the institution a slip was issued by.
type BankType string

const (
	BankKBank     BankType = "KBank"
	BankSCB       BankType = "SCB"
	BankKrungthai BankType = "Krungthai"
	BankBBL       BankType = "BBL"
	BankKrungsri  BankType = "Krungsri"
	BankUnknown   BankType = "Unknown"
)

// Preferences maps a counterparty name to the category the user prefers for
// it. Values are treated as immutable snapshots: With returns a copy.
type Preferences map[string]string

// Lookup returns the learned category for receiver, if any.
func (p Preferences) Lookup(receiver string) (string, bool) {
	if receiver == "" || p == nil {
		return "", false
	}
	cat, ok := p[receiver]
	return cat, ok && cat != ""
}

// With returns a new snapshot with receiver mapped to category.
func (p Preferences) With(receiver, category string) Preferences {
	next := p.Clone()
	next[receiver] = category
	return next
}

// Clone returns an independent copy. It never returns nil.
func (p Preferences) Clone() Preferences {
	next := make(Preferences, len(p)+1)
	for k, v := range p {
		next[k] = v
	}
	return next
}

// AmountCandidate is one scored guess produced while looking for the
// transaction amount.
type AmountCandidate struct {
	Value  decimal.Decimal `json:"value"`
	Score  int             `json:"score"`
	Source string          `json:"source"` // "keyword", "unit" or "number"
}

// ScanResult holds everything extracted from one recognized document.
type ScanResult struct {
	Bank         BankType          `json:"bank"`
	Multi        bool              `json:"multi"`
	Transactions []Transaction     `json:"transactions"`
	Candidates   []AmountCandidate `json:"candidates,omitempty"`
}
