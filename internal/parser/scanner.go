package parser

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/insightdelivered/slip-scanner/internal/models"
)

// Note placeholders for slips with no readable counterparty.
const (
	noteLottery  = "ซื้อสลากดิจิทัล"
	noteTransfer = "โอนเงิน"
	noteScanned  = "สแกนจากสลิป"

	noAmountSuffix = " (ไม่พบยอดเงิน)"
)

// Scanner runs the full extraction pipeline over one document's recognized
// text. The zero value is usable; it classifies with DefaultTaxonomy, stamps
// records with time.Now and assigns random UUIDs.
type Scanner struct {
	Classifier *Classifier
	Now        func() time.Time
	NewID      func() string
}

// ScanOptions carries the per-document inputs besides the text itself.
type ScanOptions struct {
	// BankHint is used when no bank marker is found in the text.
	BankHint models.BankType
	// Direction of a single slip. Defaults to expense; itemized statements
	// are always expenses.
	Direction   models.Direction
	Existing    []models.Transaction
	Preferences models.Preferences
}

// NewScanner returns a scanner over the given classifier.
func NewScanner(c *Classifier) *Scanner {
	return &Scanner{Classifier: c}
}

// Scan extracts transactions from text. Itemized statements produce one
// record per row; anything else produces exactly one record, even when no
// amount was found. Records matching existing ones are flagged, not dropped.
func (s *Scanner) Scan(text string, existing []models.Transaction, prefs models.Preferences) models.ScanResult {
	return s.ScanWith(text, ScanOptions{Existing: existing, Preferences: prefs})
}

// ScanWith is Scan with explicit options.
func (s *Scanner) ScanWith(text string, opts ScanOptions) models.ScanResult {
	text = NormalizeText(text)
	now := s.now()

	bank := DetectBank(text)
	if bank == models.BankUnknown && opts.BankHint != "" {
		bank = opts.BankHint
	}

	if rows := DetectMultiTransactions(text, s.classifier(), opts.Preferences, now, s.newID); len(rows) > 0 {
		for i := range rows {
			if IsDuplicate(rows[i], opts.Existing) {
				rows[i] = MarkDuplicate(rows[i])
			}
		}
		return models.ScanResult{Bank: bank, Multi: true, Transactions: rows}
	}

	candidates := AmountCandidates(text, bank)
	amount := selectAmount(candidates)
	receiver, _ := ExtractReceiver(text)
	ref, _ := ExtractReference(text)
	date, ok := ParseDate(text)
	if !ok {
		date = FormatDate(now)
	}

	dir := opts.Direction
	if dir == "" {
		dir = models.Expense
	}

	tx := models.Transaction{
		ID:           s.newID(),
		Amount:       amount,
		Direction:    dir,
		Category:     s.classifier().Classify(text, dir, receiver, opts.Preferences),
		Date:         date,
		Note:         slipNote(text, receiver, amount.IsZero()),
		ReferenceID:  ref,
		ReceiverName: receiver,
	}
	if IsDuplicate(tx, opts.Existing) {
		tx = MarkDuplicate(tx)
	}

	return models.ScanResult{
		Bank:         bank,
		Transactions: []models.Transaction{tx},
		Candidates:   candidates,
	}
}

// Entry turns a quick-entry sentence into a transaction dated today.
func (s *Scanner) Entry(sentence string) (models.Transaction, bool) {
	e, ok := ParseNaturalLanguage(sentence, s.classifier())
	if !ok {
		return models.Transaction{}, false
	}
	return models.Transaction{
		ID:        s.newID(),
		Amount:    e.Amount,
		Direction: e.Direction,
		Category:  e.Category,
		Date:      FormatDate(s.now()),
		Note:      e.Note,
	}, true
}

func slipNote(text, receiver string, noAmount bool) string {
	var note string
	switch {
	case receiver != "":
		note = receiver
	case strings.Contains(text, "สลาก") || strings.Contains(text, "GLO"):
		note = noteLottery
	case strings.Contains(text, "โอนเงิน") || strings.Contains(text, "Transfer"):
		note = noteTransfer
	default:
		note = noteScanned
	}
	if noAmount {
		note += noAmountSuffix
	}
	return note
}

func (s *Scanner) classifier() *Classifier {
	if s.Classifier == nil {
		return defaultClassifier
	}
	return s.Classifier
}

func (s *Scanner) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Scanner) newID() string {
	if s.NewID == nil {
		return uuid.NewString()
	}
	return s.NewID()
}

var defaultClassifier = DefaultClassifier()
