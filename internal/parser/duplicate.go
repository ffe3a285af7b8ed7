package parser

import (
	"strings"

	"github.com/insightdelivered/slip-scanner/internal/models"
)

// DuplicateNotePrefix marks a record that may already have been recorded.
const DuplicateNotePrefix = "[ซ้ำ?] "

// IsDuplicate reports whether candidate looks like one of existing. Equal
// reference ids settle it. Otherwise date, amount and category must match,
// and receivers too when both records have one.
func IsDuplicate(candidate models.Transaction, existing []models.Transaction) bool {
	for _, tx := range existing {
		if candidate.ReferenceID != "" && candidate.ReferenceID == tx.ReferenceID {
			return true
		}
		if candidate.Date != tx.Date || !candidate.Amount.Equal(tx.Amount) || candidate.Category != tx.Category {
			continue
		}
		if candidate.ReceiverName != "" && tx.ReceiverName != "" && candidate.ReceiverName != tx.ReceiverName {
			continue
		}
		return true
	}
	return false
}

// MarkDuplicate returns tx with its note flagged for review. Repeated small
// purchases are common, so duplicates are marked rather than dropped.
func MarkDuplicate(tx models.Transaction) models.Transaction {
	if !strings.HasPrefix(tx.Note, DuplicateNotePrefix) {
		tx.Note = DuplicateNotePrefix + tx.Note
	}
	return tx
}
