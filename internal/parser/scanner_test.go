package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/slip-scanner/internal/models"
)

const kbankSlip = `KASIKORNBANK
โอนเงินสำเร็จ
5 ธ.ค. 66 10:32 น.
นาย ก ผู้โอน
xxx-x-x1234-x
ไปยัง
นาย ข ผู้รับ
xxx-x-x5678-x
จำนวน: 1,500.00 บาท
ค่าธรรมเนียม: 0.00 บาท
เลขที่รายการ: 015339103245ABC12`

func newTestScanner() *Scanner {
	return &Scanner{
		Classifier: DefaultClassifier(),
		Now:        func() time.Time { return fixedNow },
		NewID:      sequentialIDs(),
	}
}

func TestScanSingleSlip(t *testing.T) {
	res := newTestScanner().Scan(kbankSlip, nil, nil)

	if res.Bank != models.BankKBank {
		t.Errorf("bank: got %q, want %q", res.Bank, models.BankKBank)
	}
	if res.Multi {
		t.Error("a transfer slip is not an itemized statement")
	}
	if len(res.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(res.Transactions))
	}

	tx := res.Transactions[0]
	if !tx.Amount.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("amount: got %s, want 1500", tx.Amount)
	}
	if tx.ReceiverName != "นาย ข ผู้รับ" {
		t.Errorf("receiver: got %q", tx.ReceiverName)
	}
	if tx.Note != tx.ReceiverName {
		t.Errorf("note: got %q, want the receiver", tx.Note)
	}
	if tx.ReferenceID != "015339103245ABC12" {
		t.Errorf("reference: got %q", tx.ReferenceID)
	}
	if tx.Date != "05/12/2566" {
		t.Errorf("date: got %q, want %q", tx.Date, "05/12/2566")
	}
	if tx.Direction != models.Expense || tx.Category == "" || tx.ID != "tx-1" {
		t.Errorf("unexpected record: %+v", tx)
	}
	if len(res.Candidates) == 0 {
		t.Error("expected ranked amount candidates")
	}
}

func TestScanUsesPreference(t *testing.T) {
	prefs := models.Preferences{"นาย ข ผู้รับ": CategoryHealth}
	res := newTestScanner().Scan(kbankSlip, nil, prefs)
	if got := res.Transactions[0].Category; got != CategoryHealth {
		t.Errorf("got %q, want %q", got, CategoryHealth)
	}
}

func TestScanPlaceholderNotes(t *testing.T) {
	tests := []struct {
		name string
		text string
		note string
	}{
		{"lottery without amount", "สลากดิจิทัล GLO\nขอบคุณ", "ซื้อสลากดิจิทัล (ไม่พบยอดเงิน)"},
		{"transfer", "Transfer completed\n250.00 THB", "โอนเงิน"},
		{"anything else", "ขอบคุณที่ใช้บริการ\n99.00 บาท", "สแกนจากสลิป"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestScanner().Scan(tt.text, nil, nil)
			if len(res.Transactions) != 1 {
				t.Fatalf("got %d transactions, want 1", len(res.Transactions))
			}
			tx := res.Transactions[0]
			if tx.Note != tt.note {
				t.Errorf("note: got %q, want %q", tx.Note, tt.note)
			}
			if tx.Date != "15/01/2567" {
				t.Errorf("date: got %q, want the ingestion date", tx.Date)
			}
		})
	}
}

func TestScanMarksDuplicates(t *testing.T) {
	existing := []models.Transaction{{ID: "old", ReferenceID: "015339103245ABC12"}}
	res := newTestScanner().Scan(kbankSlip, existing, nil)

	tx := res.Transactions[0]
	if !strings.HasPrefix(tx.Note, DuplicateNotePrefix) {
		t.Errorf("got note %q, want duplicate prefix", tx.Note)
	}
}

func TestScanStatement(t *testing.T) {
	existing := []models.Transaction{{
		ID: "old", Amount: decimal.NewFromInt(185), Category: CategoryFood, Date: "05/12/2566",
	}}
	res := newTestScanner().Scan(cardStatement, existing, nil)

	if !res.Multi || len(res.Transactions) != 3 {
		t.Fatalf("got multi=%v with %d rows, want 3 itemized rows", res.Multi, len(res.Transactions))
	}
	if res.Bank != models.BankKrungsri {
		t.Errorf("bank: got %q, want %q", res.Bank, models.BankKrungsri)
	}
	if strings.HasPrefix(res.Transactions[0].Note, DuplicateNotePrefix) {
		t.Error("first row should not be flagged")
	}
	if !strings.HasPrefix(res.Transactions[1].Note, DuplicateNotePrefix) {
		t.Errorf("second row should be flagged, got %q", res.Transactions[1].Note)
	}
}

func TestScanBankHint(t *testing.T) {
	s := newTestScanner()

	res := s.ScanWith("โอนเงิน 100.00 บาท", ScanOptions{BankHint: models.BankSCB})
	if res.Bank != models.BankSCB {
		t.Errorf("got %q, want hint %q", res.Bank, models.BankSCB)
	}

	res = s.ScanWith(kbankSlip, ScanOptions{BankHint: models.BankSCB})
	if res.Bank != models.BankKBank {
		t.Errorf("detected bank should win over the hint, got %q", res.Bank)
	}
}

func TestScanIncomeDirection(t *testing.T) {
	res := newTestScanner().ScanWith(kbankSlip, ScanOptions{Direction: models.Income})
	if got := res.Transactions[0].Category; got != CategoryIncome {
		t.Errorf("got %q, want %q", got, CategoryIncome)
	}
}

func TestEntry(t *testing.T) {
	tx, ok := newTestScanner().Entry("กินข้าว 60 บาท")
	if !ok {
		t.Fatal("expected an entry")
	}
	if tx.Date != "15/01/2567" || tx.ID != "tx-1" || tx.Note != "กินข้าว" || tx.Category != CategoryFood {
		t.Errorf("unexpected record: %+v", tx)
	}

	if _, ok := newTestScanner().Entry("ไม่มีตัวเลข"); ok {
		t.Error("expected no entry")
	}
}

func TestZeroScanner(t *testing.T) {
	var s Scanner
	res := s.Scan(kbankSlip, nil, nil)
	if len(res.Transactions) != 1 || res.Transactions[0].ID == "" {
		t.Errorf("zero Scanner should assign ids, got %+v", res.Transactions)
	}
}

func TestScanOneRowStatement(t *testing.T) {
	text := "บัตรเครดิต/สินเชื่อ กรุงศรี\nวันที่สรุปยอด 05/12/2566\n05 ธ.ค. SHELL RAMA 9 1,200.00 บาท"
	res := newTestScanner().Scan(text, nil, nil)

	if !res.Multi || len(res.Transactions) != 1 {
		t.Fatalf("got multi=%v with %d records, want one itemized row", res.Multi, len(res.Transactions))
	}
	tx := res.Transactions[0]
	if tx.ReceiverName != "SHELL RAMA 9" {
		t.Errorf("receiver: got %q, want %q", tx.ReceiverName, "SHELL RAMA 9")
	}
	if tx.Note != "เติมน้ำมัน Shell (จ่ายบัตร)" {
		t.Errorf("note: got %q", tx.Note)
	}
	if !tx.Amount.Equal(decimal.NewFromInt(1200)) || tx.Date != "05/12/2566" {
		t.Errorf("unexpected record: %+v", tx)
	}
}
