package writer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/slip-scanner/internal/models"
	"github.com/insightdelivered/slip-scanner/internal/parser"
)

var errNoHeader = errors.New("CSV has no header row")

// ReadOptions fills in what a backup row leaves out.
type ReadOptions struct {
	NewID func() string
	Now   time.Time
}

// ReadCSV reads a backup written by CSVWriter or an older export with only
// some of the columns. Columns are matched by header name, in any order.
// Rows without a usable amount are skipped. Missing ids come from NewID,
// missing dates from Now, and dates in other layouts are normalized.
func ReadCSV(r io.Reader, opts ReadOptions) ([]models.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx["amount"]; !ok {
		return nil, fmt.Errorf("%w: missing amount column", errNoHeader)
	}

	field := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var txs []models.Transaction
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line, err)
		}

		amount, err := decimal.NewFromString(strings.ReplaceAll(field(row, "amount"), ",", ""))
		if err != nil || amount.IsNegative() {
			continue
		}

		tx := models.Transaction{
			ID:           field(row, "id"),
			Amount:       amount,
			Direction:    models.Direction(field(row, "type")),
			Category:     field(row, "category"),
			Note:         field(row, "note"),
			ReferenceID:  field(row, "ref"),
			ReceiverName: field(row, "receiver"),
		}
		if tx.ID == "" && opts.NewID != nil {
			tx.ID = opts.NewID()
		}
		if tx.Direction != models.Income {
			tx.Direction = models.Expense
		}
		if tx.Category == "" {
			tx.Category = parser.CategoryOther
		}
		if d, ok := parser.ParseDate(field(row, "date")); ok {
			tx.Date = d
		} else {
			tx.Date = parser.FormatDate(opts.Now)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
