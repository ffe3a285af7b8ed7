// Package writer exports and imports transactions as CSV backups.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/slip-scanner/internal/models"
)

// utf8BOM makes spreadsheet apps read Thai text as UTF-8.
const utf8BOM = "\ufeff"

// Columns is the backup column order. The first six match older backups, so
// files written here can be read back by ReadCSV and vice versa.
var Columns = []string{"id", "date", "amount", "type", "category", "note", "ref", "receiver"}

// Metadata is written as "#" rows above the column header.
type Metadata struct {
	Source string
	Bank   models.BankType
}

// CSVWriter writes transactions to CSV format.
type CSVWriter struct {
	IncludeHeader bool // "#" metadata rows
	BOM           bool
}

// WriteToFile writes transactions to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, txs []models.Transaction, meta Metadata) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := w.Write(f, txs, meta); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes transactions in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, txs []models.Transaction, meta Metadata) error {
	if w.BOM {
		if _, err := io.WriteString(out, utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)

	if w.IncludeHeader {
		income, expense := totals(txs)
		rows := [][]string{
			{"# Source", meta.Source},
			{"# Bank", string(meta.Bank)},
			{"# Records", strconv.Itoa(len(txs))},
			{"# Total Income", formatAmount(income)},
			{"# Total Expense", formatAmount(expense)},
		}
		for _, row := range rows {
			if row[1] == "" {
				continue
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, tx := range txs {
		row := []string{
			tx.ID,
			tx.Date,
			formatAmount(tx.Amount),
			string(tx.Direction),
			tx.Category,
			tx.Note,
			tx.ReferenceID,
			tx.ReceiverName,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func totals(txs []models.Transaction) (income, expense decimal.Decimal) {
	for _, tx := range txs {
		if tx.Direction == models.Income {
			income = income.Add(tx.Amount)
		} else {
			expense = expense.Add(tx.Amount)
		}
	}
	return income, expense
}

func formatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
