// Package service coordinates scanning, storage and preference learning for
// the CLI, the HTTP API and the queue worker.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/slip-scanner/internal/models"
	"github.com/insightdelivered/slip-scanner/internal/parser"
	"github.com/insightdelivered/slip-scanner/internal/queue"
	"github.com/insightdelivered/slip-scanner/internal/store"
)

var (
	ErrEmptyText          = errors.New("no text to scan")
	ErrNotATransaction    = errors.New("no amount found in entry")
	ErrQueueDisabled      = errors.New("scan queue is not configured")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// Publisher sends scan jobs to the worker queue.
type Publisher interface {
	Publish(ctx context.Context, job *queue.ScanJob) error
}

// ScanRequest holds per-document options.
type ScanRequest struct {
	BankHint  models.BankType
	Direction models.Direction
	// Save stores the extracted records right away.
	Save bool
}

type ScanService struct {
	repo      store.Repository
	scanner   *parser.Scanner
	publisher Publisher
	log       zerolog.Logger

	// held across read-existing/save so concurrent scans see each other
	mu sync.Mutex
}

func New(repo store.Repository, scanner *parser.Scanner, log zerolog.Logger) *ScanService {
	return &ScanService{
		repo:    repo,
		scanner: scanner,
		log:     log.With().Str("component", "service").Logger(),
	}
}

// WithPublisher enables Enqueue.
func (s *ScanService) WithPublisher(p Publisher) *ScanService {
	s.publisher = p
	return s
}

// ScanText extracts transactions from one document's recognized text,
// checking them for duplicates against everything already stored.
func (s *ScanService) ScanText(ctx context.Context, text string, req ScanRequest) (models.ScanResult, error) {
	if strings.TrimSpace(text) == "" {
		return models.ScanResult{}, ErrEmptyText
	}
	switch req.Direction {
	case "", models.Income, models.Expense:
	default:
		return models.ScanResult{}, fmt.Errorf("%w: direction %q", ErrInvalidTransaction, req.Direction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.List(ctx)
	if err != nil {
		return models.ScanResult{}, fmt.Errorf("load transactions: %w", err)
	}
	prefs, err := s.repo.Preferences(ctx)
	if err != nil {
		return models.ScanResult{}, fmt.Errorf("load preferences: %w", err)
	}

	res := s.scanner.ScanWith(text, parser.ScanOptions{
		BankHint:    req.BankHint,
		Direction:   req.Direction,
		Existing:    existing,
		Preferences: prefs,
	})

	s.log.Debug().
		Str("bank", string(res.Bank)).
		Bool("multi", res.Multi).
		Int("records", len(res.Transactions)).
		Msg("scanned document")

	if req.Save {
		for _, tx := range res.Transactions {
			if err := validate(tx); err != nil {
				return res, err
			}
		}
		if err := s.repo.Save(ctx, res.Transactions...); err != nil {
			return res, fmt.Errorf("save transactions: %w", err)
		}
	}
	return res, nil
}

// Entry parses a quick-entry sentence into a transaction, saving it when
// save is set.
func (s *ScanService) Entry(ctx context.Context, sentence string, save bool) (models.Transaction, error) {
	tx, ok := s.scanner.Entry(sentence)
	if !ok {
		return models.Transaction{}, ErrNotATransaction
	}
	if save {
		if err := s.Confirm(ctx, tx); err != nil {
			return tx, err
		}
	}
	return tx, nil
}

// Confirm validates and stores records the user accepted. Records without an
// id get one.
func (s *ScanService) Confirm(ctx context.Context, txs ...models.Transaction) error {
	for i := range txs {
		if txs[i].ID == "" {
			txs[i].ID = uuid.NewString()
		}
		if err := validate(txs[i]); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Save(ctx, txs...); err != nil {
		return fmt.Errorf("save transactions: %w", err)
	}
	s.log.Info().Int("records", len(txs)).Msg("confirmed transactions")
	return nil
}

// Recategorize changes a stored record's category. When the record has a
// usable receiver, the choice is learned so the next slip from the same
// receiver is filed the same way.
func (s *ScanService) Recategorize(ctx context.Context, id, category string) (models.Transaction, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return models.Transaction{}, fmt.Errorf("%w: empty category", ErrInvalidTransaction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.repo.UpdateCategory(ctx, id, category)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("update category: %w", err)
	}

	if tx.ReceiverName == "" {
		return tx, nil
	}
	if err := s.learnLocked(ctx, tx.ReceiverName, category); err != nil {
		return tx, err
	}
	return tx, nil
}

// Learn records a receiver preference directly.
func (s *ScanService) Learn(ctx context.Context, receiver, category string) (models.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.learnLocked(ctx, receiver, category); err != nil {
		return nil, err
	}
	return s.repo.Preferences(ctx)
}

func (s *ScanService) learnLocked(ctx context.Context, receiver, category string) error {
	receiver = strings.TrimSpace(receiver)
	prefs, err := s.repo.Preferences(ctx)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	next := parser.LearnPreference(prefs, receiver, category)
	if len(next) == len(prefs) && next[receiver] == prefs[receiver] {
		s.log.Debug().Str("receiver", receiver).Msg("preference unchanged")
		return nil
	}
	if err := s.repo.ReplacePreferences(ctx, next); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	s.log.Info().Str("receiver", receiver).Str("category", category).Msg("learned category preference")
	return nil
}

// ImportPreferences merges prefs into the stored snapshot.
func (s *ScanService) ImportPreferences(ctx context.Context, prefs models.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.Preferences(ctx)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	for receiver, category := range prefs {
		current = parser.LearnPreference(current, receiver, category)
	}
	if err := s.repo.ReplacePreferences(ctx, current); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

func (s *ScanService) Preferences(ctx context.Context) (models.Preferences, error) {
	return s.repo.Preferences(ctx)
}

func (s *ScanService) Transactions(ctx context.Context) ([]models.Transaction, error) {
	return s.repo.List(ctx)
}

func (s *ScanService) Transaction(ctx context.Context, id string) (models.Transaction, error) {
	return s.repo.Get(ctx, id)
}

func (s *ScanService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Enqueue publishes text as a scan job for the worker.
func (s *ScanService) Enqueue(ctx context.Context, source, text string, bankHint string) (*queue.ScanJob, error) {
	if s.publisher == nil {
		return nil, ErrQueueDisabled
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	job := queue.NewScanJob(source, text)
	job.BankHint = bankHint
	if err := s.publisher.Publish(ctx, job); err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	return job, nil
}

// HandleJob is the queue worker's handler: it scans the job's text and
// stores the result. Jobs that can never succeed (no text, a direction other
// than income or expense) are logged and acknowledged; only storage errors
// are returned for a retry.
func (s *ScanService) HandleJob(ctx context.Context, job *queue.ScanJob) error {
	bank, ok := parser.ParseBankType(job.BankHint)
	if !ok {
		s.log.Warn().Str("job_id", job.ID).Str("bank_hint", job.BankHint).Msg("ignoring unknown bank hint")
	}

	res, err := s.ScanText(ctx, job.Text, ScanRequest{
		BankHint:  bank,
		Direction: models.Direction(job.Direction),
		Save:      true,
	})
	if errors.Is(err, ErrEmptyText) || errors.Is(err, ErrInvalidTransaction) {
		s.log.Error().Err(err).Str("job_id", job.ID).Str("source", job.Source).Msg("dropping scan job")
		return nil
	}
	if err != nil {
		return err
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("source", job.Source).
		Str("bank", string(res.Bank)).
		Int("records", len(res.Transactions)).
		Msg("stored scan job result")
	return nil
}

func validate(tx models.Transaction) error {
	switch {
	case tx.Direction != models.Income && tx.Direction != models.Expense:
		return fmt.Errorf("%w: direction %q", ErrInvalidTransaction, tx.Direction)
	case strings.TrimSpace(tx.Category) == "":
		return fmt.Errorf("%w: empty category", ErrInvalidTransaction)
	case tx.Amount.IsNegative():
		return fmt.Errorf("%w: negative amount", ErrInvalidTransaction)
	}
	if d, ok := parser.ParseDate(tx.Date); !ok || d != tx.Date {
		return fmt.Errorf("%w: date %q is not DD/MM/YYYY", ErrInvalidTransaction, tx.Date)
	}
	return nil
}
