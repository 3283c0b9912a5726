package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/libratrack/backend/internal/domain/borrowing"
	"github.com/libratrack/backend/internal/ws"
)

type LedgerRepository interface {
	ListOverdueAfter(ctx context.Context, asOf time.Time, afterID int64, limit int32) ([]borrowing.Record, error)
}

// Publisher is the hub surface the scanner needs.
type Publisher interface {
	Publish(topic string, payload []byte)
}

// Scanner watches the ledger for loans that have crossed their due date and
// announces each one once over the hub. It never writes: overdue is a derived
// state, so the only job here is notification.
type Scanner struct {
	records   LedgerRepository
	hub       Publisher
	logger    *slog.Logger
	announced map[int64]struct{}
	now       func() time.Time
}

func NewScanner(records LedgerRepository, hub Publisher, logger *slog.Logger) *Scanner {
	return &Scanner{
		records:   records,
		hub:       hub,
		logger:    logger,
		announced: map[int64]struct{}{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce walks the whole overdue set in id-ordered pages of batchSize, so a
// backlog larger than one page still gets every loan announced and the
// re-arm sweep below compares against the complete set.
func (s *Scanner) RunOnce(ctx context.Context, batchSize int32) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	asOf := borrowing.DateOf(s.now())

	seen := map[int64]struct{}{}
	var cursor int64
	for {
		page, err := s.records.ListOverdueAfter(ctx, asOf, cursor, batchSize)
		if err != nil {
			return err
		}
		for _, rec := range page {
			seen[rec.ID] = struct{}{}
			s.announce(rec)
		}
		if len(page) < int(batchSize) {
			break
		}
		cursor = page[len(page)-1].ID
	}

	// Records returned or renewed since the last pass become eligible for a
	// fresh announcement if they lapse again.
	for id := range s.announced {
		if _, still := seen[id]; !still {
			delete(s.announced, id)
		}
	}
	return nil
}

func (s *Scanner) announce(rec borrowing.Record) {
	if _, done := s.announced[rec.ID]; done {
		return
	}
	s.announced[rec.ID] = struct{}{}

	payload, _ := json.Marshal(map[string]any{
		"event": "loan_overdue",
		"data": map[string]any{
			"record_id": rec.ID,
			"user_id":   rec.UserID,
			"book_id":   rec.BookID,
			"due_date":  rec.DueDate.Format("2006-01-02"),
		},
	})
	s.hub.Publish(ws.TopicOverdue, payload)
	s.hub.Publish(ws.UserLoansTopic(rec.UserID), payload)
	s.logger.Info("loan overdue",
		"record_id", rec.ID, "user_id", rec.UserID, "book_id", rec.BookID,
		"due_date", rec.DueDate.Format("2006-01-02"))
}
