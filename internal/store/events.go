// ABOUTME: Market event log for audit of mints, listings, sales, and withdrawals
// ABOUTME: Events are appended inside the same transaction as the state change

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType categorizes the kind of market event
type EventType string

const (
	EventTypeMint       EventType = "mint"
	EventTypeList       EventType = "list"
	EventTypeDelist     EventType = "delist"
	EventTypePriceSet   EventType = "price_set"
	EventTypeSale       EventType = "sale"
	EventTypeWithdrawal EventType = "withdrawal"
	EventTypeRoleGrant  EventType = "role_grant"
	EventTypeRoleRevoke EventType = "role_revoke"
)

// MarketEvent represents one entry in the market audit trail
type MarketEvent struct {
	ID           string
	Type         EventType
	Actor        string // principal that performed the operation
	AssetID      *int64
	Amount       *int64
	Counterparty *string // e.g. the seller on a sale event
	Timestamp    time.Time
	Detail       map[string]any
}

// AppendEvent records a market event outside any transaction
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *MarketEvent) error {
	return s.insertEvent(ctx, s.db, event)
}

// execer abstracts *sql.DB and *sql.Tx so events can be appended inside
// settlement transactions.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) insertEvent(ctx context.Context, db execer, event *MarketEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var detailJSON *string
	if len(event.Detail) > 0 {
		data, err := json.Marshal(event.Detail)
		if err != nil {
			return fmt.Errorf("marshaling event detail: %w", err)
		}
		str := string(data)
		detailJSON = &str
	}

	query := `
		INSERT INTO market_events (event_id, event_type, actor, asset_id, amount, counterparty, ts, detail_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		event.ID,
		event.Type,
		event.Actor,
		event.AssetID,
		event.Amount,
		event.Counterparty,
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		detailJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	return nil
}

// ListEvents returns the most recent market events, newest first.
// Limit is clamped to 1-500 with a default of 50.
func (s *SQLiteStore) ListEvents(ctx context.Context, limit int) ([]MarketEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := `
		SELECT event_id, event_type, actor, asset_id, amount, counterparty, ts, detail_json
		FROM market_events
		ORDER BY ts DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []MarketEvent
	for rows.Next() {
		var e MarketEvent
		var assetID, amount sql.NullInt64
		var counterparty, detailJSON sql.NullString
		var ts string

		if err := rows.Scan(&e.ID, &e.Type, &e.Actor, &assetID, &amount, &counterparty, &ts, &detailJSON); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}

		if assetID.Valid {
			e.AssetID = &assetID.Int64
		}
		if amount.Valid {
			e.Amount = &amount.Int64
		}
		if counterparty.Valid {
			e.Counterparty = &counterparty.String
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		if detailJSON.Valid {
			if err := json.Unmarshal([]byte(detailJSON.String), &e.Detail); err != nil {
				return nil, fmt.Errorf("unmarshaling event detail: %w", err)
			}
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	return events, nil
}
