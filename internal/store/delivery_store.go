package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Priya8975/incident-subscriptions/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// RecordDelivery appends a delivery outcome to the log.
func (s *PostgresStore) RecordDelivery(ctx context.Context, rec domain.DeliveryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO deliveries (id, notification_id, incident_id, subscriber_id, status, outcome, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.NotificationID, rec.IncidentID, rec.SubscriberID, rec.Status, rec.Outcome, rec.ErrorMessage)
	if err != nil {
		return fmt.Errorf("inserting delivery: %w", err)
	}
	return nil
}

// ListDeliveries returns the most recent deliveries matching filter.
func (s *PostgresStore) ListDeliveries(ctx context.Context, filter domain.DeliveryFilter) ([]domain.DeliveryRecord, error) {
	query, args := buildDeliveryQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying deliveries: %w", err)
	}
	defer rows.Close()

	records := []domain.DeliveryRecord{}
	for rows.Next() {
		var rec domain.DeliveryRecord
		err := rows.Scan(
			&rec.ID, &rec.NotificationID, &rec.IncidentID, &rec.SubscriberID,
			&rec.Status, &rec.Outcome, &rec.ErrorMessage, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning delivery: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating deliveries: %w", err)
	}

	return records, nil
}

// LatestStatus returns the last status delivered to subscriberID for
// incidentID. ok is false when nothing has been delivered yet.
func (s *PostgresStore) LatestStatus(ctx context.Context, incidentID, subscriberID int64) (rec domain.DeliveryRecord, ok bool, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT id, notification_id, incident_id, subscriber_id, status, outcome, error_message, created_at
		FROM deliveries
		WHERE incident_id = $1 AND subscriber_id = $2 AND outcome = $3
		ORDER BY created_at DESC
		LIMIT 1
	`, incidentID, subscriberID, domain.OutcomeDelivered).Scan(
		&rec.ID, &rec.NotificationID, &rec.IncidentID, &rec.SubscriberID,
		&rec.Status, &rec.Outcome, &rec.ErrorMessage, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DeliveryRecord{}, false, nil
	}
	if err != nil {
		return domain.DeliveryRecord{}, false, fmt.Errorf("querying latest status: %w", err)
	}
	return rec, true, nil
}

func buildDeliveryQuery(filter domain.DeliveryFilter) (string, []any) {
	var (
		where []string
		args  []any
	)

	if filter.IncidentID != nil {
		args = append(args, *filter.IncidentID)
		where = append(where, fmt.Sprintf("incident_id = $%d", len(args)))
	}
	if filter.SubscriberID != nil {
		args = append(args, *filter.SubscriberID)
		where = append(where, fmt.Sprintf("subscriber_id = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	args = append(args, limit)

	var b strings.Builder
	b.WriteString(`SELECT id, notification_id, incident_id, subscriber_id, status, outcome, error_message, created_at FROM deliveries`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY created_at DESC LIMIT $%d", len(args))

	return b.String(), args
}
