package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/conductor/pkg/models"
)

// RequestRepository handles request-ticket database operations.
type RequestRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(db *sql.DB, logger *slog.Logger) *RequestRepository {
	return &RequestRepository{db: db, logger: logger}
}

const requestColumns = `
	id
  , request_type
  , external_key
  , payload
  , source
  , source_reference
  , status
  , retry_at
  , last_error
  , resolution_payload
  , metadata
  , created_at
  , updated_at
`

// Upsert inserts or resets the ticket keyed by external_key. The unique
// constraint makes re-submission idempotent: the existing row keeps its ID
// and creation time, everything else is taken from the argument.
func (r *RequestRepository) Upsert(ctx context.Context, request *models.Request) (*models.Request, error) {
	payload, resolutionPayload, metadata, err := encodeRequestDocuments(request)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO requests (
			id, request_type, external_key, payload, source, source_reference,
			status, retry_at, last_error, resolution_payload, metadata, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13)
		ON CONFLICT (external_key) DO UPDATE SET
			request_type = EXCLUDED.request_type
		  , payload = EXCLUDED.payload
		  , source = EXCLUDED.source
		  , source_reference = EXCLUDED.source_reference
		  , status = EXCLUDED.status
		  , retry_at = EXCLUDED.retry_at
		  , last_error = NULL
		  , resolution_payload = NULL
		  , metadata = EXCLUDED.metadata
		  , updated_at = EXCLUDED.updated_at
		RETURNING ` + requestColumns

	row := r.db.QueryRowContext(ctx, query,
		request.ID,
		request.RequestType,
		request.ExternalKey,
		payload,
		request.Source,
		request.SourceReference,
		request.Status,
		request.RetryAt,
		request.LastError,
		resolutionPayload,
		metadata,
		request.CreatedAt,
		request.UpdatedAt,
	)

	stored, err := r.scanRequest(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert request %s: %w", request.ExternalKey, err)
	}

	return stored, nil
}

// GetByID returns the ticket, or nil when no row matches.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	return r.getOne(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
}

// GetByExternalKey returns the ticket, or nil when the key is unknown.
func (r *RequestRepository) GetByExternalKey(ctx context.Context, externalKey string) (*models.Request, error) {
	return r.getOne(ctx, `SELECT `+requestColumns+` FROM requests WHERE external_key = $1`, externalKey)
}

func (r *RequestRepository) getOne(ctx context.Context, query string, arg any) (*models.Request, error) {
	row := r.db.QueryRowContext(ctx, query, arg)

	request, err := r.scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan request: %w", err)
	}

	return request, nil
}

// Save persists a status transition on an existing ticket.
func (r *RequestRepository) Save(ctx context.Context, request *models.Request) error {
	payload, resolutionPayload, metadata, err := encodeRequestDocuments(request)
	if err != nil {
		return err
	}

	query := `
		UPDATE requests SET
			request_type = $2
		  , payload = $3
		  , source = $4
		  , source_reference = $5
		  , status = $6
		  , retry_at = $7
		  , last_error = NULLIF($8, '')
		  , resolution_payload = $9
		  , metadata = $10
		  , updated_at = $11
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		request.ID,
		request.RequestType,
		payload,
		request.Source,
		request.SourceReference,
		request.Status,
		request.RetryAt,
		request.LastError,
		resolutionPayload,
		metadata,
		request.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save request %s: %w", request.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("request %s: %w", request.ID, sql.ErrNoRows)
	}

	return nil
}

// DueForProcessing returns pending/failed tickets whose retry_at has passed,
// FIFO by creation time. Rows are claimed with FOR UPDATE SKIP LOCKED inside
// a short transaction so two concurrent pollers never select the same
// ticket.
func (r *RequestRepository) DueForProcessing(ctx context.Context, limit int) ([]*models.Request, error) {
	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin due-query transaction: %w", err)
	}

	query := `
		SELECT ` + requestColumns + `
		FROM requests
		WHERE status IN ('pending', 'failed') AND retry_at <= NOW()
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := transaction.QueryContext(ctx, query, limit)
	if err != nil {
		_ = transaction.Rollback()

		return nil, fmt.Errorf("failed to query due requests: %w", err)
	}

	requests, err := r.collect(ctx, rows)
	if err != nil {
		_ = transaction.Rollback()

		return nil, err
	}

	err = transaction.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit due-query transaction: %w", err)
	}

	return requests, nil
}

// RecentlyResolved returns resolved tickets updated at or after since, oldest first.
func (r *RequestRepository) RecentlyResolved(ctx context.Context, since time.Time) ([]*models.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM requests
		WHERE status = 'resolved' AND updated_at >= $1
		ORDER BY updated_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recently resolved requests: %w", err)
	}

	return r.collect(ctx, rows)
}

func (r *RequestRepository) collect(ctx context.Context, rows *sql.Rows) ([]*models.Request, error) {
	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	requests := make([]*models.Request, 0)

	for rows.Next() {
		request, err := r.scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}

		requests = append(requests, request)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating requests: %w", err)
	}

	return requests, nil
}

func (r *RequestRepository) scanRequest(row rowScanner) (*models.Request, error) {
	var (
		request           models.Request
		payload           []byte
		resolutionPayload []byte
		metadata          []byte
		source            sql.NullString
		sourceReference   sql.NullString
		lastError         sql.NullString
	)

	err := row.Scan(
		&request.ID,
		&request.RequestType,
		&request.ExternalKey,
		&payload,
		&source,
		&sourceReference,
		&request.Status,
		&request.RetryAt,
		&lastError,
		&resolutionPayload,
		&metadata,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	request.Source = source.String
	request.SourceReference = sourceReference.String
	request.LastError = lastError.String

	if len(payload) > 0 {
		err = json.Unmarshal(payload, &request.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode request payload: %w", err)
		}
	}

	if len(resolutionPayload) > 0 {
		err = json.Unmarshal(resolutionPayload, &request.ResolutionPayload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode resolution payload: %w", err)
		}
	}

	if len(metadata) > 0 {
		err = json.Unmarshal(metadata, &request.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to decode request metadata: %w", err)
		}
	}

	return &request, nil
}

func encodeRequestDocuments(request *models.Request) (payload, resolutionPayload, metadata []byte, err error) {
	payload, err = json.Marshal(request.Payload)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode request payload: %w", err)
	}

	resolutionPayload, err = json.Marshal(request.ResolutionPayload)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode resolution payload: %w", err)
	}

	metadata, err = json.Marshal(request.Metadata)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode request metadata: %w", err)
	}

	return payload, resolutionPayload, metadata, nil
}
