package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/entity"
	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
)

// ErrInvalidLeadValue is returned when a write violates a CHECK constraint.
var ErrInvalidLeadValue = errors.New("lead value rejected by database")

const leadColumns = `id, customer_name, customer_number, customer_address, provider,
	provider_lead_id, org_id, status, lead_raw_data, chat_channel,
	processing_error, created_at, updated_at`

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Create serializes writers for the same (provider, provider_lead_id) with a
// transaction-scoped advisory lock, so redelivered jobs find the first row
// instead of inserting a second one.
func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) (bool, error) {
	if lead.ProviderLeadID == nil {
		if err := insertLead(ctx, r.DB, lead); err != nil {
			return false, err
		}
		return true, nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin lead insert: %w", err)
	}
	defer tx.Rollback()

	key := lead.Provider + ":" + *lead.ProviderLeadID
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return false, fmt.Errorf("lock lead %s: %w", key, err)
	}

	var existingID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM broccoli.leads WHERE provider = $1 AND provider_lead_id = $2 ORDER BY created_at LIMIT 1`,
		lead.Provider, *lead.ProviderLeadID,
	).Scan(&existingID)

	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return false, err
		}
		logger.Info("Lead already stored for provider message",
			zap.String("leadId", existingID),
			zap.String("providerLeadId", *lead.ProviderLeadID),
		)
		lead.ID = existingID
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("lookup lead %s: %w", key, err)
	}

	if err := insertLead(ctx, tx, lead); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit lead insert: %w", err)
	}
	return true, nil
}

func insertLead(ctx context.Context, db execer, lead *entity.Lead) error {
	query := `
		INSERT INTO broccoli.leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var channel *string
	if lead.ChatChannel != nil {
		c := string(*lead.ChatChannel)
		channel = &c
	}

	_, err := db.ExecContext(ctx, query,
		lead.ID,
		lead.CustomerName,
		lead.CustomerNumber,
		lead.CustomerAddress,
		lead.Provider,
		lead.ProviderLeadID,
		lead.OrgID,
		string(lead.Status),
		nullJSON(lead.LeadRawData),
		channel,
		lead.ProcessingError,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		logger.Error("Lead insert failed", zap.String("leadId", lead.ID), zap.Error(err))
		return classify(err)
	}
	return nil
}

func (r *LeadRepository) List(ctx context.Context, filter entity.LeadFilter) ([]entity.Lead, int, error) {
	where := ""
	args := []any{}
	if filter.Status != nil {
		where = " WHERE status = $1"
		args = append(args, string(*filter.Status))
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM broccoli.leads`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM broccoli.leads%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		leadColumns, where, n+1, n+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]entity.Lead, 0, filter.Limit)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return leads, total, nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, entity.ErrLeadNotFound
	}

	row := r.DB.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM broccoli.leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	return lead, err
}

func (r *LeadRepository) UpdateStatus(ctx context.Context, id string, status entity.LeadStatus) (*entity.Lead, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, entity.ErrLeadNotFound
	}

	query := `
		UPDATE broccoli.leads
		SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + leadColumns

	lead, err := scanLead(r.DB.QueryRowContext(ctx, query, string(status), id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, entity.ErrLeadNotFound
	case err != nil:
		return nil, classify(err)
	}
	return lead, nil
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var (
		lead    entity.Lead
		status  string
		raw     []byte
		channel sql.NullString
	)

	err := row.Scan(
		&lead.ID,
		&lead.CustomerName,
		&lead.CustomerNumber,
		&lead.CustomerAddress,
		&lead.Provider,
		&lead.ProviderLeadID,
		&lead.OrgID,
		&status,
		&raw,
		&channel,
		&lead.ProcessingError,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	lead.Status = entity.LeadStatus(status)
	if len(raw) > 0 {
		lead.LeadRawData = append([]byte(nil), raw...)
	}
	if channel.Valid {
		c := entity.ChatChannel(channel.String)
		lead.ChatChannel = &c
	}
	return &lead, nil
}

// nullJSON passes jsonb as text; lib/pq would otherwise encode []byte as bytea.
func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23514" {
		return fmt.Errorf("%w: %s", ErrInvalidLeadValue, strings.TrimSpace(pqErr.Message))
	}
	return err
}
