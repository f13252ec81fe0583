package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("vetchat.internal.appointments")

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in the appointments table.
type PostgresRepository struct {
	db rowQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQuerier(db rowQuerier) *PostgresRepository {
	if db == nil {
		panic("appointments: querier required")
	}
	return &PostgresRepository{db: db}
}

const selectColumns = `id::text, session_id, COALESCE(flow_id, ''), owner_name, pet_name, phone, preferred_date_time, status, notes, created_at`

// Create inserts a pending row. A repeated (session_id, flow_id) pair hits
// the unique index and the existing row is returned with created=false.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateRequest) (*Appointment, bool, error) {
	ctx, span := tracer.Start(ctx, "appointments.insert")
	defer span.End()
	span.SetAttributes(attribute.String("vetchat.session_id", req.SessionID))

	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	id := uuid.New()
	query := `
		INSERT INTO appointments (id, session_id, flow_id, owner_name, pet_name, phone, preferred_date_time, status, notes)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id, flow_id) DO NOTHING
		RETURNING created_at
	`
	var createdAt time.Time
	err := r.db.QueryRow(ctx, query,
		id.String(),
		req.SessionID,
		req.FlowID,
		req.OwnerName,
		req.PetName,
		req.Phone,
		req.PreferredDateTime,
		string(StatusPending),
		req.Notes,
	).Scan(&createdAt)
	if errors.Is(err, pgx.ErrNoRows) && req.FlowID != "" {
		existing, err := r.getByFlow(ctx, req.SessionID, req.FlowID)
		if err != nil {
			span.RecordError(err)
			return nil, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("appointments: insert failed: %w", err)
	}

	return &Appointment{
		ID:                id.String(),
		SessionID:         req.SessionID,
		FlowID:            req.FlowID,
		OwnerName:         req.OwnerName,
		PetName:           req.PetName,
		Phone:             req.Phone,
		PreferredDateTime: req.PreferredDateTime,
		Status:            StatusPending,
		Notes:             req.Notes,
		CreatedAt:         createdAt,
	}, true, nil
}

func (r *PostgresRepository) getByFlow(ctx context.Context, sessionID, flowID string) (*Appointment, error) {
	query := `SELECT ` + selectColumns + ` FROM appointments WHERE session_id = $1 AND flow_id = $2`
	return scanOne(r.db.QueryRow(ctx, query, sessionID, flowID))
}

// Get returns one appointment by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.get")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrAppointmentNotFound
	}
	query := `SELECT ` + selectColumns + ` FROM appointments WHERE id = $1`
	a, err := scanOne(r.db.QueryRow(ctx, query, id))
	if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
		span.RecordError(err)
	}
	return a, err
}

// List returns one page of appointments newest first, optionally scoped to
// one session, with the total number of matching rows.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) (*Page, error) {
	ctx, span := tracer.Start(ctx, "appointments.list")
	defer span.End()

	page := &Page{Limit: filter.limit(), Offset: filter.offset()}
	countQuery := `SELECT COUNT(*) FROM appointments WHERE ($1 = '' OR session_id = $1)`
	if err := r.db.QueryRow(ctx, countQuery, filter.SessionID).Scan(&page.Total); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: count failed: %w", err)
	}

	query := `
		SELECT ` + selectColumns + `
		FROM appointments
		WHERE ($1 = '' OR session_id = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, filter.SessionID, page.Limit, page.Offset)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	page.Appointments = make([]*Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		page.Appointments = append(page.Appointments, a)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	return page, nil
}

func scanOne(row pgx.Row) (*Appointment, error) {
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: scan failed: %w", err)
	}
	return a, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a      Appointment
		status string
	)
	if err := row.Scan(
		&a.ID,
		&a.SessionID,
		&a.FlowID,
		&a.OwnerName,
		&a.PetName,
		&a.Phone,
		&a.PreferredDateTime,
		&status,
		&a.Notes,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}
