package prospects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const prospectColumns = `id, nom, secteur, telephone, email, owner_agent_id, status,
	rappel_date, rappel_note, rdv_date, rdv_heure, rdv_telephone, rdv_email, rdv_note,
	no_response_attempts, last_call_at, created_at, updated_at, version`

const eventColumns = `id, prospect_id, agent_id, outcome, created_at,
	rappel_date, rappel_note, rdv_date, rdv_heure, rdv_telephone, rdv_email, rdv_note`

// pgxDB is the subset of pgxpool.Pool the repository needs, so tests can
// inject a pgxmock pool.
type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository stores prospects in the relational database.
type PostgresRepository struct {
	db pgxDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("prospects: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db pgxDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores a new prospect row.
func (r *PostgresRepository) Insert(ctx context.Context, p *Prospect) (*Prospect, error) {
	cp := clone(p)
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	if cp.Status == "" {
		cp.Status = StatusUnassigned
	}
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = cp.CreatedAt
	cp.Version = 1

	_, err := r.db.Exec(ctx, `
		INSERT INTO prospects (id, nom, secteur, telephone, email, owner_agent_id, status,
			rappel_date, rappel_note, rdv_date, rdv_heure, rdv_telephone, rdv_email, rdv_note,
			no_response_attempts, last_call_at, created_at, updated_at, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		cp.ID, cp.Nom, cp.Secteur, cp.Telephone, cp.Email, cp.OwnerAgentID, cp.Status,
		cp.RappelDate, cp.RappelNote, cp.RdvDate, cp.RdvHeure, cp.RdvTelephone, cp.RdvEmail, cp.RdvNote,
		cp.NoResponseAttempts, cp.LastCallAt, cp.CreatedAt, cp.UpdatedAt, cp.Version)
	if err != nil {
		return nil, fmt.Errorf("prospects: insert: %w", err)
	}
	return cp, nil
}

// InsertBatch stores parsed lead records and reports the count inserted.
func (r *PostgresRepository) InsertBatch(ctx context.Context, ps []*Prospect) (int, error) {
	for i, p := range ps {
		if _, err := r.Insert(ctx, p); err != nil {
			return i, err
		}
	}
	return len(ps), nil
}

// GetByID fetches one prospect with its call history.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Prospect, error) {
	row := r.db.QueryRow(ctx, `SELECT `+prospectColumns+` FROM prospects WHERE id = $1`, id)
	p, err := scanProspect(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProspectNotFound
		}
		return nil, fmt.Errorf("prospects: select: %w", err)
	}

	events, err := r.listEvents(ctx, `WHERE prospect_id = $1`, id)
	if err != nil {
		return nil, err
	}
	p.CallHistory = events
	return p, nil
}

// Update persists scalar fields when the stored version still matches.
func (r *PostgresRepository) Update(ctx context.Context, p *Prospect) (*Prospect, error) {
	cp := clone(p)
	cp.UpdatedAt = time.Now().UTC()

	tag, err := r.db.Exec(ctx, updateSQL, updateArgs(cp)...)
	if err != nil {
		return nil, fmt.Errorf("prospects: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, r.staleWriteError(ctx, cp.ID)
	}
	cp.Version = p.Version + 1
	return cp, nil
}

// RecordCall persists scalar fields and appends one call event in a
// single transaction.
func (r *PostgresRepository) RecordCall(ctx context.Context, p *Prospect, event CallEvent) (*Prospect, error) {
	cp := clone(p)
	cp.UpdatedAt = time.Now().UTC()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("prospects: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, updateSQL, updateArgs(cp)...)
	if err != nil {
		return nil, fmt.Errorf("prospects: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, r.staleWriteError(ctx, cp.ID)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO prospect_calls (id, prospect_id, agent_id, outcome, created_at,
			rappel_date, rappel_note, rdv_date, rdv_heure, rdv_telephone, rdv_email, rdv_note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		event.ID, event.ProspectID, event.AgentID, event.Outcome, event.Timestamp,
		event.RappelDate, event.RappelNote, event.RdvDate, event.RdvHeure,
		event.RdvTelephone, event.RdvEmail, event.RdvNote); err != nil {
		return nil, fmt.Errorf("prospects: insert call: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("prospects: commit: %w", err)
	}
	cp.Version = p.Version + 1
	cp.CallHistory = append(cp.CallHistory, event)
	return cp, nil
}

const updateSQL = `
	UPDATE prospects SET nom=$3, secteur=$4, telephone=$5, email=$6, owner_agent_id=$7,
		status=$8, rappel_date=$9, rappel_note=$10, rdv_date=$11, rdv_heure=$12,
		rdv_telephone=$13, rdv_email=$14, rdv_note=$15, no_response_attempts=$16,
		last_call_at=$17, updated_at=$18, version=version+1
	WHERE id=$1 AND version=$2`

func updateArgs(p *Prospect) []any {
	return []any{
		p.ID, p.Version, p.Nom, p.Secteur, p.Telephone, p.Email, p.OwnerAgentID,
		p.Status, p.RappelDate, p.RappelNote, p.RdvDate, p.RdvHeure,
		p.RdvTelephone, p.RdvEmail, p.RdvNote, p.NoResponseAttempts,
		p.LastCallAt, p.UpdatedAt,
	}
}

// staleWriteError distinguishes a vanished row from a version race.
func (r *PostgresRepository) staleWriteError(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM prospects WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("prospects: conflict check: %w", err)
	}
	if !exists {
		return ErrProspectNotFound
	}
	return ErrConflict
}

// Delete removes the prospect and its history permanently.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM prospects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("prospects: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProspectNotFound
	}
	return nil
}

// ListByAgentAndStatus returns the agent's worklist for one status.
func (r *PostgresRepository) ListByAgentAndStatus(ctx context.Context, agentID, status string) ([]*Prospect, error) {
	return r.list(ctx, `WHERE owner_agent_id = $1 AND status = $2`, agentID, status)
}

// ListByAgent returns every prospect owned by the agent.
func (r *PostgresRepository) ListByAgent(ctx context.Context, agentID string) ([]*Prospect, error) {
	return r.list(ctx, `WHERE owner_agent_id = $1`, agentID)
}

// ListUnassigned returns prospects without an owner.
func (r *PostgresRepository) ListUnassigned(ctx context.Context) ([]*Prospect, error) {
	return r.list(ctx, `WHERE owner_agent_id = ''`)
}

// ListAll returns prospects matching the filter.
func (r *PostgresRepository) ListAll(ctx context.Context, filter ListFilter) ([]*Prospect, error) {
	switch {
	case filter.Status != "":
		return r.list(ctx, `WHERE status = $1`, filter.Status)
	case filter.Active:
		return r.list(ctx, `WHERE owner_agent_id <> '' AND status IN ($1, $2, $3, $4)`,
			StatusPrincipale, StatusARappeler, StatusPasDeReponse, StatusRdvPris)
	default:
		return r.list(ctx, ``)
	}
}

func (r *PostgresRepository) list(ctx context.Context, where string, args ...any) ([]*Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects `
	if where != "" {
		query += where + " "
	}
	query += `ORDER BY updated_at DESC, id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("prospects: list: %w", err)
	}
	defer rows.Close()

	out := []*Prospect{}
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListEventsByAgent returns the call events of prospects currently owned
// by the agent, oldest first.
func (r *PostgresRepository) ListEventsByAgent(ctx context.Context, agentID string) ([]CallEvent, error) {
	return r.listEvents(ctx,
		`JOIN prospects p ON p.id = prospect_calls.prospect_id WHERE p.owner_agent_id = $1`, agentID)
}

// ListAllEvents returns every call event, oldest first.
func (r *PostgresRepository) ListAllEvents(ctx context.Context) ([]CallEvent, error) {
	return r.listEvents(ctx, ``)
}

func (r *PostgresRepository) listEvents(ctx context.Context, where string, args ...any) ([]CallEvent, error) {
	query := `SELECT ` + qualifiedEventColumns() + ` FROM prospect_calls `
	if where != "" {
		query += where + " "
	}
	query += `ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("prospects: list calls: %w", err)
	}
	defer rows.Close()

	out := []CallEvent{}
	for rows.Next() {
		var e CallEvent
		if err := rows.Scan(&e.ID, &e.ProspectID, &e.AgentID, &e.Outcome, &e.Timestamp,
			&e.RappelDate, &e.RappelNote, &e.RdvDate, &e.RdvHeure,
			&e.RdvTelephone, &e.RdvEmail, &e.RdvNote); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func qualifiedEventColumns() string {
	return `prospect_calls.id, prospect_calls.prospect_id, prospect_calls.agent_id,
	prospect_calls.outcome, prospect_calls.created_at, prospect_calls.rappel_date,
	prospect_calls.rappel_note, prospect_calls.rdv_date, prospect_calls.rdv_heure,
	prospect_calls.rdv_telephone, prospect_calls.rdv_email, prospect_calls.rdv_note`
}

func scanProspect(row pgx.Row) (*Prospect, error) {
	var p Prospect
	if err := row.Scan(&p.ID, &p.Nom, &p.Secteur, &p.Telephone, &p.Email,
		&p.OwnerAgentID, &p.Status,
		&p.RappelDate, &p.RappelNote, &p.RdvDate, &p.RdvHeure,
		&p.RdvTelephone, &p.RdvEmail, &p.RdvNote,
		&p.NoResponseAttempts, &p.LastCallAt, &p.CreatedAt, &p.UpdatedAt, &p.Version); err != nil {
		return nil, err
	}
	return &p, nil
}
