package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// ErrEmailTaken is returned when creating an agent with an email already in use
var ErrEmailTaken = errors.New("email already in use")

// PostgresRepository stores agents in the relational database via database/sql.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository initializes a repo backed by an open *sql.DB.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	if db == nil {
		panic("directory: sql.DB required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts a new agent row.
func (r *PostgresRepository) Create(ctx context.Context, agent *Agent) (*Agent, error) {
	cp := *agent
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	if cp.Role == "" {
		cp.Role = RoleProspecteur
	}
	if cp.Status == "" {
		cp.Status = StatusPending
	}
	if !ValidStatus(cp.Status) {
		return nil, ErrInvalidStatus
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agents (id, nom, prenom, email, telephone, role, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		cp.ID, cp.Nom, cp.Prenom, cp.Email, cp.Telephone, cp.Role, cp.Status, cp.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("directory: insert agent: %w", err)
	}
	return &cp, nil
}

// GetByID fetches one agent.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Agent, error) {
	var a Agent
	err := r.db.QueryRowContext(ctx, `
		SELECT id, nom, prenom, email, telephone, role, status, created_at
		FROM agents WHERE id = $1`, id).Scan(
		&a.ID, &a.Nom, &a.Prenom, &a.Email, &a.Telephone, &a.Role, &a.Status, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("directory: select agent: %w", err)
	}
	return &a, nil
}

// List returns agents ordered by id, optionally filtered by role.
func (r *PostgresRepository) List(ctx context.Context, role string) ([]*Agent, error) {
	query := `
		SELECT id, nom, prenom, email, telephone, role, status, created_at
		FROM agents`
	var args []any
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("directory: list agents: %w", err)
	}
	defer rows.Close()

	out := []*Agent{}
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.Nom, &a.Prenom, &a.Email, &a.Telephone,
			&a.Role, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// ListActive returns active prospecteurs ordered by id.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*Agent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, nom, prenom, email, telephone, role, status, created_at
		FROM agents WHERE role = $1 AND status = $2 ORDER BY id ASC`,
		RoleProspecteur, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("directory: list active agents: %w", err)
	}
	defer rows.Close()

	out := []*Agent{}
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.Nom, &a.Prenom, &a.Email, &a.Telephone,
			&a.Role, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// SetStatus updates an agent's status and returns the updated record.
func (r *PostgresRepository) SetStatus(ctx context.Context, id, status string) (*Agent, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	var a Agent
	err := r.db.QueryRowContext(ctx, `
		UPDATE agents SET status = $2 WHERE id = $1
		RETURNING id, nom, prenom, email, telephone, role, status, created_at`,
		id, status).Scan(
		&a.ID, &a.Nom, &a.Prenom, &a.Email, &a.Telephone, &a.Role, &a.Status, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("directory: update agent status: %w", err)
	}
	return &a, nil
}
