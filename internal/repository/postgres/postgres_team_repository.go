package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mxkrv/novellib-backend/internal/models"
	pkgerrors "github.com/mxkrv/novellib-backend/pkg/errors"
)

type PostgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) *PostgresTeamRepository {
	return &PostgresTeamRepository{db: db}
}

func (r *PostgresTeamRepository) GetByID(ctx context.Context, id int32) (*models.Team, error) {
	query := `SELECT id, name, owner_user_id, created_at FROM teams WHERE id = $1`

	var team models.Team
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&team.ID,
		&team.Name,
		&team.OwnerUserID,
		&team.CreatedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrTeamNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get team by id: %w", err)
	}
	return &team, nil
}

func (r *PostgresTeamRepository) IsMember(ctx context.Context, teamID, userID int32) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, teamID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check team membership: %w", err)
	}
	return exists, nil
}

func (r *PostgresTeamRepository) AddMember(ctx context.Context, teamID, userID int32) error {
	query := `INSERT INTO team_members (team_id, user_id) VALUES ($1, $2)`

	_, err := r.db.ExecContext(ctx, query, teamID, userID)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return pkgerrors.ErrAlreadyTeamMember
		case "23503":
			return pkgerrors.ErrTeamNotFound
		}
	}
	if err != nil {
		return fmt.Errorf("failed to add team member: %w", err)
	}
	return nil
}
