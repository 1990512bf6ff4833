package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"location-service/internal/models"
)

var (
	ErrLinkNotFound = errors.New("parental link not found")
	ErrLinkExists   = errors.New("parental link already exists")
)

// ParentalRepository defines interactions for parent/child links.
type ParentalRepository interface {
	GetAcceptedParentIDs(ctx context.Context, childID int) ([]int, error)
	CreateLink(ctx context.Context, parentID, childID int) (models.ParentalLink, error)
	ListChildren(ctx context.Context, parentID int) ([]models.User, error)
	ListPendingRequests(ctx context.Context, childID int) ([]models.FriendRequestView, error)
	AcceptLink(ctx context.Context, linkID, childID int) error
	RejectLink(ctx context.Context, linkID, childID int) error
}

// ParentalRepo is a sqlx-backed repository.
type ParentalRepo struct {
	db *sqlx.DB
}

// NewParentalRepo constructs ParentalRepo.
func NewParentalRepo(db *sqlx.DB) *ParentalRepo {
	return &ParentalRepo{db: db}
}

// GetAcceptedParentIDs returns parents allowed to receive the child's SOS.
func (r *ParentalRepo) GetAcceptedParentIDs(ctx context.Context, childID int) ([]int, error) {
	ids := []int{}
	err := r.db.SelectContext(ctx, &ids, `SELECT parent_id FROM parental_links WHERE child_id=$1 AND status='accepted'`, childID)
	return ids, err
}

// CreateLink creates a pending link request from parent to child.
func (r *ParentalRepo) CreateLink(ctx context.Context, parentID, childID int) (models.ParentalLink, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM parental_links WHERE parent_id=$1 AND child_id=$2)`, parentID, childID)
	if err != nil {
		return models.ParentalLink{}, err
	}
	if exists {
		return models.ParentalLink{}, ErrLinkExists
	}

	var link models.ParentalLink
	err = r.db.QueryRowxContext(ctx, `
        INSERT INTO parental_links (parent_id, child_id)
        VALUES ($1, $2)
        RETURNING id, parent_id, child_id, status, created_at`, parentID, childID).StructScan(&link)
	return link, err
}

// ListChildren returns accepted children with their profile fields.
func (r *ParentalRepo) ListChildren(ctx context.Context, parentID int) ([]models.User, error) {
	children := []models.User{}
	err := r.db.SelectContext(ctx, &children, `
        SELECT u.id, u.username, u.email, u.latitude, u.longitude, u.last_update,
               u.ghost_mode, u.ghost_mode_until, u.is_online, u.last_seen
        FROM parental_links pl
        JOIN users u ON pl.child_id = u.id
        WHERE pl.parent_id=$1 AND pl.status='accepted'
        ORDER BY u.username`, parentID)
	return children, err
}

// ListPendingRequests returns pending links addressed to the child.
func (r *ParentalRepo) ListPendingRequests(ctx context.Context, childID int) ([]models.FriendRequestView, error) {
	reqs := []models.FriendRequestView{}
	err := r.db.SelectContext(ctx, &reqs, `
        SELECT pl.id, pl.parent_id AS user_id, u.username, pl.created_at
        FROM parental_links pl
        JOIN users u ON pl.parent_id = u.id
        WHERE pl.child_id=$1 AND pl.status='pending'
        ORDER BY pl.created_at DESC`, childID)
	return reqs, err
}

// AcceptLink marks a pending link accepted; only the child may accept.
func (r *ParentalRepo) AcceptLink(ctx context.Context, linkID, childID int) error {
	return r.updateStatus(ctx, linkID, childID, models.RequestAccepted)
}

// RejectLink marks a pending link rejected; only the child may reject.
func (r *ParentalRepo) RejectLink(ctx context.Context, linkID, childID int) error {
	return r.updateStatus(ctx, linkID, childID, models.RequestRejected)
}

func (r *ParentalRepo) updateStatus(ctx context.Context, linkID, childID int, status string) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE parental_links SET status=$1
        WHERE id=$2 AND child_id=$3 AND status='pending'`, status, linkID, childID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrLinkNotFound
	}
	return nil
}
