package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"location-service/internal/models"
)

// MessageRepository defines interactions for direct messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, senderID, receiverID int, text string) (models.Message, error)
	GetConversation(ctx context.Context, userID, friendID, page, limit int) ([]models.Message, error)
	MarkConversationRead(ctx context.Context, userID, friendID int) error
	UnreadCounts(ctx context.Context, userID int) ([]models.UnreadCount, int, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a direct message and returns it with the assigned id
// and server timestamp. Fan-out reads the returned record, never its input.
func (r *MessageRepo) CreateMessage(ctx context.Context, senderID, receiverID int, text string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `
        INSERT INTO messages (sender_id, receiver_id, message)
        VALUES ($1, $2, $3)
        RETURNING id, sender_id, receiver_id, message, is_read, created_at`, senderID, receiverID, text).StructScan(&msg)
	return msg, err
}

// GetConversation returns one page of the two users' history, newest page
// first, oldest message last within the page.
func (r *MessageRepo) GetConversation(ctx context.Context, userID, friendID, page, limit int) ([]models.Message, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := (page - 1) * limit

	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs, `
        SELECT id, sender_id, receiver_id, message, is_read, created_at
        FROM messages
        WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
        ORDER BY created_at DESC
        LIMIT $3 OFFSET $4`, userID, friendID, limit, offset)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// MarkConversationRead marks everything the friend sent to the user as read.
func (r *MessageRepo) MarkConversationRead(ctx context.Context, userID, friendID int) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE messages SET is_read=TRUE
        WHERE sender_id=$1 AND receiver_id=$2 AND is_read=FALSE`, friendID, userID)
	return err
}

// UnreadCounts returns per-sender unread counts plus the total.
func (r *MessageRepo) UnreadCounts(ctx context.Context, userID int) ([]models.UnreadCount, int, error) {
	counts := []models.UnreadCount{}
	err := r.db.SelectContext(ctx, &counts, `
        SELECT sender_id, COUNT(*) AS count
        FROM messages
        WHERE receiver_id=$1 AND is_read=FALSE
        GROUP BY sender_id`, userID)
	if err != nil {
		return nil, 0, err
	}

	total := 0
	for _, c := range counts {
		total += c.Count
	}
	return counts, total, nil
}
