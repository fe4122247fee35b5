package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ivis-ai/rag-gateway/internal/domain/model"
)

// ErrSessionNotFound is returned when a chat message targets a session
// that does not exist.
var ErrSessionNotFound = errors.New("chat session not found")

// ChatHistoryRepo provides database operations for conversation history.
type ChatHistoryRepo struct {
	DB *sql.DB
}

// NewChatHistoryRepo creates a new ChatHistoryRepo instance with the given database connection.
func NewChatHistoryRepo(db *sql.DB) *ChatHistoryRepo {
	return &ChatHistoryRepo{DB: db}
}

const sessionColumns = `id, title, created_at, updated_at`

const messageColumns = `id, session_id, role, content, created_at`

// EnsureSession creates the session if absent and returns it. The title is
// only written on first creation; later calls leave it untouched.
func (r *ChatHistoryRepo) EnsureSession(ctx context.Context, id, title string) (*model.ChatSession, error) {
	if id == "" {
		return nil, errors.New("session id is required")
	}

	query := `
		INSERT INTO chat_sessions (id, title)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET updated_at = now()
		RETURNING ` + sessionColumns

	var s model.ChatSession
	err := r.DB.QueryRowContext(ctx, query, id, title).Scan(
		&s.ID, &s.Title, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure chat session: %w", err)
	}

	return &s, nil
}

// Append adds one message to a session's history.
func (r *ChatHistoryRepo) Append(ctx context.Context, msg *model.ChatMessage) error {
	if msg == nil {
		return errors.New("chat message is required")
	}
	if msg.SessionID == "" {
		return errors.New("session id is required")
	}
	if msg.Role != model.RoleUser && msg.Role != model.RoleAssistant {
		return fmt.Errorf("invalid message role %q", msg.Role)
	}

	query := `
		INSERT INTO chat_messages (session_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.DB.QueryRowContext(ctx, query, msg.SessionID, msg.Role, msg.Content).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrSessionNotFound
		}
		return fmt.Errorf("append chat message: %w", err)
	}

	if _, err := r.DB.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = now() WHERE id = $1`, msg.SessionID); err != nil {
		return fmt.Errorf("touch chat session: %w", err)
	}

	return nil
}

// ListRecent returns up to limit messages for a session in chronological
// order, taken from the newest end of the history.
func (r *ChatHistoryRepo) ListRecent(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + messageColumns + ` FROM (
			SELECT ` + messageColumns + `
			FROM chat_messages
			WHERE session_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC`

	rows, err := r.DB.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var msgs []*model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}

	return msgs, nil
}
