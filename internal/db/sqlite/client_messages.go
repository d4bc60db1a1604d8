package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/swapspot/swapspot/internal/db"
)

func (s *sqliteClient) InsertMessage(ctx context.Context, msg *db.Message) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO messages (id, sender_id, receiver_id, listing_id, content, flagged, flag_reasons, read)
		VALUES (:id, :sender_id, :receiver_id, :listing_id, :content, :flagged, :flag_reasons, :read)
	`
	_, err := s.db.NamedExecContext(ctx, query, msg)
	return translateErr(err)
}

func (s *sqliteClient) InsertMessageAttachment(ctx context.Context, att *db.MessageAttachment) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO message_attachments (id, message_id, file_url, file_name, file_type, file_size)
		VALUES (:id, :message_id, :file_url, :file_name, :file_type, :file_size)
	`
	_, err := s.db.NamedExecContext(ctx, query, att)
	return translateErr(err)
}

func (s *sqliteClient) ListMessageAttachments(ctx context.Context, messageID string) ([]*db.MessageAttachment, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var attachments []*db.MessageAttachment
	err := s.db.SelectContext(ctx, &attachments, `
		SELECT * FROM message_attachments
		WHERE message_id = ?
		ORDER BY created_at DESC
	`, messageID)
	return attachments, translateErr(err)
}

func (s *sqliteClient) ListMessagesWithUser(ctx context.Context, userID string) ([]*db.Message, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var messages []*db.Message
	err := s.db.SelectContext(ctx, &messages, `
		SELECT * FROM messages
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY created_at DESC
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", translateErr(err))
	}
	return messages, nil
}

func (s *sqliteClient) ListConversation(ctx context.Context, userID, otherUserID string, listingID *string) ([]*db.Message, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	query := `
		SELECT * FROM messages
		WHERE ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
	`
	args := []any{userID, otherUserID, otherUserID, userID}
	if listingID != nil {
		query += ` AND listing_id = ?`
		args = append(args, *listingID)
	}
	query += ` ORDER BY created_at ASC`

	var messages []*db.Message
	err := s.db.SelectContext(ctx, &messages, query, args...)
	return messages, translateErr(err)
}

func (s *sqliteClient) MarkMessagesRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	query, args, err := sqlx.In(`UPDATE messages SET read = 1 WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)
	_, err = s.db.ExecContext(ctx, query, args...)
	return translateErr(err)
}
