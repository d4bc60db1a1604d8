package marketplace

import (
	"context"
	"fmt"
	"strings"

	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/swapspot/swapspot/internal/db"
	apperrors "github.com/swapspot/swapspot/internal/errors"
	"github.com/swapspot/swapspot/internal/moderation"
	"github.com/swapspot/swapspot/internal/observability"
)

type messageStore interface {
	InsertMessage(ctx context.Context, msg *db.Message) error
	InsertMessageAttachment(ctx context.Context, att *db.MessageAttachment) error
	ListMessageAttachments(ctx context.Context, messageID string) ([]*db.MessageAttachment, error)
	ListMessagesWithUser(ctx context.Context, userID string) ([]*db.Message, error)
	ListConversation(ctx context.Context, userID, otherUserID string, listingID *string) ([]*db.Message, error)
	MarkMessagesRead(ctx context.Context, ids []string) error
}

type moderator interface {
	Classify(ctx context.Context, title, body string) moderation.Verdict
	CheckSpam(ctx context.Context, userID, content string) (bool, error)
	IsBanned(ctx context.Context, userID string) (bool, error)
	IsBlocked(ctx context.Context, senderID, receiverID string) (bool, error)
}

// Messages handles direct messaging between users. Every send passes the
// moderation gauntlet: sender ban check, spam escalation, receiver block
// list, then classification of what does get stored.
type Messages struct {
	store     messageStore
	moderator moderator
	logger    *log.Entry
}

func NewMessages(store messageStore, moderator moderator) *Messages {
	return &Messages{
		store:     store,
		moderator: moderator,
		logger:    log.WithField("object", "Messages"),
	}
}

type AttachmentInput struct {
	FileURL  string
	FileName string
	FileType string
	FileSize int64
}

type SendMessageInput struct {
	SenderID    string
	ReceiverID  string
	ListingID   *string
	Content     string
	Attachments []AttachmentInput
}

// Send delivers a message. A spam-pattern match rejects the message without
// persisting it, after the incident has been counted (and the sender possibly
// auto-banned). Check order matters: a banned sender never reaches the spam
// counter, a spammer never reaches the block check.
func (m *Messages) Send(ctx context.Context, input SendMessageInput) (*db.Message, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", apperrors.ErrInvalidInput)
	}
	if input.SenderID == "" || input.ReceiverID == "" {
		return nil, fmt.Errorf("%w: sender and receiver are required", apperrors.ErrInvalidInput)
	}
	if input.SenderID == input.ReceiverID {
		return nil, fmt.Errorf("%w: cannot message yourself", apperrors.ErrInvalidInput)
	}

	banned, err := m.moderator.IsBanned(ctx, input.SenderID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, moderation.ErrUserBanned
	}

	spam, err := m.moderator.CheckSpam(ctx, input.SenderID, input.Content)
	if err != nil {
		return nil, err
	}
	if spam {
		m.logger.WithField("sender_id", input.SenderID).Info("message rejected as spam")
		return nil, moderation.ErrSpamRejected
	}

	blocked, err := m.moderator.IsBlocked(ctx, input.SenderID, input.ReceiverID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, moderation.ErrBlockedByReceiver
	}

	verdict := m.moderator.Classify(ctx, "", input.Content)
	msg := &db.Message{
		ID:          uuid.New(),
		SenderID:    input.SenderID,
		ReceiverID:  input.ReceiverID,
		ListingID:   input.ListingID,
		Content:     input.Content,
		Flagged:     verdict.Flagged,
		FlagReasons: verdict.Reasons,
	}
	if verdict.Flagged {
		observability.RecordContentFlagged("message")
	}

	if err := m.store.InsertMessage(ctx, msg); err != nil {
		return nil, apperrors.WrapStore("insert message", err)
	}
	for _, att := range input.Attachments {
		attachment := &db.MessageAttachment{
			ID:        uuid.New(),
			MessageID: msg.ID,
			FileURL:   att.FileURL,
			FileName:  att.FileName,
			FileType:  att.FileType,
			FileSize:  att.FileSize,
		}
		if err := m.store.InsertMessageAttachment(ctx, attachment); err != nil {
			return nil, apperrors.WrapStore("insert attachment", err)
		}
	}
	return msg, nil
}

// Conversation is a per-(counterparty, listing) thread summary.
type Conversation struct {
	OtherUserID string
	ListingID   *string
	LastMessage *db.Message
	Unread      int
}

// Conversations shapes the user's message history into threads, newest
// message per (counterparty, listing) pair, ordered most recent first.
func (m *Messages) Conversations(ctx context.Context, userID string) ([]*Conversation, error) {
	messages, err := m.store.ListMessagesWithUser(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapStore("list messages", err)
	}

	var ordered []*Conversation
	index := map[string]*Conversation{}
	for _, msg := range messages {
		otherID := msg.SenderID
		if otherID == userID {
			otherID = msg.ReceiverID
		}
		key := otherID
		if msg.ListingID != nil {
			key += ":" + *msg.ListingID
		}

		conversation, ok := index[key]
		if !ok {
			// Messages arrive newest first, so the first hit per key is
			// the thread head.
			conversation = &Conversation{
				OtherUserID: otherID,
				ListingID:   msg.ListingID,
				LastMessage: msg,
			}
			index[key] = conversation
			ordered = append(ordered, conversation)
		}
		if msg.ReceiverID == userID && !msg.Read {
			conversation.Unread++
		}
	}
	return ordered, nil
}

func (m *Messages) Conversation(ctx context.Context, userID, otherUserID string, listingID *string) ([]*db.Message, error) {
	messages, err := m.store.ListConversation(ctx, userID, otherUserID, listingID)
	if err != nil {
		return nil, apperrors.WrapStore("list conversation", err)
	}
	return messages, nil
}

func (m *Messages) Attachments(ctx context.Context, messageID string) ([]*db.MessageAttachment, error) {
	attachments, err := m.store.ListMessageAttachments(ctx, messageID)
	if err != nil {
		return nil, apperrors.WrapStore("list attachments", err)
	}
	return attachments, nil
}

func (m *Messages) MarkRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := m.store.MarkMessagesRead(ctx, ids); err != nil {
		return apperrors.WrapStore("mark messages read", err)
	}
	return nil
}
