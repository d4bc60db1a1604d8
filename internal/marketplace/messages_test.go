package marketplace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/swapspot/swapspot/internal/db"
	apperrors "github.com/swapspot/swapspot/internal/errors"
	"github.com/swapspot/swapspot/internal/moderation"
)

type fakeMessageStore struct {
	mu          sync.Mutex
	messages    []*db.Message
	attachments []*db.MessageAttachment
	readIDs     []string
}

func (s *fakeMessageStore) InsertMessage(_ context.Context, msg *db.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *fakeMessageStore) InsertMessageAttachment(_ context.Context, att *db.MessageAttachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments = append(s.attachments, att)
	return nil
}

func (s *fakeMessageStore) ListMessageAttachments(_ context.Context, messageID string) ([]*db.MessageAttachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*db.MessageAttachment
	for _, att := range s.attachments {
		if att.MessageID == messageID {
			out = append(out, att)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) ListMessagesWithUser(_ context.Context, userID string) ([]*db.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*db.Message
	for _, msg := range s.messages {
		if msg.SenderID == userID || msg.ReceiverID == userID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) ListConversation(_ context.Context, userID, otherUserID string, listingID *string) ([]*db.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*db.Message
	for _, msg := range s.messages {
		pair := (msg.SenderID == userID && msg.ReceiverID == otherUserID) ||
			(msg.SenderID == otherUserID && msg.ReceiverID == userID)
		if !pair {
			continue
		}
		if listingID != nil && (msg.ListingID == nil || *msg.ListingID != *listingID) {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *fakeMessageStore) MarkMessagesRead(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readIDs = append(s.readIDs, ids...)
	return nil
}

func (s *fakeMessageStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type fakeModerator struct {
	classifier *moderation.Classifier
	banned     bool
	spam       bool
	blocked    bool
	spamErr    error
}

func (m *fakeModerator) Classify(ctx context.Context, title, body string) moderation.Verdict {
	return m.classifier.Classify(ctx, title, body)
}

func (m *fakeModerator) CheckSpam(context.Context, string, string) (bool, error) {
	return m.spam, m.spamErr
}

func (m *fakeModerator) IsBanned(context.Context, string) (bool, error) {
	return m.banned, nil
}

func (m *fakeModerator) IsBlocked(context.Context, string, string) (bool, error) {
	return m.blocked, nil
}

func validSend() SendMessageInput {
	return SendMessageInput{
		SenderID:   "alice",
		ReceiverID: "bob",
		Content:    "Still have the bookshelf?",
	}
}

func TestSendRejectsBannedSender(t *testing.T) {
	t.Parallel()
	store := &fakeMessageStore{}
	messages := NewMessages(store, &fakeModerator{classifier: testClassifier(t), banned: true})

	_, err := messages.Send(context.Background(), validSend())
	if !errors.Is(err, moderation.ErrUserBanned) {
		t.Fatalf("err = %v, want ErrUserBanned", err)
	}
	if store.messageCount() != 0 {
		t.Fatal("banned sender's message was persisted")
	}
}

func TestSendRejectsSpamWithoutPersisting(t *testing.T) {
	t.Parallel()
	store := &fakeMessageStore{}
	messages := NewMessages(store, &fakeModerator{classifier: testClassifier(t), spam: true})

	_, err := messages.Send(context.Background(), validSend())
	if !errors.Is(err, moderation.ErrSpamRejected) {
		t.Fatalf("err = %v, want ErrSpamRejected", err)
	}
	if store.messageCount() != 0 {
		t.Fatal("spam message was persisted")
	}
}

func TestSendRejectsWhenBlocked(t *testing.T) {
	t.Parallel()
	store := &fakeMessageStore{}
	messages := NewMessages(store, &fakeModerator{classifier: testClassifier(t), blocked: true})

	_, err := messages.Send(context.Background(), validSend())
	if !errors.Is(err, moderation.ErrBlockedByReceiver) {
		t.Fatalf("err = %v, want ErrBlockedByReceiver", err)
	}
	if store.messageCount() != 0 {
		t.Fatal("blocked message was persisted")
	}
}

func TestSendValidation(t *testing.T) {
	t.Parallel()
	store := &fakeMessageStore{}
	messages := NewMessages(store, &fakeModerator{classifier: testClassifier(t)})
	ctx := context.Background()

	for _, input := range []SendMessageInput{
		{SenderID: "alice", ReceiverID: "bob", Content: "   "},
		{SenderID: "alice", Content: "hi"},
		{SenderID: "alice", ReceiverID: "alice", Content: "hi"},
	} {
		if _, err := messages.Send(ctx, input); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("Send(%+v) = %v, want ErrInvalidInput", input, err)
		}
	}
}

func TestSendPersistsWithVerdictAndAttachments(t *testing.T) {
	t.Parallel()
	store := &fakeMessageStore{}
	messages := NewMessages(store, &fakeModerator{classifier: testClassifier(t)})

	input := validSend()
	// Keyword hit flags the message but does not reject it.
	input.Content = "I can pay cash for it"
	input.Attachments = []AttachmentInput{{FileURL: "https://files/x.jpg", FileName: "x.jpg", FileType: "image/jpeg", FileSize: 1024}}

	msg, err := messages.Send(context.Background(), input)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !msg.Flagged || len(msg.FlagReasons) == 0 {
		t.Fatal("keyword message not flagged")
	}
	if store.messageCount() != 1 {
		t.Fatalf("stored messages = %d, want 1", store.messageCount())
	}

	attachments, err := messages.Attachments(context.Background(), msg.ID)
	if err != nil {
		t.Fatalf("Attachments: %v", err)
	}
	if len(attachments) != 1 || attachments[0].FileName != "x.jpg" {
		t.Fatalf("attachments = %+v", attachments)
	}
}

func TestConversationsGrouping(t *testing.T) {
	t.Parallel()
	store := &fakeMessageStore{}
	messages := NewMessages(store, &fakeModerator{classifier: testClassifier(t)})

	listing := "listing-1"
	now := time.Now()
	// Newest first, the way the store returns them.
	store.messages = []*db.Message{
		{ID: "m3", SenderID: "bob", ReceiverID: "alice", ListingID: &listing, Content: "deal", CreatedAt: now},
		{ID: "m2", SenderID: "alice", ReceiverID: "bob", ListingID: &listing, Content: "swap?", CreatedAt: now.Add(-time.Minute)},
		{ID: "m1", SenderID: "carol", ReceiverID: "alice", Content: "hey", CreatedAt: now.Add(-time.Hour)},
	}

	conversations, err := messages.Conversations(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if len(conversations) != 2 {
		t.Fatalf("conversations = %d, want 2", len(conversations))
	}

	first := conversations[0]
	if first.OtherUserID != "bob" || first.LastMessage.ID != "m3" {
		t.Fatalf("first thread = %+v", first)
	}
	if first.Unread != 1 {
		t.Fatalf("unread in bob thread = %d, want 1", first.Unread)
	}
	second := conversations[1]
	if second.OtherUserID != "carol" || second.Unread != 1 {
		t.Fatalf("second thread = %+v", second)
	}
}

func TestMarkReadSkipsEmptyBatch(t *testing.T) {
	t.Parallel()
	store := &fakeMessageStore{}
	messages := NewMessages(store, &fakeModerator{classifier: testClassifier(t)})

	if err := messages.MarkRead(context.Background(), nil); err != nil {
		t.Fatalf("MarkRead(nil): %v", err)
	}
	if err := messages.MarkRead(context.Background(), []string{"m1", "m2"}); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if len(store.readIDs) != 2 {
		t.Fatalf("read ids = %v", store.readIDs)
	}
}
