package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

type (
	User struct {
		ID            string    `db:"id"`
		Email         string    `db:"email"`
		Name          string    `db:"name"`
		Avatar        string    `db:"avatar"`
		Location      string    `db:"location"`
		Bio           string    `db:"bio"`
		Phone         string    `db:"phone"`
		Role          string    `db:"role"`
		EmailVerified bool      `db:"email_verified"`
		PhoneVerified bool      `db:"phone_verified"`
		CreatedAt     time.Time `db:"created_at"`
	}

	Listing struct {
		ID          string     `db:"id"`
		UserID      string     `db:"user_id"`
		Title       string     `db:"title"`
		Description string     `db:"description"`
		Category    string     `db:"category"`
		Location    string     `db:"location"`
		Latitude    *float64   `db:"latitude"`
		Longitude   *float64   `db:"longitude"`
		Status      string     `db:"status"`
		Flagged     bool       `db:"flagged"`
		FlagReasons StringList `db:"flag_reasons"`
		Views       int64      `db:"views"`
		CreatedAt   time.Time  `db:"created_at"`
		UpdatedAt   time.Time  `db:"updated_at"`
	}

	ListingReport struct {
		ID         string     `db:"id"`
		ListingID  string     `db:"listing_id"`
		ReporterID string     `db:"reporter_id"`
		Reason     string     `db:"reason"`
		Status     string     `db:"status"`
		ResolvedBy *string    `db:"resolved_by"`
		ResolvedAt *time.Time `db:"resolved_at"`
		CreatedAt  time.Time  `db:"created_at"`
	}

	Message struct {
		ID          string     `db:"id"`
		SenderID    string     `db:"sender_id"`
		ReceiverID  string     `db:"receiver_id"`
		ListingID   *string    `db:"listing_id"`
		Content     string     `db:"content"`
		Flagged     bool       `db:"flagged"`
		FlagReasons StringList `db:"flag_reasons"`
		Read        bool       `db:"read"`
		CreatedAt   time.Time  `db:"created_at"`
	}

	MessageAttachment struct {
		ID        string    `db:"id"`
		MessageID string    `db:"message_id"`
		FileURL   string    `db:"file_url"`
		FileName  string    `db:"file_name"`
		FileType  string    `db:"file_type"`
		FileSize  int64     `db:"file_size"`
		CreatedAt time.Time `db:"created_at"`
	}

	UserReport struct {
		ID             string    `db:"id"`
		ReporterID     string    `db:"reporter_id"`
		ReportedUserID string    `db:"reported_user_id"`
		Reason         string    `db:"reason"`
		Status         string    `db:"status"`
		CreatedAt      time.Time `db:"created_at"`
	}

	Ban struct {
		ID          string     `db:"id"`
		UserID      string     `db:"user_id"`
		Reason      string     `db:"reason"`
		BannedBy    *string    `db:"banned_by"`
		BannedAt    time.Time  `db:"banned_at"`
		BannedUntil *time.Time `db:"banned_until"`
		Revoked     bool       `db:"revoked"`
	}

	UserBlock struct {
		UserID        string    `db:"user_id"`
		BlockedUserID string    `db:"blocked_user_id"`
		CreatedAt     time.Time `db:"created_at"`
	}

	Trade struct {
		ID                string    `db:"id"`
		InitiatorID       string    `db:"initiator_id"`
		ReceiverID        string    `db:"receiver_id"`
		ListingID         string    `db:"listing_id"`
		InitiatorItem     string    `db:"initiator_item"`
		ReceiverItem      string    `db:"receiver_item"`
		Status            string    `db:"status"`
		CompletedBy       *string   `db:"completed_by"`
		CompletionComment *string   `db:"completion_comment"`
		CompletionRating  *int      `db:"completion_rating"`
		CreatedAt         time.Time `db:"created_at"`
		UpdatedAt         time.Time `db:"updated_at"`
	}

	TradeProposal struct {
		ID           string     `db:"id"`
		InitiatorID  string     `db:"initiator_id"`
		ReceiverID   string     `db:"receiver_id"`
		ListingID    string     `db:"listing_id"`
		OfferedItems StringList `db:"offered_items"`
		Message      string     `db:"message"`
		Terms        string     `db:"terms"`
		Status       string     `db:"status"`
		AcceptedAt   *time.Time `db:"accepted_at"`
		CompletedAt  *time.Time `db:"completed_at"`
		CreatedAt    time.Time  `db:"created_at"`
		UpdatedAt    time.Time  `db:"updated_at"`
	}

	Rating struct {
		ID        string    `db:"id"`
		RaterID   string    `db:"rater_id"`
		RatedID   string    `db:"rated_id"`
		TradeID   string    `db:"trade_id"`
		Rating    int       `db:"rating"`
		Comment   string    `db:"comment"`
		CreatedAt time.Time `db:"created_at"`
	}

	Favorite struct {
		UserID    string    `db:"user_id"`
		ListingID string    `db:"listing_id"`
		CreatedAt time.Time `db:"created_at"`
	}

	Notification struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		Title     string    `db:"title"`
		Message   string    `db:"message"`
		Type      string    `db:"type"`
		Data      DataMap   `db:"data"`
		Read      bool      `db:"read"`
		CreatedAt time.Time `db:"created_at"`
	}

	SavedSearch struct {
		ID                   string    `db:"id"`
		UserID               string    `db:"user_id"`
		Query                string    `db:"query"`
		Filters              DataMap   `db:"filters"`
		NotificationsEnabled bool      `db:"notifications_enabled"`
		CreatedAt            time.Time `db:"created_at"`
	}

	// StringList stores an ordered list of strings as a JSON column.
	StringList []string

	// DataMap stores loose key/value payloads as a JSON column.
	DataMap map[string]any
)

// Listing statuses. Flagged submissions land in pending review instead of
// going publicly active.
const (
	ListingStatusActive        = "ACTIVE"
	ListingStatusPendingReview = "PENDING_REVIEW"
	ListingStatusTraded        = "TRADED"
	ListingStatusRemoved       = "REMOVED"
)

const (
	ReportStatusPending  = "PENDING"
	ReportStatusApproved = "APPROVED"
	ReportStatusRejected = "REJECTED"
)

const (
	TradeStatusPending   = "PENDING"
	TradeStatusAccepted  = "ACCEPTED"
	TradeStatusDeclined  = "DECLINED"
	TradeStatusCompleted = "COMPLETED"
	TradeStatusCancelled = "CANCELLED"
)

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		s = StringList{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "marshal string list")
	}
	return string(b), nil
}

func (s *StringList) Scan(v any) error {
	if v == nil {
		*s = nil
		return nil
	}
	switch data := v.(type) {
	case string:
		return json.Unmarshal([]byte(data), s)
	case []byte:
		return json.Unmarshal(data, s)
	default:
		return fmt.Errorf("cannot scan type %T into StringList", v)
	}
}

func (m DataMap) Value() (driver.Value, error) {
	if m == nil {
		m = DataMap{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "marshal data map")
	}
	return string(b), nil
}

func (m *DataMap) Scan(v any) error {
	if v == nil {
		*m = nil
		return nil
	}
	switch data := v.(type) {
	case string:
		return json.Unmarshal([]byte(data), m)
	case []byte:
		return json.Unmarshal(data, m)
	default:
		return fmt.Errorf("cannot scan type %T into DataMap", v)
	}
}

// Active reports whether the ban is in force at the given instant. A nil
// BannedUntil means permanent.
func (b *Ban) Active(now time.Time) bool {
	if b == nil || b.Revoked {
		return false
	}
	return b.BannedUntil == nil || b.BannedUntil.After(now)
}
