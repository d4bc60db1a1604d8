package marketplace

import (
	"context"
	"fmt"

	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/swapspot/swapspot/internal/db"
	apperrors "github.com/swapspot/swapspot/internal/errors"
)

type tradeStore interface {
	InsertTrade(ctx context.Context, trade *db.Trade) error
	UpdateTradeStatus(ctx context.Context, id, status string) error
	CompleteTrade(ctx context.Context, id, userID string, comment *string, rating *int) error
	GetTrade(ctx context.Context, id string) (*db.Trade, error)
	ListTradesByUser(ctx context.Context, userID string) ([]*db.Trade, error)
	InsertTradeProposal(ctx context.Context, proposal *db.TradeProposal) error
	UpdateTradeProposalStatus(ctx context.Context, id, status string) error
	GetTradeProposal(ctx context.Context, id string) (*db.TradeProposal, error)
	ListTradeProposalsByUser(ctx context.Context, userID string) ([]*db.TradeProposal, error)
	ListTradeProposalsByListing(ctx context.Context, listingID string) ([]*db.TradeProposal, error)
	InsertRating(ctx context.Context, rating *db.Rating) error
}

type notifier interface {
	Notify(ctx context.Context, userID, title, message, kind string, data db.DataMap) (*db.Notification, error)
}

// Trades runs the swap lifecycle: proposals, accepted trades, completion
// with an optional rating for the counterparty.
type Trades struct {
	store    tradeStore
	notifier notifier
	logger   *log.Entry
}

func NewTrades(store tradeStore, notifier notifier) *Trades {
	return &Trades{
		store:    store,
		notifier: notifier,
		logger:   log.WithField("object", "Trades"),
	}
}

func (t *Trades) notify(ctx context.Context, userID, title, message, kind string, data db.DataMap) {
	if _, err := t.notifier.Notify(ctx, userID, title, message, kind, data); err != nil {
		t.logger.WithError(err).WithField("user_id", userID).Warn("notification dropped")
	}
}

type CreateTradeInput struct {
	InitiatorID   string
	ReceiverID    string
	ListingID     string
	InitiatorItem string
	ReceiverItem  string
}

func (t *Trades) Create(ctx context.Context, input CreateTradeInput) (*db.Trade, error) {
	if input.InitiatorID == "" || input.ReceiverID == "" || input.ListingID == "" {
		return nil, fmt.Errorf("%w: initiator, receiver and listing are required", apperrors.ErrInvalidInput)
	}
	if input.InitiatorID == input.ReceiverID {
		return nil, fmt.Errorf("%w: cannot trade with yourself", apperrors.ErrInvalidInput)
	}

	trade := &db.Trade{
		ID:            uuid.New(),
		InitiatorID:   input.InitiatorID,
		ReceiverID:    input.ReceiverID,
		ListingID:     input.ListingID,
		InitiatorItem: input.InitiatorItem,
		ReceiverItem:  input.ReceiverItem,
		Status:        db.TradeStatusPending,
	}
	if err := t.store.InsertTrade(ctx, trade); err != nil {
		return nil, apperrors.WrapStore("insert trade", err)
	}

	t.notify(ctx, trade.ReceiverID, "New trade offer",
		"Someone wants to trade for your item", NotificationTypeTradeUpdate,
		db.DataMap{"trade_id": trade.ID, "listing_id": trade.ListingID})
	return trade, nil
}

func (t *Trades) Get(ctx context.Context, id string) (*db.Trade, error) {
	trade, err := t.store.GetTrade(ctx, id)
	if err != nil {
		return nil, apperrors.WrapStore("get trade", err)
	}
	return trade, nil
}

func (t *Trades) ListByUser(ctx context.Context, userID string) ([]*db.Trade, error) {
	trades, err := t.store.ListTradesByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapStore("list trades", err)
	}
	return trades, nil
}

func (t *Trades) otherParty(trade *db.Trade, userID string) (string, error) {
	switch userID {
	case trade.InitiatorID:
		return trade.ReceiverID, nil
	case trade.ReceiverID:
		return trade.InitiatorID, nil
	default:
		return "", fmt.Errorf("%w: not a participant of this trade", apperrors.ErrAuthRequired)
	}
}

// UpdateStatus moves a trade to ACCEPTED, DECLINED or CANCELLED on behalf of
// a participant and tells the other side.
func (t *Trades) UpdateStatus(ctx context.Context, tradeID, userID, status string) (*db.Trade, error) {
	switch status {
	case db.TradeStatusAccepted, db.TradeStatusDeclined, db.TradeStatusCancelled:
	default:
		return nil, fmt.Errorf("%w: unsupported trade status %q", apperrors.ErrInvalidInput, status)
	}

	trade, err := t.store.GetTrade(ctx, tradeID)
	if err != nil {
		return nil, apperrors.WrapStore("get trade", err)
	}
	other, err := t.otherParty(trade, userID)
	if err != nil {
		return nil, err
	}
	if trade.Status == db.TradeStatusCompleted {
		return nil, fmt.Errorf("%w: trade already completed", apperrors.ErrInvalidInput)
	}

	if err := t.store.UpdateTradeStatus(ctx, tradeID, status); err != nil {
		return nil, apperrors.WrapStore("update trade status", err)
	}
	trade.Status = status

	t.notify(ctx, other, "Trade updated",
		fmt.Sprintf("Your trade is now %s", status), NotificationTypeTradeUpdate,
		db.DataMap{"trade_id": trade.ID, "status": status})
	return trade, nil
}

// Complete marks an accepted trade as done and optionally rates the
// counterparty in the same call.
func (t *Trades) Complete(ctx context.Context, tradeID, userID string, comment *string, rating *int) (*db.Trade, error) {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", apperrors.ErrInvalidInput)
	}

	trade, err := t.store.GetTrade(ctx, tradeID)
	if err != nil {
		return nil, apperrors.WrapStore("get trade", err)
	}
	other, err := t.otherParty(trade, userID)
	if err != nil {
		return nil, err
	}
	if trade.Status != db.TradeStatusAccepted {
		return nil, fmt.Errorf("%w: only accepted trades can be completed", apperrors.ErrInvalidInput)
	}

	if err := t.store.CompleteTrade(ctx, tradeID, userID, comment, rating); err != nil {
		return nil, apperrors.WrapStore("complete trade", err)
	}
	trade.Status = db.TradeStatusCompleted
	trade.CompletedBy = &userID
	trade.CompletionComment = comment
	trade.CompletionRating = rating

	if rating != nil {
		record := &db.Rating{
			ID:      uuid.New(),
			RaterID: userID,
			RatedID: other,
			TradeID: trade.ID,
			Rating:  *rating,
		}
		if comment != nil {
			record.Comment = *comment
		}
		if err := t.store.InsertRating(ctx, record); err != nil {
			return nil, apperrors.WrapStore("insert rating", err)
		}
	}

	t.notify(ctx, other, "Trade completed",
		"Your trade partner marked the trade as completed", NotificationTypeTradeComplete,
		db.DataMap{"trade_id": trade.ID})
	return trade, nil
}

type ProposeTradeInput struct {
	InitiatorID  string
	ReceiverID   string
	ListingID    string
	OfferedItems []string
	Message      string
	Terms        string
}

func (t *Trades) Propose(ctx context.Context, input ProposeTradeInput) (*db.TradeProposal, error) {
	if input.InitiatorID == "" || input.ReceiverID == "" || input.ListingID == "" {
		return nil, fmt.Errorf("%w: initiator, receiver and listing are required", apperrors.ErrInvalidInput)
	}
	if len(input.OfferedItems) == 0 {
		return nil, fmt.Errorf("%w: at least one offered item is required", apperrors.ErrInvalidInput)
	}

	proposal := &db.TradeProposal{
		ID:           uuid.New(),
		InitiatorID:  input.InitiatorID,
		ReceiverID:   input.ReceiverID,
		ListingID:    input.ListingID,
		OfferedItems: input.OfferedItems,
		Message:      input.Message,
		Terms:        input.Terms,
		Status:       db.TradeStatusPending,
	}
	if err := t.store.InsertTradeProposal(ctx, proposal); err != nil {
		return nil, apperrors.WrapStore("insert proposal", err)
	}

	t.notify(ctx, proposal.ReceiverID, "New trade proposal",
		"You received a trade proposal", NotificationTypeTradeProposal,
		db.DataMap{"proposal_id": proposal.ID, "listing_id": proposal.ListingID})
	return proposal, nil
}

// RespondProposal lets the receiver accept or decline. Only the receiver may
// respond; the initiator cancels through its own listing instead.
func (t *Trades) RespondProposal(ctx context.Context, proposalID, userID, status string) (*db.TradeProposal, error) {
	switch status {
	case db.TradeStatusAccepted, db.TradeStatusDeclined:
	default:
		return nil, fmt.Errorf("%w: unsupported proposal status %q", apperrors.ErrInvalidInput, status)
	}

	proposal, err := t.store.GetTradeProposal(ctx, proposalID)
	if err != nil {
		return nil, apperrors.WrapStore("get proposal", err)
	}
	if proposal.ReceiverID != userID {
		return nil, fmt.Errorf("%w: only the receiver can respond", apperrors.ErrAuthRequired)
	}
	if proposal.Status != db.TradeStatusPending {
		return nil, fmt.Errorf("%w: proposal already resolved", apperrors.ErrInvalidInput)
	}

	if err := t.store.UpdateTradeProposalStatus(ctx, proposalID, status); err != nil {
		return nil, apperrors.WrapStore("update proposal status", err)
	}
	proposal.Status = status

	t.notify(ctx, proposal.InitiatorID, "Proposal "+status,
		fmt.Sprintf("Your trade proposal was %s", status), NotificationTypeTradeProposal,
		db.DataMap{"proposal_id": proposal.ID, "status": status})
	return proposal, nil
}

func (t *Trades) ProposalsByUser(ctx context.Context, userID string) ([]*db.TradeProposal, error) {
	proposals, err := t.store.ListTradeProposalsByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapStore("list proposals", err)
	}
	return proposals, nil
}

func (t *Trades) ProposalsByListing(ctx context.Context, listingID string) ([]*db.TradeProposal, error) {
	proposals, err := t.store.ListTradeProposalsByListing(ctx, listingID)
	if err != nil {
		return nil, apperrors.WrapStore("list proposals by listing", err)
	}
	return proposals, nil
}
