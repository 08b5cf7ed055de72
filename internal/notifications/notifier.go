package notifications

import (
	"context"
	"fmt"
	"time"

	"carequeue/internal/domain"
	"carequeue/pkg/clock"
	"carequeue/pkg/logger"

	"github.com/google/uuid"
)

// Notifier turns waitlist events into notifications. Delivery failures are
// logged and swallowed; a committed state change never depends on them.
type Notifier struct {
	dispatcher Dispatcher
	clock      clock.Clock
	log        *logger.Logger
}

func NewNotifier(d Dispatcher, c clock.Clock, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.GetDefault()
	}
	if c == nil {
		c = clock.New()
	}
	return &Notifier{dispatcher: d, clock: c, log: log}
}

func (n *Notifier) newNotification(t NotificationType, p NotificationPriority, recipient, daycare uuid.UUID, subject string) *Notification {
	return &Notification{
		ID:          uuid.New(),
		Type:        t,
		Priority:    p,
		RecipientID: recipient,
		DaycareID:   daycare,
		Subject:     subject,
		Data:        map[string]interface{}{},
		CreatedAt:   n.clock.Now(),
	}
}

func (n *Notifier) send(ctx context.Context, msg *Notification) error {
	if n == nil || n.dispatcher == nil {
		return nil
	}
	if err := n.dispatcher.Dispatch(ctx, msg); err != nil {
		n.log.ErrorWithContext(ctx, "notification dispatch failed", err, map[string]interface{}{
			"type":         msg.Type,
			"recipient_id": msg.RecipientID.String(),
		})
		return err
	}
	return nil
}

func offerNotification(n *Notifier, t NotificationType, p NotificationPriority, offer *domain.WaitlistOffer, subject string) *Notification {
	msg := n.newNotification(t, p, offer.ParentID, offer.DaycareID, subject)
	offerID, entryID := offer.ID, offer.EntryID
	expires := offer.OfferExpiresAt
	msg.OfferID = &offerID
	msg.EntryID = &entryID
	msg.CampaignID = offer.CampaignID
	msg.ExpiresAt = &expires
	msg.Data["spot_available_date"] = offer.SpotAvailableDate.Format("2006-01-02")
	msg.Data["deposit_required"] = offer.DepositRequired
	if offer.DepositRequired {
		msg.Data["deposit_amount"] = offer.DepositAmount.StringFixed(2)
	}
	return msg
}

func (n *Notifier) OfferSent(ctx context.Context, offer *domain.WaitlistOffer) {
	_ = n.send(ctx, offerNotification(n, NotificationTypeOfferSent, NotificationPriorityHigh, offer,
		"A spot is available for your child"))
}

// OfferReminder reports the dispatch error so the caller can retry later.
func (n *Notifier) OfferReminder(ctx context.Context, offer *domain.WaitlistOffer) error {
	remaining := offer.OfferExpiresAt.Sub(n.clock.Now()).Round(time.Hour)
	msg := offerNotification(n, NotificationTypeOfferReminder, NotificationPriorityHigh, offer,
		fmt.Sprintf("Your spot offer expires in %s", remaining))
	return n.send(ctx, msg)
}

func (n *Notifier) OfferExpired(ctx context.Context, offer *domain.WaitlistOffer) {
	_ = n.send(ctx, offerNotification(n, NotificationTypeOfferExpired, NotificationPriorityMedium, offer,
		"Your spot offer has expired"))
}

func (n *Notifier) OfferResponded(ctx context.Context, offer *domain.WaitlistOffer) {
	t, subject := NotificationTypeOfferDeclined, "You declined the spot offer"
	if offer.Response == domain.OfferResponseAccepted {
		t, subject = NotificationTypeOfferAccepted, "Your enrollment is confirmed"
	}
	_ = n.send(ctx, offerNotification(n, t, NotificationPriorityMedium, offer, subject))
}

// PositionChanged tells a family their place moved by a significant amount.
func (n *Notifier) PositionChanged(ctx context.Context, entry *domain.WaitlistEntry, oldPosition, newPosition int) {
	msg := n.newNotification(NotificationTypePositionChanged, NotificationPriorityLow, entry.ParentID, entry.DaycareID,
		fmt.Sprintf("Your waitlist position is now %d", newPosition))
	entryID := entry.ID
	msg.EntryID = &entryID
	msg.Data["old_position"] = oldPosition
	msg.Data["new_position"] = newPosition
	if entry.EstimatedWaitDays != nil {
		msg.Data["estimated_wait_days"] = *entry.EstimatedWaitDays
	}
	_ = n.send(ctx, msg)
}
