package appointment

import "context"

type NotificationKind string

const (
	NotifyBookingReceived     NotificationKind = "booking_received"     // admin queue
	NotifyBookingAcknowledged NotificationKind = "booking_acknowledged" // requester
	NotifyConfirmed           NotificationKind = "confirmed"            // requester
	NotifyTherapistConfirmed  NotificationKind = "therapist_confirmed"  // therapist
	NotifyRejected            NotificationKind = "rejected"             // requester
	NotifyCancelled           NotificationKind = "cancelled"            // requester, admin-side cancel
	NotifyCancelledByOwner    NotificationKind = "cancelled_by_owner"   // therapist or admin
)

type RecipientRole string

const (
	RoleRequester RecipientRole = "requester"
	RoleTherapist RecipientRole = "therapist"
	RoleAdmin     RecipientRole = "admin"
)

type Recipient struct {
	Email string
	Name  string
	Role  RecipientRole
}

// Notifier delivers lifecycle messages. It reports success but never fails
// the caller: implementations log their own errors.
type Notifier interface {
	Notify(ctx context.Context, kind NotificationKind, v *View, to Recipient, extra map[string]string) bool
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, NotificationKind, *View, Recipient, map[string]string) bool {
	return true
}
