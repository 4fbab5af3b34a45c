package notify

import (
	"context"

	"github.com/hackgods/mindcare/internal/appointment"
)

// Fanout hands every message to all notifiers. It reports success only if
// each of them did.
type Fanout []appointment.Notifier

func (f Fanout) Notify(ctx context.Context, kind appointment.NotificationKind, v *appointment.View, to appointment.Recipient, extra map[string]string) bool {
	ok := true
	for _, n := range f {
		if !n.Notify(ctx, kind, v, to, extra) {
			ok = false
		}
	}
	return ok
}
