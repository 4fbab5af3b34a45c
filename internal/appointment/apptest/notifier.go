package apptest

import (
	"context"
	"sync"

	"github.com/hackgods/mindcare/internal/appointment"
)

type Notification struct {
	Kind  appointment.NotificationKind
	To    appointment.Recipient
	Extra map[string]string
}

// RecordingNotifier remembers every call. Kinds listed in Fail report
// failure, as a broken mail server would.
type RecordingNotifier struct {
	mu    sync.Mutex
	calls []Notification
	Fail  map[appointment.NotificationKind]bool
}

func (n *RecordingNotifier) Notify(_ context.Context, kind appointment.NotificationKind, _ *appointment.View, to appointment.Recipient, extra map[string]string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls = append(n.calls, Notification{Kind: kind, To: to, Extra: extra})
	return !n.Fail[kind]
}

func (n *RecordingNotifier) Calls() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]Notification(nil), n.calls...)
}

func (n *RecordingNotifier) Kinds() []appointment.NotificationKind {
	var out []appointment.NotificationKind
	for _, c := range n.Calls() {
		out = append(out, c.Kind)
	}
	return out
}
