package devtools

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a transient message shown by the panel.
type Notification struct {
	ID      string    `json:"id" yaml:"id"`
	Title   string    `json:"title" yaml:"title"`
	Created time.Time `json:"created" yaml:"created"`
}

type notifications struct {
	ttl    time.Duration
	items  []Notification
	timers map[string]*time.Timer
}

func newNotifications(ttl time.Duration) *notifications {
	return &notifications{ttl: ttl, timers: make(map[string]*time.Timer)}
}

// push appends a notification and arms its expiry. expire runs on the
// timer goroutine and must take the panel lock itself.
func (n *notifications) push(title string, expire func(id string)) Notification {
	note := Notification{ID: uuid.NewString(), Title: title, Created: time.Now()}
	n.items = append(n.items, note)
	if n.ttl > 0 {
		id := note.ID
		n.timers[id] = time.AfterFunc(n.ttl, func() { expire(id) })
	}
	return note
}

// remove drops the notification and reports whether it was present.
func (n *notifications) remove(id string) bool {
	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	for i, note := range n.items {
		if note.ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}

func (n *notifications) list() []Notification {
	return append([]Notification(nil), n.items...)
}

func (n *notifications) stop() {
	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
}
