package store

import (
	"slices"
	"time"
)

// Notification types.
const (
	TypeSuccess = "success"
	TypeError   = "error"
	TypeWarning = "warning"
	TypeInfo    = "info"
)

// Notification is one entry in the transient notification queue.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// AddNotification queues n with a fresh id and timestamp and returns the
// stored copy. Success notifications remove themselves after the success
// TTL; every other type stays until removed.
func (s *State) AddNotification(n Notification) Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	n.ID = s.newID()
	n.Timestamp = s.now()
	s.notifications = append(s.notifications, n)

	if n.Type == TypeSuccess {
		id := n.ID
		s.timers[id] = time.AfterFunc(s.successTTL, func() {
			s.RemoveNotification(id)
		})
	}
	return n
}

// Notify adapts AddNotification to the query layer's feedback hook.
func (s *State) Notify(kind, title, message string) {
	s.AddNotification(Notification{Type: kind, Title: title, Message: message})
}

// RemoveNotification drops the notification with id. Unknown ids are
// ignored.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.notifications = slices.DeleteFunc(s.notifications, func(n Notification) bool { return n.ID == id })
}

func (s *State) ClearNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.notifications = nil
}

// Notifications returns the queue in insertion order.
func (s *State) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.notifications)
}
