package domain

import (
	"math"
	"time"
)

// ContactStatus tracks the admin workflow of an inbound message.
type ContactStatus string

const (
	ContactNew      ContactStatus = "new"
	ContactRead     ContactStatus = "read"
	ContactReplied  ContactStatus = "replied"
	ContactArchived ContactStatus = "archived"
)

// Valid reports whether s is a known contact status.
func (s ContactStatus) Valid() bool {
	switch s {
	case ContactNew, ContactRead, ContactReplied, ContactArchived:
		return true
	}
	return false
}

// ContactSubmission is the raw form payload.
type ContactSubmission struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Subject string `json:"subject" validate:"required,min=5,max=200"`
	Message string `json:"message" validate:"required,min=20"`
}

// ContactMessage is a persisted contact form submission.
type ContactMessage struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Subject    string        `json:"subject"`
	Message    string        `json:"message"`
	Status     ContactStatus `json:"status"`
	IPAddress  string        `json:"ip_address,omitempty"`
	ReceivedAt time.Time     `json:"received_at"`
	RepliedAt  *time.Time    `json:"replied_at,omitempty"`
	RepliedBy  string        `json:"replied_by,omitempty"`
}

// MarkRead moves a new message to read. Other states are left alone.
func (m *ContactMessage) MarkRead() bool {
	if m.Status != ContactNew {
		return false
	}
	m.Status = ContactRead
	return true
}

// MarkReplied records the operator who answered and when.
func (m *ContactMessage) MarkReplied(by string, at time.Time) {
	t := at.UTC()
	m.Status = ContactReplied
	m.RepliedAt = &t
	m.RepliedBy = by
}

// Archive moves the message out of the inbox from any state.
func (m *ContactMessage) Archive() {
	m.Status = ContactArchived
}

// ContactStats summarises the inbox for the admin dashboard.
type ContactStats struct {
	Total        int     `json:"total"`
	New          int     `json:"new"`
	Read         int     `json:"read"`
	Replied      int     `json:"replied"`
	Archived     int     `json:"archived"`
	ResponseRate float64 `json:"response_rate"`
}

// NewContactStats builds stats from per-status counts. ResponseRate is the
// replied share of all messages in percent, rounded to two decimals.
func NewContactStats(counts map[ContactStatus]int) ContactStats {
	stats := ContactStats{
		New:      counts[ContactNew],
		Read:     counts[ContactRead],
		Replied:  counts[ContactReplied],
		Archived: counts[ContactArchived],
	}
	for _, n := range counts {
		stats.Total += n
	}
	if stats.Total > 0 {
		stats.ResponseRate = math.Round(float64(stats.Replied)/float64(stats.Total)*10000) / 100
	}
	return stats
}
