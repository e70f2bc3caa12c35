package domain

import "time"

// NotificationStatus enumerates ledger record states.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// FailureStage tells operators where a failed dispatch stopped.
type FailureStage string

const (
	StageNone     FailureStage = ""
	StageRender   FailureStage = "render"
	StageCreate   FailureStage = "create"
	StageSend     FailureStage = "send"
	StageTransmit FailureStage = "transactional"
)

// NotificationRecord is one outbound notification attempt for one content item.
// At most one record exists per (Kind, ContentID).
type NotificationRecord struct {
	ID           string             `json:"id"`
	Kind         ContentKind        `json:"content_kind"`
	ContentID    int64              `json:"content_id"`
	CampaignID   string             `json:"campaign_id,omitempty"`
	Status       NotificationStatus `json:"status"`
	FailureStage FailureStage       `json:"failure_stage,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	SentAt       *time.Time         `json:"sent_at,omitempty"`
}

// LedgerToken is handed out by Begin and redeemed once by Complete.
type LedgerToken struct {
	RecordID  string
	Kind      ContentKind
	ContentID int64
}

// NotificationOutcome is the terminal state written by Complete.
type NotificationOutcome struct {
	Status       NotificationStatus
	CampaignID   string
	FailureStage FailureStage
	ErrorMessage string
}

// Sent builds a successful outcome.
func Sent(campaignID string) NotificationOutcome {
	return NotificationOutcome{Status: NotificationSent, CampaignID: campaignID}
}

// Failed builds a failed outcome. campaignID may be set when the campaign
// was created but never sent.
func Failed(stage FailureStage, campaignID string, err error) NotificationOutcome {
	out := NotificationOutcome{Status: NotificationFailed, FailureStage: stage, CampaignID: campaignID}
	if err != nil {
		out.ErrorMessage = err.Error()
	}
	return out
}

// RecordFilter narrows ledger listings for the operator UI.
type RecordFilter struct {
	Kind   ContentKind
	Status NotificationStatus
	Limit  int
}

// ResetRequest is an explicit operator action that clears a record so the
// item can be dispatched again.
type ResetRequest struct {
	Kind      ContentKind `json:"-"`
	ContentID int64       `json:"-"`
	Operator  string      `json:"operator"`
	Reason    string      `json:"reason"`
	// Force allows clearing pending and sent records too.
	Force bool `json:"force"`
}

// ResetEntry is the audit row kept for every reset.
type ResetEntry struct {
	ID             string             `json:"id"`
	Kind           ContentKind        `json:"content_kind"`
	ContentID      int64              `json:"content_id"`
	PreviousStatus NotificationStatus `json:"previous_status"`
	Operator       string             `json:"operator"`
	Reason         string             `json:"reason"`
	At             time.Time          `json:"at"`
}
