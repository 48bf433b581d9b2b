package service

import (
	"context"
	"time"

	"docvault/internal/model"
)

// ShareEvent describes a share creation for the notification emitter.
type ShareEvent struct {
	ShareID      string
	ItemType     model.ItemType
	ItemID       string
	ItemName     string
	OwnerID      string
	GranteeID    string
	GranteeEmail string
	Permission   model.Permission
	Message      string
	CreatedAt    time.Time
}

// Notifier emits fire-and-forget events to an external notification channel.
// Failures must never fail the operation that triggered the event.
type Notifier interface {
	ShareCreated(ctx context.Context, ev ShareEvent)
}

// LogNotifier writes notification events to the JSON log. It stands in for a
// real notification transport in deployments that have none configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) ShareCreated(_ context.Context, ev ShareEvent) {
	logJSON(map[string]any{
		"component":     "notifier",
		"event":         "share_created",
		"share_id":      ev.ShareID,
		"item_type":     ev.ItemType,
		"item_id":       ev.ItemID,
		"item_name":     ev.ItemName,
		"owner_id":      ev.OwnerID,
		"grantee_id":    ev.GranteeID,
		"grantee_email": ev.GranteeEmail,
		"permission":    ev.Permission,
	})
}
