package syncer

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"go.uber.org/zap"

	"FadiSync/internal/catalog"
)

// Action is the explicit event type carried by a webhook. Topics that do not
// map to a known action stay Unknown and are rejected, never coerced to an
// update.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
	ActionUnknown Action = "unknown"
)

var ErrUnknownAction = errors.New("unknown webhook action")

// ParseTopic maps an x-wc-webhook-topic value to an Action. A restore comes
// back as an update: the item reappears with its current remote state.
func ParseTopic(topic string) Action {
	switch strings.TrimSpace(strings.ToLower(topic)) {
	case "product.created":
		return ActionCreated
	case "product.updated":
		return ActionUpdated
	case "product.deleted":
		return ActionDeleted
	case "product.restored":
		return ActionUpdated
	default:
		return ActionUnknown
	}
}

// VerifySignature checks an HMAC-SHA256 signature (base64) over the raw
// request body in constant time.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(signature))
}

// Patcher applies one webhook event to the persisted snapshot through the
// store's serialized read-modify-write.
type Patcher struct {
	Store   catalog.Store
	Log     *zap.Logger
	Metrics *Metrics
}

// Apply merges a single event. Created and updated share the same merge: a
// mis-tagged action changes only what gets logged, never the outcome.
// Deleting an absent ID is a no-op. A missing snapshot is initialized from
// the event itself.
func (p *Patcher) Apply(ctx context.Context, action Action, item catalog.Item) (catalog.Snapshot, error) {
	if action == ActionUnknown {
		return catalog.Snapshot{}, ErrUnknownAction
	}

	snap, err := p.Store.Update(ctx, func(s *catalog.Snapshot) error {
		if action == ActionDeleted {
			s.Items = removeByID(s.Items, item.ID)
			return nil
		}
		s.Items = upsertByID(s.Items, item)
		return nil
	})
	if err != nil {
		p.Metrics.webhookEvent(action, false)
		if p.Log != nil {
			p.Log.Error("webhook apply failed",
				zap.String("action", string(action)),
				zap.Int64("product_id", item.ID),
				zap.Error(err),
			)
		}
		return catalog.Snapshot{}, err
	}

	p.Metrics.webhookEvent(action, true)
	p.Metrics.snapshotSize(snap.TotalCount)
	if p.Log != nil {
		p.Log.Info("webhook applied",
			zap.String("action", string(action)),
			zap.Int64("product_id", item.ID),
			zap.Int("total", snap.TotalCount),
			zap.Int64("version", snap.Version),
		)
	}
	return snap, nil
}

func removeByID(items []catalog.Item, id int64) []catalog.Item {
	out := items[:0]
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

func upsertByID(items []catalog.Item, item catalog.Item) []catalog.Item {
	for i, it := range items {
		if it.ID == item.ID {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}
