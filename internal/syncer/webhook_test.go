package syncer

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"

	"FadiSync/internal/catalog"
)

func TestParseTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  Action
	}{
		{"product.created", ActionCreated},
		{"product.updated", ActionUpdated},
		{"product.deleted", ActionDeleted},
		{"product.restored", ActionUpdated},
		{" Product.Updated ", ActionUpdated},
		{"order.created", ActionUnknown},
		{"", ActionUnknown},
	}

	for _, tt := range tests {
		if got := ParseTopic(tt.topic); got != tt.want {
			t.Errorf("ParseTopic(%q)=%s want=%s", tt.topic, got, tt.want)
		}
	}
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"id":10}`)

	if !VerifySignature("s3cret", body, sign("s3cret", body)) {
		t.Fatalf("valid signature rejected")
	}
	if VerifySignature("s3cret", body, sign("other", body)) {
		t.Fatalf("wrong-key signature accepted")
	}
	if VerifySignature("s3cret", body, "") {
		t.Fatalf("empty signature accepted")
	}
	if VerifySignature("", body, sign("", body)) {
		t.Fatalf("empty secret accepted")
	}
}

func seededStore(t *testing.T, items ...catalog.Item) *catalog.MemStore {
	t.Helper()
	store := catalog.NewMemStore()
	if err := store.Replace(context.Background(), items, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func TestPatcher_DeleteIsIdempotent(t *testing.T) {
	store := seededStore(t, item(1, "one", day(1)))
	p := &Patcher{Store: store}
	ctx := context.Background()

	snap, err := p.Apply(ctx, ActionDeleted, catalog.Item{ID: 99})
	if err != nil {
		t.Fatalf("delete absent: %v", err)
	}
	if snap.TotalCount != 1 {
		t.Fatalf("total=%d want=1", snap.TotalCount)
	}

	snap, err = p.Apply(ctx, ActionDeleted, catalog.Item{ID: 1})
	if err != nil {
		t.Fatalf("delete present: %v", err)
	}
	if snap.TotalCount != 0 {
		t.Fatalf("total=%d want=0", snap.TotalCount)
	}
}

func TestPatcher_MisTaggedCreateUpdatesInPlace(t *testing.T) {
	store := seededStore(t,
		item(1, "one", day(1)),
		item(2, "two", day(2)),
	)
	p := &Patcher{Store: store}

	updated := item(1, "one-renamed", day(1))
	snap, err := p.Apply(context.Background(), ActionCreated, updated)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if snap.TotalCount != 2 {
		t.Fatalf("total=%d, created-for-existing duplicated the item", snap.TotalCount)
	}

	var found int
	for _, it := range snap.Items {
		if it.ID == 1 {
			found++
			if it.Name != "one-renamed" {
				t.Fatalf("name=%s", it.Name)
			}
		}
	}
	if found != 1 {
		t.Fatalf("id 1 occurs %d times", found)
	}
}

func TestPatcher_UpdateForMissingAppends(t *testing.T) {
	store := seededStore(t, item(1, "one", day(1)))
	p := &Patcher{Store: store}

	snap, err := p.Apply(context.Background(), ActionUpdated, item(7, "seven", day(7)))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if snap.TotalCount != 2 {
		t.Fatalf("total=%d", snap.TotalCount)
	}
}

func TestPatcher_SortInvariantAfterMutation(t *testing.T) {
	store := seededStore(t,
		item(1, "one", day(1)),
		item(3, "three", day(3)),
	)
	p := &Patcher{Store: store}

	snap, err := p.Apply(context.Background(), ActionCreated, item(2, "two", day(2)))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	got := ids(snap.Items)
	want := []int64{3, 2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order=%v want=%v", got, want)
		}
	}
}

func TestPatcher_InitializesMissingSnapshot(t *testing.T) {
	store := catalog.NewMemStore()
	p := &Patcher{Store: store}

	snap, err := p.Apply(context.Background(), ActionCreated, item(10, "ten", day(1)))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if snap.TotalCount != 1 || snap.Items[0].ID != 10 {
		t.Fatalf("snapshot: %+v", snap)
	}
}

func TestPatcher_UnknownActionRejected(t *testing.T) {
	p := &Patcher{Store: catalog.NewMemStore()}

	_, err := p.Apply(context.Background(), ActionUnknown, item(1, "one", day(1)))
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("err=%v", err)
	}
}
