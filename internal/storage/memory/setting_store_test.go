package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

func TestSettingStore_UpsertsPreserveOtherFields(t *testing.T) {
	s := NewSettingStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, -1); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if err := s.SetAlerts(ctx, -1, true); err != nil {
		t.Fatalf("SetAlerts failed: %v", err)
	}
	if err := s.SetLastDigestDate(ctx, -1, "2025-06-01"); err != nil {
		t.Fatalf("SetLastDigestDate failed: %v", err)
	}
	if err := s.SetGroupKey(ctx, -1, "alpha-lounge"); err != nil {
		t.Fatalf("SetGroupKey failed: %v", err)
	}

	g, err := s.Get(ctx, -1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !g.AlertsEnabled || g.LastDigestDate != "2025-06-01" || g.GroupKey != "alpha-lounge" {
		t.Errorf("unexpected setting %+v", g)
	}

	if err := s.SetGroupKey(ctx, -1, ""); err != nil {
		t.Fatalf("SetGroupKey failed: %v", err)
	}
	g, err = s.Get(ctx, -1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if g.GroupKey != "" || !g.AlertsEnabled {
		t.Errorf("clearing the key must not touch alerts: %+v", g)
	}
}

func TestSettingStore_GroupIDsSorted(t *testing.T) {
	s := NewSettingStore()
	ctx := context.Background()

	for _, id := range []int64{-3, -1, -2} {
		if err := s.SetAlerts(ctx, id, true); err != nil {
			t.Fatalf("SetAlerts failed: %v", err)
		}
	}

	ids, err := s.GroupIDs(ctx)
	if err != nil {
		t.Fatalf("GroupIDs failed: %v", err)
	}
	if len(ids) != 3 || ids[0] != -3 || ids[1] != -2 || ids[2] != -1 {
		t.Errorf("GroupIDs = %v, want sorted [-3 -2 -1]", ids)
	}
}
