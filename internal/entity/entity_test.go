package entity_test

import (
	"math/big"
	"testing"

	"PerpScan/internal/entity"
)

func TestOrderStatus_Transitions(t *testing.T) {
	cases := []struct {
		from, to entity.OrderStatus
		want     bool
	}{
		{entity.OrderStatusOpen, entity.OrderStatusFilled, true},
		{entity.OrderStatusOpen, entity.OrderStatusCancelled, true},
		{entity.OrderStatusFilled, entity.OrderStatusOpen, false},
		{entity.OrderStatusFilled, entity.OrderStatusCancelled, false},
		{entity.OrderStatusCancelled, entity.OrderStatusFilled, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	if entity.OrderStatusOpen.IsTerminal() {
		t.Error("OPEN should not be terminal")
	}
	if !entity.OrderStatusFilled.IsTerminal() {
		t.Error("FILLED should be terminal")
	}
	if !entity.OrderStatusCancelled.IsTerminal() {
		t.Error("CANCELLED should be terminal")
	}
}

func TestCandleBucket_FloorsToMinute(t *testing.T) {
	cases := []struct {
		ts, want int64
	}{
		{1700000000, 1699999980},
		{1699999980, 1699999980},
		{1699999981, 1699999980},
		{1700000039, 1699999980},
		{1700000040, 1700000040},
		{0, 0},
	}

	for _, tc := range cases {
		if got := entity.CandleBucket(tc.ts); got != tc.want {
			t.Errorf("CandleBucket(%d): got %d, want %d", tc.ts, got, tc.want)
		}
	}
}

func TestCandleID(t *testing.T) {
	id := entity.CandleID(entity.Resolution1m, 1699999980)
	if id != "1m-1699999980" {
		t.Errorf("got %q, want %q", id, "1m-1699999980")
	}
}

func TestOrderFillID(t *testing.T) {
	id := entity.OrderFillID("42", "0xabc-2")
	if id != "42:0xabc-2" {
		t.Errorf("got %q, want %q", id, "42:0xabc-2")
	}
}

func TestPosition_IsFlat(t *testing.T) {
	p := &entity.Position{Size: big.NewInt(0)}
	if !p.IsFlat() {
		t.Error("zero size should be flat")
	}
	p.Size = big.NewInt(-3)
	if p.IsFlat() {
		t.Error("short position should not be flat")
	}
}

func TestFundingEvent_Kind(t *testing.T) {
	global := &entity.FundingEvent{Detail: entity.GlobalFundingUpdate{CumulativeRate: big.NewInt(1)}}
	if global.Kind() != entity.FundingGlobalUpdate {
		t.Errorf("got %s, want %s", global.Kind(), entity.FundingGlobalUpdate)
	}

	user := &entity.FundingEvent{Detail: entity.UserFundingPayment{Trader: "0xa", Payment: big.NewInt(-1)}}
	if user.Kind() != entity.FundingUserPaid {
		t.Errorf("got %s, want %s", user.Kind(), entity.FundingUserPaid)
	}

	empty := &entity.FundingEvent{}
	if empty.Kind() != "" {
		t.Errorf("nil detail: got %q, want empty", empty.Kind())
	}
}

// The discriminator strings are part of the stored and served format;
// downstream consumers match on them, so the literals are pinned here.
func TestFundingKind_WireStrings(t *testing.T) {
	if got := string(entity.FundingGlobalUpdate); got != "GLOBAL_UPDATE" {
		t.Errorf("global kind: got %q, want %q", got, "GLOBAL_UPDATE")
	}
	if got := string(entity.FundingUserPaid); got != "USER_PAID" {
		t.Errorf("user kind: got %q, want %q", got, "USER_PAID")
	}
}
