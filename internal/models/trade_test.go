package models

import (
	"testing"
	"time"
)

func TestRealizedPnL(t *testing.T) {
	entry := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	exit := entry.Add(2 * time.Hour)

	price := func(v int64) *int64 { return &v }

	cases := []struct {
		name  string
		trade Trade
		want  int64
		ok    bool
	}{
		{
			name: "long winner",
			trade: Trade{
				Direction: DirectionLong, Quantity: 10,
				EntryPrice: 10000, ExitPrice: price(10500),
				EntryAt: entry, ExitAt: &exit, Fees: 200,
			},
			want: 4800, ok: true,
		},
		{
			name: "short winner",
			trade: Trade{
				Direction: DirectionShort, Quantity: 5,
				EntryPrice: 20000, ExitPrice: price(19000),
				EntryAt: entry, ExitAt: &exit, Fees: 100,
			},
			want: 4900, ok: true,
		},
		{
			name: "long loser",
			trade: Trade{
				Direction: DirectionLong, Quantity: 2,
				EntryPrice: 50000, ExitPrice: price(49000),
				EntryAt: entry, ExitAt: &exit,
			},
			want: -2000, ok: true,
		},
		{
			name: "fractional quantity rounds",
			trade: Trade{
				Direction: DirectionLong, Quantity: 0.5,
				EntryPrice: 10001, ExitPrice: price(10102),
				EntryAt: entry, ExitAt: &exit,
			},
			want: 51, ok: true, // 101 * 0.5 = 50.5, rounds to 51
		},
		{
			name: "open position",
			trade: Trade{
				Direction: DirectionLong, Quantity: 1,
				EntryPrice: 10000, EntryAt: entry,
			},
			want: 0, ok: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.trade.RealizedPnL()
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if got != tc.want {
				t.Errorf("pnl = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestTradeIsClosed(t *testing.T) {
	entry := time.Now()
	exitPrice := int64(100)
	if (&Trade{EntryAt: entry}).IsClosed() {
		t.Error("open trade reported closed")
	}
	if (&Trade{EntryAt: entry, ExitPrice: &exitPrice}).IsClosed() {
		t.Error("trade without exit time reported closed")
	}
	exit := entry.Add(time.Hour)
	if !(&Trade{EntryAt: entry, ExitPrice: &exitPrice, ExitAt: &exit}).IsClosed() {
		t.Error("closed trade reported open")
	}
}

func TestRefreshTokenActive(t *testing.T) {
	now := time.Now()
	revoked := now.Add(-time.Minute)

	tok := RefreshToken{ExpiresAt: now.Add(time.Hour)}
	if !tok.Active(now) {
		t.Error("unrevoked unexpired token reported inactive")
	}

	tok.RevokedAt = &revoked
	if tok.Active(now) {
		t.Error("revoked token reported active")
	}

	expired := RefreshToken{ExpiresAt: now.Add(-time.Second)}
	if expired.Active(now) {
		t.Error("expired token reported active")
	}
}
