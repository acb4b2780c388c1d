package wheel_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"fortune-wheel-backend/internal/wheel"
)

func TestToBaseUnits(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"10", "10000000000000000000"},
		{"0.5", "500000000000000000"},
		{"1.0000000000000000019", "1000000000000000001"},
	}

	for _, tc := range cases {
		got := wheel.ToBaseUnits(decimal.RequireFromString(tc.in))
		if got.String() != tc.want {
			t.Errorf("ToBaseUnits(%s): expected %s, got %s", tc.in, tc.want, got)
		}
	}
}

func TestMultiplierScaling(t *testing.T) {
	m := wheel.MultiplierFromScaled(big.NewInt(150))
	if !m.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("Expected 1.5, got %s", m)
	}
	if got := wheel.ScaledMultiplier(m); got.Int64() != 150 {
		t.Errorf("Expected 150, got %s", got)
	}
}

func TestPayout(t *testing.T) {
	bet := decimal.NewFromInt(10)
	m := decimal.RequireFromString("1.5")

	if got := wheel.Payout(m, bet, true); got.String() != "15000000000000000000" {
		t.Errorf("Expected win payout 15e18, got %s", got)
	}
	if got := wheel.Payout(m, bet, false); got.Sign() != 0 {
		t.Errorf("Expected zero payout on loss, got %s", got)
	}
}

func TestDecode(t *testing.T) {
	out, err := wheel.Decode(wheel.ContractResult{
		Multiplier:   big.NewInt(200),
		SegmentIndex: big.NewInt(7),
		IsWin:        true,
	})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !out.Multiplier.Equal(decimal.NewFromInt(2)) || out.SegmentIndex != 7 || !out.IsWin {
		t.Errorf("Unexpected outcome: %+v", out)
	}

	if _, err := wheel.Decode(wheel.ContractResult{Multiplier: big.NewInt(1)}); !errors.Is(err, wheel.ErrInvalidResult) {
		t.Errorf("Expected ErrInvalidResult for missing segment, got %v", err)
	}
}

func TestRiskCodes(t *testing.T) {
	for in, want := range map[string]uint8{"low": 0, "Medium": 1, "high": 2} {
		r, err := wheel.ParseRisk(in)
		if err != nil {
			t.Fatalf("ParseRisk(%q) failed: %v", in, err)
		}
		if r.Code() != want {
			t.Errorf("%s: expected code %d, got %d", in, want, r.Code())
		}
	}
	if _, err := wheel.ParseRisk("extreme"); err == nil {
		t.Error("Expected error for unknown tier")
	}
}
