package chain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func TestParseCoins(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Coin
	}{
		{name: "single", input: "1500ncheq", want: []Coin{{Amount: "1500", Denom: "ncheq"}}},
		{name: "multiple", input: "10uatom,1500ncheq", want: []Coin{{Amount: "10", Denom: "uatom"}, {Amount: "1500", Denom: "ncheq"}}},
		{name: "ibc denom", input: "7ibc/ABCD", want: []Coin{{Amount: "7", Denom: "ibc/ABCD"}}},
		{name: "no amount", input: "ncheq", want: nil},
		{name: "no denom", input: "1500", want: nil},
		{name: "empty", input: "", want: nil},
		{name: "garbage skipped", input: "abc,5ncheq", want: []Coin{{Amount: "5", Denom: "ncheq"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCoins(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseCoins(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestSumDenom(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"1500ncheq", "1500", true},
		{"10uatom,1500ncheq,500ncheq", "2000", true},
		{"10uatom", "0", false},
		{"not-a-number", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := SumDenom(tt.input, "ncheq")
			if ok != tt.wantOK {
				t.Fatalf("SumDenom(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got.String() != tt.want {
				t.Errorf("SumDenom(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestUnitToDisplay(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"1000000000", "1"},
		{"5000000000", "5"},
		{"1000000", "0.001"},
		{"1", "0.000000001"},
		{"0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got := CHEQ.ToDisplay(decimal.RequireFromString(tt.base))
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ToDisplay(%s) = %s, want %s", tt.base, got, tt.want)
			}
		})
	}
}

func TestUnitValue(t *testing.T) {
	tests := []struct {
		name   string
		coin   Coin
		want   string
		wantOK bool
	}{
		{name: "native", coin: Coin{Denom: "ncheq", Amount: "42"}, want: "42", wantOK: true},
		{name: "missing denom treated as native", coin: Coin{Amount: "42"}, want: "42", wantOK: true},
		{name: "foreign denom", coin: Coin{Denom: "uatom", Amount: "42"}, wantOK: false},
		{name: "empty amount", coin: Coin{Denom: "ncheq"}, wantOK: false},
		{name: "negative amount", coin: Coin{Denom: "ncheq", Amount: "-1"}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CHEQ.Value(tt.coin)
			if ok != tt.wantOK {
				t.Fatalf("Value() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.String() != tt.want {
				t.Errorf("Value() = %s, want %s", got, tt.want)
			}
		})
	}
}
