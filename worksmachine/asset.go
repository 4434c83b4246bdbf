package worksmachine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AssetPrecision is the number of decimal places every amount carries.
const AssetPrecision = 4

// MaxAssetAmount is the largest magnitude an Asset may hold, in units.
const MaxAssetAmount int64 = 1<<62 - 1

// Asset is a fixed point token amount, Amount counts units of 10^-4.
type Asset struct {
	Amount int64
	Symbol string
}

func NewAsset(amount int64, symbol string) Asset {
	return Asset{Amount: amount, Symbol: symbol}
}

// ParseAsset reads the "1000.0000 TLOS" form. Exactly four decimals are required.
func ParseAsset(s string) (Asset, error) {
	parts := strings.Fields(s)
	if len(parts) == 1 {
		parts = append(parts, "")
	}
	if len(parts) != 2 {
		return Asset{}, fmt.Errorf("%w: asset %q must be <amount> <symbol>", ErrMalformed, s)
	}
	dot := strings.IndexByte(parts[0], '.')
	if dot == -1 || len(parts[0])-dot-1 != AssetPrecision {
		return Asset{}, fmt.Errorf("%w: asset %q must have %d decimals", ErrMalformed, s, AssetPrecision)
	}
	d, err := decimal.NewFromString(parts[0])
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %s", ErrMalformed, err.Error())
	}
	units := d.Shift(AssetPrecision)
	if !units.IsInteger() {
		return Asset{}, fmt.Errorf("%w: asset %q has too many decimals", ErrMalformed, s)
	}
	if units.Abs().GreaterThan(decimal.NewFromInt(MaxAssetAmount)) {
		return Asset{}, fmt.Errorf("%w: asset %q is out of range", ErrInvalidAmount, s)
	}
	return Asset{Amount: units.IntPart(), Symbol: parts[1]}, nil
}

// MustParseAsset panics on malformed input, it is meant for constants and tests.
func MustParseAsset(s string) Asset {
	a, err := ParseAsset(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Asset) Decimal() decimal.Decimal {
	return decimal.New(a.Amount, -AssetPrecision)
}

func (a Asset) String() string {
	if len(a.Symbol) == 0 {
		return a.Decimal().StringFixed(AssetPrecision)
	}
	return a.Decimal().StringFixed(AssetPrecision) + " " + a.Symbol
}

func (a Asset) IsZero() bool {
	return a.Amount == 0
}

func (a Asset) IsPositive() bool {
	return a.Amount > 0
}

func (a Asset) IsNegative() bool {
	return a.Amount < 0
}

func (a Asset) Zero() Asset {
	return Asset{Symbol: a.Symbol}
}

func (a Asset) sameSymbol(b Asset) error {
	if a.Symbol != b.Symbol {
		return fmt.Errorf("%w: symbol mismatch %s != %s", ErrInvalidAmount, a.Symbol, b.Symbol)
	}
	return nil
}

func (a Asset) Add(b Asset) (Asset, error) {
	if err := a.sameSymbol(b); err != nil {
		return Asset{}, err
	}
	return Asset{Amount: a.Amount + b.Amount, Symbol: a.Symbol}, nil
}

func (a Asset) Sub(b Asset) (Asset, error) {
	if err := a.sameSymbol(b); err != nil {
		return Asset{}, err
	}
	return Asset{Amount: a.Amount - b.Amount, Symbol: a.Symbol}, nil
}

// Cmp returns -1, 0 or +1. Assets with different symbols compare by amount only.
func (a Asset) Cmp(b Asset) int {
	switch {
	case a.Amount < b.Amount:
		return -1
	case a.Amount > b.Amount:
		return 1
	}
	return 0
}

// Min returns the smaller of a and b.
func (a Asset) Min(b Asset) Asset {
	if b.Amount < a.Amount {
		return b
	}
	return a
}

// Percent returns percent % of a, truncated to the asset precision.
func (a Asset) Percent(percent float64) Asset {
	p := a.Decimal().Mul(decimal.NewFromFloat(percent)).Div(decimal.NewFromInt(100))
	return Asset{Amount: p.Shift(AssetPrecision).Truncate(0).IntPart(), Symbol: a.Symbol}
}

// Div splits a into n equal parts and returns the part and the remainder.
func (a Asset) Div(n int64) (part, remainder Asset) {
	if n <= 0 {
		return a.Zero(), a
	}
	return Asset{Amount: a.Amount / n, Symbol: a.Symbol}, Asset{Amount: a.Amount % n, Symbol: a.Symbol}
}

func (a Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Asset) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseAsset(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
