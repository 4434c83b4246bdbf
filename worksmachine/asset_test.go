package worksmachine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAsset(t *testing.T) {
	a, err := ParseAsset("1000.0000 TLOS")
	require.NoError(t, err)
	assert.Equal(t, int64(10000000), a.Amount)
	assert.Equal(t, "TLOS", a.Symbol)
	assert.Equal(t, "1000.0000 TLOS", a.String())

	a, err = ParseAsset("0.0001 VOTE")
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.Amount)

	for _, bad := range []string{"", "1000 TLOS", "1000.00 TLOS", "1.00000 TLOS", "abc.defg TLOS", "1.0000 TLOS extra"} {
		_, err := ParseAsset(bad)
		assert.Error(t, err, bad)
		assert.True(t, errors.Is(err, ErrValidation), bad)
	}
}

func TestParseAssetRange(t *testing.T) {
	a, err := ParseAsset("461168601842738.7903 TLOS")
	require.NoError(t, err)
	assert.Equal(t, MaxAssetAmount, a.Amount)
	a, err = ParseAsset("-461168601842738.7903 TLOS")
	require.NoError(t, err)
	assert.Equal(t, -MaxAssetAmount, a.Amount)

	for _, bad := range []string{"461168601842738.7904 TLOS", "922337203685477.5808 TLOS", "1844674407370955.1617 TLOS", "-922337203685477.5809 TLOS"} {
		_, err := ParseAsset(bad)
		assert.True(t, errors.Is(err, ErrInvalidAmount), bad)
	}

	var w struct {
		Amount Asset `json:"amount"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"amount":"1844674407370955.1617 TLOS"}`), &w))
}

func TestAssetJSON(t *testing.T) {
	type wrapper struct {
		Amount Asset `json:"amount"`
	}
	b, err := json.Marshal(wrapper{Amount: MustParseAsset("30.0000 TLOS")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"30.0000 TLOS"}`, string(b))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"12.3400 TLOS"}`), &w))
	assert.Equal(t, int64(123400), w.Amount.Amount)
	assert.Error(t, json.Unmarshal([]byte(`{"amount":"12.34 TLOS"}`), &w))
}

func TestAssetArithmetic(t *testing.T) {
	a := MustParseAsset("100.0000 TLOS")
	b := MustParseAsset("40.0000 TLOS")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "140.0000 TLOS", sum.String())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, "60.0000 TLOS", diff.String())

	_, err = a.Add(MustParseAsset("1.0000 VOTE"))
	assert.True(t, errors.Is(err, ErrInvalidAmount))

	assert.Equal(t, b, a.Min(b))
	assert.Equal(t, 1, a.Cmp(b))
	assert.Equal(t, 0, a.Cmp(a))
}

func TestAssetPercentAndDiv(t *testing.T) {
	a := MustParseAsset("1200.0000 TLOS")
	assert.Equal(t, "60.0000 TLOS", a.Percent(5).String())
	assert.Equal(t, "0.0000 TLOS", MustParseAsset("0.0001 TLOS").Percent(5).String())

	part, rem := MustParseAsset("1000.0000 TLOS").Div(3)
	assert.Equal(t, "333.3333 TLOS", part.String())
	assert.Equal(t, "0.0001 TLOS", rem.String())
}

func TestCategory(t *testing.T) {
	assert.Equal(t, ErrValidation, Category(ErrMilestoneBoundExceeded))
	assert.Equal(t, ErrState, Category(ErrNotRemovable))
	assert.Equal(t, ErrInsufficientFunds, Category(ErrReserveUnderflow))
	assert.Nil(t, Category(errors.New("other")))
}
