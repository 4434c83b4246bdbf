package worksmachine

import (
	"testing"
	"time"

	"github.com/stackerstan/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletSignsEvents(t *testing.T) {
	w, err := NewWallet()
	require.NoError(t, err)
	require.Len(t, w.Account, 64)

	again, err := WalletFromSeedWords(w.SeedWords)
	require.NoError(t, err)
	assert.Equal(t, w, again)

	n := nostr.Event{
		CreatedAt: time.Unix(1700000000, 0),
		Kind:      641000,
		Tags:      nostr.Tags{nostr.Tag{"sequence", "7"}},
		Content:   `{"amount":"1.0000 TLOS"}`,
	}
	require.NoError(t, SignEvent(&n, w))
	e := ConvertToInternalEvent(&n)
	ok, err := e.CheckSignature()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), e.Sequence())
	assert.Equal(t, w.Account, e.PubKey)

	e.Content = `{"amount":"2.0000 TLOS"}`
	ok, _ = e.CheckSignature()
	assert.False(t, ok)
}

func TestSignAndVerify(t *testing.T) {
	w, err := NewWallet()
	require.NoError(t, err)
	sig, err := Sign([]byte("hello"), w.PrivateKey)
	require.NoError(t, err)
	assert.True(t, VerifySignature([]byte("hello"), sig, w.Account))
	assert.False(t, VerifySignature([]byte("hellO"), sig, w.Account))
}

func TestInverseBloomFilter(t *testing.T) {
	seen := MakeNewInverseBloomFilter(100)
	assert.True(t, seen("a"))
	assert.False(t, seen("a"))
	assert.True(t, seen("b"))
}

func TestHashSeqIsDeterministic(t *testing.T) {
	hash := func() string {
		var hs HashSeq
		require.NoError(t, hs.AppendData("proposal"))
		require.NoError(t, hs.AppendData(int64(3)))
		require.NoError(t, hs.AppendData(MustParseAsset("1.0000 TLOS")))
		require.NoError(t, hs.AppendData(true))
		hs.S256()
		return hs.Hash
	}
	assert.Equal(t, hash(), hash())
	var hs HashSeq
	assert.Error(t, hs.AppendData(3.5))
}
