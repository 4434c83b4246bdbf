package ballots

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/guilledk/telos-works/consensus/tally"
	"github.com/guilledk/telos-works/database"
	"github.com/guilledk/telos-works/worksmachine"
)

const source = "votesource"

func newStore(t *testing.T, voteSource string) (*Store, *database.Store) {
	db, err := database.New(t.TempDir())
	require.NoError(t, err)
	return New(db, voteSource, worksmachine.MustParseAsset("1000.0000 VOTE")), db
}

func vote(signer, content string) worksmachine.Event {
	return worksmachine.Event{PubKey: signer, Kind: KindCastVote, Content: content}
}

func TestOpenAndVote(t *testing.T) {
	s, _ := newStore(t, source)
	_, err := s.Open("works1", "works1", 1, 1000, 300, "VOTE")
	require.NoError(t, err)
	assert.Error(t, s.CanOpen("works1"))
	_, err = s.Open("works1", "works1", 1, 1000, 300, "VOTE")
	assert.True(t, errors.Is(err, worksmachine.ErrDuplicate))

	b, ok := s.Get("works1")
	require.True(t, ok)
	assert.Equal(t, Open, b.Status)
	assert.Equal(t, int64(1300), b.EndsAt)
	assert.Equal(t, "0.0000 VOTE", b.Results.Yes.String())
	assert.Equal(t, "1000.0000 VOTE", b.Supply.String())

	_, err = s.HandleEvent(vote(source, `{"ballot":"works1","voter":"alice","weight":"30.0000 VOTE","choice":"yes","supply":"2000.0000 VOTE"}`))
	require.NoError(t, err)
	_, err = s.HandleEvent(vote(source, `{"ballot":"works1","voter":"alice","weight":"30.0000 VOTE","choice":"no"}`))
	assert.True(t, errors.Is(err, worksmachine.ErrAlreadyVoted))
	_, err = s.HandleEvent(vote("alice", `{"ballot":"works1","voter":"bob","weight":"30.0000 VOTE","choice":"no"}`))
	assert.True(t, errors.Is(err, worksmachine.ErrUnauthorized))
	_, err = s.HandleEvent(vote(source, `{"ballot":"nope","voter":"bob","weight":"30.0000 VOTE","choice":"no"}`))
	assert.True(t, errors.Is(err, worksmachine.ErrNotFound))
	_, err = s.HandleEvent(vote(source, `{"ballot":"works1","voter":"bob","weight":"30.0000 TLOS","choice":"no"}`))
	assert.True(t, errors.Is(err, worksmachine.ErrInvalidAmount))
	_, err = s.HandleEvent(vote(source, `{"ballot":"works1","voter":"bob","weight":"30.0000 VOTE","choice":"maybe"}`))
	assert.True(t, errors.Is(err, worksmachine.ErrValidation))

	b, _ = s.Get("works1")
	assert.Equal(t, "30.0000 VOTE", b.Results.Yes.String())
	assert.Equal(t, "2000.0000 VOTE", b.Supply.String())
	assert.Len(t, b.Voters, 1)
}

func TestVotersSignForThemselvesWithoutSource(t *testing.T) {
	s, _ := newStore(t, "")
	_, err := s.Open("works1", "works1", 1, 0, 300, "VOTE")
	require.NoError(t, err)
	_, err = s.HandleEvent(vote("alice", `{"ballot":"works1","weight":"5.0000 VOTE","choice":"abstain"}`))
	require.NoError(t, err)
	_, err = s.HandleEvent(vote("alice", `{"ballot":"works1","voter":"bob","weight":"5.0000 VOTE","choice":"yes"}`))
	assert.True(t, errors.Is(err, worksmachine.ErrUnauthorized))
	b, _ := s.Get("works1")
	assert.Equal(t, tally.Abstain, b.Voters["alice"])
}

func TestEvaluateAndClose(t *testing.T) {
	s, _ := newStore(t, source)
	_, err := s.Open("works1", "works1", 1, 0, 300, "VOTE")
	require.NoError(t, err)
	_, err = s.HandleEvent(vote(source, `{"ballot":"works1","voter":"alice","weight":"51.0000 VOTE","choice":"yes","supply":"2000.0000 VOTE"}`))
	require.NoError(t, err)
	_, err = s.HandleEvent(vote(source, `{"ballot":"works1","voter":"bob","weight":"49.0000 VOTE","choice":"no"}`))
	require.NoError(t, err)

	normal := tally.Thresholds{Quorum: 5, Approval: 50}
	refund := tally.Thresholds{Quorum: 3, Approval: 35}
	_, passed, refunded, err := s.Evaluate("works1", normal, refund)
	require.NoError(t, err)
	assert.True(t, passed.Passed())
	assert.True(t, refunded.Passed())

	_, err = s.Close("works1", passed, refunded)
	require.NoError(t, err)
	_, _, _, err = s.Evaluate("works1", normal, refund)
	assert.True(t, errors.Is(err, worksmachine.ErrInvalidStatus))
	_, err = s.HandleEvent(vote(source, `{"ballot":"works1","voter":"carol","weight":"1.0000 VOTE","choice":"no"}`))
	assert.True(t, errors.Is(err, worksmachine.ErrInvalidStatus))

	b, _ := s.Get("works1")
	assert.Equal(t, Closed, b.Status)
	require.NotNil(t, b.Outcome)
	assert.Equal(t, tally.Passed, b.Outcome.Verdict)
}

func TestBallotsSurviveRestart(t *testing.T) {
	defer goleak.VerifyNone(t)
	s, db := newStore(t, source)
	terminate := make(chan struct{})
	wg := &sync.WaitGroup{}
	s.StartDb(terminate, wg)
	_, err := s.Open("works1", "works1", 1, 0, 300, "VOTE")
	require.NoError(t, err)
	_, err = s.HandleEvent(vote(source, `{"ballot":"works1","voter":"alice","weight":"1.0000 VOTE","choice":"yes"}`))
	require.NoError(t, err)
	close(terminate)
	wg.Wait()

	restarted := New(db, source, worksmachine.MustParseAsset("1.0000 VOTE"))
	terminate = make(chan struct{})
	restarted.StartDb(terminate, wg)
	b, ok := restarted.Get("works1")
	require.True(t, ok)
	assert.Equal(t, tally.Yes, b.Voters["alice"])
	assert.Len(t, restarted.All(), 1)
	close(terminate)
	wg.Wait()
}
