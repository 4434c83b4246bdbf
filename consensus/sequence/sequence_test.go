package sequence

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/guilledk/telos-works/database"
	"github.com/guilledk/telos-works/worksmachine"
)

func TestSequenceMustIncrementByOne(t *testing.T) {
	defer goleak.VerifyNone(t)
	db, err := database.New(t.TempDir())
	require.NoError(t, err)
	s := New(db)
	terminate := make(chan struct{})
	wg := &sync.WaitGroup{}
	s.StartDb(terminate, wg)

	assert.Equal(t, int64(0), s.GetSequence("alice"))
	assert.True(t, errors.Is(s.Check("alice", 2), worksmachine.ErrBadSequence))
	require.NoError(t, s.Check("alice", 1))
	_, err = s.Advance("alice", 1)
	require.NoError(t, err)
	_, err = s.Advance("alice", 1)
	assert.True(t, errors.Is(err, worksmachine.ErrBadSequence))
	_, err = s.Advance("alice", 2)
	require.NoError(t, err)
	close(terminate)
	wg.Wait()

	restarted := New(db)
	terminate = make(chan struct{})
	restarted.StartDb(terminate, wg)
	assert.Equal(t, int64(2), restarted.GetSequence("alice"))
	assert.Len(t, restarted.AllSequences(), 1)
	close(terminate)
	wg.Wait()
}
