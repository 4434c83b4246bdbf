package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/guilledk/telos-works/auxiliarium/ballots"
	"github.com/guilledk/telos-works/auxiliarium/proposals"
	"github.com/guilledk/telos-works/consensus/conductor"
	"github.com/guilledk/telos-works/consensus/policy"
	"github.com/guilledk/telos-works/database"
	"github.com/guilledk/telos-works/messaging/eventers"
	"github.com/guilledk/telos-works/worksmachine"
)

type fixture struct {
	t         *testing.T
	conductor *conductor.Conductor
	server    *Server
	http      *httptest.Server
	terminate chan struct{}
	wg        *sync.WaitGroup
	admin     *eventers.Eventer
	alice     *eventers.Eventer
	source    *eventers.Eventer
}

func newEventer(t *testing.T) *eventers.Eventer {
	w, err := worksmachine.NewWallet()
	require.NoError(t, err)
	return eventers.New(w, 0)
}

func newFixture(t *testing.T) *fixture {
	db, err := database.New(t.TempDir())
	require.NoError(t, err)
	f := &fixture{t: t, admin: newEventer(t), alice: newEventer(t), source: newEventer(t)}
	genesis := policy.Default()
	genesis.Admin = f.admin.Wallet.Account
	genesis.FeeSink = "feesink"
	registry := prometheus.NewRegistry()
	f.conductor = conductor.New(db, conductor.Options{
		Genesis:        genesis,
		VoteSource:     f.source.Wallet.Account,
		FallbackSupply: worksmachine.MustParseAsset("0.0000 VOTE"),
		Registry:       registry,
	})
	f.terminate = make(chan struct{})
	f.wg = &sync.WaitGroup{}
	f.conductor.Start(f.terminate, f.wg)
	f.server = New(f.conductor, registry)
	f.http = httptest.NewServer(f.server.Handler())
	return f
}

func (f *fixture) close() {
	f.server.Close()
	f.http.Close()
	close(f.terminate)
	f.wg.Wait()
}

func (f *fixture) post(e worksmachine.Event, err error) *http.Response {
	require.NoError(f.t, err)
	n := e.Nostr()
	b, err := json.Marshal(&n)
	require.NoError(f.t, err)
	resp, err := http.Post(f.http.URL+"/v1/events", "application/json", bytes.NewReader(b))
	require.NoError(f.t, err)
	return resp
}

func (f *fixture) mustPost(e worksmachine.Event, err error) {
	resp := f.post(e, err)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		f.t.Fatalf("POST returned %d: %s", resp.StatusCode, body)
	}
}

func (f *fixture) get(path string, v interface{}) int {
	resp, err := http.Get(f.http.URL + path)
	require.NoError(f.t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(f.t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func tlos(s string) worksmachine.Asset {
	return worksmachine.MustParseAsset(s + " TLOS")
}

func TestReadEndpoints(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	defer f.close()

	f.mustPost(f.alice.Deposit(tlos("100.0000")))

	var tr map[string]interface{}
	require.Equal(t, http.StatusOK, f.get("/v1/treasury", &tr))
	assert.Equal(t, "100.0000 TLOS", tr["available_funds"])
	assert.Equal(t, true, tr["balanced"])

	var account map[string]interface{}
	require.Equal(t, http.StatusOK, f.get("/v1/accounts/"+f.alice.Wallet.Account, &account))
	assert.Equal(t, "100.0000 TLOS", account["balance"])
	assert.Equal(t, http.StatusNotFound, f.get("/v1/accounts/nobody", nil))

	var p policy.Policy
	require.Equal(t, http.StatusOK, f.get("/v1/policy", &p))
	assert.Equal(t, "Telos Works", p.AppName)
	assert.Equal(t, "30.0000 TLOS", p.MinFee.String())

	var seq sequenceResponse
	require.Equal(t, http.StatusOK, f.get("/v1/sequence/"+f.alice.Wallet.Account, &seq))
	assert.Equal(t, int64(2), seq.Next)
}

func TestSubmitMapsErrorCategories(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	defer f.close()

	resp := f.post(eventers.New(f.alice.Wallet, 0).Withdraw(tlos("1.0000")))
	resp.Body.Close()
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	resp = f.post(eventers.New(f.alice.Wallet, 0).SetVersion("v9"))
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.post(eventers.New(f.alice.Wallet, 0).Submit("nothing"))
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.post(eventers.New(f.alice.Wallet, 0).Draft(proposals.Kind641100{Name: "tiny", Title: "t", Description: "d", Content: "c", Category: "x", TotalRequested: tlos("1.0000"), Milestones: 1}))
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Post(f.http.URL+"/v1/events", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	var apiErr apiError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, apiErr.Error)
}

func TestProposalEndpoints(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	defer f.close()

	f.mustPost(f.admin.Fund(tlos("10000.0000")))
	f.mustPost(f.alice.Draft(proposals.Kind641100{
		Name:           "explorer",
		Title:          "Community block explorer",
		Description:    "An open source block explorer",
		Content:        "v1",
		Category:       "tooling",
		TotalRequested: tlos("1200.0000"),
		Milestones:     3,
	}))
	f.mustPost(f.alice.Edit(proposals.Kind641102{Name: "explorer", Content: "v2"}))

	var list []proposals.Proposal
	require.Equal(t, http.StatusOK, f.get("/v1/proposals?status=drafting", &list))
	require.Len(t, list, 1)
	assert.Equal(t, "explorer", list[0].Name)
	require.Equal(t, http.StatusOK, f.get("/v1/proposals?status=accepted", &list))
	assert.Empty(t, list)

	var versions []string
	require.Equal(t, http.StatusOK, f.get("/v1/proposals/explorer/versions", &versions))
	assert.Equal(t, []string{"v2", "v1"}, versions)

	var ms []proposals.Milestone
	require.Equal(t, http.StatusOK, f.get("/v1/proposals/explorer/milestones", &ms))
	assert.Len(t, ms, 3)
	var m proposals.Milestone
	require.Equal(t, http.StatusOK, f.get("/v1/proposals/explorer/milestones/2", &m))
	assert.Equal(t, "400.0000 TLOS", m.Requested.String())
	assert.Equal(t, proposals.Queued, m.Status)
	assert.Equal(t, http.StatusNotFound, f.get("/v1/proposals/explorer/milestones/9", nil))
	assert.Equal(t, http.StatusNotFound, f.get("/v1/proposals/nothing", nil))

	assert.Equal(t, http.StatusNotFound, f.get("/v1/ballots/explorer", nil))
	f.mustPost(f.alice.Submit("explorer"))
	var b ballots.Ballot
	require.Equal(t, http.StatusOK, f.get("/v1/ballots/explorer", &b))
	assert.Equal(t, ballots.Open, b.Status)

	vote := func(voter, weight, choice string) {
		f.mustPost(f.source.Vote(ballots.Kind641200{
			Ballot: "explorer",
			Voter:  voter,
			Weight: worksmachine.MustParseAsset(weight + " VOTE"),
			Choice: choice,
			Supply: worksmachine.MustParseAsset("2000.0000 VOTE"),
		}))
	}
	vote("alice", "51.0000", "yes")
	vote("bob", "49.0000", "no")
	f.mustPost(f.alice.Resolve("explorer"))

	var sum Summary
	require.Equal(t, http.StatusOK, f.get("/v1/stats", &sum))
	assert.Equal(t, 1, sum.Proposals[proposals.Accepted])
	assert.Equal(t, 1, sum.ClosedBallots)
	assert.Equal(t, 1200.0, sum.RequestedMedian)
	assert.Equal(t, 100.0, sum.PassRate)
	assert.InDelta(t, 5.0, sum.TurnoutMedian, 0.0001)
}

func TestEmptyStats(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	defer f.close()

	sum, err := f.server.Summary()
	require.NoError(t, err)
	assert.Zero(t, sum.RequestedMean)
	assert.Zero(t, sum.TurnoutP90)
	assert.Empty(t, sum.Proposals)
}

func TestFeed(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	defer f.close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(f.http.URL, "http")+"/v1/feed", nil)
	require.NoError(t, err)
	defer conn.Close()

	f.mustPost(f.alice.Deposit(tlos("5.0000")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var committed conductor.Committed
	require.NoError(t, conn.ReadJSON(&committed))
	assert.Equal(t, f.alice.Wallet.Account, committed.Signer)
	assert.Equal(t, int64(1), committed.Sequence)
	assert.Equal(t, "ledger", committed.Mind)

	// closing the server ends the feed
	f.server.Close()
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}

func TestMetricsEndpoint(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	defer f.close()

	f.mustPost(f.alice.Deposit(tlos("5.0000")))
	resp, err := http.Get(f.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `works_commands_total{kind="641000",result="ok"} 1`)
	assert.Contains(t, string(body), `works_treasury_funds{pool="available"} 5`)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(worksmachine.ErrMilestoneBoundExceeded))
	assert.Equal(t, http.StatusConflict, StatusFor(worksmachine.ErrNotRemovable))
	assert.Equal(t, http.StatusPaymentRequired, StatusFor(worksmachine.ErrInsufficientTreasury))
	assert.Equal(t, http.StatusNotFound, StatusFor(worksmachine.ErrNotFound))
	assert.Equal(t, http.StatusForbidden, StatusFor(worksmachine.ErrUnauthorized))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}
