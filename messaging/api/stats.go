package api

import (
	"errors"
	"net/http"

	"github.com/montanaflynn/stats"

	"github.com/guilledk/telos-works/auxiliarium/proposals"
	"github.com/guilledk/telos-works/consensus/ledger"
	"github.com/guilledk/telos-works/worksmachine"
)

type Summary struct {
	Proposals       map[proposals.Status]int `json:"proposals"`
	RequestedMedian float64                  `json:"requested_median"`
	RequestedMean   float64                  `json:"requested_mean"`
	RequestedMax    float64                  `json:"requested_max"`
	ClosedBallots   int                      `json:"closed_ballots"`
	TurnoutMedian   float64                  `json:"turnout_median"`
	TurnoutP90      float64                  `json:"turnout_p90"`
	PassRate        float64                  `json:"pass_rate"`
	Treasury        ledger.Treasury          `json:"treasury"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Summary()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Summary aggregates the proposals and closed ballots. Empty inputs give zero values.
func (s *Server) Summary() (sum Summary, err error) {
	sum.Proposals = make(map[proposals.Status]int)
	sum.Treasury = s.conductor.Ledger().Treasury()
	var requested stats.Float64Data
	for _, p := range s.conductor.Proposals().All() {
		sum.Proposals[p.Status]++
		requested = append(requested, p.TotalRequested.Decimal().InexactFloat64())
	}
	var turnout stats.Float64Data
	var passed float64
	for _, b := range s.conductor.Ballots().All() {
		if b.Outcome == nil {
			continue
		}
		sum.ClosedBallots++
		turnout = append(turnout, b.Outcome.Turnout)
		if b.Outcome.Passed() {
			passed++
		}
	}
	if sum.ClosedBallots > 0 {
		sum.PassRate = passed / float64(sum.ClosedBallots) * 100
	}
	if sum.RequestedMedian, err = orZero(requested.Median()); err != nil {
		return
	}
	if sum.RequestedMean, err = orZero(requested.Mean()); err != nil {
		return
	}
	if sum.RequestedMax, err = orZero(requested.Max()); err != nil {
		return
	}
	if sum.TurnoutMedian, err = orZero(turnout.Median()); err != nil {
		return
	}
	sum.TurnoutP90, err = orZero(turnout.Percentile(90))
	return
}

func orZero(v float64, err error) (float64, error) {
	if errors.Is(err, stats.ErrEmptyInput) {
		return 0, nil
	}
	if err != nil {
		worksmachine.LogCLI(err.Error(), 2)
	}
	return v, err
}
