package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/guilledk/telos-works/auxiliarium/ballots"
	"github.com/guilledk/telos-works/auxiliarium/proposals"
	"github.com/guilledk/telos-works/consensus/ledger"
	"github.com/guilledk/telos-works/worksmachine"
)

func notFound(what, key string) error {
	return fmt.Errorf("%w: %s %s", worksmachine.ErrNotFound, what, key)
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.conductor.Policy())
}

func (s *Server) handleTreasury(w http.ResponseWriter, r *http.Request) {
	t := s.conductor.Ledger().Treasury()
	writeJSON(w, http.StatusOK, treasuryView{
		Treasury: t,
		Balanced: t.Available.Amount+t.Reserved.Amount+t.Paid.Amount == t.Deposited.Amount,
	})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]
	a, ok := s.conductor.Ledger().Account(owner)
	if !ok {
		writeError(w, notFound("account", owner))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type sequenceResponse struct {
	Account worksmachine.Account `json:"account"`
	Next    int64                `json:"next"`
}

func (s *Server) handleSequence(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]
	writeJSON(w, http.StatusOK, sequenceResponse{Account: owner, Next: s.conductor.NextSequence(owner)})
}

// handleProposals lists every proposal, optionally only those with ?status=.
func (s *Server) handleProposals(w http.ResponseWriter, r *http.Request) {
	status := proposals.Status(r.URL.Query().Get("status"))
	list := []proposals.Proposal{}
	for _, p := range s.conductor.Proposals().All() {
		if len(status) == 0 || p.Status == status {
			list = append(list, p)
		}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) proposal(w http.ResponseWriter, r *http.Request) (proposals.Proposal, bool) {
	name := mux.Vars(r)["name"]
	p, ok := s.conductor.Proposals().Get(name)
	if !ok {
		writeError(w, notFound("proposal", name))
	}
	return p, ok
}

func (s *Server) handleProposal(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.proposal(w, r); ok {
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	p, ok := s.proposal(w, r)
	if !ok {
		return
	}
	versions, err := proposals.Versions(p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (s *Server) handleMilestones(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	ms, ok := s.conductor.Proposals().Milestones(name)
	if !ok {
		writeError(w, notFound("proposal", name))
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

func (s *Server) handleMilestone(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("%w: milestone id %s", worksmachine.ErrMalformed, vars["id"]))
		return
	}
	m, ok := s.conductor.Proposals().Milestone(vars["name"], id)
	if !ok {
		writeError(w, notFound("milestone", fmt.Sprintf("%s/%d", vars["name"], id)))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleBallots(w http.ResponseWriter, r *http.Request) {
	list := []ballots.Ballot{}
	list = append(list, s.conductor.Ballots().All()...)
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleBallot(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	b, ok := s.conductor.Ballots().Get(name)
	if !ok {
		writeError(w, notFound("ballot", name))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// treasuryView is the treasury as served, with the conservation identity spelled out.
type treasuryView struct {
	ledger.Treasury
	Balanced bool `json:"balanced"`
}
