package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/stackerstan/go-nostr"

	"github.com/guilledk/telos-works/worksmachine"
)

type submitResponse struct {
	EventID  string `json:"event_id"`
	Mind     string `json:"mind"`
	Hash     string `json:"hash"`
	Sequence int64  `json:"sequence"`
}

// handleSubmit takes one signed Nostr event in the body and hands it to the Conductor.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageSize))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %s", worksmachine.ErrMalformed, err.Error()))
		return
	}
	var evt nostr.Event
	if err := json.Unmarshal(body, &evt); err != nil {
		writeError(w, fmt.Errorf("%w: %s", worksmachine.ErrMalformed, err.Error()))
		return
	}
	hs, err := s.conductor.HandleMessage(worksmachine.ConvertToInternalEvent(&evt))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		EventID:  evt.ID,
		Mind:     hs.Mind,
		Hash:     hs.Hash,
		Sequence: hs.Sequence,
	})
}
