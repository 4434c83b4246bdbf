package worksmachine

import (
	"fmt"
	"strconv"
	"time"

	"github.com/stackerstan/go-nostr"
)

// Event is our local view of a signed Nostr event carrying a command.
type Event struct {
	ID        string
	PubKey    string
	CreatedAt time.Time
	Kind      int64
	Tags      nostr.Tags
	Content   string
	Sig       string
}

//GetSingleTag returns the value of the first tag that matches t string.
func (e *Event) GetSingleTag(t string) (value string, ok bool) {
	for _, tag := range e.Tags {
		if len(tag) > 1 {
			if tag[0] == t {
				if len(tag[1]) > 0 {
					return tag[1], true
				}
			}
		}
	}
	return
}

// Sequence returns the signer's sequence number carried in the event tags, 0 if missing.
func (e *Event) Sequence() int64 {
	if seq, ok := e.GetSingleTag("sequence"); ok {
		if s, err := strconv.ParseInt(seq, 10, 64); err == nil {
			return s
		}
	}
	return 0
}

func (e *Event) CheckSignature() (bool, error) {
	n := e.Nostr()
	if n.GetID() != e.ID {
		return false, fmt.Errorf("event id %s does not match its contents", e.ID)
	}
	return n.CheckSignature()
}

func (e *Event) Nostr() nostr.Event {
	return nostr.Event{
		ID:        e.ID,
		PubKey:    e.PubKey,
		CreatedAt: e.CreatedAt,
		Kind:      int(e.Kind),
		Tags:      e.Tags,
		Content:   e.Content,
		Sig:       e.Sig,
	}
}

//ConvertToInternalEvent parses a nostr event and converts it to a locally Typed event
func ConvertToInternalEvent(evt *nostr.Event) Event {
	return Event{
		ID:        evt.ID,
		PubKey:    evt.PubKey,
		CreatedAt: evt.CreatedAt,
		Kind:      int64(evt.Kind),
		Tags:      evt.Tags,
		Content:   evt.Content,
		Sig:       evt.Sig,
	}
}

// SignEvent fills in the public key, id and signature of evt using the wallet.
func SignEvent(evt *nostr.Event, wallet Wallet) error {
	evt.PubKey = wallet.Account
	evt.ID = evt.GetID()
	return evt.Sign(wallet.PrivateKey)
}
