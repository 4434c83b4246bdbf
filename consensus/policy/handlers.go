package policy

import (
	"fmt"
	"strings"

	"github.com/guilledk/telos-works/worksmachine"
)

// HandleEvent applies an administrative command. The caller has already verified the
// signature and the signer's sequence.
func (s *Store) HandleEvent(event worksmachine.Event) (h worksmachine.HashSeq, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if event.PubKey != s.data.Admin {
		return h, fmt.Errorf("%w: %s is not the admin", worksmachine.ErrUnauthorized, event.PubKey)
	}
	switch event.Kind {
	case KindSetVersion:
		return s.handle641300(event)
	case KindSetAdmin:
		return s.handle641302(event)
	}
	return h, fmt.Errorf("%w: %d", worksmachine.ErrUnknownKind, event.Kind)
}

func (s *Store) handle641300(event worksmachine.Event) (h worksmachine.HashSeq, err error) {
	var unmarshalled Kind641300
	if err = json.Unmarshal([]byte(event.Content), &unmarshalled); err != nil {
		return h, fmt.Errorf("%w: %s", worksmachine.ErrMalformed, err.Error())
	}
	if len(strings.TrimSpace(unmarshalled.AppVersion)) == 0 {
		return h, fmt.Errorf("%w: empty app_version", worksmachine.ErrValidation)
	}
	s.data.AppVersion = unmarshalled.AppVersion
	return s.takeSnapshot(), nil
}

func (s *Store) handle641302(event worksmachine.Event) (h worksmachine.HashSeq, err error) {
	var unmarshalled Kind641302
	if err = json.Unmarshal([]byte(event.Content), &unmarshalled); err != nil {
		return h, fmt.Errorf("%w: %s", worksmachine.ErrMalformed, err.Error())
	}
	if !IsKey(unmarshalled.Admin) {
		return h, fmt.Errorf("%w: admin must be a hex public key", worksmachine.ErrValidation)
	}
	s.data.Admin = unmarshalled.Admin
	return s.takeSnapshot(), nil
}
