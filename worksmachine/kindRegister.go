package worksmachine

import (
	"fmt"

	"github.com/sasha-s/go-deadlock"
)

var validKinds = make(map[int64]string)
var kindsMutex = &deadlock.Mutex{}

//RegisterMind registers a Mind's event kinds so that we can route events to the right consumer.
func RegisterMind(kinds []int64, mind string) error {
	kindsMutex.Lock()
	defer kindsMutex.Unlock()
	for _, kind := range kinds {
		if _mind, ok := validKinds[kind]; ok && _mind != mind {
			return fmt.Errorf("kind %d has already been registered by %s", kind, _mind)
		}
	}
	for _, kind := range kinds {
		validKinds[kind] = mind
	}
	return nil
}

func WhichMindForKind(kind int64) (string, bool) {
	kindsMutex.Lock()
	defer kindsMutex.Unlock()
	mind, ok := validKinds[kind]
	return mind, ok
}

func GetAllKinds() map[int64]string {
	kindsMutex.Lock()
	defer kindsMutex.Unlock()
	kinds := make(map[int64]string, len(validKinds))
	for k, v := range validKinds {
		kinds[k] = v
	}
	return kinds
}
