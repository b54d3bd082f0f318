package api

import (
	"github.com/lysyi3m/wiki-watch/app/state"
	"github.com/lysyi3m/wiki-watch/app/tasks"
)

// TriggerInterface is the slice of the cycle runner the API needs.
type TriggerInterface interface {
	TriggerImmediate() bool
	GetStats() tasks.Stats
}

var _ TriggerInterface = (*tasks.Runner)(nil)

type Handler struct {
	stateStore     *state.Store
	runner         TriggerInterface
	monitoredPages []string
	version        string
}
