package order

import (
	"github.com/gohmolo58-collab/caisse-manger/internal/models"
)

// transitions maps each status to the set of statuses reachable from it.
// completed and cancelled are terminal.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPending:   {models.StatusPreparing, models.StatusCompleted, models.StatusCancelled},
	models.StatusPreparing: {models.StatusReady, models.StatusCompleted, models.StatusCancelled},
	models.StatusReady:     {models.StatusCompleted, models.StatusCancelled},
	models.StatusCompleted: {},
	models.StatusCancelled: {},
}

// CanTransition reports whether an order may move from one status to another.
// Re-submitting the current status of a non-terminal order is allowed as a
// no-op; terminal states reject everything, including themselves.
func CanTransition(from, to models.OrderStatus) bool {
	if models.IsTerminalStatus(from) {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
