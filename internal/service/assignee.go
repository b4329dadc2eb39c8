package service

import (
	"go-fulfillment-ws/internal/model"

	"github.com/google/uuid"
)

// SelectLeastBusy picks the user with the fewest active orders. users must
// already be in registration order; ties go to the earliest registered.
// Returns nil when users is empty.
func SelectLeastBusy(users []model.User, load map[uuid.UUID]int64) *model.User {
	var best *model.User
	var bestLoad int64
	for i := range users {
		n := load[users[i].ID]
		if best == nil || n < bestLoad {
			best, bestLoad = &users[i], n
		}
	}
	return best
}
