package policy

import "triptales/catalog-service/internal/models"

// Moderation may move between any two statuses. Re-asserting the current
// status is allowed and only refreshes updated_at.
var transitionMap = map[string][]string{
	models.StatusPending:  {models.StatusPending, models.StatusApproved, models.StatusRejected},
	models.StatusApproved: {models.StatusPending, models.StatusApproved, models.StatusRejected},
	models.StatusRejected: {models.StatusPending, models.StatusApproved, models.StatusRejected},
}

func ValidTransition(fromStatus, toStatus string) bool {
	allowed, ok := transitionMap[fromStatus]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == toStatus {
			return true
		}
	}
	return false
}
