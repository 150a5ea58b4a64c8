package services

import (
	"time"

	"artarena/internal/models"
)

// ResolveStatus derives a contest's display status. finalized_at wins over
// the dates, even inside [start, end]; the bounds themselves count as active.
func ResolveStatus(start, end time.Time, finalizedAt *time.Time, now time.Time) models.ContestStatus {
	switch {
	case finalizedAt != nil:
		return models.StatusFinalized
	case now.Before(start):
		return models.StatusUpcoming
	case now.After(end):
		return models.StatusEnded
	default:
		return models.StatusActive
	}
}

func ContestStatus(c models.Contest, now time.Time) models.ContestStatus {
	return ResolveStatus(c.StartDate, c.EndDate, c.FinalizedAt, now)
}
