// Package validation holds the business and shape rules applied to trial input.
package validation

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/noah-isme/trial-registry-api/internal/models"
)

var (
	ErrEndDateRequired    = errors.New("end date required for completed trials")
	ErrEndDateBeforeStart = errors.New("end date must be greater than or equal to start date")
	ErrEmptyTrialID       = errors.New("id cannot be empty")
	ErrTrialIDTooLong     = errors.New("id exceeds maximum length")
	ErrReservedTrialID    = errors.New("id is reserved")
	ErrEndDateOutOfRange  = errors.New("end date exceeds the latest supported date")
)

// reservedTrialIDs collide with static routes under /trials.
var reservedTrialIDs = map[string]struct{}{
	"status": {},
	"export": {},
}

// CheckEndDate enforces that completed trials carry an end date and that the end never precedes the start.
func CheckEndDate(start models.Date, end *models.Date, status models.TrialStatus) error {
	if end == nil {
		if status == models.TrialStatusCompleted {
			return ErrEndDateRequired
		}
		return nil
	}
	if end.Before(start) {
		return ErrEndDateBeforeStart
	}
	return nil
}

// CheckTrialID rejects blank ids, ids wider than the storage column and ids that
// would be shadowed by another route.
func CheckTrialID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyTrialID
	}
	if utf8.RuneCountInString(id) > models.MaxTrialIDLength {
		return ErrTrialIDTooLong
	}
	if _, ok := reservedTrialIDs[id]; ok {
		return ErrReservedTrialID
	}
	return nil
}

// CheckEndDateRange rejects end dates past models.MaxYear, which the date layout cannot store.
func CheckEndDateRange(end models.Date) error {
	if end.Year() > models.MaxYear {
		return ErrEndDateOutOfRange
	}
	return nil
}

// CheckTrial runs the trial rules in order and returns the first failure.
func CheckTrial(id string, start models.Date, end *models.Date, status models.TrialStatus) error {
	if err := CheckEndDate(start, end, status); err != nil {
		return err
	}
	return CheckTrialID(id)
}
