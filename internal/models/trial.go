package models

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// TrialStatus describes the progress of a clinical trial.
type TrialStatus string

const (
	TrialStatusNotStarted TrialStatus = "NotStarted"
	TrialStatusOngoing    TrialStatus = "Ongoing"
	TrialStatusCompleted  TrialStatus = "Completed"
)

// TrialStatuses lists the closed set of statuses in display order.
var TrialStatuses = []TrialStatus{TrialStatusNotStarted, TrialStatusOngoing, TrialStatusCompleted}

// ErrInvalidTrialStatus is returned when a status string matches no known status.
var ErrInvalidTrialStatus = errors.New("invalid status")

// MaxTrialIDLength mirrors the width of the trial_id column.
const MaxTrialIDLength = 450

// ParseTrialStatus accepts any casing and ignores whitespace, so "not started" parses as NotStarted.
func ParseTrialStatus(raw string) (TrialStatus, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	for _, status := range TrialStatuses {
		if strings.EqualFold(compact, string(status)) {
			return status, nil
		}
	}
	return "", ErrInvalidTrialStatus
}

func (s TrialStatus) String() string {
	return string(s)
}

// Trial is a clinical trial row stored in the clinical_trials table.
type Trial struct {
	TrialID      string      `db:"trial_id" json:"trialId"`
	Title        string      `db:"title" json:"title"`
	StartDate    Date        `db:"start_date" json:"startDate"`
	EndDate      *Date       `db:"end_date" json:"endDate"`
	Participants int         `db:"participants" json:"participants"`
	Status       TrialStatus `db:"status" json:"status"`
	Duration     int         `db:"duration" json:"duration"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updatedAt"`
}

// TrialFilter narrows list queries. Pagination applies only when both Page and Size are set.
type TrialFilter struct {
	Status *TrialStatus
	Page   *int
	Size   *int
}

// Paginated reports whether the filter asks for a single page.
func (f TrialFilter) Paginated() bool {
	return f.Page != nil && f.Size != nil
}

// Offset returns the number of rows skipped for the requested page.
func (f TrialFilter) Offset() int {
	if !f.Paginated() || *f.Page < 1 {
		return 0
	}
	return (*f.Page - 1) * *f.Size
}
