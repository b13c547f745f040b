package dto

import "github.com/noah-isme/trial-registry-api/internal/models"

// TrialPayload is the decoded content of an uploaded trial JSON file.
type TrialPayload struct {
	TrialID      string       `json:"trialId"`
	Title        string       `json:"title"`
	StartDate    models.Date  `json:"startDate"`
	EndDate      *models.Date `json:"endDate,omitempty"`
	Participants int          `json:"participants"`
	Status       string       `json:"status"`
}

// PaginationQuery carries the optional page/size query parameters.
type PaginationQuery struct {
	Page *int `form:"page" json:"page,omitempty" validate:"omitempty,gt=0"`
	Size *int `form:"size" json:"size,omitempty" validate:"omitempty,gt=0,lte=100"`
}

// StatusQuery filters trials by status with optional pagination.
type StatusQuery struct {
	Status *string `form:"status" json:"status,omitempty" validate:"required,trialstatus"`
	PaginationQuery
}

// TrialPage is one page of trials plus the total number of matching rows.
type TrialPage struct {
	Items      []models.Trial
	Pagination models.Pagination
}

// Export formats accepted by the export endpoint.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportQuery selects the output format and an optional status subset.
type ExportQuery struct {
	Format string
	Status *string
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
