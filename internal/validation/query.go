package validation

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/trial-registry-api/internal/dto"
	"github.com/noah-isme/trial-registry-api/internal/models"
	appErrors "github.com/noah-isme/trial-registry-api/pkg/errors"
)

const (
	msgPage   = "page number must be greater than 0"
	msgSize   = "size must be greater than 0 and less than or equal to 100"
	msgStatus = "invalid status"
)

// QueryValidator checks list query parameters, reporting every failed rule at once.
type QueryValidator struct {
	validate *validator.Validate
}

// NewQueryValidator registers the trialstatus tag on validate (a fresh validator when nil).
func NewQueryValidator(validate *validator.Validate) (*QueryValidator, error) {
	if validate == nil {
		validate = validator.New()
	}
	if err := validate.RegisterValidation("trialstatus", isTrialStatus); err != nil {
		return nil, err
	}
	return &QueryValidator{validate: validate}, nil
}

func isTrialStatus(fl validator.FieldLevel) bool {
	_, err := models.ParseTrialStatus(fl.Field().String())
	return err == nil
}

// Pagination validates page and size.
func (v *QueryValidator) Pagination(q dto.PaginationQuery) error {
	return v.check(q)
}

// Status validates a status filter and returns the parsed status.
func (v *QueryValidator) Status(q dto.StatusQuery) (models.TrialStatus, error) {
	if err := v.check(q); err != nil {
		return "", err
	}
	return models.ParseTrialStatus(*q.Status)
}

func (v *QueryValidator) check(target interface{}) error {
	err := v.validate.Struct(target)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate query")
	}

	kind := appErrors.ErrValidation
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.StructField() {
		case "Page":
			messages = append(messages, msgPage)
		case "Size":
			messages = append(messages, msgSize)
		case "Status":
			kind = appErrors.ErrInvalidStatus
			messages = append(messages, msgStatus)
		default:
			messages = append(messages, strings.ToLower(fe.Field())+" is invalid")
		}
	}
	return appErrors.WithDetails(kind, strings.Join(messages, "; "), messages)
}
