package validation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/trial-registry-api/internal/dto"
	appErrors "github.com/noah-isme/trial-registry-api/pkg/errors"
)

//go:embed schema/trial.schema.json
var embeddedTrialSchema []byte

const trialSchemaURL = "trial.schema.json"

// DefaultMaxUploadBytes is used when no limit is configured.
const DefaultMaxUploadBytes int64 = 2048

const (
	msgFileRequired = "file is required"
	msgFileType     = "only .json files are allowed"
	msgFileEmpty    = "file is empty"
	msgFileTooLarge = "file exceeds the maximum allowed size"
	msgFileSchema   = "invalid JSON format according to schema"
)

// LoadTrialSchema compiles the trial JSON Schema from path, or the embedded copy when path is empty.
func LoadTrialSchema(path string) (*jsonschema.Schema, error) {
	raw := embeddedTrialSchema
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read trial schema: %w", err)
		}
		raw = data
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	compiler.AssertFormat = true
	if err := compiler.AddResource(trialSchemaURL, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add trial schema: %w", err)
	}
	schema, err := compiler.Compile(trialSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile trial schema: %w", err)
	}
	return schema, nil
}

// Upload describes an uploaded trial file.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// UploadValidator gates uploaded trial files before they reach the service layer.
type UploadValidator struct {
	schema  *jsonschema.Schema
	maxSize int64
}

// NewUploadValidator builds a validator around a compiled schema.
func NewUploadValidator(schema *jsonschema.Schema, maxSize int64) *UploadValidator {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadBytes
	}
	return &UploadValidator{schema: schema, maxSize: maxSize}
}

// Validate checks the upload and decodes it. Checks run in order and stop at the first failure.
func (v *UploadValidator) Validate(upload Upload) (*dto.TrialPayload, error) {
	if upload.Content == nil || strings.TrimSpace(upload.Filename) == "" {
		return nil, shapeError(msgFileRequired, nil)
	}
	if strings.ToLower(filepath.Ext(upload.Filename)) != ".json" {
		return nil, shapeError(msgFileType, nil)
	}
	if upload.Size == 0 {
		return nil, shapeError(msgFileEmpty, nil)
	}
	if upload.Size > v.maxSize {
		return nil, shapeError(msgFileTooLarge, nil)
	}

	data, err := io.ReadAll(io.LimitReader(upload.Content, v.maxSize+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, shapeError(msgFileEmpty, nil)
	}
	if int64(len(data)) > v.maxSize {
		return nil, shapeError(msgFileTooLarge, nil)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var document interface{}
	if err := decoder.Decode(&document); err != nil {
		return nil, shapeError(msgFileSchema, err)
	}
	if v.schema != nil {
		if err := v.schema.Validate(document); err != nil {
			return nil, shapeError(msgFileSchema, err)
		}
	}

	var payload dto.TrialPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, shapeError(msgFileSchema, err)
	}
	return &payload, nil
}

func shapeError(message string, cause error) error {
	if cause == nil {
		return appErrors.Clone(appErrors.ErrInvalidUpload, message)
	}
	return appErrors.Wrap(cause, appErrors.ErrInvalidUpload.Code, appErrors.ErrInvalidUpload.Status, message)
}
