package registry

import (
	"errors"
	"strings"

	"github.com/go-playground/validator"

	"github.com/jask/modelhub/internal/archive"
)

// UploadRequest is one submission to /add_model. It lives only for the duration of the call.
type UploadRequest struct {
	ModelName string       `validate:"required"`
	Task      string       `validate:"required"`
	Model     archive.File `validate:"-"`
	Tokenizer archive.File `validate:"-"`
}

// AggregationRequest is the JSON body of /aggregate_models.
type AggregationRequest struct {
	ModelName         string   `json:"model_name" validate:"required"`
	BaseModel         string   `json:"base_model" validate:"required"`
	ModelsToAggregate []string `json:"models_to_aggregate" validate:"required,min=1,unique,dive,required"`
}

var validate = validator.New()

var fieldMessages = map[string]string{
	"ModelName":         "name is required",
	"Task":              "task is required",
	"BaseModel":         "choose a base model",
	"ModelsToAggregate": "add at least one distinct model to aggregate",
}

// Validate checks that both archives are attached and both text fields are non-empty.
func (r *UploadRequest) Validate() error {
	r.ModelName = strings.TrimSpace(r.ModelName)
	r.Task = strings.TrimSpace(r.Task)
	if r.Model.IsZero() || r.Tokenizer.IsZero() {
		return Invalid("archives", "Please upload both model and tokenizer files")
	}
	if err := r.Model.Validate(); err != nil {
		return Invalid("model.zip", "Please upload ZIP files only")
	}
	if err := r.Tokenizer.Validate(); err != nil {
		return Invalid("tokenizer.zip", "Please upload ZIP files only")
	}
	if err := validate.Struct(r); err != nil {
		return translate(err)
	}
	return nil
}

// Validate checks the aggregation name, base, and member list, including that
// the base is not also a member.
func (r *AggregationRequest) Validate() error {
	r.ModelName = strings.TrimSpace(r.ModelName)
	if err := validate.Struct(r); err != nil {
		return translate(err)
	}
	for _, m := range r.ModelsToAggregate {
		if m == r.BaseModel {
			return Invalid("models_to_aggregate", "the base model cannot also be aggregated into itself")
		}
	}
	return nil
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return Invalid("", err.Error())
	}
	first := verrs[0]
	field, _, _ := strings.Cut(first.StructField(), "[")
	if msg, ok := fieldMessages[field]; ok {
		return Invalid(field, msg)
	}
	return Invalid(field, "is invalid")
}
