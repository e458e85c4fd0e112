package contact

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/my-mailer/internal/submission"
)

// ValidationError reports a submission rejected before persistence. Missing
// lists absent fields in the order name, email, subject, message; Invalid names
// a field that is present but malformed.
type ValidationError struct {
	Missing []string
	Invalid string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "Missing required fields: " + strings.Join(e.Missing, ", ")
	}
	if e.Invalid == "email" {
		return "Invalid email address"
	}
	return "Invalid " + e.Invalid
}

type form struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,loose_email"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// Validator turns a decoded JSON body into a Submission.
type Validator struct {
	v *validator.Validate
}

// NewValidator constructs a Validator with the contact-form rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// loose_email only checks for "@" and "."; "@." passes.
	_ = v.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.Contains(s, "@") && strings.Contains(s, ".")
	})
	return &Validator{v: v}
}

// Validate checks raw and returns the accepted submission stamped with
// acceptedAt (converted to IST) and origin. Values that are absent, null,
// not strings or blank after trimming count as missing.
func (val *Validator) Validate(raw map[string]any, acceptedAt time.Time, origin string) (submission.Submission, error) {
	f := form{
		Name:    stringField(raw, "name"),
		Email:   stringField(raw, "email"),
		Subject: stringField(raw, "subject"),
		Message: stringField(raw, "message"),
	}

	if err := val.v.Struct(f); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return submission.Submission{}, err
		}
		verr := &ValidationError{}
		for _, fe := range fieldErrs {
			switch fe.Tag() {
			case "required":
				verr.Missing = append(verr.Missing, fe.Field())
			case "loose_email":
				verr.Invalid = fe.Field()
			}
		}
		if len(verr.Missing) > 0 {
			verr.Invalid = ""
		}
		return submission.Submission{}, verr
	}

	origin = strings.TrimSpace(origin)
	if origin == "" {
		origin = submission.UnknownOrigin
	}
	return submission.Submission{
		Name:      f.Name,
		Email:     f.Email,
		Subject:   f.Subject,
		Message:   f.Message,
		Timestamp: acceptedAt.In(submission.IST),
		Origin:    origin,
	}, nil
}

func stringField(raw map[string]any, key string) string {
	s, ok := raw[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
