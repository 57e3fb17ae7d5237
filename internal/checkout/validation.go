package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fjod/go_storefront/internal/domain"
)

const (
	DefaultDepartment = "Córdoba"
	DefaultCity       = "Montería"
)

var phonePattern = regexp.MustCompile(`^[0-9+\-\s()]+$`)

// ShippingForm is the raw first-step input. String lengths in the tags count runes.
type ShippingForm struct {
	FullName   string `json:"fullName" validate:"required,min=3"`
	Phone      string `json:"phone" validate:"required,min=7,phone"`
	Department string `json:"department" validate:"required,min=2"`
	City       string `json:"city" validate:"required,min=2"`
	Address    string `json:"address" validate:"required,min=5"`
	Notes      string `json:"notes"`
}

var fieldMessages = map[string]string{
	"fullName":   "full name is required",
	"phone":      "invalid phone number",
	"department": "department is required",
	"city":       "city is required",
	"address":    "address is too short",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// DefaultShippingForm is what a new session offers as prefill.
func DefaultShippingForm() ShippingForm {
	return ShippingForm{Department: DefaultDepartment, City: DefaultCity}
}

// ValidateShipping trims the form and checks every field, returning all failures at once.
func ValidateShipping(form ShippingForm) (domain.ShippingDetails, error) {
	form = ShippingForm{
		FullName:   strings.TrimSpace(form.FullName),
		Phone:      strings.TrimSpace(form.Phone),
		Department: strings.TrimSpace(form.Department),
		City:       strings.TrimSpace(form.City),
		Address:    strings.TrimSpace(form.Address),
		Notes:      strings.TrimSpace(form.Notes),
	}

	if err := validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return domain.ShippingDetails{}, err
		}
		return domain.ShippingDetails{}, fieldErrors(verrs)
	}

	return domain.ShippingDetails{
		FullName:   form.FullName,
		Phone:      form.Phone,
		Department: form.Department,
		City:       form.City,
		Address:    form.Address,
		Notes:      form.Notes,
	}, nil
}

func fieldErrors(verrs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()]
		switch {
		case fe.Tag() == "phone":
			msg = "digits only"
		case !ok:
			msg = "invalid value"
		}
		fields[fe.Field()] = msg
	}
	return &ValidationError{Fields: fields}
}
