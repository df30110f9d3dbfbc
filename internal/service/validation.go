package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/edsonosf/gdp/internal/models"
	appErrors "github.com/edsonosf/gdp/pkg/errors"
	"github.com/edsonosf/gdp/pkg/mask"
)

// NewValidator returns a validator that reports JSON field names and knows the domain tags.
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
		return mask.ValidCPF(fl.Field().String())
	})
	_ = validate.RegisterValidation("occurrence_type", func(fl validator.FieldLevel) bool {
		return models.Category(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("occurrence_date", func(fl validator.FieldLevel) bool {
		raw := fl.Field().String()
		if raw == "" {
			return true
		}
		_, err := time.Parse(models.OccurrenceDateLayout, raw)
		return err == nil
	})
	_ = validate.RegisterValidation("turn", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "", models.TurnFullTime, models.TurnMorning, models.TurnAfternoon, models.TurnEvening:
			return true
		}
		return false
	})
	_ = validate.RegisterValidation("pcd_status", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "", models.PcdWithReport, models.PcdUnderInvestigation:
			return true
		}
		return false
	})
	_ = validate.RegisterValidation("school_need", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case models.NeedPhysicalStructure, models.NeedCurriculumAdaption, models.NeedSpecializedCare:
			return true
		}
		return false
	})
	return validate
}

// validationError converts validator output into a 400 naming the offending fields.
func validationError(err error, message string) *appErrors.Error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		message = fmt.Sprintf("%s: %s", message, strings.Join(fields, ", "))
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
