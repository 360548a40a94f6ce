package handlers

import (
	"reflect"
	"sync"

	"github.com/SscSPs/fleet_settlement_app/internal/dto"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var registerValidatorsOnce sync.Once

// RegisterValidators teaches gin's validator about decimal amounts and calendar dates.
// Both types are structs, so they are validated through their string form.
func RegisterValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.String()
			}
			return nil
		}, decimal.Decimal{})
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(dto.CalendarDate); ok && !d.IsZero() {
				return d.String()
			}
			return ""
		}, dto.CalendarDate{})

		_ = v.RegisterValidation("decimal_gt0", validateDecimalGreaterThanZero)
		_ = v.RegisterValidation("decimal_money", validateDecimalMoney)
	})
}

func fieldDecimal(fl validator.FieldLevel) (decimal.Decimal, bool) {
	raw, ok := fl.Field().Interface().(string)
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func validateDecimalGreaterThanZero(fl validator.FieldLevel) bool {
	d, ok := fieldDecimal(fl)
	return ok && d.IsPositive()
}

// validateDecimalMoney accepts amounts with at most two fractional digits.
func validateDecimalMoney(fl validator.FieldLevel) bool {
	d, ok := fieldDecimal(fl)
	return ok && d.Equal(d.Round(2))
}
