package lib

import (
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	Validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.Validator.Struct(i)
}

// NewValidator adds the u256 tag for decimal amounts to the builtin tags
// (eth_addr, numeric, ...).
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("u256", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		n, ok := new(big.Int).SetString(fl.Field().String(), 10)
		return ok && n.Sign() >= 0 && n.Cmp(math.MaxBig256) <= 0
	})
	return v
}
