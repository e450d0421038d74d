package middleware

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type saleLine struct {
	Name      string          `json:"name" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required,dgt0"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"dgte0"`
}

func validate(t *testing.T, v any) error {
	t.Helper()
	SetupValidator()
	engine, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	return engine.Struct(v)
}

func TestDecimalTags(t *testing.T) {
	err := validate(t, saleLine{
		Name:      "Indomie",
		Quantity:  decimal.NewFromInt(2),
		UnitPrice: decimal.NewFromInt(350),
	})
	assert.NoError(t, err)

	err = validate(t, saleLine{
		Name:      "Indomie",
		Quantity:  decimal.NewFromInt(-1),
		UnitPrice: decimal.NewFromInt(-5),
	})
	require.Error(t, err)
	msg := FormatValidationError(err)
	assert.Contains(t, msg, "quantity: must be positive")
	assert.Contains(t, msg, "unit_price: must not be negative")
}

func TestErrorsNameJSONFields(t *testing.T) {
	err := validate(t, saleLine{Quantity: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.Contains(t, FormatValidationError(err), "name: this field is required")
}

func TestFormatValidationError_PassThrough(t *testing.T) {
	plain := errors.New("unexpected EOF")
	assert.Equal(t, "unexpected EOF", FormatValidationError(plain))
}
