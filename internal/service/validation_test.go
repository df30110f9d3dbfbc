package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/edsonosf/gdp/pkg/errors"
)

func TestValidatorCustomTags(t *testing.T) {
	validate := NewValidator()

	type payload struct {
		CPF  string   `json:"cpf" validate:"required,cpf"`
		Type string   `json:"type" validate:"occurrence_type"`
		Date string   `json:"date" validate:"occurrence_date"`
		Turn string   `json:"turn" validate:"turn"`
		Need []string `json:"schoolNeed" validate:"dive,school_need"`
	}

	ok := payload{CPF: "123.456.789-09", Type: "Disciplinar", Date: "2024-05-02T10:30", Turn: "Tarde", Need: []string{"estrutura_fisica"}}
	require.NoError(t, validate.Struct(ok))

	bad := payload{CPF: "123", Type: "Outro", Date: "02/05/2024", Turn: "Madrugada", Need: []string{"x"}}
	err := validate.Struct(bad)
	require.Error(t, err)

	appErr := validationError(err, "invalid payload")
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "cpf (cpf)")
	assert.Contains(t, appErr.Message, "type (occurrence_type)")
	assert.Contains(t, appErr.Message, "date (occurrence_date)")
	assert.Contains(t, appErr.Message, "turn (turn)")
}
