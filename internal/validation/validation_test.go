package validation

import (
	"testing"

	"mercadito/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Email  string  `json:"email" validate:"required,email"`
	Nombre string  `json:"nombre" validate:"required,min=2"`
	Precio float64 `json:"precio" validate:"omitempty,gt=0"`
	Estado string  `json:"estado" validate:"omitempty,oneof=nuevo usado"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name            string
		input           sampleRequest
		expectedField   string
		expectedMessage string
	}{
		{
			name:  "Valid",
			input: sampleRequest{Email: "a@b.com", Nombre: "Ana", Precio: 10, Estado: "nuevo"},
		},
		{
			name:            "Missing email",
			input:           sampleRequest{Nombre: "Ana"},
			expectedField:   "email",
			expectedMessage: "email is required",
		},
		{
			name:            "Bad email",
			input:           sampleRequest{Email: "nope", Nombre: "Ana"},
			expectedField:   "email",
			expectedMessage: "email must be a valid email address",
		},
		{
			name:            "Name too short",
			input:           sampleRequest{Email: "a@b.com", Nombre: "A"},
			expectedField:   "nombre",
			expectedMessage: "nombre must be at least 2 characters",
		},
		{
			name:            "Negative price",
			input:           sampleRequest{Email: "a@b.com", Nombre: "Ana", Precio: -5},
			expectedField:   "precio",
			expectedMessage: "precio must be greater than 0",
		},
		{
			name:            "Estado outside the set",
			input:           sampleRequest{Email: "a@b.com", Nombre: "Ana", Estado: "roto"},
			expectedField:   "estado",
			expectedMessage: "estado must be one of: nuevo, usado",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := Struct(&tt.input)
			if tt.expectedField == "" {
				assert.Nil(t, appErr)
				return
			}

			require.NotNil(t, appErr)
			assert.Equal(t, models.CodeValidationError, appErr.Code)
			assert.Equal(t, tt.expectedField, appErr.Field)
			assert.Equal(t, tt.expectedMessage, appErr.Message)
		})
	}
}

