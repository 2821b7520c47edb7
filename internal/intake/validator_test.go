package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestValidator(t *testing.T) {
	rv := NewRequestValidator()
	require.NotNil(t, rv)

	type probe struct {
		Email     string `validate:"omitempty,intakeEmail"`
		Instagram string `validate:"omitempty,instagramHandle"`
		Website   string `validate:"omitempty,webURL"`
		Phone     string `validate:"omitempty,intakePhone"`
	}

	assert.NoError(t, rv.Validate(&probe{}))
	assert.NoError(t, rv.Validate(&probe{
		Email:     "jane@acme.com",
		Instagram: "acme.brand",
		Website:   "https://acme.com",
		Phone:     "+1 555 123 4567",
	}))

	assert.Error(t, rv.Validate(&probe{Email: "broken"}))
	assert.Error(t, rv.Validate(&probe{Instagram: "ends.with."}))
	assert.Error(t, rv.Validate(&probe{Website: "not a url"}))
	assert.Error(t, rv.Validate(&probe{Phone: "123"}))
}
