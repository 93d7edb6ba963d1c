package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	Name  string  `json:"name" validate:"required,max=8"`
	Kind  string  `json:"kind" validate:"oneof=direct youtube"`
	Level float64 `json:"level" validate:"gte=0,lte=1"`
}

func TestValidate(t *testing.T) {
	v := NewValidator()

	errs, ok := v.Validate(request{Name: "ok", Kind: "direct", Level: 0.5})
	assert.True(t, ok)
	assert.Empty(t, errs)

	errs, ok = v.Validate(request{Name: "", Kind: "vimeo", Level: 2})
	require.False(t, ok)
	require.Len(t, errs, 3)

	byField := map[string]ValidationError{}
	for _, e := range errs {
		byField[e.Field] = e
	}

	assert.Equal(t, "REQUIRED", byField["name"].Code)
	assert.Equal(t, "name is required", byField["name"].Message)
	assert.Equal(t, "ONEOF", byField["kind"].Code)
	assert.Equal(t, "LTE", byField["level"].Code)
}
