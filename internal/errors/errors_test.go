package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsufficientDataMessageCarriesMinimum(t *testing.T) {
	err := NewInsufficientData("sum-regression", 10, 4)
	assert.Contains(t, err.Error(), "at least 10")
	assert.True(t, IsInsufficientData(err))
	assert.False(t, IsConfiguration(err))

	wrapped := fmt.Errorf("suggest megasena: %w", err)
	detail, ok := AsInsufficientData(wrapped)
	require.True(t, ok)
	assert.Equal(t, 10, detail.Required)
	assert.Equal(t, 4, detail.Got)
}

func TestDataUnavailableUnwraps(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewDataUnavailable("quina", cause)

	assert.True(t, IsDataUnavailable(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "quina")
}

func TestConfigurationErrorFormatting(t *testing.T) {
	err := NewConfiguration("maismilionaria", "bonus.count", "must be positive")
	assert.Equal(t, "invalid configuration for game maismilionaria: bonus.count: must be positive", err.Error())

	err = NewConfiguration("supersete", "", "per-column game has no number-set model")
	assert.True(t, IsConfiguration(err))
	assert.NotContains(t, err.Error(), ": :")
}
