package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindUnwrapsWrappedErrors(t *testing.T) {
	err := fmt.Errorf("withdraw %s: %w", "acc-1", ErrInsufficientFunds)
	assert.Equal(t, "insufficient_funds", Kind(err))
	assert.Equal(t, http.StatusConflict, HTTPStatus(err))
	assert.True(t, IsDomain(err))
}

func TestKindInternal(t *testing.T) {
	err := errors.New("disk on fire")
	assert.Equal(t, "internal", Kind(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
	assert.False(t, IsDomain(err))
}

func TestEveryKindHasDistinctName(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range kinds {
		assert.False(t, seen[k.name], k.name)
		seen[k.name] = true
		assert.Equal(t, k.name, Kind(k.err))
	}
}
