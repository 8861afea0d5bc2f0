package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "esbilla/pkg/domain-errors"
	"esbilla/pkg/platform/sentinel"
)

func TestParseCategory(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseCategory("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		_, err := ParseCategory("necessary")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts every supported category", func(t *testing.T) {
		for _, c := range Categories {
			parsed, err := ParseCategory(string(c))
			require.NoError(t, err)
			assert.Equal(t, c, parsed)
		}
	})
}

func TestDecisionGranted(t *testing.T) {
	t.Run("reject all grants nothing", func(t *testing.T) {
		assert.Empty(t, RejectAll().Granted())
	})

	t.Run("analytics alone implies functional", func(t *testing.T) {
		granted := Decision{Analytics: true}.Granted()
		assert.True(t, granted[CategoryAnalytics])
		assert.True(t, granted[CategoryFunctional])
		assert.False(t, granted[CategoryMarketing])
	})

	t.Run("marketing alone implies functional", func(t *testing.T) {
		granted := Decision{Marketing: true}.Granted()
		assert.True(t, granted[CategoryMarketing])
		assert.True(t, granted[CategoryFunctional])
		assert.False(t, granted[CategoryAnalytics])
	})

	t.Run("functional alone grants only functional", func(t *testing.T) {
		granted := Decision{Functional: true}.Granted()
		assert.Len(t, granted, 1)
		assert.True(t, granted[CategoryFunctional])
	})

	t.Run("effective decision carries the coupling", func(t *testing.T) {
		assert.Equal(t, Decision{Analytics: true, Functional: true}, Decision{Analytics: true}.Effective())
	})
}

func TestParseDecision(t *testing.T) {
	t.Run("decodes encoded decision", func(t *testing.T) {
		d, err := ParseDecision(Decision{Analytics: true}.Encode())
		require.NoError(t, err)
		assert.Equal(t, Decision{Analytics: true}, d)
	})

	t.Run("corrupt input is invalid state", func(t *testing.T) {
		_, err := ParseDecision("{analytics:")
		require.Error(t, err)
		assert.True(t, errors.Is(err, sentinel.ErrInvalidState))
	})
}

func TestFootprint(t *testing.T) {
	t.Run("derived from uuid prefix", func(t *testing.T) {
		id := uuid.MustParse("3fa85f64-5717-4562-b3fc-2c963f66afa6")
		assert.Equal(t, Footprint("ESB-3FA85F64"), FootprintFromUUID(id))
	})

	t.Run("generated footprints are well formed", func(t *testing.T) {
		assert.True(t, NewFootprint().IsWellFormed())
	})

	t.Run("foreign values are not well formed", func(t *testing.T) {
		assert.False(t, Footprint("legacy-123").IsWellFormed())
	})
}
