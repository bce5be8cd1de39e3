package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Embedded(t *testing.T) {
	reg, err := Load()
	require.NoError(t, err)
	assert.Greater(t, reg.Len(), 50)

	loc, ok := reg.Lookup("la florida")
	require.True(t, ok)
	assert.Equal(t, "La Florida", loc.DisplayName)
	assert.Equal(t, "la florida", loc.Key)

	// Accented display names index under their stripped key.
	loc, ok = reg.Lookup("quilpue")
	require.True(t, ok)
	assert.Equal(t, "Quilpué", loc.DisplayName)
}

func TestLoad_AliasesShareEntry(t *testing.T) {
	reg, err := Load()
	require.NoError(t, err)

	canonical, ok := reg.Lookup("vina del mar")
	require.True(t, ok)
	viaAlias, ok := reg.Lookup("vina")
	require.True(t, ok)
	assert.Same(t, canonical, viaAlias)
}

func TestLoad_LookupRequiresNormalizedKey(t *testing.T) {
	reg, err := Load()
	require.NoError(t, err)

	_, ok := reg.Lookup("La Florida")
	assert.False(t, ok, "lookup does not normalize on behalf of the caller")
}

func TestLoadFrom(t *testing.T) {
	t.Run("valid source", func(t *testing.T) {
		src := `{"localities": [
			{"display_name": "La Florida", "region": "RM", "aliases": ["Florida"]},
			{"display_name": "Providencia", "region": "RM"}
		]}`
		reg, err := LoadFrom(strings.NewReader(src))
		require.NoError(t, err)
		assert.Equal(t, 2, reg.Len())
		assert.Len(t, reg.All(), 2)
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := LoadFrom(strings.NewReader(`{"localities": []}`))
		assert.ErrorIs(t, err, ErrEmptySource)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := LoadFrom(strings.NewReader(`{"localities": [`))
		assert.ErrorIs(t, err, ErrMalformedSource)
	})

	t.Run("entry without display name", func(t *testing.T) {
		_, err := LoadFrom(strings.NewReader(`{"localities": [{"region": "RM"}]}`))
		assert.ErrorIs(t, err, ErrMalformedSource)
	})

	t.Run("duplicate normalized key", func(t *testing.T) {
		src := `{"localities": [
			{"display_name": "Quilpué", "region": "V"},
			{"display_name": "quilpue", "region": "V"}
		]}`
		_, err := LoadFrom(strings.NewReader(src))
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("alias colliding with another locality", func(t *testing.T) {
		src := `{"localities": [
			{"display_name": "Santiago", "region": "RM"},
			{"display_name": "San Miguel", "region": "RM", "aliases": ["Santiago"]}
		]}`
		_, err := LoadFrom(strings.NewReader(src))
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})
}
