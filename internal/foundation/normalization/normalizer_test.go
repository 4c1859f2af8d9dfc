package normalization

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type flavour string

const (
	flavourPlain  flavour = "plain"
	flavourIBooks flavour = "ibooks"
	flavourKindle flavour = "kindle"
)

func newFlavours() *Normalizer[flavour] {
	return NewNormalizer("flavour", map[string]flavour{
		"plain":  flavourPlain,
		"iBooks": flavourIBooks,
		"kindle": flavourKindle,
	}, flavourPlain)
}

func TestNormalize(t *testing.T) {
	n := newFlavours()

	tests := []struct {
		name  string
		input string
		want  flavour
	}{
		{"exact", "kindle", flavourKindle},
		{"case insensitive key", "IBOOKS", flavourIBooks},
		{"surrounding spaces", "  plain ", flavourPlain},
		{"unknown falls back", "nook", flavourPlain},
		{"empty falls back", "", flavourPlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, n.Normalize(tt.input))
		})
	}
}

func TestNormalizeWithError(t *testing.T) {
	n := newFlavours()

	v, err := n.NormalizeWithError(" Kindle")
	require.NoError(t, err)
	require.Equal(t, flavourKindle, v)

	_, err = n.NormalizeWithError("nook")
	require.Error(t, err)
	require.Contains(t, err.Error(), `invalid flavour "nook"`)
	require.Contains(t, err.Error(), "[ibooks kindle plain]")
}

func TestIsValidAndKeys(t *testing.T) {
	n := newFlavours()

	require.True(t, n.IsValid(flavourIBooks))
	require.False(t, n.IsValid(flavour("nook")))

	keys := n.ValidKeys()
	require.Equal(t, []string{"ibooks", "kindle", "plain"}, keys)
	keys[0] = "changed"
	require.Equal(t, "ibooks", n.ValidKeys()[0])
}
