package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	for i := 0; i < Default.Len(); i++ {
		e, err := Default.At(i)
		require.NoError(t, err)

		for _, bri := range []int{0, 1, 100, 254, 255} {
			hex, err := Default.HexForHueSat(e.Hue, e.Saturation)
			require.NoError(t, err)

			hsb, err := Default.HSBForHex(hex, bri)
			require.NoError(t, err)
			assert.Equal(t, e.Hue, hsb.Hue)
			assert.Equal(t, e.Saturation, hsb.Saturation)
			assert.Equal(t, bri, hsb.Brightness)
			assert.True(t, hsb.On)
		}
	}
}

func TestKnownValues(t *testing.T) {
	hex, err := Default.HexForHueSat(7644, 150)
	require.NoError(t, err)
	assert.Equal(t, "f1e0b5", hex)

	hex, err = Default.HexForHueSat(39312, 13)
	require.NoError(t, err)
	assert.Equal(t, "f5faf6", hex)

	hsb, err := Default.HSBForHex("efd275", 150)
	require.NoError(t, err)
	assert.Equal(t, HSB{On: true, Hue: 6188, Saturation: 249, Brightness: 150}, hsb)
}

func TestUnknownColor(t *testing.T) {
	_, err := Default.HexForHueSat(1, 2)
	assert.ErrorIs(t, err, ErrUnknownColor)

	_, err = Default.HSBForHex("caffee", 100)
	assert.ErrorIs(t, err, ErrUnknownColor)

	_, err = Default.At(Default.Len())
	assert.ErrorIs(t, err, ErrUnknownColor)

	_, err = Default.At(-1)
	assert.ErrorIs(t, err, ErrUnknownColor)
}

func TestHexIsCaseInsensitive(t *testing.T) {
	i, err := Default.IndexOfHex("F1E0B5")
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestNew_DuplicateHueSat(t *testing.T) {
	_, err := New([]Entry{
		{Hex: "aaaaaa", Hue: 1, Saturation: 2},
		{Hex: "bbbbbb", Hue: 1, Saturation: 2},
	})
	assert.Error(t, err)
}

func TestNew_RepeatedHexAllowed(t *testing.T) {
	tbl, err := New([]Entry{
		{Hex: "aaaaaa", Hue: 1, Saturation: 2},
		{Hex: "aaaaaa", Hue: 3, Saturation: 4},
	})
	require.NoError(t, err)

	hex, err := tbl.HexForHueSat(3, 4)
	require.NoError(t, err)
	assert.Equal(t, "aaaaaa", hex)

	// Reverse lookup resolves to the first entry.
	hsb, err := tbl.HSBForHex("aaaaaa", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, hsb.Hue)
}
