package coord

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testData struct {
	s    string
	x, y float64
}

func TestStringConvert(t *testing.T) {
	data := []testData{
		{"61.10478, -149.79553", 61.10478, -149.79553},
		{"61.10478 -149.79553", 61.10478, -149.79553},
		{"  61.10478,-149.79553  ", 61.10478, -149.79553},
		{"-33.5, 18", -33.5, 18},
		{"61°06.287' -149°47.732'", 61 + 6.287/60, -(149 + 47.732/60)},
		{"61°06.287', -149°47.732'", 61 + 6.287/60, -(149 + 47.732/60)},
		{"61°06.287’N, 149°47.732’W", 61 + 6.287/60, -(149 + 47.732/60)},
		{"61 06.287n, 149 47.732w", 61 + 6.287/60, -(149 + 47.732/60)},
		{"61 06.287 -149 47.732", 61 + 6.287/60, -(149 + 47.732/60)},
		{"33 51.5S 151 12.5E", -(33 + 51.5/60), 151 + 12.5/60},
	}

	for _, d := range data {
		t.Run(d.s, func(t *testing.T) {
			ll, err := Parse(d.s)
			require.NoError(t, err)
			require.NotNil(t, ll)
			assert.Equal(t, d.x, ll.Lat)
			assert.Equal(t, d.y, ll.Lon)
		})
	}
}

func TestInvalid(t *testing.T) {
	for _, s := range []string{
		"not a coordinate",
		"61.1",
		"61°06.287' abc",
		"61 06.287 -149",
		"61 06.287 -149 47.732 5",
		"61°06.287' garbage, -149°47.732'",
	} {
		t.Run(s, func(t *testing.T) {
			ll, err := Parse(s)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Nil(t, ll)
		})
	}
}

func TestNotProvided(t *testing.T) {
	for _, s := range []string{"", "   ", "\t\n"} {
		ll, err := Parse(s)
		assert.NoError(t, err)
		assert.Nil(t, ll)
	}
}

func TestJSON(t *testing.T) {
	ll := &LatLon{Lat: 61.5, Lon: -149.25}

	b, err := json.Marshal(ll)
	require.NoError(t, err)
	assert.Equal(t, "[61.5,-149.25]", string(b))

	var ll2 LatLon
	require.NoError(t, json.Unmarshal(b, &ll2))
	assert.Equal(t, *ll, ll2)
	assert.Equal(t, [2]float64{-149.25, 61.5}, ll.GeoJSON())

	assert.Error(t, json.Unmarshal([]byte("[1]"), &ll2))
}
