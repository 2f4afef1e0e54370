package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"i4.energy/across/atlink/nmea"
)

func TestProfilesAreValid(t *testing.T) {
	for _, name := range Profiles() {
		t.Run(name, func(t *testing.T) {
			script, err := Profile(name)
			require.NoError(t, err)
			assert.Equal(t, name, script.Name)
			assert.NotEmpty(t, script.Terminator)
			assert.NoError(t, script.validate())
		})
	}
}

func TestGGAFields(t *testing.T) {
	fields := GGAFields("GGA")
	require.Len(t, fields, nmea.GGAFieldCount)
	for i, f := range fields {
		assert.Equal(t, i+1, f.Index)
		assert.Equal(t, "GGA", f.Tag)
		assert.True(t, f.Checksum)
		assert.Equal(t, nmea.FieldNames[f.Name], f.Index)
	}
}

func TestParseTimeoutPolicy(t *testing.T) {
	for _, p := range []TimeoutPolicy{TimeoutFinal, TimeoutPoll, TimeoutRetry} {
		got, err := ParseTimeoutPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	got, err := ParseTimeoutPolicy("")
	require.NoError(t, err)
	assert.Equal(t, TimeoutFinal, got)

	_, err = ParseTimeoutPolicy("forever")
	assert.Error(t, err)
}
