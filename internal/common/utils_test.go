package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAny(t *testing.T) {
	assert.True(t, HasAny("Clear sky", "sun", "clear"))
	assert.True(t, HasAny("Thunderstorm with hail", "STORM"))
	assert.False(t, HasAny("Overcast", "rain", "snow"))
	assert.False(t, HasAny("anything"))
}
