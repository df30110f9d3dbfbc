package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgeAt(t *testing.T) {
	now := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

	age := AgeAt("10/03/2015", now)
	require.NotNil(t, age)
	assert.Equal(t, 9, *age)

	age = AgeAt("11/03/2015", now)
	require.NotNil(t, age)
	assert.Equal(t, 8, *age)

	age = AgeAt("2015-01-01", now)
	require.NotNil(t, age)
	assert.Equal(t, 9, *age)

	assert.Nil(t, AgeAt("2030-01-01", now))
	assert.Nil(t, AgeAt("", now))
	assert.Nil(t, AgeAt("31/02/2015", now))
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityLow.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityHigh.Rank())
	assert.Less(t, SeverityHigh.Rank(), SeverityCritical.Rank())
	assert.False(t, Severity("Grave").Valid())
}
