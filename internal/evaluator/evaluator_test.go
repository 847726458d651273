package evaluator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wisefido-vitals/internal/models"
)

func TestDecide_HighBodyTemp(t *testing.T) {
	reading := models.Reading{BodyTemp: 39.2, AmbientTemp: 22.5, FallDetected: false}

	candidate := Decide(reading, 38.0)

	require.NotNil(t, candidate)
	assert.Equal(t, models.AlertTypeHighBodyTemp, candidate.Type)
	require.NotNil(t, candidate.Value)
	assert.Equal(t, 39.2, *candidate.Value)
	assert.Equal(t, "Body temperature exceeded 38°C: 39.2°C", candidate.Message)
}

func TestDecide_HighBodyTempWinsOverFall(t *testing.T) {
	// 两个条件同时满足时只触发体温报警
	reading := models.Reading{BodyTemp: 40.1, FallDetected: true}

	candidate := Decide(reading, 38.0)

	require.NotNil(t, candidate)
	assert.Equal(t, models.AlertTypeHighBodyTemp, candidate.Type)
	require.NotNil(t, candidate.Value)
	assert.Equal(t, 40.1, *candidate.Value)
}

func TestDecide_FallDetected(t *testing.T) {
	reading := models.Reading{BodyTemp: 36.5, AmbientTemp: 21.0, FallDetected: true}

	candidate := Decide(reading, 38.0)

	require.NotNil(t, candidate)
	assert.Equal(t, models.AlertTypeFallDetected, candidate.Type)
	assert.Nil(t, candidate.Value)
	assert.Equal(t, "User fall detected!", candidate.Message)
}

func TestDecide_NoAlert(t *testing.T) {
	reading := models.Reading{BodyTemp: 36.5, AmbientTemp: 21.0, FallDetected: false}

	candidate := Decide(reading, 38.0)

	assert.Nil(t, candidate)
}

func TestDecide_BoundaryEqualDoesNotFire(t *testing.T) {
	// 严格大于：等于阈值不报警
	reading := models.Reading{BodyTemp: 38.0}

	candidate := Decide(reading, 38.0)

	assert.Nil(t, candidate)
}

func TestDecide_NaNBodyTempFallsThroughToFallCheck(t *testing.T) {
	reading := models.Reading{BodyTemp: math.NaN(), FallDetected: true}

	candidate := Decide(reading, 38.0)

	require.NotNil(t, candidate)
	assert.Equal(t, models.AlertTypeFallDetected, candidate.Type)
}

func TestDecide_NaNBodyTempNoFall(t *testing.T) {
	reading := models.Reading{BodyTemp: math.NaN(), FallDetected: false}

	candidate := Decide(reading, 38.0)

	assert.Nil(t, candidate)
}

func TestDecide_CandidateValueIsCopy(t *testing.T) {
	reading := models.Reading{BodyTemp: 39.0}

	candidate := Decide(reading, 38.0)

	require.NotNil(t, candidate)
	reading.BodyTemp = 0
	assert.Equal(t, 39.0, *candidate.Value)
}
