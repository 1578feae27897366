package alerts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timzifer/aquasync/remote"
)

func TestRuleFires(t *testing.T) {
	rule, err := NewRule("warm_low_oxygen", "do_mg_l < 5 && water_temp_c > 28", "oxygen low for warm water")
	require.NoError(t, err)

	fired, err := rule.Evaluate(remote.SensorReading{"do_mg_l": ptr(4.2), "water_temp_c": ptr(29)})
	require.NoError(t, err)
	require.True(t, fired)

	fired, err = rule.Evaluate(remote.SensorReading{"do_mg_l": ptr(6.5), "water_temp_c": ptr(29)})
	require.NoError(t, err)
	require.False(t, fired)

	alert := rule.Alert()
	require.Equal(t, "warm_low_oxygen", alert.Key)
	require.Equal(t, "oxygen low for warm water", alert.Message)
}

func TestRuleInertWhenKeyMissing(t *testing.T) {
	rule, err := NewRule("ph_drift", "ph < 6.2", "")
	require.NoError(t, err)

	fired, err := rule.Evaluate(remote.SensorReading{"water_temp_c": ptr(20)})
	require.Error(t, err)
	require.False(t, fired)

	// a null value behaves like a missing key
	fired, err = rule.Evaluate(remote.SensorReading{"ph": nil})
	require.Error(t, err)
	require.False(t, fired)
}

func TestNewRuleRejectsBadExpression(t *testing.T) {
	_, err := NewRule("broken", "ph <", "")
	require.Error(t, err)
}

func TestRuleRejectsNonBooleanResult(t *testing.T) {
	rule, err := NewRule("numeric", "ph + 1", "")
	require.NoError(t, err)
	_, err = rule.Evaluate(remote.SensorReading{"ph": ptr(7)})
	require.Error(t, err)
}
