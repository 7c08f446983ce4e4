// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt_test

import (
	"testing"

	"github.com/Azure/iot-operations-sdks/go/pedometer/mqtt"
	"github.com/stretchr/testify/require"
)

func TestTopicFilterMatch(t *testing.T) {
	tests := []struct {
		filter   string
		topic    string
		expected bool
	}{
		{"$share/group/pedometer/+/panic", "pedometer/wrist/panic", true},
		{"$share/group", "pedometer/wrist/panic", false},
		{"pedometer/+/panic", "pedometer/wrist/panic", true},
		{"pedometer/+/panic", "pedometer/wrist/panic/extra", false},
		{"pedometer/+/panic", "pedometer", false},
		{"pedometer/#", "pedometer", true},
		{"pedometer/#", "pedometer/wrist", true},
		{"pedometer/#", "pedometer/wrist/attr/setrate/show", true},
		{"pedometer/wrist", "pedometer/wrist", true},
		{"pedometer/wrist", "pedometer/ankle", false},
		{"pedometer/+/attr/#", "pedometer/wrist/attr", true},
		{"pedometer/#/attr", "pedometer/wrist/attr", false},
	}

	for _, test := range tests {
		require.Equal(
			t,
			test.expected,
			mqtt.IsTopicFilterMatch(test.filter, test.topic),
			"Topic filter: %s, Topic name: %s",
			test.filter,
			test.topic,
		)
	}
}

func TestValidTopicsAndFilters(t *testing.T) {
	require.True(t, mqtt.IsValidTopic("pedometer/wrist/samples"))
	require.False(t, mqtt.IsValidTopic(""))
	require.False(t, mqtt.IsValidTopic("pedometer/+/samples"))
	require.False(t, mqtt.IsValidTopic("pedometer/#"))

	require.True(t, mqtt.IsValidFilter("pedometer/+/samples"))
	require.True(t, mqtt.IsValidFilter("pedometer/#"))
	require.True(t, mqtt.IsValidFilter("$share/group/pedometer/#"))
	require.False(t, mqtt.IsValidFilter("pedometer/#/samples"))
	require.False(t, mqtt.IsValidFilter("pedometer/wr+st"))
	require.False(t, mqtt.IsValidFilter("$share//pedometer"))
	require.False(t, mqtt.IsValidFilter(""))
}
