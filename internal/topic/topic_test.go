// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package topic

import (
	"testing"

	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/stretchr/testify/require"
)

func TestPatternTopic(t *testing.T) {
	p, err := NewPattern("samples", "pedometer/{deviceId}/samples", nil)
	require.NoError(t, err)

	topic, err := p.Topic(map[string]string{"deviceId": "wrist"})
	require.NoError(t, err)
	require.Equal(t, "pedometer/wrist/samples", topic)

	_, err = p.Topic(nil)
	require.True(t, errors.IsKind(err, errors.InvalidInput))
}

func TestPatternInvalid(t *testing.T) {
	_, err := NewPattern("samples", "pedometer/#", nil)
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))

	_, err = NewPattern(
		"samples",
		"pedometer/{deviceId}",
		map[string]string{"deviceId": "a/b"},
	)
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))
}

func TestFilterTokens(t *testing.T) {
	p, err := NewPattern(
		"control",
		"pedometer/{deviceId}/attr/{attr}/{op}",
		map[string]string{"deviceId": "wrist"},
	)
	require.NoError(t, err)

	f, err := p.Filter()
	require.NoError(t, err)
	require.Equal(t, "pedometer/wrist/attr/+/+", f.Filter())

	tokens, ok := f.Tokens("pedometer/wrist/attr/setrate/store")
	require.True(t, ok)
	require.Equal(t, map[string]string{
		"deviceId": "wrist",
		"attr":     "setrate",
		"op":       "store",
	}, tokens)

	_, ok = f.Tokens("pedometer/other/attr/setrate/store")
	require.False(t, ok)

	_, ok = f.Tokens("pedometer/wrist/attr/setrate/store/extra")
	require.False(t, ok)
}
