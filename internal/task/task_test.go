package task

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullMode(t *testing.T) {
	tests := []struct {
		input   string
		want    FullMode
		wantErr bool
	}{
		{input: "", want: FullModeWait},
		{input: "wait", want: FullModeWait},
		{input: "Wait", want: FullModeWait},
		{input: "drop_oldest", want: FullModeDropOldest},
		{input: "DropOldest", want: FullModeDropOldest},
		{input: "throw_exception", want: FullModeThrowException},
		{input: " ThrowException ", want: FullModeThrowException},
		{input: "block", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFullMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			roundTrip, err := ParseFullMode(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, roundTrip)
		})
	}
}

func TestState_MarshalText(t *testing.T) {
	data, err := json.Marshal(map[string]State{"state": StateDraining})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"draining"}`, string(data))

	assert.Equal(t, "State(9)", State(9).String())

	var decoded map[string]State
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, StateDraining, decoded["state"])

	var s State
	assert.Error(t, s.UnmarshalText([]byte("paused")))
}

func TestDefaultEngineConfig(t *testing.T) {
	config := DefaultEngineConfig()

	assert.Equal(t, 1, config.MaxConcurrentWorkers)
	assert.Equal(t, 0, config.ChannelCapacity)
	assert.Equal(t, FullModeWait, config.ChannelFullMode)
	assert.False(t, config.UseGlobalStoppingToken)
	assert.False(t, config.EnableDetailedLogging)
	assert.Positive(t, config.DrainTimeout)
}
