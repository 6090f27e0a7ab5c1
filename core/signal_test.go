package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSignal(t *testing.T) {
	sig := NewSignal("hello", "agent-a", []float64{1, 0})

	assert.Len(t, sig.ID, 36)
	assert.Equal(t, "hello", sig.Thought)
	assert.Equal(t, "agent-a", sig.EmittedBy)
	assert.Equal(t, 2, sig.Dimensions())
	assert.False(t, sig.Timestamp.IsZero())
	assert.Equal(t, "UTC", sig.Timestamp.Location().String())
}

func TestSignal_RelayKeepsOrigin(t *testing.T) {
	sig := NewSignal("raw", "a", []float64{0.5})
	relayed := sig.Relay("translated", "a")

	assert.Equal(t, sig.ID, relayed.ID)
	assert.Equal(t, "translated", relayed.Thought)
	assert.Equal(t, "raw", sig.Thought, "relay must not mutate the source")
	assert.Equal(t, sig.Timestamp, relayed.Timestamp)
}

func TestSentinels(t *testing.T) {
	for _, id := range []string{SourceExternal, SourceSystem, SourceEnvironment} {
		assert.Truef(t, IsSentinel(id), "%s is a sentinel", id)
	}
	assert.False(t, IsSentinel("agent-1"))

	assert.True(t, IsBroadcaster(SourceExternal))
	assert.True(t, IsBroadcaster(SourceSystem))
	assert.False(t, IsBroadcaster(SourceEnvironment))
}

func TestReceptorField(t *testing.T) {
	r := NewReceptorField("budget", "cost")
	assert.Equal(t, DefaultThreshold, r.Threshold)
	assert.Equal(t, "budget; cost", r.Text())

	assert.True(t, r.Resonates(0.61))
	assert.False(t, r.Resonates(0.6), "threshold itself does not resonate")

	zero := ReceptorField{Patterns: []string{"x"}}
	assert.Equal(t, DefaultThreshold, zero.EffectiveThreshold())

	open := ReceptorField{Patterns: []string{"x"}, Threshold: AnyPositive}
	assert.Equal(t, 0.0, open.EffectiveThreshold())
	assert.True(t, open.Resonates(0.01))
	assert.False(t, open.Resonates(0))
	assert.False(t, open.Resonates(-0.3))
}

func TestBlueprint_Validate(t *testing.T) {
	tests := []struct {
		name    string
		bp      Blueprint
		wantErr bool
	}{
		{name: "valid", bp: Blueprint{ID: "b1", Patterns: []string{"law"}}},
		{name: "missing id", bp: Blueprint{Patterns: []string{"law"}}, wantErr: true},
		{name: "no patterns", bp: Blueprint{ID: "b1"}, wantErr: true},
		{name: "blank patterns", bp: Blueprint{ID: "b1", Patterns: []string{" ", ""}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bp.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedBlueprint))
		})
	}
}

func TestAgentInfo_Description(t *testing.T) {
	info := AgentInfo{ID: "x", Name: "Economist", Patterns: []string{"cost", "budget"}}
	assert.Equal(t, "Economist: cost, budget", info.Description())

	bp := Blueprint{ID: "bridge-1"}
	assert.Equal(t, "bridge-1", bp.DisplayName())
}
