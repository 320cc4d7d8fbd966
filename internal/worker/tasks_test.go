package worker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAutoBetIterationTask(t *testing.T) {
	task, err := NewAutoBetIterationTask(42)
	require.NoError(t, err)

	assert.Equal(t, TypeAutoBetIteration, task.Type())

	var payload AutoBetIterationPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, uint(42), payload.SessionID)
}
