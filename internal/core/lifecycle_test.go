package core

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replication-agent/internal/types"
)

func TestLifecycleHappyPath(t *testing.T) {
	lifecycle := NewLifecycle()
	lifecycle.Track("pkg", types.PackageStateBuilt)

	for _, next := range []types.PackageState{
		types.PackageStateQueued,
		types.PackageStateExporting,
		types.PackageStateDelivered,
		types.PackageStateImported,
	} {
		require.NoError(t, lifecycle.Transition("pkg", next))
		state, ok := lifecycle.State("pkg")
		require.True(t, ok)
		assert.Equal(t, next, state)
	}

	require.NoError(t, lifecycle.Transition("pkg", types.PackageStateDeleted))
	_, ok := lifecycle.State("pkg")
	assert.False(t, ok)
}

func TestLifecycleRejectsIllegalTransition(t *testing.T) {
	lifecycle := NewLifecycle()
	lifecycle.Track("pkg", types.PackageStateBuilt)

	err := lifecycle.Transition("pkg", types.PackageStateImported)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))

	state, _ := lifecycle.State("pkg")
	assert.Equal(t, types.PackageStateBuilt, state)
}

func TestLifecycleUnknownPackage(t *testing.T) {
	err := NewLifecycle().Transition("missing", types.PackageStateQueued)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestLifecycleFailedCanBeRequeued(t *testing.T) {
	lifecycle := NewLifecycle()
	lifecycle.Track("pkg", types.PackageStateQueued)
	require.NoError(t, lifecycle.Transition("pkg", types.PackageStateExporting))
	require.NoError(t, lifecycle.Transition("pkg", types.PackageStateFailed))
	require.NoError(t, lifecycle.Transition("pkg", types.PackageStateQueued))

	assert.True(t, CanTransition(types.PackageStateDelivered, types.PackageStateDeleted))
	assert.False(t, CanTransition(types.PackageStateDeleted, types.PackageStateQueued))
}
