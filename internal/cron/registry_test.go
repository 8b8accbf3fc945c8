package cron

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	a := &testJob{name: "outbox-retention"}
	b := &testJob{name: "dlq-retention"}
	registry, err := NewRegistry(a, b)
	require.NoError(t, err)

	jobs := registry.Jobs()
	require.Equal(t, []Job{a, b}, jobs)

	jobs[0] = nil
	require.NotNil(t, registry.Jobs()[0])
}

func TestRegistryRejectsInvalidJobs(t *testing.T) {
	_, err := NewRegistry(&testJob{name: "dlq-retention"}, &testJob{name: "dlq-retention"})
	require.ErrorContains(t, err, "registered twice")

	registry, err := NewRegistry()
	require.NoError(t, err)
	require.Error(t, registry.Register(nil))
	require.Error(t, registry.Register(&testJob{}))
	require.Empty(t, registry.Jobs())
}
