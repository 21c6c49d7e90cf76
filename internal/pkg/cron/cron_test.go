package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualRun(t *testing.T) {
	s := New()
	var ran atomic.Int32
	s.Register(Job{
		Name:     "tick",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			ran.Add(1)
			return nil
		},
	})

	require.NoError(t, s.Run(context.Background(), "tick"))
	require.Eventually(t, func() bool {
		task, err := s.GetTask("tick")
		return err == nil && task.Status == StatusFulfill
	}, time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, ran.Load())
}

func TestFailedJobReportsReject(t *testing.T) {
	s := New()
	s.Register(Job{
		Name:     "broken",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			return errors.New("boom")
		},
	})

	require.NoError(t, s.Run(context.Background(), "broken"))
	require.Eventually(t, func() bool {
		task, err := s.GetTask("broken")
		return err == nil && task.Status == StatusReject && task.Message == "boom"
	}, time.Second, 10*time.Millisecond)
}

func TestUnknownJob(t *testing.T) {
	s := New()
	assert.Error(t, s.Run(context.Background(), "ghost"))
	_, err := s.GetTask("ghost")
	assert.Error(t, err)
}

func TestListReportsRegisteredJobs(t *testing.T) {
	s := New()
	s.Register(Job{Name: "a", Description: "first", Interval: time.Hour, Fn: func(context.Context) error { return nil }})
	s.Register(Job{Name: "b", Description: "second", Interval: time.Hour, Fn: func(context.Context) error { return nil }})

	items := s.List()
	require.Len(t, items, 2)
	names := map[string]bool{}
	for _, it := range items {
		names[it.Name] = true
		assert.Equal(t, StatusIdle, it.Status)
		require.NotNil(t, it.NextDate)
	}
	assert.True(t, names["a"] && names["b"])
}
