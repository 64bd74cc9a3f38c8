package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestState_CanTransition(t *testing.T) {
	tests := []struct {
		from, to domain.State
		want     bool
	}{
		{domain.StateUndef, domain.StateCreating, true},
		{domain.StateUndef, domain.StateCreated, false},
		{domain.StateCreating, domain.StateCreated, true},
		{domain.StateCreated, domain.StateMounting, true},
		{domain.StateCreated, domain.StateMounted, false},
		{domain.StateMounting, domain.StateMounted, true},
		{domain.StateMounted, domain.StateCreated, true},
		{domain.StateMounted, domain.StateUndef, true},
		{domain.StateCreating, domain.StateMounting, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestWaitError_Unwrap(t *testing.T) {
	err := &domain.WaitError{Capability: "map", Timeout: time.Second, Err: domain.ErrWaitTimeout}

	assert.True(t, errors.Is(err, domain.ErrWaitTimeout))
	assert.Contains(t, err.Error(), "wait for map injection")
}

func TestLifecycleEvent_IsError(t *testing.T) {
	assert.True(t, domain.EventMountError.IsError())
	assert.False(t, domain.EventMounted.IsError())
	assert.Equal(t, "update:visible", domain.UpdateEvent("visible"))
}
