package widget

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-chatkit/backend/internal/model/ui"
)

func fastHost(reg Registry) *Host {
	return NewHost(reg, ui.NewMemoryStore(ui.Default()),
		WithPollInterval(time.Millisecond),
		WithTimeout(50*time.Millisecond),
	)
}

func TestWaitReadyLoadEvent(t *testing.T) {
	h := fastHost(nil)

	go func() {
		time.Sleep(5 * time.Millisecond)
		h.ScriptLoaded()
	}()

	require.NoError(t, h.WaitReady(context.Background()))
	assert.True(t, h.Ready())
}

func TestWaitReadyPollsRegistry(t *testing.T) {
	var defined atomic.Bool
	h := fastHost(RegistryFunc(func(name string) bool {
		return name == ElementName && defined.Load()
	}))

	go func() {
		time.Sleep(5 * time.Millisecond)
		defined.Store(true)
	}()

	require.NoError(t, h.WaitReady(context.Background()))
	assert.True(t, h.Ready())
}

func TestWaitReadyTimesOut(t *testing.T) {
	h := fastHost(RegistryFunc(func(string) bool { return false }))

	err := h.WaitReady(context.Background())
	assert.ErrorIs(t, err, ErrScriptUnavailable)
	assert.False(t, h.Ready())
}

func TestWaitReadyErrorEvent(t *testing.T) {
	h := fastHost(nil)
	loadErr := errors.New("script blocked")

	go h.ScriptFailed(loadErr)

	assert.ErrorIs(t, h.WaitReady(context.Background()), loadErr)
}

func TestRetryRestartsDetection(t *testing.T) {
	h := fastHost(nil)
	h.ScriptFailed(nil)
	require.ErrorIs(t, h.WaitReady(context.Background()), ErrScriptUnavailable)

	h.Retry()
	h.ScriptLoaded()
	assert.NoError(t, h.WaitReady(context.Background()))
}

func TestWaitReadyHonoursContext(t *testing.T) {
	h := NewHost(nil, nil, WithTimeout(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, h.WaitReady(ctx), context.Canceled)
}

func TestRenderRequiresScriptAndCredential(t *testing.T) {
	h := fastHost(nil)

	_, err := h.Render(0, "ek_secret", ui.Light)
	assert.ErrorIs(t, err, ErrNotReady)

	h.ScriptLoaded()
	_, err = h.Render(0, "", ui.Light)
	assert.ErrorIs(t, err, ErrNotReady)

	props, err := h.Render(3, "ek_secret", ui.Dark)
	require.NoError(t, err)
	assert.Equal(t, 3, props.InstanceKey)
	assert.Equal(t, "ek_secret", props.ClientSecret)
	assert.Equal(t, ui.Dark, props.Theme.ColorScheme)
	assert.Equal(t, "How can I help you today?", props.Config.Greeting)
	assert.NotContains(t, props.String(), "ek_secret")
}
