package controller

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/themesync/internal/preference"
	"github.com/jmylchreest/themesync/internal/surface"
	"github.com/jmylchreest/themesync/internal/theme"
)

const (
	darkMarker  = "dt-polar-dark"
	lightMarker = "dt-polar-light"
)

func newController(t *testing.T, s surface.Surface, opts ...Option) *Controller {
	t.Helper()
	c, err := New(s, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func markerCount(s surface.Surface) int {
	n := 0
	for _, m := range []string{darkMarker, lightMarker} {
		if s.Contains(m) {
			n++
		}
	}
	return n
}

func TestNew_NilSurface(t *testing.T) {
	c, err := New(nil)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrNoSurface)
}

func TestNew_InitialTheme(t *testing.T) {
	tests := []struct {
		name     string
		classes  []string
		expected theme.Theme
	}{
		{"no markers", []string{"app"}, theme.Unset},
		{"dark marker", []string{"app", darkMarker}, theme.Dark},
		{"light marker", []string{lightMarker}, theme.Light},
		{"both markers resolve to dark", []string{lightMarker, darkMarker}, theme.Dark},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newController(t, surface.NewMemory(tt.classes...))
			assert.Equal(t, tt.expected, c.Theme())
		})
	}
}

func TestController_Scenario(t *testing.T) {
	s := surface.NewMemory()
	c := newController(t, s, WithFollowDevice(false))
	assert.Equal(t, theme.Unset, c.Theme())

	require.NoError(t, c.Set(theme.Light))
	assert.True(t, s.Contains(lightMarker))
	assert.False(t, s.Contains(darkMarker))
	assert.Equal(t, theme.Light, c.Theme())

	require.NoError(t, c.Set(theme.Dark))
	assert.False(t, s.Contains(lightMarker))
	assert.True(t, s.Contains(darkMarker))
	assert.Equal(t, theme.Dark, c.Theme())
}

func TestController_SetIsIdempotent(t *testing.T) {
	s := surface.NewMemory("app")
	c := newController(t, s)

	require.NoError(t, c.Set(theme.Dark))
	require.NoError(t, c.Set(theme.Dark))

	assert.Equal(t, theme.Dark, c.Theme())
	assert.Equal(t, []string{"app", darkMarker}, s.Classes())
}

func TestController_MutualExclusion(t *testing.T) {
	s := surface.NewMemory(lightMarker, darkMarker)
	c := newController(t, s)

	sequence := []theme.Theme{
		theme.Light, theme.Dark, theme.Unset, theme.Dark, theme.Dark,
		theme.Light, theme.Unset, theme.Unset, theme.Light,
	}
	for i, next := range sequence {
		require.NoError(t, c.Set(next))
		assert.LessOrEqual(t, markerCount(s), 1, "step %d (%s)", i, next)
		assert.Equal(t, next, c.Theme())
		assert.Equal(t, next, theme.Resolve(s.Contains, theme.DefaultMarkerPrefix))
	}
}

func TestController_SetUnsetClearsMarkers(t *testing.T) {
	s := surface.NewMemory("app", darkMarker)
	c := newController(t, s)

	require.NoError(t, c.Set(theme.Unset))
	assert.Equal(t, theme.Unset, c.Theme())
	assert.Equal(t, []string{"app"}, s.Classes())
}

func TestController_SetInvalid(t *testing.T) {
	s := surface.NewMemory(lightMarker)
	c := newController(t, s)

	err := c.Set(theme.Theme("polar-blue"))
	require.Error(t, err)
	assert.ErrorIs(t, err, theme.ErrInvalidTheme)

	// Nothing changed
	assert.Equal(t, theme.Light, c.Theme())
	assert.Equal(t, []string{lightMarker}, s.Classes())
}

func TestController_UpdateToggle(t *testing.T) {
	tests := []struct {
		name     string
		classes  []string
		expected theme.Theme
	}{
		{"from unset", nil, theme.Dark},
		{"from dark", []string{darkMarker}, theme.Light},
		{"from light", []string{lightMarker}, theme.Dark},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := surface.NewMemory(tt.classes...)
			c := newController(t, s)

			require.NoError(t, c.Update(func(current theme.Theme) theme.Theme {
				if current == theme.Dark {
					return theme.Light
				}
				return theme.Dark
			}))
			assert.Equal(t, tt.expected, c.Theme())
			assert.True(t, s.Contains(tt.expected.Marker(theme.DefaultMarkerPrefix)))
			assert.Equal(t, 1, markerCount(s))
		})
	}
}

func TestController_UpdateSeesCachedValue(t *testing.T) {
	s := surface.NewMemory(darkMarker)
	c := newController(t, s)

	var seen theme.Theme
	require.NoError(t, c.Update(func(current theme.Theme) theme.Theme {
		seen = current
		return current
	}))
	assert.Equal(t, theme.Dark, seen)
}

func TestController_UpdateInvalid(t *testing.T) {
	c := newController(t, surface.NewMemory())

	assert.ErrorIs(t, c.Update(nil), theme.ErrInvalidTheme)
	assert.ErrorIs(t, c.Update(func(theme.Theme) theme.Theme { return "dt-x" }), theme.ErrInvalidTheme)
	assert.Equal(t, theme.Unset, c.Theme())
}

func TestController_ReconcilesExternalChange(t *testing.T) {
	s := surface.NewMemory()
	c := newController(t, s)
	require.Equal(t, theme.Unset, c.Theme())

	// Another agent adds the light marker directly
	require.NoError(t, s.Add(lightMarker))
	assert.Eventually(t, func() bool { return c.Theme() == theme.Light }, time.Second, 5*time.Millisecond)

	// And then adds the dark marker without removing light
	require.NoError(t, s.Add(darkMarker))
	assert.Eventually(t, func() bool { return c.Theme() == theme.Dark }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Remove(darkMarker))
	require.NoError(t, s.Remove(lightMarker))
	assert.Eventually(t, func() bool { return c.Theme() == theme.Unset }, time.Second, 5*time.Millisecond)
}

func TestController_ReconcileDoesNotWrite(t *testing.T) {
	s := surface.NewMemory()
	c := newController(t, s)

	require.NoError(t, s.Add(lightMarker))
	require.NoError(t, s.Add(darkMarker))
	assert.Eventually(t, func() bool { return c.Theme() == theme.Dark }, time.Second, 5*time.Millisecond)

	// The conflicting state is reported, not repaired
	assert.Equal(t, []string{lightMarker, darkMarker}, s.Classes())
}

func TestController_FollowDevice(t *testing.T) {
	s := surface.NewMemory()
	src := preference.NewEmitter()
	c := newController(t, s, WithPreferenceSource(src), WithFollowDevice(true))

	src.Emit(true)
	assert.Equal(t, theme.Dark, c.Theme())
	assert.True(t, s.Contains(darkMarker))

	src.Emit(false)
	assert.Equal(t, theme.Light, c.Theme())
	assert.True(t, s.Contains(lightMarker))
	assert.False(t, s.Contains(darkMarker))
}

func TestController_FollowDeviceDisabled(t *testing.T) {
	s := surface.NewMemory(lightMarker)
	src := preference.NewEmitter()
	c := newController(t, s, WithPreferenceSource(src))

	// The listener is installed even when not following
	assert.Equal(t, 1, src.Subscribers())

	src.Emit(true)
	assert.Equal(t, theme.Light, c.Theme())
	assert.Equal(t, []string{lightMarker}, s.Classes())
}

func TestController_FollowDeviceIsLive(t *testing.T) {
	s := surface.NewMemory()
	src := preference.NewEmitter()
	c := newController(t, s, WithPreferenceSource(src))
	assert.False(t, c.FollowDevice())

	src.Emit(true)
	assert.Equal(t, theme.Unset, c.Theme())

	c.SetFollowDevice(true)
	src.Emit(true)
	assert.Equal(t, theme.Dark, c.Theme())

	c.SetFollowDevice(false)
	src.Emit(false)
	assert.Equal(t, theme.Dark, c.Theme())
}

func TestController_Subscribe(t *testing.T) {
	s := surface.NewMemory()
	c := newController(t, s)
	ch := c.Subscribe()

	require.NoError(t, c.Set(theme.Dark))

	select {
	case change := <-ch:
		assert.Equal(t, theme.Unset, change.From)
		assert.Equal(t, theme.Dark, change.To)
		assert.Equal(t, CauseSet, change.Cause)
		assert.Len(t, change.ID, 26)
		assert.False(t, change.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected change event")
	}

	// Setting the same value again is not a change
	require.NoError(t, c.Set(theme.Dark))
	select {
	case change := <-ch:
		t.Fatalf("unexpected change: %+v", change)
	case <-time.After(30 * time.Millisecond):
	}

	c.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok, "channel closed after unsubscribe")
}

func TestController_SubscribeReconcileCause(t *testing.T) {
	s := surface.NewMemory()
	c := newController(t, s)
	ch := c.Subscribe()

	require.NoError(t, s.Add(lightMarker))

	select {
	case change := <-ch:
		assert.Equal(t, theme.Light, change.To)
		assert.Equal(t, CauseReconcile, change.Cause)
	case <-time.After(time.Second):
		t.Fatal("expected change event")
	}
}

func TestController_MarkerPrefix(t *testing.T) {
	s := surface.NewMemory("app-polar-light")
	c := newController(t, s, WithMarkerPrefix("app-"))
	assert.Equal(t, "app-", c.MarkerPrefix())
	assert.Equal(t, theme.Light, c.Theme())

	require.NoError(t, c.Set(theme.Dark))
	assert.Equal(t, []string{"app-polar-dark"}, s.Classes())
	assert.Equal(t, []string{"app-polar-dark"}, c.Markers())
}

func TestController_CloseReleasesSubscriptions(t *testing.T) {
	s := surface.NewMemory()
	src := preference.NewEmitter()
	c, err := New(s, WithPreferenceSource(src), WithFollowDevice(true))
	require.NoError(t, err)

	assert.Equal(t, 1, s.ObserverCount())
	assert.Equal(t, 1, src.Subscribers())
	ch := c.Subscribe()

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.Equal(t, 0, s.ObserverCount())
	assert.Equal(t, 0, src.Subscribers())

	_, ok := <-ch
	assert.False(t, ok)

	assert.ErrorIs(t, c.Set(theme.Dark), ErrClosed)
	assert.Empty(t, s.Classes())
}

type failingSource struct{}

func (failingSource) Subscribe(preference.Handler) (func() error, error) {
	return nil, errors.New("no session bus")
}

func TestNew_SourceFailureReleasesObserver(t *testing.T) {
	s := surface.NewMemory()
	c, err := New(s, WithPreferenceSource(failingSource{}))
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Equal(t, 0, s.ObserverCount())
}

type brokenSurface struct {
	*surface.Memory
}

func (b brokenSurface) Add(string) error {
	return errors.New("read-only surface")
}

func TestController_SetSurfaceError(t *testing.T) {
	s := brokenSurface{surface.NewMemory(lightMarker)}
	c := newController(t, s)

	err := c.Set(theme.Dark)
	require.Error(t, err)

	// Light was removed before the add failed; the cache follows the surface
	assert.Equal(t, theme.Unset, c.Theme())
	assert.Empty(t, s.Classes())
}

// interleavingFile runs onRemove once, after the first Remove returns.
type interleavingFile struct {
	*surface.File
	once     sync.Once
	onRemove func()
}

func (f *interleavingFile) Remove(class string) error {
	err := f.File.Remove(class)
	f.once.Do(f.onRemove)
	return err
}

func TestController_SettersAcrossFileHandlesDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes")
	require.NoError(t, surface.NewFile(path, nil).Add(lightMarker))

	b := newController(t, surface.NewFile(path, nil))

	done := make(chan error, 1)
	sa := &interleavingFile{File: surface.NewFile(path, nil)}
	sa.onRemove = func() {
		// Another process sets light between a's removal and a's addition
		go func() { done <- b.Set(theme.Light) }()
		select {
		case err := <-done:
			t.Errorf("second setter ran inside the first update (err=%v)", err)
		case <-time.After(100 * time.Millisecond):
		}
	}
	a := newController(t, sa)

	require.NoError(t, a.Set(theme.Dark))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("second setter never completed")
	}

	final := surface.NewFile(path, nil)
	assert.Equal(t, 1, markerCount(final), "classes=%v", final.Classes())
	assert.True(t, final.Contains(lightMarker))
	assert.Equal(t, theme.Light, b.Theme())
}
