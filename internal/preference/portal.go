package preference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	// PortalBusName is the XDG desktop portal bus name.
	PortalBusName = "org.freedesktop.portal.Desktop"
	// PortalPath is the portal object path.
	PortalPath = "/org/freedesktop/portal/desktop"
	// SettingsInterface is the portal settings interface.
	SettingsInterface = "org.freedesktop.portal.Settings"

	appearanceNamespace = "org.freedesktop.appearance"
	colorSchemeKey      = "color-scheme"
)

// ColorScheme is the portal's color-scheme setting.
type ColorScheme uint32

const (
	ColorSchemeNoPreference ColorScheme = 0
	ColorSchemePreferDark   ColorScheme = 1
	ColorSchemePreferLight  ColorScheme = 2
)

// String returns a human-readable name.
func (c ColorScheme) String() string {
	switch c {
	case ColorSchemePreferDark:
		return "prefer-dark"
	case ColorSchemePreferLight:
		return "prefer-light"
	default:
		return "no-preference"
	}
}

// PrefersDark reports whether the scheme asks for a dark theme.
func (c ColorScheme) PrefersDark() bool {
	return c == ColorSchemePreferDark
}

var errNotColorScheme = errors.New("signal is not a color-scheme change")

// Portal reads the color-scheme preference from the XDG desktop portal.
type Portal struct {
	mu     sync.Mutex
	conn   *dbus.Conn
	logger *slog.Logger
}

// NewPortal creates a portal source. If conn is nil the shared session bus
// is used on first access.
func NewPortal(conn *dbus.Conn, logger *slog.Logger) *Portal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Portal{conn: conn, logger: logger}
}

func (p *Portal) connection() (*dbus.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		return p.conn, nil
	}
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	p.conn = conn
	return conn, nil
}

// ColorScheme reads the current setting.
func (p *Portal) ColorScheme(ctx context.Context) (ColorScheme, error) {
	conn, err := p.connection()
	if err != nil {
		return ColorSchemeNoPreference, err
	}
	obj := conn.Object(PortalBusName, PortalPath)

	var value dbus.Variant
	err = obj.CallWithContext(ctx, SettingsInterface+".ReadOne", 0, appearanceNamespace, colorSchemeKey).Store(&value)
	if err != nil {
		// ReadOne is portal v2; older portals only have the deprecated Read
		p.logger.Debug("ReadOne failed, falling back to Read", "error", err)
		if err := obj.CallWithContext(ctx, SettingsInterface+".Read", 0, appearanceNamespace, colorSchemeKey).Store(&value); err != nil {
			return ColorSchemeNoPreference, fmt.Errorf("failed to read color-scheme: %w", err)
		}
	}

	scheme, ok := parseColorScheme(value)
	if !ok {
		return ColorSchemeNoPreference, fmt.Errorf("unexpected color-scheme value %s", value.String())
	}
	return scheme, nil
}

// PrefersDark implements Querier.
func (p *Portal) PrefersDark(ctx context.Context) (bool, error) {
	scheme, err := p.ColorScheme(ctx)
	if err != nil {
		return false, err
	}
	return scheme.PrefersDark(), nil
}

// Subscribe listens for SettingChanged signals until cancel is called.
func (p *Portal) Subscribe(fn Handler) (func() error, error) {
	conn, err := p.connection()
	if err != nil {
		return nil, err
	}

	matchOpts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(PortalPath),
		dbus.WithMatchInterface(SettingsInterface),
		dbus.WithMatchMember("SettingChanged"),
		dbus.WithMatchArg(0, appearanceNamespace),
	}
	if err := conn.AddMatchSignal(matchOpts...); err != nil {
		return nil, fmt.Errorf("failed to add match rule: %w", err)
	}

	ch := make(chan *dbus.Signal, 16)
	conn.Signal(ch)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			case sig := <-ch:
				scheme, err := colorSchemeFromSignal(sig)
				if err != nil {
					continue
				}
				p.logger.Debug("color-scheme changed", "scheme", scheme.String())
				fn(scheme.PrefersDark())
			}
		}
	}()

	p.logger.Debug("subscribed to portal color-scheme changes")

	var once sync.Once
	return func() error {
		var cancelErr error
		once.Do(func() {
			// The channel is left open; godbus may still hold a pending send
			conn.RemoveSignal(ch)
			close(stop)
			<-done
			if err := conn.RemoveMatchSignal(matchOpts...); err != nil {
				cancelErr = fmt.Errorf("failed to remove match rule: %w", err)
			}
		})
		return cancelErr
	}, nil
}

// colorSchemeFromSignal extracts the setting from a SettingChanged signal.
// SettingChanged(namespace s, key s, value v)
func colorSchemeFromSignal(sig *dbus.Signal) (ColorScheme, error) {
	if sig == nil || sig.Name != SettingsInterface+".SettingChanged" || len(sig.Body) < 3 {
		return ColorSchemeNoPreference, errNotColorScheme
	}
	namespace, ok := sig.Body[0].(string)
	if !ok || namespace != appearanceNamespace {
		return ColorSchemeNoPreference, errNotColorScheme
	}
	key, ok := sig.Body[1].(string)
	if !ok || key != colorSchemeKey {
		return ColorSchemeNoPreference, errNotColorScheme
	}
	value, ok := sig.Body[2].(dbus.Variant)
	if !ok {
		return ColorSchemeNoPreference, errNotColorScheme
	}
	scheme, ok := parseColorScheme(value)
	if !ok {
		return ColorSchemeNoPreference, errNotColorScheme
	}
	return scheme, nil
}

// parseColorScheme unwraps the (possibly nested) variant carrying the setting.
func parseColorScheme(v dbus.Variant) (ColorScheme, bool) {
	switch val := v.Value().(type) {
	case uint32:
		if val > uint32(ColorSchemePreferLight) {
			return ColorSchemeNoPreference, true
		}
		return ColorScheme(val), true
	case dbus.Variant:
		// Read wraps the value in an extra variant
		return parseColorScheme(val)
	default:
		return ColorSchemeNoPreference, false
	}
}
