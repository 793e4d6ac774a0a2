package preference

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBusConfig = `<!DOCTYPE busconfig PUBLIC "-//freedesktop//DTD D-Bus Bus Configuration 1.0//EN"
 "http://www.freedesktop.org/standards/dbus/1.0/busconfig.dtd">
<busconfig>
  <type>session</type>
  <listen>unix:path=%SOCKET%</listen>
  <policy context="default">
    <allow send_destination="*"/>
    <allow own="*"/>
  </policy>
</busconfig>
`

// startTestBus runs a private dbus-daemon and returns its address.
func startTestBus(t *testing.T) string {
	t.Helper()

	daemon, err := exec.LookPath("dbus-daemon")
	if err != nil {
		t.Skip("dbus-daemon not available")
	}

	// Short directory: unix socket paths are limited to ~108 bytes
	dir, err := os.MkdirTemp("", "themesync-bus")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	configPath := filepath.Join(dir, "bus.conf")
	config := strings.ReplaceAll(testBusConfig, "%SOCKET%", filepath.Join(dir, "bus"))
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0644))

	cmd := exec.Command(daemon, "--config-file="+configPath, "--nofork", "--print-address")
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	if err := cmd.Start(); err != nil {
		t.Skipf("failed to start dbus-daemon: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	addrCh := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(stdout).ReadString('\n')
		addrCh <- strings.TrimSpace(line)
	}()

	select {
	case addr := <-addrCh:
		if addr == "" {
			t.Skip("dbus-daemon did not report an address")
		}
		return addr
	case <-time.After(5 * time.Second):
		t.Skip("dbus-daemon did not start")
		return ""
	}
}

func connectTestBus(t *testing.T, addr string) *dbus.Conn {
	t.Helper()
	conn, err := dbus.Connect(addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// fakeSettings serves org.freedesktop.portal.Settings.
type fakeSettings struct {
	mu     sync.Mutex
	scheme uint32
}

func (f *fakeSettings) ReadOne(namespace, key string) (dbus.Variant, *dbus.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if namespace != appearanceNamespace || key != colorSchemeKey {
		return dbus.Variant{}, dbus.NewError("org.freedesktop.portal.Error.NotFound", nil)
	}
	return dbus.MakeVariant(f.scheme), nil
}

// legacySettings only has the deprecated Read, which nests the value.
type legacySettings struct {
	scheme uint32
}

func (l *legacySettings) Read(namespace, key string) (dbus.Variant, *dbus.Error) {
	return dbus.MakeVariant(dbus.MakeVariant(l.scheme)), nil
}

// servePortal exports settings as the portal on a second connection.
func servePortal(t *testing.T, addr string, settings interface{}) *dbus.Conn {
	t.Helper()
	conn := connectTestBus(t, addr)

	require.NoError(t, conn.Export(settings, PortalPath, SettingsInterface))
	reply, err := conn.RequestName(PortalBusName, dbus.NameFlagDoNotQueue)
	require.NoError(t, err)
	require.Equal(t, dbus.RequestNameReplyPrimaryOwner, reply)
	return conn
}

func emitSetting(t *testing.T, conn *dbus.Conn, namespace, key string, scheme uint32) {
	t.Helper()
	require.NoError(t, conn.Emit(dbus.ObjectPath(PortalPath), SettingsInterface+".SettingChanged",
		namespace, key, dbus.MakeVariant(scheme)))
}

func TestPortal_ColorSchemeReadOne(t *testing.T) {
	addr := startTestBus(t)
	servePortal(t, addr, &fakeSettings{scheme: uint32(ColorSchemePreferDark)})

	p := NewPortal(connectTestBus(t, addr), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	scheme, err := p.ColorScheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ColorSchemePreferDark, scheme)

	dark, err := p.PrefersDark(ctx)
	require.NoError(t, err)
	assert.True(t, dark)
}

func TestPortal_ColorSchemeFallsBackToRead(t *testing.T) {
	addr := startTestBus(t)
	servePortal(t, addr, &legacySettings{scheme: uint32(ColorSchemePreferLight)})

	p := NewPortal(connectTestBus(t, addr), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	scheme, err := p.ColorScheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ColorSchemePreferLight, scheme)
}

func TestPortal_SubscribeLifecycle(t *testing.T) {
	addr := startTestBus(t)
	server := servePortal(t, addr, &fakeSettings{})

	p := NewPortal(connectTestBus(t, addr), nil)

	events := make(chan bool, 8)
	cancel, err := p.Subscribe(func(prefersDark bool) { events <- prefersDark })
	require.NoError(t, err)

	emitSetting(t, server, appearanceNamespace, colorSchemeKey, uint32(ColorSchemePreferDark))
	select {
	case dark := <-events:
		assert.True(t, dark)
	case <-time.After(5 * time.Second):
		t.Fatal("no color-scheme event delivered")
	}

	emitSetting(t, server, appearanceNamespace, colorSchemeKey, uint32(ColorSchemeNoPreference))
	select {
	case dark := <-events:
		assert.False(t, dark)
	case <-time.After(5 * time.Second):
		t.Fatal("no color-scheme event delivered")
	}

	// Other keys and namespaces are ignored
	emitSetting(t, server, appearanceNamespace, "accent-color", 1)
	emitSetting(t, server, "org.gnome.desktop.interface", colorSchemeKey, 1)

	require.NoError(t, cancel())
	require.NoError(t, cancel())

	emitSetting(t, server, appearanceNamespace, colorSchemeKey, uint32(ColorSchemePreferDark))
	assert.Never(t, func() bool { return len(events) > 0 }, 300*time.Millisecond, 20*time.Millisecond)
}
