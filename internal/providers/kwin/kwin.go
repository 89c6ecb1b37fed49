// Package kwin drives the KWin window provider: it loads a helper script
// into the compositor's scripting endpoint, which publishes window context
// back to the org.wctx service over the session bus.
package kwin

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/slightlyfaulty/wctx/internal/logger"
)

//go:embed assets/kwin.js
var script []byte

const (
	kwinService        = "org.kde.KWin"
	scriptingPath      = dbus.ObjectPath("/Scripting")
	scriptingInterface = "org.kde.kwin.Scripting"
	scriptInterface    = "org.kde.kwin.Script"
)

// Detect reports whether the session is running inside KDE.
func Detect() bool {
	return os.Getenv("KDE_SESSION_VERSION") != ""
}

// Serve writes the helper script to disk, loads and runs it in KWin, then
// blocks until the context is cancelled and tears the script down again.
func Serve(ctx context.Context) error {
	log := logger.WithComponent("kwin")

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	scriptPath, err := writeScript()
	if err != nil {
		return fmt.Errorf("failed to write KWin helper script: %w", err)
	}

	scripting := conn.Object(kwinService, scriptingPath)

	// a stale copy may still be loaded from a previous run
	for {
		var loaded bool
		if err := scripting.Call(scriptingInterface+".isScriptLoaded", 0, scriptPath).Store(&loaded); err != nil {
			return fmt.Errorf("failed to query KWin scripting: %w", err)
		}
		if !loaded {
			break
		}
		if err := scripting.Call(scriptingInterface+".unloadScript", 0, scriptPath).Err; err != nil {
			return fmt.Errorf("failed to unload stale KWin script: %w", err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	var scriptNum int32
	if err := scripting.Call(scriptingInterface+".loadScript", 0, scriptPath).Store(&scriptNum); err != nil {
		return fmt.Errorf("failed to load KWin script: %w", err)
	}

	time.Sleep(100 * time.Millisecond)

	runner := conn.Object(kwinService, dbus.ObjectPath(fmt.Sprintf("/Scripting/Script%d", scriptNum)))
	if err := runner.Call(scriptInterface+".run", 0).Err; err != nil {
		return fmt.Errorf("failed to run KWin script: %w", err)
	}

	log.Info().Str("script", scriptPath).Msg("KWin helper script running")

	<-ctx.Done()

	_ = runner.Call(scriptInterface+".stop", 0).Err
	_ = os.Remove(scriptPath)

	return nil
}

func writeScript() (string, error) {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}

	path := filepath.Join(dir, "wctx_kwin.js")
	if err := os.WriteFile(path, script, 0o644); err != nil {
		return "", err
	}

	return path, nil
}
