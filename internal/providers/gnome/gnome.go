// Package gnome drives the GNOME window provider: it enables (installing if
// necessary) a shell extension that publishes window context back to the
// org.wctx service over the session bus.
package gnome

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/godbus/dbus/v5"

	"github.com/slightlyfaulty/wctx/internal/logger"
	"github.com/slightlyfaulty/wctx/internal/service"
)

//go:embed assets/extension.js assets/metadata.json
var assets embed.FS

// ExtensionUUID identifies the helper shell extension.
const ExtensionUUID = "wctx@slightlyfaulty.github.io"

const (
	shellService   = "org.gnome.Shell.Extensions"
	shellPath      = dbus.ObjectPath("/org/gnome/Shell/Extensions")
	shellInterface = "org.gnome.Shell.Extensions"
)

// Detect reports whether the session is running inside GNOME.
func Detect() bool {
	return os.Getenv("XDG_SESSION_DESKTOP") == "gnome"
}

// Serve enables the helper extension, installing it first if GNOME doesn't
// know it yet, then blocks until the context is cancelled and disables it
// again. When only a manual file install is possible, the daemon stays up
// with a Status message telling the user to log out and back in.
func Serve(ctx context.Context, svc *service.Service) error {
	log := logger.WithComponent("gnome")

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	shell := conn.Object(shellService, shellPath)

	enabled, err := enableExtension(shell)
	if err != nil {
		return fmt.Errorf("failed to talk to GNOME Shell: %w", err)
	}

	if !enabled {
		extDir, err := extensionsDir()
		if err != nil {
			return err
		}
		extDir = filepath.Join(extDir, ExtensionUUID)

		if _, err := os.Stat(extDir); err == nil {
			return fmt.Errorf("failed to enable GNOME Shell extension %q, please check that it's installed and loaded", ExtensionUUID)
		}

		log.Info().Msg("installing GNOME Shell helper extension")

		var result string
		err = shell.Call(shellInterface+".InstallRemoteExtension", 0, ExtensionUUID).Store(&result)
		if err != nil {
			// no access to the extensions directory service; drop the
			// files in place and wait for the next session
			if err := installFiles(extDir); err != nil {
				return err
			}

			log.Info().Str("dir", extDir).Msg("extension files installed, session restart required")
			if err := svc.SetStatus("The GNOME Shell helper extension was installed. Please log out and log back in to activate it."); err != nil {
				return err
			}

			<-ctx.Done()
			return nil
		}

		switch result {
		case "successful":
			enabled, err = enableExtension(shell)
			if err != nil {
				return fmt.Errorf("failed to talk to GNOME Shell: %w", err)
			}
			if !enabled {
				return fmt.Errorf("failed to enable GNOME Shell extension %q, please check that it's installed and loaded", ExtensionUUID)
			}
		case "cancelled":
			log.Warn().Msg("extension install cancelled")
			return nil
		default:
			return fmt.Errorf("failed to install GNOME Shell extension %q: %s", ExtensionUUID, result)
		}
	}

	log.Info().Str("uuid", ExtensionUUID).Msg("GNOME Shell helper extension enabled")

	<-ctx.Done()

	_ = shell.Call(shellInterface+".DisableExtension", 0, ExtensionUUID).Err

	return nil
}

func enableExtension(shell dbus.BusObject) (bool, error) {
	var enabled bool
	err := shell.Call(shellInterface+".EnableExtension", 0, ExtensionUUID).Store(&enabled)
	return enabled, err
}

// extensionsDir resolves the user extension directory, preferring
// XDG_DATA_HOME over the home-relative default.
func extensionsDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "gnome-shell", "extensions"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot find home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "gnome-shell", "extensions"), nil
}

func installFiles(extDir string) error {
	if err := os.MkdirAll(extDir, 0o755); err != nil {
		return fmt.Errorf("failed to create extension directory: %w", err)
	}

	for _, name := range []string{"extension.js", "metadata.json"} {
		data, err := assets.ReadFile("assets/" + name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(extDir, name), data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	return nil
}
