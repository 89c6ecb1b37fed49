// Package providers selects and drives exactly one window provider per
// daemon process: X11, KWin or GNOME.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/slightlyfaulty/wctx/internal/logger"
	"github.com/slightlyfaulty/wctx/internal/providers/gnome"
	"github.com/slightlyfaulty/wctx/internal/providers/kwin"
	"github.com/slightlyfaulty/wctx/internal/providers/x11"
	"github.com/slightlyfaulty/wctx/internal/service"
)

// Provider identifies a window provider back-end.
type Provider string

const (
	ProviderX11   Provider = "x11"
	ProviderKWin  Provider = "kwin"
	ProviderGNOME Provider = "gnome"
)

// Providers lists every supported provider.
var Providers = []Provider{ProviderX11, ProviderKWin, ProviderGNOME}

// ErrNoProvider is returned when no supported window provider can be
// detected from the environment.
var ErrNoProvider = fmt.Errorf(
	"no supported window provider detected, currently supports: %s",
	joinProviders(Providers),
)

// Parse parses an explicit provider override.
func Parse(s string) (Provider, error) {
	for _, p := range Providers {
		if Provider(strings.ToLower(s)) == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown window provider %q, currently supports: %s", s, joinProviders(Providers))
}

// Detect inspects the session environment and picks a provider: X11 wins on
// an x11 session, then KWin when a KDE session version is set, then GNOME.
func Detect() (Provider, bool) {
	switch {
	case x11.Detect():
		return ProviderX11, true
	case kwin.Detect():
		return ProviderKWin, true
	case gnome.Detect():
		return ProviderGNOME, true
	}
	return "", false
}

// Serve resolves the provider (explicit override or detection), waits for
// the IPC service handle and drives the provider until it returns or the
// context is cancelled.
func Serve(ctx context.Context, override string, ready <-chan *service.Service, debounceInterval time.Duration) error {
	log := logger.WithComponent("providers")

	var provider Provider
	if override != "" {
		p, err := Parse(override)
		if err != nil {
			return err
		}
		provider = p
	} else {
		p, ok := Detect()
		if !ok {
			return ErrNoProvider
		}
		provider = p
	}

	log.Info().Str("provider", string(provider)).Msg("using window provider")

	// wait for the D-Bus service before publishing anything
	var svc *service.Service
	select {
	case svc = <-ready:
	case <-ctx.Done():
		return nil
	}

	var err error
	switch provider {
	case ProviderX11:
		err = x11.Serve(ctx, svc, debounceInterval)
	case ProviderKWin:
		err = kwin.Serve(ctx)
	case ProviderGNOME:
		err = gnome.Serve(ctx, svc)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("window provider %s failed: %w", provider, err)
	}
	return nil
}

func joinProviders(providers []Provider) string {
	parts := make([]string, len(providers))
	for i, p := range providers {
		parts[i] = string(p)
	}
	return strings.Join(parts, ", ")
}
