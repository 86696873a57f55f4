// Command padmap reads gamepads through a platform source, names every
// button and axis with a mapping profile, and streams the resulting events
// to web clients.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/soar/padmap/gamepad"
	"github.com/soar/padmap/internal/config"
	"github.com/soar/padmap/internal/devicelog"
	"github.com/soar/padmap/internal/discovery"
	"github.com/soar/padmap/internal/hub"
	"github.com/soar/padmap/internal/platform/browser"
	"github.com/soar/padmap/internal/platform/evdevpad"
	"github.com/soar/padmap/internal/platform/joystick"
	"github.com/soar/padmap/internal/server"
	"github.com/soar/padmap/internal/tray"
)

// Cross-platform signal handling: use os.Interrupt on all platforms
// On Windows: os.Interrupt is sent when Ctrl+C is pressed
// On Unix: os.Interrupt is equivalent to syscall.SIGINT
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("padmap failed")
	}
}

// browserURL turns a listen address into a URL a local browser can open.
func browserURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://localhost:8080"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// platform is the selected source plus whatever must run alongside it.
type platform struct {
	factory gamepad.SourceFactory
	run     func(ctx context.Context) error
	ingest  http.Handler
}

func selectPlatform(cfg config.Config, pump func()) platform {
	switch cfg.Source {
	case config.SourceEvdev:
		s := evdevpad.New(cfg.Evdev.Glob)
		return platform{factory: s.Factory(), run: s.Run}
	case config.SourceBrowser:
		s := browser.New()
		return platform{factory: s.Factory(), ingest: s}
	default:
		s := joystick.New(pump)
		return platform{factory: s.Factory(), run: s.Run}
	}
}

// pumpEvery drives a manual strategy from a ticker for sources that do not
// pump it themselves.
func pumpEvery(ctx context.Context, d time.Duration, pump func()) error {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pump()
		case <-ctx.Done():
			return nil
		}
	}
}

func run(args []string) error {
	loader, cfg, err := config.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logCloser, err := config.SetupLogging(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	if f := loader.File(); f != "" {
		log.Info().Str("file", f).Msg("using config file")
	}

	registry, err := cfg.Registry()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	var strategy gamepad.Strategy
	var manual *gamepad.ManualStrategy
	if cfg.UsesHostPump() {
		manual = gamepad.NewManualStrategy()
		strategy = manual
	} else {
		strategy = gamepad.NewIntervalStrategy(cfg.Interval)
	}
	pump := func() {}
	if manual != nil {
		pump = manual.Update
	}
	plat := selectPlatform(cfg, pump)

	manager := gamepad.New(
		gamepad.WithRegistry(registry),
		gamepad.WithRules(cfg.ResolverRules()),
		gamepad.WithSourceFactory(plat.factory),
		gamepad.WithStrategy(strategy),
		gamepad.WithDetector(cfg.Detector()),
	)
	if err := manager.Init(); err != nil {
		return errors.Wrap(err, "init gamepad manager")
	}
	defer manager.Close()

	// Create and start hub
	h := hub.NewHub()
	broadcaster := hub.NewBroadcaster(h, manager)
	manager.OnAny(broadcaster.Handle)
	g.Go(func() error { return h.Run(ctx) })
	g.Go(func() error { return broadcaster.Run(ctx) })

	var opts []server.Option
	if plat.ingest != nil {
		opts = append(opts, server.WithIngest(plat.ingest))
	}
	if cfg.History.Path != "" {
		store, err := devicelog.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		manager.OnAny(store.Handler(manager))
		opts = append(opts, server.WithHistory(store))
	}

	web, err := webRoot()
	if err != nil {
		return err
	}
	srv, err := server.New(h, broadcaster, manager, web, cfg.Listen, opts...)
	if err != nil {
		return err
	}
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Run the platform source. The SDL source pumps the manual strategy from
	// its own locked OS thread.
	if plat.run != nil {
		g.Go(func() error { return plat.run(ctx) })
	}
	if manual != nil && cfg.Source != config.SourceSDL {
		g.Go(func() error { return pumpEvery(ctx, cfg.Interval, manual.Update) })
	}

	if cfg.MDNS.Enabled {
		adv, err := discovery.Advertise(cfg.MDNS.Instance, cfg.Listen, cfg.Source)
		if err != nil {
			log.Warn().Err(err).Msg("mdns advertisement disabled")
		} else {
			defer adv.Shutdown()
		}
	}

	// Profile and rule edits apply to pads connected from now on.
	loader.Watch(func(c config.Config) {
		reg, err := c.Registry()
		if err != nil {
			log.Error().Err(err).Msg("ignoring profile changes")
			return
		}
		manager.Reconfigure(reg, c.ResolverRules())
	})

	url := browserURL(cfg.Listen)
	if cfg.Tray {
		t := tray.New(url, func() { stop() })
		countPads := func(gamepad.Event) { t.SetPads(len(manager.Connected())) }
		manager.On(gamepad.Connected, countPads)
		manager.On(gamepad.Disconnected, countPads)
		go t.Run(tray.GetIcon())
		g.Go(func() error {
			<-ctx.Done()
			t.Quit()
			return nil
		})
	} else {
		log.Print("Press Ctrl+C to exit")
	}

	log.Info().Str("url", url).Str("source", cfg.Source).Msg("padmap started")
	err = g.Wait()
	log.Print("padmap stopped")
	return err
}
