package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	"github.com/noah-isme/jadwal-sholat/internal/repository"
	"github.com/noah-isme/jadwal-sholat/internal/service"
	"github.com/noah-isme/jadwal-sholat/pkg/cache"
	"github.com/noah-isme/jadwal-sholat/pkg/config"
	"github.com/noah-isme/jadwal-sholat/pkg/logger"
	"github.com/noah-isme/jadwal-sholat/pkg/storage"
)

const usage = `usage: sholat <command> [flags]

commands:
  countdown   follow the next prayer of a city
  mosques     list mosques around the current position`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv := openStore(cfg, logr)

	switch os.Args[1] {
	case "countdown":
		err = runCountdown(ctx, cfg, kv, logr, os.Args[2:])
	case "mosques":
		err = runMosques(ctx, cfg, kv, logr, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openStore prefers the on-disk store and degrades to memory when the
// directory is unusable.
func openStore(cfg *config.Config, logr *zap.Logger) service.KVStore {
	store, err := storage.NewFileKV(cfg.Storage.Dir, cfg.Storage.QuotaBytes)
	if err != nil {
		logr.Warn("file storage unavailable, using memory", zap.String("dir", cfg.Storage.Dir), zap.Error(err))
		return storage.NewMemoryKV(cfg.Storage.QuotaBytes)
	}
	return store
}

func runCountdown(ctx context.Context, cfg *config.Config, kv service.KVStore, logr *zap.Logger, args []string) error {
	fs := pflag.NewFlagSet("countdown", pflag.ContinueOnError)
	cityID := fs.String("city", "", "upstream city id (default: last selected city)")
	once := fs.Bool("once", false, "print the next prayer and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := repository.NewUpstreamClient(cfg.Upstream.MyQuranTimeout, cfg.Upstream.SafeClient)
	myQuran := repository.NewMyQuranRepository(cfg.Upstream.MyQuranBaseURL, client)
	metrics := service.NewMetricsService()

	clock := service.NewClockService(repository.NewWorldTimeRepository(cfg.Upstream.TimeAPIURL, client),
		cfg.Upstream.TimeSyncTimeout, cfg.Upstream.TimeSyncInterval, metrics, logr.Named("clock"))
	clock.Start(ctx)

	schedules := service.NewScheduleService(myQuran, kv, service.ScheduleOptions{
		Timeout:   cfg.Upstream.MyQuranTimeout,
		MaxAge:    cfg.Schedule.CacheMaxAge,
		BatchSize: cfg.Schedule.BatchSize,
		Attempts:  cfg.Schedule.DayAttempts,
		Backoff:   cfg.Schedule.RetryBackoff,
	}, clock, metrics, logr.Named("schedule"))
	// Resolving --city fetches the month the countdown then reads.
	proxy := service.NewScheduleProxy(schedules,
		service.NewCacheService(cache.NewMemory(), metrics, cfg.Upstream.ProxyCacheTTL, logr, true), cfg.Upstream.ProxyCacheTTL)

	locations := service.NewLocationService(kv, myQuran, models.Location{
		ID:     cfg.Location.CityID,
		Lokasi: cfg.Location.CityName,
		Daerah: cfg.Location.Province,
	}, logr.Named("location"))

	loc := locations.Current(ctx)
	if *cityID != "" && *cityID != loc.Location.ID {
		var err error
		if loc, err = locations.SelectByID(ctx, *cityID, proxy.Months(), clock.Now()); err != nil {
			return err
		}
	}

	if *once {
		next, err := service.NewNextPrayerService(proxy, clock, logr).Next(ctx, loc.Location.ID, loc.Timezone)
		if err != nil {
			return err
		}
		printNext(loc, next)
		return nil
	}

	engine := service.NewCountdownEngine(proxy, clock, loc, service.CountdownOptions{
		CoarseInterval: cfg.Countdown.CoarseInterval,
		FineInterval:   cfg.Countdown.FineInterval,
		MaxRefetch:     cfg.Countdown.MaxRefetch,
	}, metrics, logr.Named("countdown"))

	var lastKey string
	var lastStatus models.CountdownStatus
	unsubscribe := engine.OnChange(func(state models.CountdownState) {
		switch {
		case state.Status != models.CountdownActive:
			if state.Status != lastStatus {
				fmt.Printf("[%s] %s %s\n", state.Status, state.Location.Location.Lokasi, state.Error)
			}
		case state.Next != nil && state.Next.Key != lastKey:
			printNext(state.Location, state.Next)
			lastKey = state.Next.Key
		case state.Next != nil:
			fmt.Printf("\r%s %s  ", state.Next.Name, formatRemaining(state.Next.RemainingMs))
		}
		lastStatus = state.Status
	})
	defer unsubscribe()

	return engine.Run(ctx)
}

func printNext(loc models.LocationState, next *models.NextPrayerResult) {
	day := "hari ini"
	if next.IsTomorrow {
		day = "besok"
	}
	fmt.Printf("\n%s (%s): %s %s %s, %s lagi\n",
		loc.Location.Lokasi, loc.Timezone.Label, next.Name, day, next.Time, formatRemaining(next.RemainingMs))
}

func formatRemaining(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func runMosques(ctx context.Context, cfg *config.Config, kv service.KVStore, logr *zap.Logger, args []string) error {
	fs := pflag.NewFlagSet("mosques", pflag.ContinueOnError)
	gps := fs.Bool("gps", false, "read \"lat,lng,accuracy\" fixes from stdin")
	refresh := fs.Bool("refresh", false, "skip the local cache")
	if err := fs.Parse(args); err != nil {
		return err
	}

	timeout := cfg.Gateway.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	gateway := repository.NewGatewayRepository(cfg.Gateway.URL, repository.NewUpstreamClient(timeout, false))
	finder := service.NewMosqueFinder(gateway, kv, service.MosqueFinderOptions{
		CacheTTL: cfg.Mosque.CacheTTL,
		Online:   gatewayReachable(cfg.Gateway.URL),
	}, nil, logr.Named("mosques"))

	loc := service.NewLocationService(kv, nil, models.Location{
		ID:     cfg.Location.CityID,
		Lokasi: cfg.Location.CityName,
		Daerah: cfg.Location.Province,
	}, logr).Current(ctx)
	coords, known := service.CityCoordinates(loc.Location.Lokasi)

	if !*gps {
		if !known {
			return fmt.Errorf("no coordinates known for %s, use --gps", loc.Location.Lokasi)
		}
		result, err := finder.Search(ctx, coords, nil, *refresh)
		printMosques(result, err)
		return nil
	}

	// The city estimate goes first so the first GPS fix counts as a source
	// switch and bypasses results cached for the city.
	if known {
		result, fetched, err := finder.Update(ctx, models.MosquePosition{Coordinates: coords, Kind: models.PositionCity})
		if fetched {
			printMosques(result, err)
		}
	}

	tracker := service.NewGeolocationTracker(repository.NewLinePositionSource(os.Stdin), service.GeolocationOptions{
		Ceiling:        cfg.Geolocation.Ceiling,
		UpdateTimeout:  cfg.Geolocation.UpdateTimeout,
		SettleAccuracy: cfg.Geolocation.SettleAccuracy,
	}, logr.Named("geolocation"))

	fixes := make(chan models.GeoFix, 1)
	settled := make(chan models.GeoSnapshot, 1)
	unsubscribe := tracker.OnChange(func(snap models.GeoSnapshot) {
		if snap.Fix != nil {
			select {
			case <-fixes:
			default:
			}
			fixes <- *snap.Fix
		}
		if snap.State == models.GeoSettled {
			select {
			case settled <- snap:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := tracker.Start(ctx); err != nil {
		return err
	}
	defer tracker.Wait()
	defer tracker.Cancel()

	update := func(fix models.GeoFix) {
		accuracy := fix.Accuracy
		result, fetched, err := finder.Update(ctx, models.MosquePosition{
			Coordinates: fix.Coordinates(),
			Accuracy:    &accuracy,
			Kind:        models.PositionGPS,
		})
		if fetched {
			printMosques(result, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fix := <-fixes:
			update(fix)
		case snap := <-settled:
			select {
			case fix := <-fixes:
				update(fix)
			default:
			}
			if snap.Error != "" && snap.Fix == nil {
				return errors.New(snap.Error)
			}
			return nil
		}
	}
}

// gatewayReachable reports connectivity as a TCP dial to the gateway host.
func gatewayReachable(rawURL string) func(ctx context.Context) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}
	host := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}
	return func(ctx context.Context) bool {
		dialCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		var d net.Dialer
		conn, err := d.DialContext(dialCtx, "tcp", host)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}
}

func printMosques(result *models.MosqueSearchResult, err error) {
	if result != nil {
		source := "live"
		if result.FromCache {
			source = "cache"
		}
		fmt.Printf("\nradius %s (%s, %s)\n", service.FormatRadius(result.Radius), source, result.FetchedAt.Local().Format("15:04"))
		for i, m := range result.Mosques {
			fmt.Printf("%2d. %-40s %6.0f m\n", i+1, m.Name, m.Distance)
		}
	}
	if err != nil {
		fmt.Println(err.Error())
	}
}
