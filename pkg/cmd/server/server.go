package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"golang.org/x/sync/errgroup"

	"github.com/mpapenbr/iracehud-go/log"
	"github.com/mpapenbr/iracehud-go/pkg/cmd/util"
	"github.com/mpapenbr/iracehud-go/pkg/codec"
	"github.com/mpapenbr/iracehud-go/pkg/config"
	"github.com/mpapenbr/iracehud-go/pkg/db/sqlite"
	"github.com/mpapenbr/iracehud-go/pkg/emitter"
	"github.com/mpapenbr/iracehud-go/pkg/model"
	"github.com/mpapenbr/iracehud-go/pkg/processing"
	"github.com/mpapenbr/iracehud-go/pkg/service/telemetry"
	"github.com/mpapenbr/iracehud-go/pkg/settings"
	"github.com/mpapenbr/iracehud-go/pkg/source"
	fileSource "github.com/mpapenbr/iracehud-go/pkg/source/file"
	natsSource "github.com/mpapenbr/iracehud-go/pkg/source/nats"
	"github.com/mpapenbr/iracehud-go/pkg/transport/control"
	natsTransport "github.com/mpapenbr/iracehud-go/pkg/transport/nats"
	"github.com/mpapenbr/iracehud-go/pkg/transport/ws"
	"github.com/mpapenbr/iracehud-go/pkg/utils"
	"github.com/mpapenbr/iracehud-go/pkg/utils/broadcast"
)

const (
	SourceFile = "file"
	SourceNats = "nats"
)

//nolint:funlen // by design
func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "processes telemetry and serves the overlay signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&config.WSAddr,
		"ws-addr",
		"127.0.0.1:8384",
		"websocket listen address")
	cmd.Flags().StringVar(&config.HTTPAddr,
		"http-addr",
		"127.0.0.1:8385",
		"listen address for the settings API")
	cmd.Flags().StringVar(&config.Codec,
		"codec",
		codec.Msgpack{}.Name(),
		fmt.Sprintf("codec for outgoing messages %v", codec.Names()))
	cmd.Flags().IntVar(&config.QueueSize,
		"queue-size",
		broadcast.DefaultQueueSize,
		"max number of pending messages per subscriber")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"URL of the NATS server (empty disables NATS)")
	cmd.Flags().StringVar(&config.NatsSubject,
		"nats-subject",
		natsTransport.DefaultSubject,
		"subject prefix used for publishing and control requests")
	cmd.Flags().StringVar(&config.SourceKind,
		"source",
		SourceFile,
		"where samples come from (file, nats)")
	cmd.Flags().StringVar(&config.SourceFile,
		"source-file",
		"",
		"recorded sample file used by the file source")
	cmd.Flags().Float64Var(&config.ReplaySpeed,
		"speed",
		1,
		"replay speed for the file source (0 means: go as fast as possible)")
	cmd.Flags().StringVar(&config.SampleSubject,
		"sample-subject",
		natsSource.DefaultSubject,
		"NATS subject delivering samples")
	cmd.Flags().StringVar(&config.TickInterval,
		"tick-interval",
		telemetry.DefaultTickInterval.String(),
		"duration between two ticks")
	cmd.Flags().IntVar(&config.SlowTickEvery,
		"slow-tick-every",
		telemetry.DefaultSlowTickEvery,
		"every n-th tick processes slow changing values")
	cmd.Flags().IntVar(&config.MaxLapTimes,
		"max-lap-times",
		model.DefaultMaxLapTimes,
		"number of lap times kept for the player")
	cmd.Flags().StringVar(&config.WaitForSession,
		"wait-for-session",
		telemetry.DefaultWaitForSession.String(),
		"duration to wait for the first sample")
	cmd.Flags().StringVar(&config.MinClientVersion,
		"min-client-version",
		control.MinClientVersion,
		"minimum version a client has to announce in its hello")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (stdout prints to console)")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	return cmd
}

//nolint:funlen,cyclop // by design
func startServer(ctx context.Context) error {
	if _, err := util.SetupLogger(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var tel *config.Telemetry

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	waitForRequiredServices()

	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if tel, err = config.SetupTelemetry(ctx); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c, err := codec.New(config.Codec)
	if err != nil {
		return err
	}
	bcst := broadcast.New(
		broadcast.WithCodec(c),
		broadcast.WithQueueSize(config.QueueSize),
		broadcast.WithLogger(log.Default().Named("broadcast")))
	defer bcst.Close()

	engine := emitter.NewEngine(bcst,
		emitter.WithMaxLapTimes(config.MaxLapTimes),
		emitter.WithLogger(log.Default().Named("emitter")))

	db, err := sqlite.Open(ctx, config.SettingsDB)
	if err != nil {
		log.Error("settings database could not be opened", log.ErrorField(err))
		return err
	}
	defer db.Close()
	settingsSvc := settings.NewService(db,
		settings.WithChangeListener(settingsChanged(engine, bcst)))
	if err := applyStandings(ctx, settingsSvc, engine); err != nil {
		return err
	}

	ctrl := control.NewHandler(engine,
		control.WithMinClientVersion(config.MinClientVersion))

	var nc *nats.Conn
	if config.NatsURL != "" {
		if nc, err = nats.Connect(config.NatsURL, nats.Name("iracehud")); err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Drain() //nolint:errcheck // shutdown
		nt, err := natsTransport.New(nc, bcst, ctrl,
			natsTransport.WithSubject(config.NatsSubject))
		if err != nil {
			return err
		}
		defer nt.Close()
	}

	src, err := openSource(nc)
	if err != nil {
		return err
	}
	defer src.Close()

	loop := telemetry.New(src,
		processing.NewProcessor(processing.WithMaxLapTimes(config.MaxLapTimes)),
		engine,
		telemetry.WithTickInterval(parseDuration(config.TickInterval, telemetry.DefaultTickInterval)),
		telemetry.WithSlowTickEvery(config.SlowTickEvery),
		telemetry.WithWaitForSession(
			parseDuration(config.WaitForSession, telemetry.DefaultWaitForSession)))

	wsServer := ws.NewServer(bcst, ctrl)
	//nolint:gosec // by design
	httpServer := &http.Server{
		Addr:    config.HTTPAddr,
		Handler: newCORS().Handler(settings.NewHandler(settingsSvc)),
	}
	setupGoRoutinesDump()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return wsServer.ListenAndServe(gctx, config.WSAddr)
	})
	g.Go(func() error {
		log.Info("Starting settings server", log.String("addr", config.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
		defer done()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := loop.Run(gctx); err != nil {
			return err
		}
		log.Info("Sample source finished, still serving")
		return nil
	})

	log.Info("Server started")
	err = g.Wait()
	if tel != nil {
		tel.Shutdown()
	}
	if err != nil {
		log.Error("Server stopped", log.ErrorField(err))
		return err
	}
	log.Info("Server terminated")
	return nil
}

func openSource(nc *nats.Conn) (source.Source, error) {
	switch config.SourceKind {
	case SourceFile:
		if config.SourceFile == "" {
			return nil, errors.New("file source requires --source-file")
		}
		return fileSource.Open(config.SourceFile,
			fileSource.WithSpeed(config.ReplaySpeed))
	case SourceNats:
		if nc == nil {
			return nil, errors.New("nats source requires --nats-url")
		}
		return natsSource.New(nc, natsSource.WithSubject(config.SampleSubject))
	default:
		return nil, fmt.Errorf("unknown source %q", config.SourceKind)
	}
}

// settingsChanged keeps the standings window in sync and notifies subscribers
//
//nolint:whitespace // can't make both editor and linter happy
func settingsChanged(
	engine *emitter.Engine, bcst *broadcast.Broadcaster,
) settings.ChangeListener {
	return func(ctx context.Context, doc *settings.Document) {
		if doc.Overlay == settings.Standings {
			if st, err := settings.ParseStandings(doc.Data); err == nil {
				engine.SetWindow(windowOf(st))
			} else {
				log.Warn("standings settings not applied", log.ErrorField(err))
			}
		}
		event := doc.Overlay + "_overlay_settings_changed"
		bcst.Publish(event, event)
	}
}

//nolint:whitespace // can't make both editor and linter happy
func applyStandings(
	ctx context.Context, svc *settings.Service, engine *emitter.Engine,
) error {
	st, err := svc.Standings(ctx)
	if err != nil {
		return fmt.Errorf("read standings settings: %w", err)
	}
	w := windowOf(st)
	engine.SetWindow(w)
	log.Debug("standings window",
		log.Int("maxDrivers", w.MaxDrivers),
		log.Int("topDrivers", w.TopDrivers))
	return nil
}

func windowOf(st *settings.StandingsSettings) emitter.Window {
	return emitter.Window{MaxDrivers: st.MaxDrivers, TopDrivers: st.TopDrivers}
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Warn("Invalid duration value, using default",
			log.String("value", s),
			log.Duration("default", defaultVal))
		return defaultVal
	}
	return d
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}

func waitForRequiredServices() {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}

	wg := sync.WaitGroup{}
	checkTCP := func(addr string) {
		if err := utils.WaitForTCP(addr, timeout); err != nil {
			log.Fatal("required services not ready", log.ErrorField(err))
		}
		wg.Done()
	}

	if natsAddr := utils.ExtractFromNatsURL(config.NatsURL); natsAddr != "" {
		wg.Add(1)
		go checkTCP(natsAddr)
	}
	log.Debug("Waiting for connection checks to return")
	wg.Wait()
	log.Debug("Required services are available")
}

func newCORS() *cors.Cors {
	// overlays are served from local files or a dev server on another port
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"ETag"},
	})
}
