package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var _ AppProvider = (*App)(nil) // ensure App implements AppProvider.

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger         *zap.Logger
	config         *Config
	server         *http.Server
	cleanups       []func()
	queueConsumers []func(context.Context) error
}

// NewApp provides an instance of App built from the given configuration.
// Every resource opened before a failure is released before returning.
func NewApp(config *Config) (app *App, err error) {
	var cleanups []func()
	defer func() {
		if err != nil {
			for i := len(cleanups) - 1; i >= 0; i-- {
				cleanups[i]()
			}
		}
	}()

	// ensure the logs folder exists and Setup the logging module.
	if err = os.MkdirAll(config.LogFolder, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create logging folder: %s", err)
	}
	clock := NewClock(config.IsProduction)
	rsw := NewRSyncWriter(config, clock)
	cleanups = append(cleanups, func() {
		if cerr := rsw.Close(); cerr != nil {
			fmt.Println("error during closing of log file: ", cerr)
		}
	})
	logger, flusher := SetupLogging(config, rsw, NewTickClock(clock))
	cleanups = append(cleanups, func() { _ = flusher() })

	// Setup the relational store holding the books.
	db, err := OpenBookDatabase(&config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open books database: %s", err)
	}
	cleanups = append(cleanups, func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("failed to close books database", zap.Error(cerr))
		}
	})
	bookStorage := NewSQLBookStorage(logger, db)

	// Setup the optional mirror made of redis queues and boltDB.
	var queue Queuer
	var mirror BookMirror
	var consumers []func(context.Context) error
	if config.Mirror.Enable {
		redisClient, err := GetRedisClient(&config.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis server: %s", err)
		}
		cleanups = append(cleanups, func() { _ = redisClient.Close() })

		boltDBClient, err := GetBoltDBClient(&config.BoltDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to boltDB server: %s", err)
		}
		boltMirror := NewBoltBookMirror(logger, &config.BoltDB, boltDBClient)
		cleanups = append(cleanups, func() { _ = boltMirror.Close() })

		redisQueue := NewRedisQueue(redisClient, config.Mirror.PopTimeout)
		mirrorConsumer := NewMirrorConsumer(logger, redisQueue, boltMirror)
		queue, mirror = redisQueue, boltMirror
		consumers = append(consumers, func(ctx context.Context) error {
			return mirrorConsumer.Consume(ctx, CreateQueue, UpdateQueue, DeleteQueue)
		})
	}

	bookService := NewBookService(logger, config, bookStorage, queue)
	apiService := NewAPIHandler(
		logger,
		config,
		&Statistics{
			version:   config.GitTag,
			container: IsAppRunningInDocker(),
			started:   clock.Now(),
			runtime:   runtime.Version(),
			platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		clock,
		NewIDsHandler(),
		bookService,
		mirror,
	)

	// Use git commit in case the tag is not set.
	if config.GitTag == "" {
		apiService.stats.version = config.GitCommit
	}

	// Build the map of middlewares stacks.
	middlewaresPublic, middlewaresOps := apiService.MiddlewaresStacks()

	// Configure the endpoints with their handlers and middlewares.
	router := apiService.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)
	// Wrap the router with the default http timeout handler.
	routerWithTimeout := http.TimeoutHandler(
		router,
		config.Server.RequestTimeout,
		`{"detail":"Timeout. Processing taking too long. Please reach out to support."}`)

	// Build the api server definition.
	srv := &http.Server{
		Addr:           net.JoinHostPort(config.Server.Host, config.Server.Port),
		Handler:        routerWithTimeout,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
	}

	// cleanups run in reverse order so the log file is closed last.
	ordered := make([]func(), 0, len(cleanups))
	for i := len(cleanups) - 1; i >= 0; i-- {
		ordered = append(ordered, cleanups[i])
	}

	return &App{
		logger:         logger,
		config:         config,
		server:         srv,
		cleanups:       ordered,
		queueConsumers: consumers,
	}, nil
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.ConsumeQueues(gCtx, g))
	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		f()
	}
}

// Serve starts the api web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
		)
		err := app.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch err {
		case nil, http.ErrServerClosed:
			app.logger.Info("api server graceful shutdown succeeded")
		case context.DeadlineExceeded:
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && err != http.ErrServerClosed {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}
		return nil
	}
}

// ConsumeQueues runs all queue consumers into separate controlled goroutines.
func (app *App) ConsumeQueues(gCtx context.Context, g *errgroup.Group) func() error {
	return func() error {
		for _, consume := range app.queueConsumers {
			consume := consume
			f := func() error {
				return consume(gCtx)
			}
			g.Go(f)
		}
		return nil
	}
}
