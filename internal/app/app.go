// Package app wires the configuration, the core, the components and the
// connection manager together and runs the client.
package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/aparte/internal/component/script"
	"github.com/dshills/aparte/internal/config"
	"github.com/dshills/aparte/internal/conn"
	"github.com/dshills/aparte/internal/core"
	"github.com/dshills/aparte/internal/logger"
)

// ShutdownTimeout bounds how long Shutdown waits for the loop to stop.
const ShutdownTimeout = 5 * time.Second

// Application owns every long lived part of the client.
type Application struct {
	mu        sync.RWMutex
	cfg       *config.Config
	path      string
	overrides config.Overrides
	passwords map[string]string
	runCtx    context.Context
	cancel    context.CancelFunc

	log    logger.Logger
	core   *core.Core
	conns  *conn.Manager
	script *script.Component

	started atomic.Bool
	running atomic.Bool
	done    chan struct{}

	opts Options
}

// Options configures the application.
type Options struct {
	// ConfigPath is the configuration file. Empty means APARTE_CONFIG, then
	// the default location.
	ConfigPath string

	// LogLevel overrides the configured log level.
	LogLevel string

	// Debug logs at debug level with the console encoder.
	Debug bool

	// Environ replaces the process environment when reading overrides.
	Environ map[string]string

	// Dialer opens sessions. Nil means the network transport.
	Dialer conn.Dialer

	// Logger replaces the logger built from the configuration.
	Logger logger.Logger

	// Notices receives user visible messages. Nil sends them to the log.
	Notices func(string)

	// WatchDebounce delays configuration reloads. Zero keeps the watcher default.
	WatchDebounce time.Duration
}

// New loads the configuration and initializes every component. Nothing
// connects before Run.
func New(opts Options) (*Application, error) {
	app := &Application{
		opts:      opts,
		done:      make(chan struct{}),
		passwords: make(map[string]string),
	}

	if err := app.bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Core returns the event core.
func (app *Application) Core() *core.Core {
	return app.core
}

// Logger returns the application logger.
func (app *Application) Logger() logger.Logger {
	return app.log
}

// ConfigPath returns the configuration file in use.
func (app *Application) ConfigPath() string {
	return app.path
}

// Config returns the current configuration. It is replaced, never mutated,
// on reload.
func (app *Application) Config() *config.Config {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.cfg
}

// IsRunning reports whether Run is active.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// MissingPasswords returns the autoconnect accounts without a password.
func (app *Application) MissingPasswords() []string {
	app.mu.RLock()
	defer app.mu.RUnlock()

	var out []string
	for _, name := range app.cfg.AccountNames() {
		acc := app.cfg.Accounts[name]
		if acc.Autoconnect && acc.Password == "" && app.passwords[name] == "" {
			out = append(out, name)
		}
	}
	return out
}

// SetPassword supplies the password of the account called name for this run.
func (app *Application) SetPassword(name, password string) {
	app.mu.Lock()
	app.passwords[name] = password
	app.mu.Unlock()
}

// Run connects the autoconnect accounts, watches the configuration file and
// runs the event loop until ctx is done or Shutdown is called. input carries
// command lines typed by the user. Run may only be called once.
func (app *Application) Run(ctx context.Context, input <-chan string) error {
	if !app.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	app.running.Store(true)
	defer close(app.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.mu.Lock()
	app.runCtx = ctx
	app.cancel = cancel
	app.mu.Unlock()

	app.startWatcher(ctx)
	app.autoconnect()

	err := app.core.Run(ctx, input)

	// Deliver the Disconnected events of the closing sessions.
	_ = app.conns.Close()
	app.core.DispatchAll()
	app.script.Close()
	_ = app.log.Sync()

	app.running.Store(false)
	return err
}

// Shutdown stops Run and waits for it to return. It is safe to call more
// than once and before Run.
func (app *Application) Shutdown() error {
	app.mu.RLock()
	cancel := app.cancel
	app.mu.RUnlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-app.done:
		return nil
	case <-time.After(ShutdownTimeout):
		return ErrShutdownTimeout
	}
}
