package app

import (
	"github.com/dshills/aparte/internal/component/bookmarks"
	"github.com/dshills/aparte/internal/component/disco"
	"github.com/dshills/aparte/internal/component/muc"
	"github.com/dshills/aparte/internal/component/roster"
	"github.com/dshills/aparte/internal/component/script"
	"github.com/dshills/aparte/internal/config"
	"github.com/dshills/aparte/internal/conn"
	"github.com/dshills/aparte/internal/core"
	"github.com/dshills/aparte/internal/logger"
	"github.com/dshills/aparte/internal/transport"
)

// bootstrap initializes everything in dependency order.
func (app *Application) bootstrap() error {
	// 1. Configuration
	ov, err := config.LoadOverrides(app.opts.Environ)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	app.overrides = ov

	app.path = app.opts.ConfigPath
	if app.path == "" {
		app.path = ov.Path
	}
	if app.path == "" {
		app.path = config.DefaultPath()
	}

	app.cfg, err = config.Load(app.path, ov)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}

	// 2. Logging
	if err := app.setupLogger(); err != nil {
		return &InitError{Component: "logger", Err: err}
	}

	// 3. Core
	coreOpts := []core.Option{core.WithLogger(app.log)}
	if app.opts.Notices != nil {
		coreOpts = append(coreOpts, core.WithNoticeHandler(app.opts.Notices))
	}
	app.core = core.New(coreOpts...)

	// 4. Connections
	dialer := app.opts.Dialer
	if dialer == nil {
		dialer = transport.NewDialer(app.log)
	}
	app.conns = conn.NewManager(dialer, app.core, conn.WithLogger(app.log.Named("conn")))
	app.core.SetSender(app.conns)

	// 5. Components. Bookmarks borrows disco during Init.
	app.script = script.New(app.cfg.ScriptsDir)
	for _, comp := range []core.Component{
		disco.New(),
		roster.New(),
		bookmarks.New(),
		muc.New(),
		app.script,
	} {
		if err := app.core.Register(comp); err != nil {
			return &InitError{Component: comp.Name(), Err: err}
		}
	}

	if err := app.defineCommands(); err != nil {
		return &InitError{Component: "commands", Err: err}
	}

	if err := app.core.Init(); err != nil {
		app.script.Close()
		return &InitError{Component: "core", Err: err}
	}

	app.log.Info("initialized",
		logger.String("config", app.path),
		logger.Int("accounts", len(app.cfg.Accounts)),
	)
	return nil
}

func (app *Application) setupLogger() error {
	if app.opts.Logger != nil {
		app.log = app.opts.Logger
		return nil
	}

	lc := logger.Config{
		Level:  app.cfg.Log.Level,
		File:   app.cfg.Log.File,
		Pretty: app.cfg.Log.Pretty,
	}
	if app.opts.LogLevel != "" {
		lc.Level = app.opts.LogLevel
	}
	if app.opts.Debug {
		lc.Level = "debug"
		lc.Pretty = true
	}

	log, err := logger.New(lc)
	if err != nil {
		return err
	}
	app.log = log
	return nil
}
