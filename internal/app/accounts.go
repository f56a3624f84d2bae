package app

import (
	"context"
	"fmt"

	"github.com/dshills/aparte/internal/config"
	"github.com/dshills/aparte/internal/logger"
)

// connect starts the session of the account called name.
func (app *Application) connect(name string) error {
	app.mu.RLock()
	acc, ok := app.cfg.Accounts[name]
	if acc.Password == "" {
		acc.Password = app.passwords[name]
	}
	ctx := app.runCtx
	app.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, name)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return app.conns.Connect(ctx, acc)
}

// autoconnect connects every account marked autoconnect.
func (app *Application) autoconnect() {
	cfg := app.Config()
	for _, name := range cfg.AccountNames() {
		if !cfg.Accounts[name].Autoconnect {
			continue
		}
		if err := app.connect(name); err != nil {
			app.log.Warn("autoconnect failed", logger.String("account", name), logger.Error(err))
		}
	}
}

// lookupAccount resolves a command argument to an account name. Both the
// configured name and the account address are accepted.
func (app *Application) lookupAccount(arg string) (string, config.Account, bool) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	if acc, ok := app.cfg.Accounts[arg]; ok {
		return arg, acc, true
	}
	for name, acc := range app.cfg.Accounts {
		if addr, err := acc.Address(); err == nil && addr.String() == arg {
			return name, acc, true
		}
	}
	return "", config.Account{}, false
}

func (app *Application) startWatcher(ctx context.Context) {
	var opts []config.WatcherOption
	if app.opts.WatchDebounce > 0 {
		opts = append(opts, config.WithDebounce(app.opts.WatchDebounce))
	}
	w, err := config.NewWatcher(app.path, app.overrides, opts...)
	if err != nil {
		app.log.Warn("configuration not watched", logger.String("path", app.path), logger.Error(err))
		return
	}
	go func() {
		if err := w.Run(ctx, app.reload); err != nil {
			app.log.Warn("configuration watcher stopped", logger.Error(err))
		}
	}()
}

// reload swaps in cfg and connects the autoconnect accounts it adds. Runs on
// the watcher goroutine.
func (app *Application) reload(cfg *config.Config, err error) {
	if err != nil {
		app.log.Warn("configuration reload failed", logger.Error(err))
		return
	}

	app.mu.Lock()
	old := app.cfg
	app.cfg = cfg
	app.mu.Unlock()

	var added []string
	for _, name := range cfg.AccountNames() {
		if _, known := old.Accounts[name]; known {
			continue
		}
		if cfg.Accounts[name].Autoconnect {
			added = append(added, name)
		}
	}
	app.log.Info("configuration reloaded", logger.Int("new_autoconnect", len(added)))

	for _, name := range added {
		if err := app.connect(name); err != nil {
			app.log.Warn("connect after reload failed", logger.String("account", name), logger.Error(err))
		}
	}
}
