package app

import (
	"fmt"
	"strings"

	"github.com/dshills/aparte/internal/command"
	"github.com/dshills/aparte/internal/core"
)

func (app *Application) defineCommands() error {
	specs := []*core.CommandSpec{
		{
			Name: "connect",
			Doc:  "Connect a configured account.",
			Params: []command.Param{
				{Name: "account", Type: command.TypeString, Kind: command.Required, Doc: "account name or address"},
			},
			Handler: app.runConnect,
		},
		{
			Name: "disconnect",
			Doc:  "Disconnect an account, the current one by default.",
			Params: []command.Param{
				{Name: "account", Type: command.TypeString, Kind: command.Optional, Doc: "account name or address"},
			},
			Handler: app.runDisconnect,
		},
		{
			Name:    "accounts",
			Doc:     "List the configured accounts.",
			Handler: app.runAccounts,
		},
		{
			Name: "quit",
			Doc:  "Disconnect everything and exit.",
			Handler: func(*core.Core, *core.Command) error {
				app.mu.RLock()
				cancel := app.cancel
				app.mu.RUnlock()
				if cancel != nil {
					cancel()
				}
				return nil
			},
		},
	}
	for _, spec := range specs {
		if err := app.core.AddCommand(spec); err != nil {
			return err
		}
	}
	return nil
}

func (app *Application) runConnect(c *core.Core, cmd *core.Command) error {
	arg := cmd.String("account")
	name, _, ok := app.lookupAccount(arg)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, arg)
	}
	if err := app.connect(name); err != nil {
		return err
	}
	c.Notify("connecting " + name)
	return nil
}

func (app *Application) runDisconnect(c *core.Core, cmd *core.Command) error {
	acct, ok := c.CurrentAccount()
	if arg := cmd.String("account"); arg != "" {
		_, acc, found := app.lookupAccount(arg)
		if !found {
			return fmt.Errorf("%w: %s", ErrUnknownAccount, arg)
		}
		id, err := acc.ID()
		if err != nil {
			return err
		}
		acct, ok = id, true
	}
	if !ok {
		return core.ErrNoAccount
	}
	return app.conns.Disconnect(acct)
}

func (app *Application) runAccounts(c *core.Core, _ *core.Command) error {
	cfg := app.Config()
	names := cfg.AccountNames()
	if len(names) == 0 {
		c.Notify("no accounts configured")
		return nil
	}

	current, _ := c.CurrentAccount()
	var b strings.Builder
	for i, name := range names {
		acc := cfg.Accounts[name]
		state := "offline"
		if id, err := acc.ID(); err == nil && app.conns.Connected(id) {
			state = "online"
			if id == current {
				state = "online, current"
			}
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s (%s)", name, acc.JID, state)
	}
	c.Notify(b.String())
	return nil
}
