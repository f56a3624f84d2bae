package muc

import (
	"errors"
	"fmt"

	"github.com/dshills/aparte/internal/command"
	"github.com/dshills/aparte/internal/core"
	"github.com/dshills/aparte/internal/event"
)

// ErrNotJoined is returned when leaving a room that was never joined.
var ErrNotJoined = errors.New("not in room")

func joinCommand() *core.CommandSpec {
	return &core.CommandSpec{
		Name: "join",
		Doc:  "Join a group chat. A resource on the address is used as nickname.",
		Params: []command.Param{
			{Name: "room", Type: command.TypeAddress, Kind: command.Required, Doc: "room address, optionally room/nick"},
		},
		Handler: func(c *core.Core, cmd *core.Command) error {
			acct, ok := c.CurrentAccount()
			if !ok {
				return core.ErrNoAccount
			}
			room, _ := cmd.Address("room")
			c.Schedule(event.Join{Account: acct, JID: room})
			return nil
		},
	}
}

func partCommand() *core.CommandSpec {
	return &core.CommandSpec{
		Name: "part",
		Doc:  "Leave a group chat.",
		Params: []command.Param{
			{Name: "room", Type: command.TypeAddress, Kind: command.Required, Doc: "room address"},
		},
		Handler: func(c *core.Core, cmd *core.Command) error {
			acct, ok := c.CurrentAccount()
			if !ok {
				return core.ErrNoAccount
			}
			room, _ := cmd.Address("room")

			m, release, err := core.GetMut[*Component](c)
			if err != nil {
				return err
			}
			defer release()
			if err := m.part(c, acct, room); err != nil {
				return fmt.Errorf("%s: %w", room.Bare(), err)
			}
			return nil
		},
	}
}
