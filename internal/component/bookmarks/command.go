package bookmarks

import (
	"github.com/dshills/aparte/internal/command"
	"github.com/dshills/aparte/internal/contact"
	"github.com/dshills/aparte/internal/core"
)

func commandSpec() *core.CommandSpec {
	return &core.CommandSpec{
		Name: "bookmark",
		Doc:  "Manage group chat bookmarks.",
		Children: []*core.CommandSpec{
			{
				Name:    "add",
				Doc:     "Add a bookmark. A resource on the conference address is used as nickname.",
				Params:  saveParams(),
				Handler: runSave,
			},
			{
				Name:    "edit",
				Doc:     "Store a bookmark again with new settings.",
				Params:  saveParams(),
				Handler: runSave,
			},
			{
				Name: "del",
				Doc:  "Delete the bookmark of a conference.",
				Params: []command.Param{
					{Name: "conference", Type: command.TypeAddress, Kind: command.Required, Doc: "conference room address"},
				},
				Handler: runDelete,
			},
		},
	}
}

func saveParams() []command.Param {
	return []command.Param{
		{Name: "name", Type: command.TypeString, Kind: command.Required, Doc: "bookmark friendly name"},
		{Name: "conference", Type: command.TypeAddress, Kind: command.Required, Doc: "conference room address"},
		{Name: "autojoin", Type: command.TypeBool, Kind: command.Keyword, Default: false, Doc: "join automatically on startup"},
	}
}

func runSave(c *core.Core, cmd *core.Command) error {
	acct, ok := c.CurrentAccount()
	if !ok {
		return core.ErrNoAccount
	}
	room, _ := cmd.Address("conference")
	autojoin, _ := cmd.Bool("autojoin")

	bm := contact.Bookmark{
		JID:      room.Bare(),
		Name:     cmd.String("name"),
		Nick:     room.Resourcepart(),
		Autojoin: autojoin,
	}

	b, release, err := core.GetMut[*Component](c)
	if err != nil {
		return err
	}
	defer release()
	return b.add(c, acct, bm)
}

func runDelete(c *core.Core, cmd *core.Command) error {
	acct, ok := c.CurrentAccount()
	if !ok {
		return core.ErrNoAccount
	}
	room, _ := cmd.Address("conference")

	b, release, err := core.GetMut[*Component](c)
	if err != nil {
		return err
	}
	defer release()
	return b.remove(c, acct, room)
}
