package contact

import (
	"mellium.im/xmpp/jid"
)

// Bookmark is a saved group chat. Its identity is the conference address.
// Empty Name, Nick and Password mean unset.
type Bookmark struct {
	JID      jid.JID
	Name     string
	Nick     string
	Password string
	Autojoin bool
}

// JoinAddress returns the address to join: room/nick when a nickname is set,
// the bare room otherwise.
func (b Bookmark) JoinAddress() jid.JID {
	room := b.JID.Bare()
	if b.Nick == "" {
		return room
	}
	full, err := room.WithResource(b.Nick)
	if err != nil {
		return room
	}
	return full
}
