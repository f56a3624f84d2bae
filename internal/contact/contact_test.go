package contact

import (
	"testing"

	"mellium.im/xmpp/jid"

	"github.com/dshills/aparte/internal/account"
)

func TestContact_Clone(t *testing.T) {
	c := Contact{JID: jid.MustParse("alice@example.org"), Groups: []string{"friends", "work"}}
	clone := c.Clone()
	clone.Groups[0] = "changed"

	if c.Groups[0] != "friends" {
		t.Errorf("clone shares groups with original: %v", c.Groups)
	}
}

func TestKeyOf_ProjectsFullAddress(t *testing.T) {
	acct := account.MustParse("me@example.org")
	full := KeyOf(acct, jid.MustParse("alice@example.org/phone"))
	bare := KeyOf(acct, jid.MustParse("alice@example.org"))

	if full != bare {
		t.Errorf("expected equal keys, got %+v and %+v", full, bare)
	}
}

func TestBookmark_JoinAddress(t *testing.T) {
	tests := []struct {
		name string
		nick string
		want string
	}{
		{"with nick", "bob", "room@conf.example/bob"},
		{"without nick", "", "room@conf.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Bookmark{JID: jid.MustParse("room@conf.example"), Nick: tt.nick}
			if got := b.JoinAddress().String(); got != tt.want {
				t.Errorf("JoinAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPresence_String(t *testing.T) {
	if Dnd.String() != "dnd" {
		t.Errorf("expected dnd, got %s", Dnd.String())
	}
	if Presence(42).String() != "unknown" {
		t.Errorf("expected unknown for out of range value")
	}
}
