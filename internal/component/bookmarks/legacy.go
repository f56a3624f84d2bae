package bookmarks

import (
	"encoding/xml"

	"mellium.im/xmpp/jid"

	"github.com/dshills/aparte/internal/contact"
	"github.com/dshills/aparte/internal/logger"
	"github.com/dshills/aparte/internal/stanza"
)

// Legacy reads bookmarks from a single private storage document. It only
// supports retrieval.
type Legacy struct{}

type storage struct {
	XMLName     xml.Name            `xml:"storage:bookmarks storage"`
	Conferences []storageConference `xml:"conference"`
}

type storageConference struct {
	JID      string `xml:"jid,attr"`
	Name     string `xml:"name,attr"`
	Autojoin string `xml:"autojoin,attr"`
	Nick     string `xml:"nick"`
	Password string `xml:"password"`
}

func (Legacy) Name() string { return "legacy" }

func (Legacy) Node() string { return stanza.NSBookmarks }

func (Legacy) Setup() []*stanza.IQ { return nil }

func (Legacy) CreateNode() (*stanza.IQ, error) { return nil, ErrNotSupported }

func (Legacy) ConfigureNode() (*stanza.IQ, error) { return nil, ErrNotSupported }

func (Legacy) Retrieve() *stanza.IQ { return retrieveItems(stanza.NSBookmarks) }

func (Legacy) Add(contact.Bookmark) (*stanza.IQ, error) { return nil, ErrNotSupported }

func (Legacy) Delete(jid.JID) (*stanza.IQ, error) { return nil, ErrNotSupported }

// Decode reads every storage document. Items without an id and conferences
// with an unparsable address are skipped.
func (Legacy) Decode(items []stanza.Item, log logger.Logger) []contact.Bookmark {
	var out []contact.Bookmark
	for _, item := range items {
		if item.ID == "" {
			log.Warn("skipping storage item", logger.Error(errMissingID))
			continue
		}
		if len(item.Payload) == 0 {
			log.Warn("missing storage element", logger.String("id", item.ID))
			continue
		}
		var st storage
		if err := xml.Unmarshal(item.Payload, &st); err != nil {
			log.Warn("invalid storage element", logger.String("id", item.ID), logger.Error(err))
			continue
		}
		for _, conf := range st.Conferences {
			room, err := jid.Parse(conf.JID)
			if err != nil {
				log.Warn("invalid bookmark jid", logger.String("jid", conf.JID), logger.Error(err))
				continue
			}
			out = append(out, contact.Bookmark{
				JID:      room.Bare(),
				Name:     conf.Name,
				Nick:     conf.Nick,
				Password: conf.Password,
				Autojoin: conf.Autojoin == "true" || conf.Autojoin == "1",
			})
		}
	}
	return out
}
