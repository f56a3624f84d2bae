package bookmarks

import (
	"encoding/xml"
	"errors"
	"strconv"

	"mellium.im/xmpp/jid"

	"github.com/dshills/aparte/internal/contact"
	"github.com/dshills/aparte/internal/logger"
	"github.com/dshills/aparte/internal/stanza"
)

// Form types used when configuring and publishing to the node.
const (
	NodeConfigForm     = "http://jabber.org/protocol/pubsub#node_config"
	PublishOptionsForm = "http://jabber.org/protocol/pubsub#publish-options"
)

// MaxItems is the item cap requested for the node.
const MaxItems = 10

// Modern stores one item per conference in a private publish/subscribe node.
// The item id is the conference address.
type Modern struct{}

type conference struct {
	XMLName  xml.Name `xml:"urn:xmpp:bookmarks:1 conference"`
	Name     string   `xml:"name,attr,omitempty"`
	Autojoin bool     `xml:"autojoin,attr"`
	Nick     string   `xml:"nick,omitempty"`
	Password string   `xml:"password,omitempty"`
}

func (Modern) Name() string { return "modern" }

func (Modern) Node() string { return stanza.NSBookmarks2 }

// Setup creates then configures the node.
func (m Modern) Setup() []*stanza.IQ {
	create, _ := m.CreateNode()
	configure, _ := m.ConfigureNode()
	return []*stanza.IQ{create, configure}
}

func (Modern) CreateNode() (*stanza.IQ, error) {
	iq := stanza.NewIQ(stanza.SetIQ, jid.JID{})
	iq.PubSub = &stanza.PubSub{Create: &stanza.Create{Node: stanza.NSBookmarks2}}
	return iq, nil
}

func (Modern) ConfigureNode() (*stanza.IQ, error) {
	iq := stanza.NewIQ(stanza.SetIQ, jid.JID{})
	iq.PubSubOwner = &stanza.PubSubOwner{
		Configure: &stanza.Configure{
			Node: stanza.NSBookmarks2,
			Form: stanza.NewSubmitForm(NodeConfigForm,
				stanza.Field{Var: "pubsub#persist_items", Type: "boolean", Values: []string{"true"}},
				stanza.Field{Var: "pubsub#send_last_published_item", Type: "text-single", Values: []string{"never"}},
				stanza.Field{Var: "pubsub#access_model", Type: "text-single", Values: []string{"whitelist"}},
				stanza.Field{Var: "pubsub#max_items", Type: "text-single", Values: []string{strconv.Itoa(MaxItems)}},
			),
		},
	}
	return iq, nil
}

func (Modern) Retrieve() *stanza.IQ { return retrieveItems(stanza.NSBookmarks2) }

// Add publishes b under its bare conference address.
func (Modern) Add(b contact.Bookmark) (*stanza.IQ, error) {
	payload, err := xml.Marshal(conference{
		Name:     b.Name,
		Autojoin: b.Autojoin,
		Nick:     b.Nick,
		Password: b.Password,
	})
	if err != nil {
		return nil, err
	}

	iq := stanza.NewIQ(stanza.SetIQ, jid.JID{})
	iq.PubSub = &stanza.PubSub{
		Publish: &stanza.Publish{
			Node:  stanza.NSBookmarks2,
			Items: []stanza.Item{{ID: b.JID.Bare().String(), Payload: payload}},
		},
		PublishOptions: &stanza.PublishOptions{
			Form: stanza.NewSubmitForm(PublishOptionsForm,
				stanza.Field{Var: "pubsub#persist_items", Type: "boolean", Values: []string{"true"}},
				stanza.Field{Var: "pubsub#access_model", Type: "text-single", Values: []string{"whitelist"}},
			),
		},
	}
	return iq, nil
}

// Delete retracts the item of room without notifying subscribers.
func (Modern) Delete(room jid.JID) (*stanza.IQ, error) {
	iq := stanza.NewIQ(stanza.SetIQ, jid.JID{})
	iq.PubSub = &stanza.PubSub{
		Retract: &stanza.Retract{
			Node:   stanza.NSBookmarks2,
			Notify: false,
			Items:  []stanza.Item{{ID: room.Bare().String()}},
		},
	}
	return iq, nil
}

var errMissingID = errors.New("missing item id")

// Decode reads one conference per item.
func (Modern) Decode(items []stanza.Item, log logger.Logger) []contact.Bookmark {
	var out []contact.Bookmark
	for _, item := range items {
		b, err := decodeConference(item)
		if err != nil {
			log.Warn("skipping bookmark item", logger.String("id", item.ID), logger.Error(err))
			continue
		}
		out = append(out, b)
	}
	return out
}

func decodeConference(item stanza.Item) (contact.Bookmark, error) {
	if item.ID == "" {
		return contact.Bookmark{}, errMissingID
	}
	room, err := jid.Parse(item.ID)
	if err != nil {
		return contact.Bookmark{}, err
	}
	if len(item.Payload) == 0 {
		return contact.Bookmark{}, errors.New("empty bookmark element")
	}
	var conf conference
	if err := xml.Unmarshal(item.Payload, &conf); err != nil {
		return contact.Bookmark{}, err
	}
	return contact.Bookmark{
		JID:      room.Bare(),
		Name:     conf.Name,
		Nick:     conf.Nick,
		Password: conf.Password,
		Autojoin: conf.Autojoin,
	}, nil
}
