package stanza

import (
	"bytes"
	"encoding/xml"

	"mellium.im/xmlstream"
)

// RosterQuery is the roster get/result/push payload.
type RosterQuery struct {
	Ver   string       `xml:"ver,attr,omitempty"`
	Items []RosterItem `xml:"item"`
}

// RosterItem is one roster entry. JID is kept as text so a single malformed
// item does not spoil the whole query.
type RosterItem struct {
	JID          string   `xml:"jid,attr"`
	Name         string   `xml:"name,attr,omitempty"`
	Subscription string   `xml:"subscription,attr,omitempty"`
	Groups       []string `xml:"group"`
}

// DiscoInfo is a service discovery info query or result.
type DiscoInfo struct {
	Node       string          `xml:"node,attr,omitempty"`
	Identities []DiscoIdentity `xml:"identity"`
	Features   []DiscoFeature  `xml:"feature"`
}

// DiscoIdentity describes what an entity is.
type DiscoIdentity struct {
	Category string `xml:"category,attr"`
	Type     string `xml:"type,attr"`
	Name     string `xml:"name,attr,omitempty"`
}

// DiscoFeature is one advertised feature namespace.
type DiscoFeature struct {
	Var string `xml:"var,attr"`
}

// HasFeature reports whether ns is advertised in d.
func (d *DiscoInfo) HasFeature(ns string) bool {
	for _, f := range d.Features {
		if f.Var == ns {
			return true
		}
	}
	return false
}

// PubSub is the publish/subscribe payload. Exactly one operation is set,
// optionally with Configure or PublishOptions alongside.
type PubSub struct {
	Items          *Items          `xml:"items,omitempty"`
	Create         *Create         `xml:"create,omitempty"`
	Configure      *Configure      `xml:"configure,omitempty"`
	Publish        *Publish        `xml:"publish,omitempty"`
	PublishOptions *PublishOptions `xml:"publish-options,omitempty"`
	Retract        *Retract        `xml:"retract,omitempty"`
}

// Items requests or carries the items of a node.
type Items struct {
	Node     string `xml:"node,attr"`
	MaxItems int    `xml:"max_items,attr,omitempty"`
	Items    []Item `xml:"item"`
}

// Item is a pubsub item. Payload holds the raw child element, decoded by
// whichever component owns the node.
type Item struct {
	ID      string `xml:"id,attr,omitempty"`
	Payload []byte `xml:",innerxml"`
}

// UnmarshalXML re-encodes the children of the item into Payload. A decoder
// reading from a token stream never fills innerxml fields.
func (it *Item) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	*it = Item{}
	for _, attr := range start.Attr {
		if attr.Name.Space == "" && attr.Name.Local == "id" {
			it.ID = attr.Value
		}
	}

	var buf bytes.Buffer
	e := xml.NewEncoder(&buf)
	inner := xmlstream.RemoveAttr(isNamespaceDecl)(xmlstream.Inner(d))
	if _, err := xmlstream.Copy(e, inner); err != nil {
		return err
	}
	if err := e.Flush(); err != nil {
		return err
	}
	if payload := bytes.TrimSpace(buf.Bytes()); len(payload) > 0 {
		it.Payload = payload
	}
	return nil
}

// isNamespaceDecl matches xmlns attributes. The encoder declares the
// namespace of every element itself.
func isNamespaceDecl(_ xml.StartElement, attr xml.Attr) bool {
	return attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == "xmlns")
}

// Create requests creation of a node.
type Create struct {
	Node string `xml:"node,attr,omitempty"`
}

// Configure carries a node configuration form.
type Configure struct {
	Node string    `xml:"node,attr,omitempty"`
	Form *DataForm `xml:"jabber:x:data x,omitempty"`
}

// Publish publishes items to a node.
type Publish struct {
	Node  string `xml:"node,attr"`
	Items []Item `xml:"item"`
}

// PublishOptions carries the preconditions of a publish.
type PublishOptions struct {
	Form *DataForm `xml:"jabber:x:data x,omitempty"`
}

// Retract removes items from a node.
type Retract struct {
	Node   string `xml:"node,attr"`
	Notify bool   `xml:"notify,attr"`
	Items  []Item `xml:"item"`
}

// PubSubOwner is the owner namespace payload.
type PubSubOwner struct {
	Configure *Configure `xml:"configure,omitempty"`
}

// FormSubmit is the type of a submitted data form.
const FormSubmit = "submit"

// DataForm is a data form.
type DataForm struct {
	Type   string  `xml:"type,attr"`
	Fields []Field `xml:"field"`
}

// Field is a single data form field.
type Field struct {
	Var    string   `xml:"var,attr,omitempty"`
	Type   string   `xml:"type,attr,omitempty"`
	Values []string `xml:"value"`
}

// NewSubmitForm returns a submit form of the given FORM_TYPE with fields.
func NewSubmitForm(formType string, fields ...Field) *DataForm {
	all := make([]Field, 0, len(fields)+1)
	all = append(all, Field{Var: "FORM_TYPE", Type: "hidden", Values: []string{formType}})
	all = append(all, fields...)
	return &DataForm{Type: FormSubmit, Fields: all}
}
