// Package core hosts the event loop of the client.
//
// A Core owns three things: a FIFO queue of events, an ordered registry of
// components and a command registry. Events are scheduled from any goroutine
// and delivered one at a time, to every component in registration order,
// from the goroutine running Run. A component handling an event may schedule
// more events; they are delivered after the current one has reached every
// component.
//
// Components reach each other through Get and GetMut, which borrow a
// component by concrete type:
//
//	disco, release, err := core.GetMut[*disco.Component](c)
//	if err != nil {
//		return err
//	}
//	defer release()
//	disco.AddFeature(stanza.NSBookmarks2Compat)
//
// A component cannot borrow itself while handling an event; the registry
// reports ErrBorrowConflict instead.
package core
