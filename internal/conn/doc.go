// Package conn manages one protocol session per account.
//
// Each session runs a reader and a writer goroutine. The reader turns inbound
// stanzas into events and schedules them on the core; the writer drains a
// bounded outgoing channel fed by Manager.Send. Neither goroutine touches
// component state.
package conn
