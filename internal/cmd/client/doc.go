// Package client provides the `kestrelgo` command-line client.
//
// The CLI talks to the server's JSON-over-HTTP API to perform queue
// operations from a terminal. It is primarily intended for developers and
// operators exercising or scripting against a running broker.
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. The standalone binary defaults to
// http://127.0.0.1:4703, overridable via the KESTREL_HTTP environment
// variable.
//
// Usage
//
//	kestrelgo queue add jobs --data 'hello world'
//	kestrelgo queue get jobs --wait-ms 5000
//	kestrelgo queue get jobs --transactional
//	kestrelgo queue ack jobs <xid>
//	kestrelgo queue abort jobs <xid>
//	kestrelgo queue flush jobs
//	kestrelgo queue delete jobs
//	kestrelgo queue stats jobs
package client
