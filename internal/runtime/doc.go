// Package runtime wires configuration and logging into a single-node
// kestrel instance. It exposes Open/Close, a basic health check, and the
// OperationFacade exposed via Collection() for the HTTP front-end and CLI.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	ok, _ := rt.Collection().Add(context.Background(), "jobs", []byte("hello"), 0)
package runtime
