// Package httpserver provides a minimal JSON-over-HTTP gateway onto the
// queue collection: one route per OperationFacade method, plus health and
// admin-reload endpoints.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Config: config.Default()})
//	s := httpserver.New(rt)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":4703")
package httpserver
