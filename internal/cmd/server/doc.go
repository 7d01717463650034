// Package serverrun exposes a shared Run entrypoint used by the CLI to start
// the kestrel runtime with its HTTP front-end, handling lifecycle and
// graceful shutdown.
//
// Example:
//
//	opts := serverrun.Options{HTTPAddr: ":4703", Config: config.Default()}
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, opts)
package serverrun
