// Package app contains the core application logic. It loads definitions,
// binds them to registered Go handlers, builds a session and runs it,
// decoupled from any specific entrypoint like a CLI or server.
package app
