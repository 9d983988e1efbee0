// Package bootstrap runs a filevault process. It owns the component
// registry, runs ready hooks once every component is up, waits for
// SIGINT/SIGTERM and stops everything in reverse order.
//
// Configuration is loaded by the caller (see config.Load) and handed to
// NewApp already populated. NewApp applies defaults and validates it.
package bootstrap
