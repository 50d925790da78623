// Package fraud watches login outcomes for new-location and brute-force
// signals.
//
// [Processor] is an [authgate.EventSink]: register it with
// Builder.WithEventSink and it runs on the engine's event dispatcher, never
// on the request path. It only observes. Signals go to the configured
// [Hooks], the log and Prometheus counters; nothing is ever rejected.
//
// Redis keys:
//
//	user:{accountID}:last_ip          last successful login IP, 30 day TTL
//	brute_force_attempts:{ip}         failed logins from ip, 1 hour fixed window
package fraud
