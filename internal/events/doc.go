// Package events implements asynchronous, bounded delivery of login and
// account events from the Engine to independent consumers.
//
// # Components
//
//   - [Event] — immutable value describing one outcome (type, account, IP, metadata).
//   - [Sink] — consumer interface (fraud processor, JSON writer, channel, no-op).
//   - [Dispatcher] — buffered queue with N workers fanning each event out to every sink.
//
// # Delivery
//
// Publishers never block on sinks. With DropIfFull a full buffer drops the
// event and increments a counter. Without it a publisher waits for buffer
// space only until its ctx is done, then drops the event the same way. Sink panics are recovered and logged so a
// consumer can never fail the operation that published the event.
//
// # What this package must NOT do
//
//   - Decide which events to publish (the Engine does).
//   - Import authgate or any sibling internal package.
package events
