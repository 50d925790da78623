// Package notify delivers the engine's notification jobs off the request path.
//
// [Queue] is the producer side: it implements [authgate.Notifier] by pushing
// JSON jobs onto a Redis list. [Worker] is the consumer: it pops jobs,
// throttles delivery, retries failed sends with exponential backoff and
// moves exhausted jobs to a dead-letter list. Delivery failures never reach
// end users; they end in the log and the dead-letter list.
//
// [Router] picks a [Sender] per notification kind: [SMTPMailer] for email,
// [SMSClient] for one-time codes, [LogSender] for development.
package notify
