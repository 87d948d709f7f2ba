// Package reminder keeps the notification backend in sync with the task
// store.
//
// The service holds one pending one-shot per task that has a future
// startTime or dueDate, plus optional morning and evening digest entries.
// Every store change triggers a full reconciliation pass: registrations are
// keyed by the occurrence instant, so a pass over an unchanged task is a
// no-op, a shifted date replaces the old registration, and a completed,
// archived or deleted task has its registration cancelled.
//
// Snooze responses from the backend flow back in through the notification
// port and unconditionally re-register the task a few minutes out.
package reminder
