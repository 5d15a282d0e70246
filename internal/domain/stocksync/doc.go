// Package stocksync contains the Stock Synchronization bounded context.
// It reconciles the effective stock of composite products against the
// storefront and runs the per-account bulk reconciliation job.
//
// Key concepts:
//   - StockProvider: port to the storefront holding the recorded stock (absolute writes only)
//   - AuditLogEntry: immutable record of every correction pushed to the storefront
//   - SyncJob: the singleton bulk reconciliation job of an account, keyed by DedupKey
//   - WorkQueue / JobConsumer: ports of the durable queue backing SyncJob
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package stocksync
