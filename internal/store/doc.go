// Package store defines the records, run history types and repository
// interfaces shared by the crawlers and the indexer. Implementations live in
// internal/storage; this package opens no connections of its own.
package store
