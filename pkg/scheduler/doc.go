// Package scheduler runs the periodic housekeeping jobs: dropping sessions
// nobody touched for the configured TTL and running BadgerDB value log GC.
package scheduler
