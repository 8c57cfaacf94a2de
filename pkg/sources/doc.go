// Package sources retrieves policy documents for evaluation.
//
// A Resolver accepts three location forms: a local file path, "-" for
// standard input, and sftp://user@host:port/path for remote retrieval
// over SSH. Remote fetches honor context cancellation and verify host
// keys against known_hosts when strict checking is enabled.
package sources
