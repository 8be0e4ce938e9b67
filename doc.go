// Package relay copies AWS Config log objects from a source bucket owned by
// another account into a destination bucket, for a sliding multi-day window.
//
// The Client discovers the keyspace prefix under which per-account Config
// logs live, enumerates matching objects day by day across the window,
// skips objects already present at the destination, and transfers the rest:
// gzip-compressed objects are decompressed and uploaded, everything else is
// copied server side. The destination bucket's existing contents are the
// only idempotency ledger, so interrupted runs can simply be re-run.
package relay
