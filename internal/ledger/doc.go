// Package ledger holds the storage-free arithmetic behind shared expenses:
// splitting an amount into member shares, detecting budget threshold
// crossings, netting group balances and reducing them to transfers.
//
// Every function here is pure. Callers in the services package load rows,
// hand plain values in and persist whatever comes back.
package ledger
