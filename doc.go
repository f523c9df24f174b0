// Package beanledger is a double-entry ledger engine over plain text files
// in beancount syntax.
//
// The data directory is the database: a main.bean file includes an
// accounts.bean file holding account declarations and one YYYY-MM.bean file
// per month of transactions. Every mutation goes through a read-modify-write
// cycle with per-file locking, a content-hash conflict check and an atomic
// file replacement, so the files stay valid and editable by hand or by any
// beancount tool at all times.
//
// Directives are addressed by a ULID stored as an "id" metadata entry, which
// survives external edits and reformatting. The Verify pass checks the whole
// directory against the engine's invariants and reports findings without
// fixing anything.
package beanledger
