// Package postgresengine persists the catalogue domain in PostgreSQL.
//
// The Engine bundles the book catalogue store, the borrow ledger, the user
// accounts, and the borrow/return transaction manager. It can be constructed
// from a pgxpool.Pool, a database/sql DB (lib/pq), or a sqlx.DB; all SQL is
// built with goqu for the postgres dialect.
//
// Borrow and Return are the only operations that mutate available_copies and
// borrow record status, and they do so inside a single transaction with the
// relevant row locked (SELECT ... FOR UPDATE), so concurrent requests for the
// same book or record serialize on the row lock.
package postgresengine
