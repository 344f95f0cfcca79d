// Package adapters provides database abstraction adapters for the catalogue
// engine, so it can run on pgxpool.Pool, database/sql, or sqlx.DB connections
// through one small interface. Unlike a plain query runner, the adapters also
// expose transaction handles: the lending operations need multiple statements
// under one row lock.
package adapters
