// Package httpapi exposes the catalogue over HTTP for the browser client:
// authentication, book catalogue CRUD and search, and the borrow/return
// endpoints backed by the lending transaction manager.
//
// The access policy gate is a request header: the caller asserts its role in
// x-user-role and the middleware only checks the claim, it cannot verify it.
// That mirrors the wire contract the existing frontend depends on; see the
// README for the implications.
package httpapi
