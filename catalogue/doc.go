// Package catalogue contains the domain model of the library catalogue and
// borrowing tracker: books with copy counters, borrow records with an explicit
// status state machine, user accounts with roles, the pure lending decision
// rules, and the error taxonomy shared by all storage engines and transports.
//
// The package is free of I/O. Persistence lives in catalogue/postgresengine,
// the HTTP surface in httpapi.
package catalogue
