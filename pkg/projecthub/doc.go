// Package projecthub is the HTTP application of ProjectHub, a project and task tracker
// with kanban boards, an activity feed and in-app notifications.
//
// The application is a thin layer over [lifecycle.Managers]: handlers decode the request,
// read the identity resolved by the [auth.Gate] middleware, call one manager operation
// and encode the result. Every business rule lives in package lifecycle.
//
// # Commands
//
//	projecthub run      serve the JSON API
//	projecthub migrate  create or update the tables and indexes of the selected store
//
// # Stores
//
// The store backend is selected with --store:
//
//   - sqlite (default): GORM over an embedded SQLite file
//   - postgres: GORM over PostgreSQL
//   - surrealdb: SurrealDB over WebSocket with CBOR encoding
//   - mongo: MongoDB, a replica set is required for transactions
//
// Whatever the backend, the store is wrapped in a [store.ReadOnlyStore], so maintenance
// windows can reject writes with 503 while reads keep working.
package projecthub
