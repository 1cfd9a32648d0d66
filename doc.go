// Package projecthub is a project management backend: users own projects, projects hold
// tasks on a kanban board, and every change lands in an activity feed and, where it concerns
// someone else, in their notifications.
//
// # Features
//
//   - Session authentication with JWT cookies or bearer tokens and bcrypt password hashes
//   - Projects with categories, deadlines, member roles and a confirmed completion step
//   - Tasks with statuses, priorities, assignees, attachments and per-column ordering
//   - Activity feed and notifications with relative timestamps
//   - Four interchangeable stores: SQLite and PostgreSQL through GORM, SurrealDB, and MongoDB
//   - A read-only switch that rejects writes while the store is being moved
//   - Prometheus metrics and structured request logs
//
// # Architecture Overview
//
// [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store.Store] hides the database.
// [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/lifecycle] holds the rules for
// projects, tasks, activity and notifications on top of it, and
// [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/projecthub] exposes them over
// HTTP with the run and migrate commands.
//
// For the data model and typed IDs, see [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models].
//
// # API Integration
//
// The [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/client] package is a Go
// client for the API, and [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/projecthubtesting]
// simulates users on top of it for end-to-end and load tests.
package projecthub
