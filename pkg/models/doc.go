// Package models defines the domain entities of ProjectHub: users, projects, tasks,
// activities and notifications.
//
// The same structs are persisted by every store backend. Field tags carry the names used
// by each one:
//   - json: the REST API and SurrealDB (surrealcbor follows json names)
//   - bson: MongoDB documents
//   - gorm: PostgreSQL and SQLite columns
//
// # Typed IDs
//
// Each entity has its own identifier type ([UserID], [ProjectID], [TaskID], [ActivityID],
// [NotificationID]). They wrap a UUID and know their table, so a [TaskID] cannot be passed
// where a [ProjectID] is expected. Every ID type marshals to:
//   - a JSON string for API payloads
//   - a SurrealDB record id (CBOR tag 8 holding [table, id])
//   - a BSON string for MongoDB
//   - a uuid column value through driver.Valuer and sql.Scanner
//
// # Lifecycle values
//
// Project categories and statuses, task statuses and priorities, member roles, notification
// types and user themes are string enums with a Valid method. Validation of user input lives
// in [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/validate]; the lifecycle rules
// that use these values live in [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/lifecycle].
//
// # Embedded lists
//
// Project members, team members, task assignees, tags and attachments are stored inside the
// owning record, the way a document database keeps them. The GORM stores keep them in text
// columns through the json serializer.
package models
