package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Table names shared by every store backend.
const (
	TableUsers         = "users"
	TableProjects      = "projects"
	TableTasks         = "tasks"
	TableActivities    = "activities"
	TableNotifications = "notifications"
)

// UserID is a typed ID for users
type UserID struct {
	uuid uuid.UUID
}

func NewUserID() UserID                    { return UserID{uuid: uuid.New()} }
func NewUserIDFromUUID(id uuid.UUID) UserID { return UserID{uuid: id} }

func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user ID: %w", err)
	}
	return UserID{uuid: id}, nil
}

func (u UserID) UUID() uuid.UUID { return u.uuid }
func (u UserID) String() string  { return u.uuid.String() }
func (u UserID) IsZero() bool    { return u.uuid == uuid.Nil }

func (u UserID) RecordID() surrealdb_models.RecordID { return recordID(TableUsers, u.uuid) }

func (u UserID) MarshalJSON() ([]byte, error)     { return json.Marshal(u.uuid.String()) }
func (u *UserID) UnmarshalJSON(data []byte) error { return unmarshalJSONID(data, &u.uuid) }
func (u UserID) MarshalCBOR() ([]byte, error)     { return marshalCBORID(TableUsers, u.uuid) }
func (u *UserID) UnmarshalCBOR(data []byte) error { return unmarshalCBORID(data, TableUsers, &u.uuid) }

func (u UserID) MarshalBSONValue() (bsontype.Type, []byte, error) { return marshalBSONID(u.uuid) }
func (u *UserID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	return unmarshalBSONID(t, data, &u.uuid)
}

func (u UserID) Value() (driver.Value, error) { return valueUUID(u.uuid) }
func (u *UserID) Scan(value any) error         { return scanUUID(value, &u.uuid) }
func (UserID) GormDataType() string            { return "uuid" }

// ProjectID is a typed ID for projects
type ProjectID struct {
	uuid uuid.UUID
}

func NewProjectID() ProjectID                    { return ProjectID{uuid: uuid.New()} }
func NewProjectIDFromUUID(id uuid.UUID) ProjectID { return ProjectID{uuid: id} }

func ParseProjectID(s string) (ProjectID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ProjectID{}, fmt.Errorf("invalid project ID: %w", err)
	}
	return ProjectID{uuid: id}, nil
}

func (p ProjectID) UUID() uuid.UUID { return p.uuid }
func (p ProjectID) String() string  { return p.uuid.String() }
func (p ProjectID) IsZero() bool    { return p.uuid == uuid.Nil }

func (p ProjectID) RecordID() surrealdb_models.RecordID { return recordID(TableProjects, p.uuid) }

func (p ProjectID) MarshalJSON() ([]byte, error)     { return json.Marshal(p.uuid.String()) }
func (p *ProjectID) UnmarshalJSON(data []byte) error { return unmarshalJSONID(data, &p.uuid) }
func (p ProjectID) MarshalCBOR() ([]byte, error)     { return marshalCBORID(TableProjects, p.uuid) }
func (p *ProjectID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableProjects, &p.uuid)
}

func (p ProjectID) MarshalBSONValue() (bsontype.Type, []byte, error) { return marshalBSONID(p.uuid) }
func (p *ProjectID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	return unmarshalBSONID(t, data, &p.uuid)
}

func (p ProjectID) Value() (driver.Value, error) { return valueUUID(p.uuid) }
func (p *ProjectID) Scan(value any) error         { return scanUUID(value, &p.uuid) }
func (ProjectID) GormDataType() string            { return "uuid" }

// TaskID is a typed ID for tasks
type TaskID struct {
	uuid uuid.UUID
}

func NewTaskID() TaskID                    { return TaskID{uuid: uuid.New()} }
func NewTaskIDFromUUID(id uuid.UUID) TaskID { return TaskID{uuid: id} }

func ParseTaskID(s string) (TaskID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return TaskID{}, fmt.Errorf("invalid task ID: %w", err)
	}
	return TaskID{uuid: id}, nil
}

func (t TaskID) UUID() uuid.UUID { return t.uuid }
func (t TaskID) String() string  { return t.uuid.String() }
func (t TaskID) IsZero() bool    { return t.uuid == uuid.Nil }

func (t TaskID) RecordID() surrealdb_models.RecordID { return recordID(TableTasks, t.uuid) }

func (t TaskID) MarshalJSON() ([]byte, error)     { return json.Marshal(t.uuid.String()) }
func (t *TaskID) UnmarshalJSON(data []byte) error { return unmarshalJSONID(data, &t.uuid) }
func (t TaskID) MarshalCBOR() ([]byte, error)     { return marshalCBORID(TableTasks, t.uuid) }
func (t *TaskID) UnmarshalCBOR(data []byte) error { return unmarshalCBORID(data, TableTasks, &t.uuid) }

func (t TaskID) MarshalBSONValue() (bsontype.Type, []byte, error) { return marshalBSONID(t.uuid) }
func (t *TaskID) UnmarshalBSONValue(bt bsontype.Type, data []byte) error {
	return unmarshalBSONID(bt, data, &t.uuid)
}

func (t TaskID) Value() (driver.Value, error) { return valueUUID(t.uuid) }
func (t *TaskID) Scan(value any) error         { return scanUUID(value, &t.uuid) }
func (TaskID) GormDataType() string            { return "uuid" }

// ActivityID is a typed ID for activity log entries
type ActivityID struct {
	uuid uuid.UUID
}

func NewActivityID() ActivityID { return ActivityID{uuid: uuid.New()} }

func ParseActivityID(s string) (ActivityID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ActivityID{}, fmt.Errorf("invalid activity ID: %w", err)
	}
	return ActivityID{uuid: id}, nil
}

func (a ActivityID) UUID() uuid.UUID { return a.uuid }
func (a ActivityID) String() string  { return a.uuid.String() }
func (a ActivityID) IsZero() bool    { return a.uuid == uuid.Nil }

func (a ActivityID) RecordID() surrealdb_models.RecordID { return recordID(TableActivities, a.uuid) }

func (a ActivityID) MarshalJSON() ([]byte, error)     { return json.Marshal(a.uuid.String()) }
func (a *ActivityID) UnmarshalJSON(data []byte) error { return unmarshalJSONID(data, &a.uuid) }
func (a ActivityID) MarshalCBOR() ([]byte, error)     { return marshalCBORID(TableActivities, a.uuid) }
func (a *ActivityID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableActivities, &a.uuid)
}

func (a ActivityID) MarshalBSONValue() (bsontype.Type, []byte, error) { return marshalBSONID(a.uuid) }
func (a *ActivityID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	return unmarshalBSONID(t, data, &a.uuid)
}

func (a ActivityID) Value() (driver.Value, error) { return valueUUID(a.uuid) }
func (a *ActivityID) Scan(value any) error         { return scanUUID(value, &a.uuid) }
func (ActivityID) GormDataType() string            { return "uuid" }

// NotificationID is a typed ID for notifications
type NotificationID struct {
	uuid uuid.UUID
}

func NewNotificationID() NotificationID { return NotificationID{uuid: uuid.New()} }

func ParseNotificationID(s string) (NotificationID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NotificationID{}, fmt.Errorf("invalid notification ID: %w", err)
	}
	return NotificationID{uuid: id}, nil
}

func (n NotificationID) UUID() uuid.UUID { return n.uuid }
func (n NotificationID) String() string  { return n.uuid.String() }
func (n NotificationID) IsZero() bool    { return n.uuid == uuid.Nil }

func (n NotificationID) RecordID() surrealdb_models.RecordID {
	return recordID(TableNotifications, n.uuid)
}

func (n NotificationID) MarshalJSON() ([]byte, error)     { return json.Marshal(n.uuid.String()) }
func (n *NotificationID) UnmarshalJSON(data []byte) error { return unmarshalJSONID(data, &n.uuid) }
func (n NotificationID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID(TableNotifications, n.uuid)
}
func (n *NotificationID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableNotifications, &n.uuid)
}

func (n NotificationID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return marshalBSONID(n.uuid)
}
func (n *NotificationID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	return unmarshalBSONID(t, data, &n.uuid)
}

func (n NotificationID) Value() (driver.Value, error) { return valueUUID(n.uuid) }
func (n *NotificationID) Scan(value any) error         { return scanUUID(value, &n.uuid) }
func (NotificationID) GormDataType() string            { return "uuid" }

// Helper functions

func recordID(table string, id uuid.UUID) surrealdb_models.RecordID {
	return surrealdb_models.RecordID{Table: table, ID: id.String()}
}

func unmarshalJSONID(data []byte, target *uuid.UUID) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*target = id
	return nil
}

func valueUUID(id uuid.UUID) (driver.Value, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return id.String(), nil
}

// scanUUID implements sql.Scanner for the typed IDs. SQLite hands back strings or
// bytes depending on the column affinity; PostgreSQL returns strings.
func scanUUID(value any, target *uuid.UUID) error {
	if value == nil {
		*target = uuid.Nil
		return nil
	}

	switch v := value.(type) {
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		*target = id
	case []byte:
		id, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		*target = id
	default:
		return fmt.Errorf("cannot scan type %T into UUID", value)
	}
	return nil
}

// marshalCBORID encodes the ID as a SurrealDB RecordID: CBOR tag 8 wrapping
// [table_name, id_string].
func marshalCBORID(table string, id uuid.UUID) ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{table, id.String()},
	})
}

func unmarshalCBORID(data []byte, expectedTable string, target *uuid.UUID) error {
	if len(data) == 0 {
		return fmt.Errorf("empty CBOR data")
	}

	// major type 6 is a tag
	if majorType := data[0] >> 5; majorType != 6 {
		return fmt.Errorf("expected CBOR tag for RecordID, got major type %d", majorType)
	}

	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR tag: %w", err)
	}
	if tag.Number != 8 {
		return fmt.Errorf("expected RecordID tag (8), got %d", tag.Number)
	}

	arr, ok := tag.Content.([]any)
	if !ok || len(arr) != 2 {
		return fmt.Errorf("invalid RecordID format: expected [table, id] array")
	}
	table, ok := arr[0].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: table name must be string")
	}
	if table != expectedTable {
		return fmt.Errorf("expected table %s, got %s", expectedTable, table)
	}
	idStr, ok := arr[1].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: ID must be string")
	}

	parsed, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid UUID in RecordID: %w", err)
	}
	*target = parsed
	return nil
}

// marshalBSONID stores IDs as plain strings so MongoDB documents stay readable and
// queries can match on them directly.
func marshalBSONID(id uuid.UUID) (bsontype.Type, []byte, error) {
	if id == uuid.Nil {
		return bsontype.Null, nil, nil
	}
	return bson.MarshalValue(id.String())
}

func unmarshalBSONID(t bsontype.Type, data []byte, target *uuid.UUID) error {
	if t == bsontype.Null || t == bsontype.Undefined {
		*target = uuid.Nil
		return nil
	}
	raw := bson.RawValue{Type: t, Value: data}
	s, ok := raw.StringValueOK()
	if !ok {
		return fmt.Errorf("cannot decode BSON %s into ID", t)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid UUID in document: %w", err)
	}
	*target = parsed
	return nil
}
