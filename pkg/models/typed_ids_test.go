package models

import (
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestTaskIDCBOREncodesRecordID(t *testing.T) {
	id := NewTaskID()

	data, err := id.MarshalCBOR()
	require.NoError(t, err)

	var tag cbor.Tag
	require.NoError(t, cbor.Unmarshal(data, &tag))
	assert.Equal(t, uint64(8), tag.Number)
	assert.Equal(t, []any{TableTasks, id.String()}, tag.Content)

	var decoded TaskID
	require.NoError(t, decoded.UnmarshalCBOR(data))
	assert.Equal(t, id, decoded)
}

func TestUnmarshalCBORRejectsOtherTable(t *testing.T) {
	data, err := NewProjectID().MarshalCBOR()
	require.NoError(t, err)

	var id TaskID
	err = id.UnmarshalCBOR(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected table tasks, got projects")
}

func TestScanUUID(t *testing.T) {
	want := NewUserID()

	var fromString UserID
	require.NoError(t, fromString.Scan(want.String()))
	assert.Equal(t, want, fromString)

	var fromBytes UserID
	require.NoError(t, fromBytes.Scan([]byte(want.String())))
	assert.Equal(t, want, fromBytes)

	var fromNil UserID
	require.NoError(t, fromNil.Scan(nil))
	assert.True(t, fromNil.IsZero())

	var bad UserID
	assert.Error(t, bad.Scan(42))
}

func TestZeroIDValueIsNull(t *testing.T) {
	v, err := ProjectID{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestIDsInsideBSONDocument(t *testing.T) {
	task := NewTaskID()
	doc := struct {
		ID      ProjectID `bson:"_id"`
		Owner   UserID    `bson:"owner"`
		Pointer *TaskID   `bson:"task,omitempty"`
	}{ID: NewProjectID(), Owner: NewUserID(), Pointer: &task}

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	owner, err := bson.Raw(raw).LookupErr("owner")
	require.NoError(t, err)
	assert.Equal(t, doc.Owner.String(), owner.StringValue())

	var decoded struct {
		ID      ProjectID `bson:"_id"`
		Owner   UserID    `bson:"owner"`
		Pointer *TaskID   `bson:"task,omitempty"`
	}
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, doc.ID, decoded.ID)
	assert.Equal(t, doc.Owner, decoded.Owner)
	require.NotNil(t, decoded.Pointer)
	assert.Equal(t, task, *decoded.Pointer)
}

func TestTaskViewShadowsRawReferences(t *testing.T) {
	task := Task{ID: NewTaskID(), Title: "Design mockups", ProjectID: NewProjectID(), CreatedBy: NewUserID()}
	view := TaskView{
		Task:      task,
		Project:   &ProjectRef{ID: task.ProjectID, Name: "Website Redesign"},
		CreatedBy: &UserRef{ID: task.CreatedBy, Name: "Ada"},
	}

	data, err := json.Marshal(view)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	project, ok := decoded["project"].(map[string]any)
	require.True(t, ok, "project should be an object, got %T", decoded["project"])
	assert.Equal(t, "Website Redesign", project["name"])
	creator, ok := decoded["createdBy"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada", creator["name"])
}

func TestProjectRoles(t *testing.T) {
	owner, admin, member, stranger := NewUserID(), NewUserID(), NewUserID(), NewUserID()
	p := &Project{
		OwnerID: owner,
		Members: []Member{
			{User: owner, Role: RoleOwner},
			{User: admin, Role: RoleAdmin},
			{User: member, Role: RoleMember},
		},
	}

	assert.True(t, p.CanManage(owner))
	assert.True(t, p.CanManage(admin))
	assert.False(t, p.CanManage(member))
	assert.True(t, p.IsMember(member))
	assert.False(t, p.IsMember(stranger))
}
