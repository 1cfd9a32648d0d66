package lifecycle

import (
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/validate"
)

// TaskOp is one validated assignment of a task patch.
type TaskOp struct {
	field string
	// target is the destination of a project move; the caller checks it before applying.
	target *models.ProjectID
	// apply sets the field on t and reports the old and new values and whether they differ.
	apply func(t *models.Task, now time.Time) (from, to any, changed bool, err error)
}

// Field names the task field the operation assigns.
func (op TaskOp) Field() string { return op.field }

// ParseTaskPatch turns a JSON patch into typed operations, one per key, in key order.
// Unknown keys and values of the wrong shape are rejected before anything is applied.
func ParseTaskPatch(patch Patch) ([]TaskOp, error) {
	ops := make([]TaskOp, 0, len(patch))
	for _, key := range patch.keys() {
		parse, ok := taskOps[key]
		if !ok {
			return nil, validation("Field \"" + key + "\" cannot be updated")
		}
		op, err := parse(key, patch[key])
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

type taskOpParser func(key string, raw []byte) (TaskOp, error)

var taskOps = map[string]taskOpParser{
	"title":       parseTitleOp,
	"description": parseDescriptionOp,
	"status":      parseStatusOp,
	"priority":    parsePriorityOp,
	"assignedTo":  parseAssignedToOp,
	"tags":        parseTagsOp,
	"dueDate":     parseDueDateOp,
	"order":       parseOrderOp,
	"attachments": parseAttachmentsOp,
	"project":     parseProjectOp,
}

func parseProjectOp(key string, raw []byte) (TaskOp, error) {
	s, err := decodeField[string](key, raw)
	if err != nil {
		return TaskOp{}, err
	}
	if strings.TrimSpace(s) == "" {
		return TaskOp{}, validation("Please select a project")
	}
	id, err := models.ParseProjectID(strings.TrimSpace(s))
	if err != nil {
		return TaskOp{}, notFound(msgProjectNotFound)
	}
	return TaskOp{field: key, target: &id, apply: func(t *models.Task, _ time.Time) (any, any, bool, error) {
		from := t.ProjectID
		t.ProjectID = id
		return from.String(), id.String(), from != id, nil
	}}, nil
}

func parseTitleOp(key string, raw []byte) (TaskOp, error) {
	title, err := decodeField[string](key, raw)
	if err != nil {
		return TaskOp{}, err
	}
	if err := checkTaskTitle(title); err != nil {
		return TaskOp{}, err
	}
	title = strings.TrimSpace(title)
	return TaskOp{field: key, apply: func(t *models.Task, _ time.Time) (any, any, bool, error) {
		from := t.Title
		t.Title = title
		return from, title, from != title, nil
	}}, nil
}

func parseDescriptionOp(key string, raw []byte) (TaskOp, error) {
	var desc string
	if !isNull(raw) {
		var err error
		if desc, err = decodeField[string](key, raw); err != nil {
			return TaskOp{}, err
		}
	}
	desc = strings.TrimSpace(desc)
	return TaskOp{field: key, apply: func(t *models.Task, _ time.Time) (any, any, bool, error) {
		from := t.Description
		t.Description = desc
		return from, desc, from != desc, nil
	}}, nil
}

func parseStatusOp(key string, raw []byte) (TaskOp, error) {
	status, err := decodeField[models.TaskStatus](key, raw)
	if err != nil {
		return TaskOp{}, err
	}
	if err := checkTaskStatus(status); err != nil {
		return TaskOp{}, err
	}
	return TaskOp{field: key, apply: func(t *models.Task, _ time.Time) (any, any, bool, error) {
		from := t.Status
		t.Status = status
		return string(from), string(status), from != status, nil
	}}, nil
}

func parsePriorityOp(key string, raw []byte) (TaskOp, error) {
	priority, err := decodeField[models.TaskPriority](key, raw)
	if err != nil {
		return TaskOp{}, err
	}
	if err := checkPriority(priority); err != nil {
		return TaskOp{}, err
	}
	return TaskOp{field: key, apply: func(t *models.Task, _ time.Time) (any, any, bool, error) {
		from := t.Priority
		t.Priority = priority
		return string(from), string(priority), from != priority, nil
	}}, nil
}

func parseAssignedToOp(key string, raw []byte) (TaskOp, error) {
	var ids []models.UserID
	if !isNull(raw) {
		var err error
		if ids, err = decodeField[[]models.UserID](key, raw); err != nil {
			return TaskOp{}, err
		}
	}
	ids = dedupe(ids)
	return TaskOp{field: key, apply: func(t *models.Task, _ time.Time) (any, any, bool, error) {
		from, to := userIDStrings(t.AssignedTo), userIDStrings(ids)
		t.AssignedTo = ids
		return from, to, !sameStrings(from, to), nil
	}}, nil
}

func parseTagsOp(key string, raw []byte) (TaskOp, error) {
	var tags []string
	if !isNull(raw) {
		var err error
		if tags, err = decodeField[[]string](key, raw); err != nil {
			return TaskOp{}, err
		}
	}
	tags = cleanList(tags)
	return TaskOp{field: key, apply: func(t *models.Task, _ time.Time) (any, any, bool, error) {
		from := t.Tags
		t.Tags = tags
		return from, tags, !sameStrings(from, tags), nil
	}}, nil
}

// parseDueDateOp accepts null or "" to clear the date. A new date must not be in the
// past; resending the current date is accepted even once it has passed.
func parseDueDateOp(key string, raw []byte) (TaskOp, error) {
	var (
		s   string
		due *time.Time
	)
	if !isNull(raw) {
		var err error
		if s, err = decodeField[string](key, raw); err != nil {
			return TaskOp{}, err
		}
		if strings.TrimSpace(s) != "" {
			t, _, err := validate.ParseDate(s)
			if err != nil {
				return TaskOp{}, validation("Invalid due date")
			}
			due = &t
		}
	}
	return TaskOp{field: key, apply: func(t *models.Task, now time.Time) (any, any, bool, error) {
		if sameTime(t.DueDate, due) {
			return nil, nil, false, nil
		}
		if due != nil {
			if _, err := parseDueDate(s, now); err != nil {
				return nil, nil, false, err
			}
		}
		from := timeValue(t.DueDate)
		t.DueDate = due
		return from, timeValue(due), true, nil
	}}, nil
}

func parseOrderOp(key string, raw []byte) (TaskOp, error) {
	order, err := decodeField[int](key, raw)
	if err != nil {
		return TaskOp{}, err
	}
	if order < 0 {
		return TaskOp{}, validation("Invalid task order")
	}
	return TaskOp{field: key, apply: func(t *models.Task, _ time.Time) (any, any, bool, error) {
		from := t.Order
		t.Order = order
		return from, order, from != order, nil
	}}, nil
}

func parseAttachmentsOp(key string, raw []byte) (TaskOp, error) {
	var as []models.Attachment
	if !isNull(raw) {
		var err error
		if as, err = decodeField[[]models.Attachment](key, raw); err != nil {
			return TaskOp{}, err
		}
	}
	return TaskOp{field: key, apply: func(t *models.Task, now time.Time) (any, any, bool, error) {
		if sameAttachments(t.Attachments, as) {
			return nil, nil, false, nil
		}
		next, err := checkAttachments(as, now)
		if err != nil {
			return nil, nil, false, err
		}
		// Keep the upload time of attachments that were already present.
		for i := range next {
			for _, prev := range t.Attachments {
				if prev.Name == next[i].Name && prev.URL == next[i].URL && !prev.UploadedAt.IsZero() {
					next[i].UploadedAt = prev.UploadedAt
				}
			}
		}
		from := attachmentNames(t.Attachments)
		t.Attachments = next
		return from, attachmentNames(next), true, nil
	}}, nil
}
