package lifecycle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

// Patch is a partial update as decoded from a JSON object. Keys map to their raw values
// so that a field set to null can be told apart from a field left out.
type Patch map[string]json.RawMessage

// keys returns the patch keys in sorted order, so errors and diffs are deterministic.
func (p Patch) keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// checkAllowed rejects the first key that is not in allowed.
func (p Patch) checkAllowed(allowed map[string]bool) error {
	for _, k := range p.keys() {
		if !allowed[k] {
			return validation(fmt.Sprintf("Field %q cannot be updated", k))
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodeField unmarshals the value of one patch key, turning type mismatches into a
// validation error that names the field.
func decodeField[T any](key string, raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, validation(fmt.Sprintf("Invalid value for field %q", key))
	}
	return v, nil
}

// change is one entry of an activity diff.
func change(from, to any) map[string]any {
	return map[string]any{"from": from, "to": to}
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func userIDStrings(ids []models.UserID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func attachmentNames(as []models.Attachment) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.Name)
	}
	return out
}

func sameAttachments(a, b []models.Attachment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].URL != b[i].URL {
			return false
		}
	}
	return true
}
