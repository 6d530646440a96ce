package notification

import (
	"fmt"

	"github.com/userdesk/backend/internal/model"
)

// UserCreated announces a new directory entry.
func UserCreated(id int, draft model.Draft) Message {
	return Message{
		EventType: EventUserCreated,
		Title:     fmt.Sprintf("User added: %s", draft.Name),
		Body:      fmt.Sprintf("%s <%s> was added to the directory.", draft.Name, draft.Email),
		Severity:  "low",
		Data: map[string]any{
			"ID":    id,
			"Name":  draft.Name,
			"Email": draft.Email,
			"Role":  draft.Role,
		},
	}
}

// UserUpdated announces an edit.
func UserUpdated(id int, draft model.Draft) Message {
	return Message{
		EventType: EventUserUpdated,
		Title:     fmt.Sprintf("User updated: %s", draft.Name),
		Body:      fmt.Sprintf("Directory entry %d was updated.", id),
		Severity:  "low",
		Data: map[string]any{
			"ID":    id,
			"Name":  draft.Name,
			"Email": draft.Email,
		},
	}
}

// UserDeleted announces a removal.
func UserDeleted(id int) Message {
	return Message{
		EventType: EventUserDeleted,
		Title:     "User deleted",
		Body:      fmt.Sprintf("Directory entry %d was deleted.", id),
		Severity:  "medium",
		Data:      map[string]any{"ID": id},
	}
}

// UserStatusChanged announces an activation or deactivation.
func UserStatusChanged(id int, active bool) Message {
	state := "Inactive"
	if active {
		state = "Active"
	}
	return Message{
		EventType: EventUserStatusChanged,
		Title:     fmt.Sprintf("User %d is now %s", id, state),
		Body:      fmt.Sprintf("Status of directory entry %d changed to %s.", id, state),
		Severity:  "low",
		Data:      map[string]any{"ID": id, "Status": state},
	}
}
