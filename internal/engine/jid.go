package engine

import (
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// ComposeJID parses a caller-supplied chat id into a JID, falling back to
// the group server for group-shaped ids and the user server otherwise.
func ComposeJID(id string) types.JID {
	if strings.ContainsRune(id, '@') {
		if parsed, err := types.ParseJID(id); err == nil && parsed.User != "" {
			return parsed
		}
	}

	id = DecomposeJID(id)
	if strings.ContainsRune(id, '-') || len(id) >= 18 {
		return types.NewJID(id, types.GroupServer)
	}
	return types.NewJID(id, types.DefaultUserServer)
}

// DecomposeJID strips the server part and a leading plus sign.
func DecomposeJID(id string) string {
	if strings.ContainsRune(id, '@') {
		buffers := strings.Split(id, "@")
		id = buffers[0]
	}

	if len(id) > 0 && id[0] == '+' {
		id = id[1:]
	}

	return strings.TrimSpace(id)
}

// FormatPhone renders a bare phone number as a user JID string.
func FormatPhone(phone string) string {
	return DecomposeJID(phone) + "@" + types.DefaultUserServer
}

// FormatGroup renders a bare group id as a group JID string.
func FormatGroup(group string) string {
	if strings.HasSuffix(group, "@"+types.GroupServer) {
		return group
	}
	return DecomposeJID(group) + "@" + types.GroupServer
}
