package session

import "fmt"

// Identity names the owner of a chat history. Both parts must be set before
// the history can be persisted.
type Identity struct {
	Tenant string
	UserID string
}

func (id Identity) Ready() bool {
	return id.Tenant != "" && id.UserID != ""
}

// Key is the storage key of the user's single history record.
func (id Identity) Key() string {
	return fmt.Sprintf("artifacts/%s/users/%s/chat_history/main_chat", id.Tenant, id.UserID)
}

func (id Identity) String() string {
	return id.Tenant + "/" + id.UserID
}
