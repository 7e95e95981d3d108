package dto

type UserList struct {
	Items []UserProfile `json:"items"`
	Total int           `json:"total"`
}

// UserConversations is an admin view over one user's inbox.
type UserConversations struct {
	User  UserProfile    `json:"user"`
	Items []Conversation `json:"items"`
}
