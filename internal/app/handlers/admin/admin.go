package admin

import (
	"context"
	"errors"

	"campusmarket/internal/app/dto"
	"campusmarket/internal/app/queries"
	"campusmarket/internal/app/uow"
	domainmessaging "campusmarket/internal/domain/messaging"
	domainuser "campusmarket/internal/domain/user"
)

const (
	listUsersKey         = "admin.users.list"
	userConversationsKey = "admin.users.conversations"
)

type ListUsersQuery struct {
	Query  string `validate:"max=200"`
	Limit  int
	Offset int
}

func (q ListUsersQuery) Key() string { return listUsersKey }
func (ListUsersQuery) AdminOnly()    {}

type ListUsersHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListUsersHandler) Handle(ctx context.Context, q ListUsersQuery) (dto.UserList, error) {
	unit, ctx, release, err := uow.ReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.UserList{}, err
	}
	defer release()

	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	users, total, err := unit.Users().List(ctx, domainuser.ListParams{Query: q.Query, Limit: limit, Offset: max(q.Offset, 0)})
	if err != nil {
		return dto.UserList{}, err
	}
	out := dto.UserList{Items: make([]dto.UserProfile, 0, len(users)), Total: total}
	for _, user := range users {
		out.Items = append(out.Items, dto.MapUserProfile(user))
	}
	return out, nil
}

// UserConversationsQuery lets an admin audit any user's conversations.
type UserConversationsQuery struct {
	UserID string `validate:"required"`
	Limit  int
	Offset int
}

func (q UserConversationsQuery) Key() string { return userConversationsKey }
func (UserConversationsQuery) AdminOnly()    {}

type UserConversationsHandler struct {
	Users         domainuser.Repository
	Conversations domainmessaging.ConversationRepository
}

func (h *UserConversationsHandler) Handle(ctx context.Context, q UserConversationsQuery) (dto.UserConversations, error) {
	if h.Users == nil || h.Conversations == nil {
		return dto.UserConversations{}, errors.New("admin: repositories required")
	}
	user, err := h.Users.ByID(ctx, domainuser.ID(q.UserID))
	if err != nil {
		return dto.UserConversations{}, err
	}
	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	convs, err := h.Conversations.ListForUser(ctx, user.ID, limit, max(q.Offset, 0))
	if err != nil {
		return dto.UserConversations{}, err
	}
	return dto.UserConversations{
		User:  dto.MapUserProfile(user),
		Items: dto.MapConversations(convs, user.ID).Items,
	}, nil
}

var (
	_ queries.Handler[ListUsersQuery, dto.UserList]                  = (*ListUsersHandler)(nil)
	_ queries.Handler[UserConversationsQuery, dto.UserConversations] = (*UserConversationsHandler)(nil)
)
