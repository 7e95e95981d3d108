package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authsvc "campusmarket/internal/app/services/auth"
)

type adminCommand struct{}

func (adminCommand) AdminOnly() {}

func TestGateIsAdmin(t *testing.T) {
	gate := NewGate([]string{" Dean@Stanford.edu ", "", "ops@mit.edu"}, nil, nil)

	tests := []struct {
		email string
		want  bool
	}{
		{"dean@stanford.edu", true},
		{"DEAN@STANFORD.EDU", true},
		{" ops@mit.edu", true},
		{"student@stanford.edu", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, gate.IsAdmin(tt.email), tt.email)
	}
	assert.Equal(t, []string{"dean@stanford.edu", "ops@mit.edu"}, gate.Emails())
}

func TestGateEmptyListDeniesEveryone(t *testing.T) {
	gate := NewGate(nil, nil, nil)
	assert.False(t, gate.IsAdmin("dean@stanford.edu"))

	var nilGate *Gate
	assert.False(t, nilGate.IsAdmin("dean@stanford.edu"))
}

func TestGateVerifyAdmin(t *testing.T) {
	gate := NewGate([]string{"dean@stanford.edu"}, nil, nil)

	_, err := gate.VerifyAdmin(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	studentCtx := authsvc.WithPrincipal(context.Background(), authsvc.Principal{UserID: "u1", Email: "kid@stanford.edu"})
	_, err = gate.VerifyAdmin(studentCtx)
	assert.ErrorIs(t, err, ErrNotAdmin)

	deanCtx := authsvc.WithPrincipal(context.Background(), authsvc.Principal{UserID: "u2", Email: "Dean@stanford.edu"})
	principal, err := gate.VerifyAdmin(deanCtx)
	require.NoError(t, err)
	assert.Equal(t, "u2", string(principal.UserID))

	assert.ErrorIs(t, gate.Authorize(studentCtx, adminCommand{}), ErrNotAdmin)
	assert.NoError(t, gate.Authorize(studentCtx, struct{}{}))
	assert.NoError(t, gate.Authorize(deanCtx, adminCommand{}))
}

func TestParseEmails(t *testing.T) {
	assert.Equal(t, []string{"a@x.edu", "b@y.edu"}, ParseEmails(" a@x.edu, ,b@y.edu "))
	assert.Nil(t, ParseEmails(""))
}
