package email

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmarket/internal/app/policies"
)

func TestRenderEscapesBody(t *testing.T) {
	subject, body, err := Render(policies.TemplateNewMessage, policies.NewMessageData{
		RecipientName:   "Bea",
		SenderName:      "Sam",
		ListingTitle:    "Desk lamp",
		Preview:         "<script>x</script>",
		ConversationURL: "https://market.example.edu/messages/c-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sam sent you a message about Desk lamp", subject)
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, `href="https://market.example.edu/messages/c-1"`)
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, _, err := Render("welcome", nil)
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestAPINotifierPostsRenderedEmail(t *testing.T) {
	var got sendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n, err := NewAPINotifier(srv.URL, "secret", "Campus Market <no-reply@example.edu>", nil)
	require.NoError(t, err)
	err = n.Send(context.Background(), "bea@mit.edu", policies.TemplateReportResolved, policies.ReportResolvedData{
		RecipientName: "Bea",
		ListingTitle:  "Bike",
		Status:        "dismissed",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, []string{"bea@mit.edu"}, got.To)
	assert.Equal(t, "Your report on Bike was dismissed", got.Subject)
	assert.NotContains(t, got.HTML, "Moderator note")
}

func TestAPINotifierSurfacesProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n, err := NewAPINotifier(srv.URL, "", "from@example.edu", nil)
	require.NoError(t, err)
	err = n.Send(context.Background(), "a@mit.edu", policies.TemplateReportSubmitted, policies.ReportSubmittedData{ListingTitle: "Bike"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestNotifiersRequireRecipient(t *testing.T) {
	_, err := NewAPINotifier("", "", "", nil)
	assert.Error(t, err)

	err = LogNotifier{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}.Send(context.Background(), " ", policies.TemplateNewMessage, policies.NewMessageData{})
	assert.ErrorIs(t, err, ErrRecipientMissing)
}
