package services

import (
	"context"
	"errors"
	"testing"

	"tandem-backend/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotificationFixture() (*NotificationService, *fakeDocs, *fakeTransport) {
	docs := newFakeDocs()
	transport := &fakeTransport{}
	return NewNotificationService(docs, transport), docs, transport
}

func TestRegisterTokenDeduplicates(t *testing.T) {
	svc, docs, _ := newNotificationFixture()

	added, err := svc.RegisterToken(context.Background(), "u1", "token-a")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = svc.RegisterToken(context.Background(), "u1", "token-a")
	require.NoError(t, err)
	assert.False(t, added)

	stored := docs.get("fcmToken/u1")
	tokens, ok := stored["tokens"].([]any)
	require.True(t, ok)
	assert.Len(t, tokens, 1)
}

func TestRegisterTokenRejectsEmpty(t *testing.T) {
	svc, _, _ := newNotificationFixture()
	_, err := svc.RegisterToken(context.Background(), "u1", "")
	assert.Equal(t, apperr.InvalidArgument, apperr.CodeOf(err))
}

func TestRemoveToken(t *testing.T) {
	svc, docs, _ := newNotificationFixture()

	_, err := svc.RegisterToken(context.Background(), "u1", "token-a")
	require.NoError(t, err)
	_, err = svc.RegisterToken(context.Background(), "u1", "token-b")
	require.NoError(t, err)

	require.NoError(t, svc.RemoveToken(context.Background(), "u1", "token-a"))

	tokens := docs.get("fcmToken/u1")["tokens"].([]any)
	require.Len(t, tokens, 1)
	entry := tokens[0].(map[string]any)
	assert.Equal(t, "token-b", entry["token"])
}

func TestRemoveTokenMissing(t *testing.T) {
	svc, _, _ := newNotificationFixture()

	err := svc.RemoveToken(context.Background(), "u1", "token-a")
	assert.Equal(t, apperr.NotFound, apperr.CodeOf(err))

	_, err = svc.RegisterToken(context.Background(), "u1", "token-b")
	require.NoError(t, err)
	err = svc.RemoveToken(context.Background(), "u1", "token-a")
	assert.Equal(t, apperr.NotFound, apperr.CodeOf(err))
}

func TestNotifyFansOutToAllTokens(t *testing.T) {
	svc, _, transport := newNotificationFixture()

	for _, token := range []string{"token-a", "token-b", "token-c"} {
		_, err := svc.RegisterToken(context.Background(), "u1", token)
		require.NoError(t, err)
	}

	err := svc.Notify(context.Background(), "u1", "Tandem request", "You have a new tandem request", map[string]string{"requester": "n1"})
	require.NoError(t, err)

	require.Len(t, transport.batches, 1)
	batch := transport.batches[0]
	require.Len(t, batch, 3)
	assert.Equal(t, "Tandem request", batch[0].Title)
	assert.Equal(t, map[string]string{"requester": "n1"}, batch[0].Data)
}

func TestNotifyWithoutTokens(t *testing.T) {
	svc, docs, _ := newNotificationFixture()

	assert.Error(t, svc.Notify(context.Background(), "u1", "t", "b", nil))

	// An existing document with an empty token list is equally unusable.
	_, err := docs.Upsert(context.Background(), "fcmToken/u1", map[string]any{"tokens": []any{}}, false)
	require.NoError(t, err)
	assert.Error(t, svc.Notify(context.Background(), "u1", "t", "b", nil))
}

func TestNotifyFailureThreshold(t *testing.T) {
	svc, _, transport := newNotificationFixture()

	for _, token := range []string{"a", "b", "c", "d"} {
		_, err := svc.RegisterToken(context.Background(), "u1", token)
		require.NoError(t, err)
	}

	// 2 of 4 failed is within the 70% threshold.
	transport.failures = 2
	assert.NoError(t, svc.Notify(context.Background(), "u1", "t", "b", nil))

	// 3 of 4 failed is over it.
	transport.failures = 3
	assert.Error(t, svc.Notify(context.Background(), "u1", "t", "b", nil))
}

func TestNotifyTransportError(t *testing.T) {
	svc, _, transport := newNotificationFixture()
	_, err := svc.RegisterToken(context.Background(), "u1", "token-a")
	require.NoError(t, err)

	transport.err = errors.New("connection reset")
	assert.Error(t, svc.Notify(context.Background(), "u1", "t", "b", nil))
}
