package services

import (
	"context"
	"errors"
	"testing"

	"tandem-backend/internal/apperr"
	"tandem-backend/internal/geocode"
	"tandem-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEventFixture() (*EventService, *fakeDocs, *fakeGeocoder, *fakeNotifier) {
	docs := newFakeDocs()
	geocoder := &fakeGeocoder{result: geocode.Result{Location: models.LatLng{Lat: 52.53, Lng: 13.38}}}
	notifier := &fakeNotifier{}
	geodata := NewGeodataService(docs, geocoder, 0)
	return NewEventService(docs, geodata, notifier), docs, geocoder, notifier
}

func seedAdmin(t *testing.T, docs *fakeDocs, id string) {
	t.Helper()
	_, err := docs.Upsert(context.Background(), "user/"+id, map[string]any{
		"localOrNewcomer": models.KindLocal,
		"role":            models.RoleAdmin,
	}, false)
	require.NoError(t, err)
}

func TestEventCreateGeneratesGeodata(t *testing.T) {
	svc, docs, geocoder, _ := newEventFixture()

	id, err := svc.Create(context.Background(), "", map[string]any{
		"eventTitle": "Welcome dinner",
		"location":   models.Address{Street: "Hauptstr. 5", ZipCode: "10115", City: "Berlin"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	assert.Equal(t, 1, geocoder.callCount())
	stored := docs.get("event/" + id + "/data/geodata")
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored["geohash"])
}

func TestEventCreateWithoutLocationSkipsGeodata(t *testing.T) {
	svc, docs, geocoder, _ := newEventFixture()

	// The record write succeeds; the geodata trigger fails and is logged.
	id, err := svc.Create(context.Background(), "", map[string]any{"eventTitle": "Welcome dinner"})
	require.NoError(t, err)

	assert.Equal(t, 0, geocoder.callCount())
	assert.False(t, docs.has("event/"+id+"/data/geodata"))
}

func TestEventUpdateRegeneratesGeodataOnLocationChange(t *testing.T) {
	svc, docs, geocoder, _ := newEventFixture()
	id, err := svc.Create(context.Background(), "", map[string]any{
		"eventTitle": "Welcome dinner",
		"location":   models.Address{Street: "Hauptstr. 5", ZipCode: "10115", City: "Berlin"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, geocoder.callCount())

	// Unrelated field changes leave the geodata alone.
	require.NoError(t, svc.Update(context.Background(), id, map[string]any{"eventTitle": "Farewell dinner"}))
	assert.Equal(t, 1, geocoder.callCount())

	require.NoError(t, svc.Update(context.Background(), id, map[string]any{
		"location": models.Address{Street: "Nebenstr. 9", ZipCode: "20095", City: "Hamburg"},
	}))
	assert.Equal(t, 2, geocoder.callCount())
	assert.True(t, docs.has("event/"+id+"/data/geodata"))
}

func TestEventUpdateMissingEvent(t *testing.T) {
	svc, _, _, _ := newEventFixture()
	err := svc.Update(context.Background(), "ghost", map[string]any{"eventTitle": "x"})
	assert.Equal(t, apperr.NotFound, apperr.CodeOf(err))
}

func TestAddParticipantNotifiesEveryAdmin(t *testing.T) {
	svc, docs, _, notifier := newEventFixture()
	seedAdmin(t, docs, "a1")
	seedAdmin(t, docs, "a2")
	id, err := svc.Create(context.Background(), "", map[string]any{
		"eventTitle": "Welcome dinner",
		"location":   models.Address{Street: "Hauptstr. 5", ZipCode: "10115", City: "Berlin"},
	})
	require.NoError(t, err)

	participantID, err := svc.AddParticipant(context.Background(), id, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", participantID)
	assert.True(t, docs.has("event/"+id+"/participants/p1"))

	sent := notifier.notifications()
	require.Len(t, sent, 2)
	targets := []string{sent[0].userID, sent[1].userID}
	assert.ElementsMatch(t, []string{"a1", "a2"}, targets)
	assert.Equal(t, "New Event Participant", sent[0].title)
	assert.Equal(t, map[string]string{"participant": "p1", "event": id}, sent[0].data)
}

func TestAddParticipantSkipsNonAdminUsers(t *testing.T) {
	svc, docs, _, notifier := newEventFixture()
	seedAdmin(t, docs, "a1")
	_, err := docs.Upsert(context.Background(), "user/u1", map[string]any{
		"localOrNewcomer": models.KindNewcomer,
		"role":            models.RoleUser,
	}, false)
	require.NoError(t, err)
	id, err := svc.Create(context.Background(), "", map[string]any{
		"eventTitle": "Welcome dinner",
		"location":   models.Address{Street: "Hauptstr. 5", ZipCode: "10115", City: "Berlin"},
	})
	require.NoError(t, err)

	_, err = svc.AddParticipant(context.Background(), id, "p1")
	require.NoError(t, err)

	sent := notifier.notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, "a1", sent[0].userID)
}

func TestAddParticipantWithoutAdmins(t *testing.T) {
	svc, docs, _, notifier := newEventFixture()
	id, err := svc.Create(context.Background(), "", map[string]any{
		"eventTitle": "Welcome dinner",
		"location":   models.Address{Street: "Hauptstr. 5", ZipCode: "10115", City: "Berlin"},
	})
	require.NoError(t, err)

	// The participant record is written; the fan-out fails and is logged.
	_, err = svc.AddParticipant(context.Background(), id, "p1")
	require.NoError(t, err)
	assert.True(t, docs.has("event/"+id+"/participants/p1"))
	assert.Empty(t, notifier.notifications())
}

func TestAddParticipantMissingEvent(t *testing.T) {
	svc, _, _, _ := newEventFixture()
	_, err := svc.AddParticipant(context.Background(), "ghost", "p1")
	assert.Equal(t, apperr.NotFound, apperr.CodeOf(err))
}

func TestAddParticipantNotificationFailure(t *testing.T) {
	svc, docs, _, notifier := newEventFixture()
	seedAdmin(t, docs, "a1")
	notifier.err = errors.New("no tokens found")
	id, err := svc.Create(context.Background(), "", map[string]any{
		"eventTitle": "Welcome dinner",
		"location":   models.Address{Street: "Hauptstr. 5", ZipCode: "10115", City: "Berlin"},
	})
	require.NoError(t, err)

	// Delivery failure does not fail the participant write.
	_, err = svc.AddParticipant(context.Background(), id, "p1")
	require.NoError(t, err)
	assert.True(t, docs.has("event/"+id+"/participants/p1"))
}
