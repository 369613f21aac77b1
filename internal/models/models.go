package models

import "time"

// Role is an authorization role carried in a user's identity claims.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// UserKind tags a user record as an established local or a newly arrived newcomer.
type UserKind string

const (
	KindLocal    UserKind = "local"
	KindNewcomer UserKind = "newcomer"
)

// MatchState is the lifecycle state of a tandem match.
type MatchState string

const (
	MatchRequested   MatchState = "requested"
	MatchConfirmed   MatchState = "confirmed"
	MatchDeclined    MatchState = "declined"
	MatchRerequested MatchState = "rerequested"
)

// TandemMatch is a pairing proposal between one local and one newcomer.
// Enabled=false is terminal: no state-machine action fires on a disabled match.
type TandemMatch struct {
	Enabled   bool       `json:"enabled"`
	Requested time.Time  `json:"requested"`
	State     MatchState `json:"state"`
	Requester string     `json:"requester"`
	Local     string     `json:"local"`
	Newcomer  string     `json:"newcomer"`
}

// NotifiedParty returns whichever side did not initiate the match.
func (m *TandemMatch) NotifiedParty() string {
	if m.Newcomer == m.Requester {
		return m.Local
	}
	return m.Newcomer
}

// Address is a user's postal address.
type Address struct {
	Street  string `json:"street"`
	ZipCode string `json:"zipCode"`
	City    string `json:"city"`
}

// User is the user record stored in the document store. It is read and
// written by the match and geodata triggers but owned elsewhere.
type User struct {
	LocalOrNewcomer UserKind `json:"localOrNewcomer"`
	LocalMatch      *string  `json:"localMatch"`
	NewcomerMatches []string `json:"newcomerMatches"`
	MatchConfirmed  bool     `json:"matchConfirmed"`
	Address         *Address `json:"address"`
}

// Materials lists what an event asks its participants to bring or provide.
type Materials struct {
	Clothes     string `json:"clothes"`
	Food        string `json:"food"`
	Information string `json:"information"`
	Planer      string `json:"planer"`
}

// Event is a community event record. Its location drives the same geodata
// generation as a user's address.
type Event struct {
	ContactPerson    string     `json:"contactPerson"`
	Date             time.Time  `json:"date"`
	EventDescription string     `json:"eventDescription"`
	EventEmail       string     `json:"eventEmail"`
	EventPhoneNumber string     `json:"eventPhoneNumber"`
	EventTitle       string     `json:"eventTitle"`
	Host             string     `json:"host"`
	Location         *Address   `json:"location"`
	Material         *Materials `json:"material"`
	WhatsAppLink     string     `json:"whatsAppLink"`
}

// LatLng is a geographic coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Viewport is the bounding box recommended for displaying a geocoded result.
type Viewport struct {
	Northeast LatLng `json:"northeast"`
	Southwest LatLng `json:"southwest"`
}

// GeodataEntry is a cached geocoding result, keyed by a normalized address
// string. Entries are immutable once written.
type GeodataEntry struct {
	CachedAt time.Time `json:"cachedAt"`
	Location LatLng    `json:"location"`
	Geohash  string    `json:"geohash"`
	Viewport Viewport  `json:"viewport"`
}

// DeviceToken is one push delivery token registered by a user's device.
type DeviceToken struct {
	Token        string    `json:"token"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// TokenDocument is the per-user set of device tokens, deduplicated by token value.
type TokenDocument struct {
	Tokens []DeviceToken `json:"tokens"`
}
