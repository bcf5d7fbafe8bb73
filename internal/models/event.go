package models

import (
	"encoding/json"
	"time"
)

// Metadata is the optional client-environment block attached to an event.
// Keys other than these three are dropped on ingestion.
type Metadata struct {
	Browser    string `json:"browser,omitempty" bson:"browser,omitempty"`
	OS         string `json:"os,omitempty" bson:"os,omitempty"`
	ScreenSize string `json:"screenSize,omitempty" bson:"screenSize,omitempty"`
}

// Event is one immutable analytics fact owned by an application.
type Event struct {
	ID        string    `json:"id" bson:"id"`
	EventType string    `json:"event" bson:"event"`
	URL       string    `json:"url" bson:"url"`
	Referrer  string    `json:"referrer,omitempty" bson:"referrer,omitempty"`
	Device    string    `json:"device" bson:"device"`
	IPAddress string    `json:"ipAddress" bson:"ipAddress"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Metadata  *Metadata `json:"metadata,omitempty" bson:"metadata,omitempty"`
	UserID    string    `json:"userId,omitempty" bson:"userId,omitempty"`
	AppID     string    `json:"appId" bson:"appId"`
}

// CollectRequest is the POST /analytics/collect payload.
// appId is deliberately absent: it always comes from the API key.
// Timestamp is kept raw: clients send either a date-time string or epoch
// milliseconds.
type CollectRequest struct {
	Event     string          `json:"event"`
	URL       string          `json:"url"`
	Referrer  string          `json:"referrer,omitempty"`
	Device    string          `json:"device"`
	IPAddress string          `json:"ipAddress"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
	Metadata  *Metadata       `json:"metadata,omitempty"`
	UserID    string          `json:"userId,omitempty"`
}

// CollectResponse is returned by POST /analytics/collect.
type CollectResponse struct {
	Message string `json:"message"`
	Event   Event  `json:"event"`
}

// EventSummary is returned by GET /analytics/event-summary.
type EventSummary struct {
	Event       string         `json:"event"`
	Count       int            `json:"count"`
	UniqueUsers int            `json:"uniqueUsers"`
	DeviceData  map[string]int `json:"deviceData"`
}

// DeviceDetails describes the client of a user's most recent event.
type DeviceDetails struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
}

// UserStats is returned by GET /analytics/user-stats.
type UserStats struct {
	UserID        string        `json:"userId"`
	TotalEvents   int           `json:"totalEvents"`
	DeviceDetails DeviceDetails `json:"deviceDetails"`
	IPAddress     string        `json:"ipAddress"`
}
