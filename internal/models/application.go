package models

import "time"

// Application is a registered caller. Its API key scopes every analytics
// read and write to AppID.
type Application struct {
	AppID     string    `json:"appId" bson:"appId"`
	OwnerID   string    `json:"ownerId" bson:"ownerId"`
	AppName   string    `json:"appName,omitempty" bson:"appName,omitempty"`
	AppURL    string    `json:"appUrl,omitempty" bson:"appUrl,omitempty"`
	APIKey    string    `json:"apiKey" bson:"apiKey"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt"`
}

// Expired reports whether the key is no longer usable at now.
// The expiry instant itself counts as expired.
func (a Application) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}
