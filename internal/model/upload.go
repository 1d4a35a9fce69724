package model

import "time"

// Upload represents a file stored by the receiver.
// This is a pure domain model with no database-specific dependencies or tags.
type Upload struct {
	ID          string    `json:"id"`
	ClientGUID  string    `json:"client_guid"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}
