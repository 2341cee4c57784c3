package models

import "time"

// DocumentMeta is a lightweight listing entry for a vault document.
type DocumentMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
