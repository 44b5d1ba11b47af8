package domain

import "time"

// Complaint is a free-text report filed against a driver from the public profile.
type Complaint struct {
	ID       ComplaintID
	DriverID DriverID
	Text     string

	CreatedAt time.Time
}
