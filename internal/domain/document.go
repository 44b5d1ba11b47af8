package domain

import (
	"fmt"
	"time"
)

// DocumentType is the kind of supporting document a driver uploads.
type DocumentType string

const (
	DocumentTypeNationalID          DocumentType = "national_id"
	DocumentTypeLicense             DocumentType = "license"
	DocumentTypeVehicleRegistration DocumentType = "vehicle_registration"
	DocumentTypeInsurancePolicy     DocumentType = "insurance_policy"
	DocumentTypeVehiclePhoto        DocumentType = "vehicle_photo"
	DocumentTypeDriverPhoto         DocumentType = "driver_photo"
)

// DocumentTypes is the fixed allow-list of document types, in display order.
var DocumentTypes = []DocumentType{
	DocumentTypeNationalID,
	DocumentTypeLicense,
	DocumentTypeVehicleRegistration,
	DocumentTypeInsurancePolicy,
	DocumentTypeVehiclePhoto,
	DocumentTypeDriverPhoto,
}

func (t DocumentType) Valid() bool {
	for _, v := range DocumentTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Document points at an object in the content store.
type Document struct {
	ID       DocumentID
	DriverID DriverID
	Type     DocumentType

	// Location is the object key in the content store, never a URL.
	Location    string
	ContentType string
	Size        int64

	CreatedAt time.Time
}

// DocumentLocation builds the object key for an upload: {driverId}/{type}_{unixMillis}.
func DocumentLocation(driverID DriverID, t DocumentType, at time.Time) string {
	return fmt.Sprintf("%s/%s_%d", driverID, t, at.UnixMilli())
}

// ResolvedDocument is a document with a time-limited download URL.
type ResolvedDocument struct {
	Document
	URL       string
	ExpiresAt time.Time
}
