package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"

	"github.com/conductores/driver-registry-api/internal/app/drivers"
	"github.com/conductores/driver-registry-api/internal/app/profiles"
	"github.com/conductores/driver-registry-api/internal/domain"
)

// ErrorResponse is the envelope for every non-2xx JSON response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code      string                             `json:"code"`
	Message   string                             `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestId nullable.Nullable[string]          `json:"requestId,omitempty"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	FirstNames    string `json:"firstNames"`
	LastNames     string `json:"lastNames"`
	NationalId    string `json:"nationalId"`
	LicenseNumber string `json:"licenseNumber,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Address       string `json:"address,omitempty"`

	Plate        string `json:"plate"`
	VehicleMake  string `json:"vehicleMake,omitempty"`
	VehicleModel string `json:"vehicleModel,omitempty"`
	VehicleColor string `json:"vehicleColor,omitempty"`
	PolicyNumber string `json:"policyNumber,omitempty"`
}

type RegisterResponse struct {
	DriverId    string `json:"driverId"`
	LookupToken string `json:"lookupToken"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type Vehicle struct {
	Plate        string                    `json:"plate"`
	Make         nullable.Nullable[string] `json:"make,omitempty"`
	Model        nullable.Nullable[string] `json:"model,omitempty"`
	Color        nullable.Nullable[string] `json:"color,omitempty"`
	PolicyNumber nullable.Nullable[string] `json:"policyNumber,omitempty"`
}

type Driver struct {
	DriverId      string                    `json:"driverId"`
	FirstNames    string                    `json:"firstNames"`
	LastNames     string                    `json:"lastNames"`
	NationalId    string                    `json:"nationalId"`
	LicenseNumber nullable.Nullable[string] `json:"licenseNumber,omitempty"`
	Phone         nullable.Nullable[string] `json:"phone,omitempty"`
	Address       nullable.Nullable[string] `json:"address,omitempty"`
	Vehicle       Vehicle                   `json:"vehicle"`
	LookupToken   string                    `json:"lookupToken"`
	CreatedAt     time.Time                 `json:"createdAt"`
}

type PublicDriver struct {
	DriverId   string  `json:"driverId"`
	FirstNames string  `json:"firstNames"`
	LastNames  string  `json:"lastNames"`
	Vehicle    Vehicle `json:"vehicle"`
}

type Document struct {
	DocumentId  string    `json:"documentId"`
	Type        string    `json:"type"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Url         string    `json:"url"`
	UrlExpires  time.Time `json:"urlExpiresAt"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

type Complaint struct {
	ComplaintId string    `json:"complaintId"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ComplaintRequest struct {
	Text string `json:"text"`
}

type MyProfileResponse struct {
	Driver     Driver      `json:"driver"`
	Documents  []Document  `json:"documents"`
	Complaints []Complaint `json:"complaints"`
}

type PublicProfileResponse struct {
	Driver     PublicDriver `json:"driver"`
	Documents  []Document   `json:"documents"`
	Complaints []Complaint  `json:"complaints"`
}

type DocumentsResponse struct {
	Documents []Document `json:"documents"`
}

type SearchDriversResponse struct {
	Drivers []Driver `json:"drivers"`
}

func optionalString(s string) nullable.Nullable[string] {
	if s == "" {
		return nullable.Nullable[string]{}
	}
	return nullable.NewNullableWithValue(s)
}

func vehicleFromDomain(v domain.Vehicle, includePolicy bool) Vehicle {
	out := Vehicle{
		Plate: v.Plate,
		Make:  optionalString(v.Make),
		Model: optionalString(v.Model),
		Color: optionalString(v.Color),
	}
	if includePolicy {
		out.PolicyNumber = optionalString(v.PolicyNumber)
	}
	return out
}

func driverFromDomain(d domain.Driver) Driver {
	return Driver{
		DriverId:      string(d.ID),
		FirstNames:    d.FirstNames,
		LastNames:     d.LastNames,
		NationalId:    d.NationalID,
		LicenseNumber: optionalString(d.LicenseNumber),
		Phone:         optionalString(d.Phone),
		Address:       optionalString(d.Address),
		Vehicle:       vehicleFromDomain(d.Vehicle, true),
		LookupToken:   string(d.LookupToken),
		CreatedAt:     d.CreatedAt,
	}
}

func publicDriverFromDomain(d domain.PublicDriver) PublicDriver {
	return PublicDriver{
		DriverId:   string(d.ID),
		FirstNames: d.FirstNames,
		LastNames:  d.LastNames,
		Vehicle: vehicleFromDomain(domain.Vehicle{
			Plate: d.Plate,
			Make:  d.Make,
			Model: d.Model,
			Color: d.Color,
		}, false),
	}
}

func documentsFromDomain(ds []domain.ResolvedDocument) []Document {
	out := make([]Document, 0, len(ds))
	for _, d := range ds {
		out = append(out, documentFromDomain(d))
	}
	return out
}

func documentFromDomain(d domain.ResolvedDocument) Document {
	return Document{
		DocumentId:  string(d.ID),
		Type:        string(d.Type),
		ContentType: d.ContentType,
		Size:        d.Size,
		Url:         d.URL,
		UrlExpires:  d.ExpiresAt,
		UploadedAt:  d.CreatedAt,
	}
}

func complaintsFromDomain(cs []domain.Complaint) []Complaint {
	out := make([]Complaint, 0, len(cs))
	for _, c := range cs {
		out = append(out, complaintFromDomain(c))
	}
	return out
}

func complaintFromDomain(c domain.Complaint) Complaint {
	return Complaint{ComplaintId: string(c.ID), Text: c.Text, CreatedAt: c.CreatedAt}
}

func myProfileFromApp(p drivers.Profile) MyProfileResponse {
	return MyProfileResponse{
		Driver:     driverFromDomain(p.Driver),
		Documents:  documentsFromDomain(p.Documents),
		Complaints: complaintsFromDomain(p.Complaints),
	}
}

func publicProfileFromApp(p profiles.PublicProfile) PublicProfileResponse {
	return PublicProfileResponse{
		Driver:     publicDriverFromDomain(p.Driver),
		Documents:  documentsFromDomain(p.Documents),
		Complaints: complaintsFromDomain(p.Complaints),
	}
}
