package documents

import "github.com/conductores/driver-registry-api/internal/domain"

// UploadInput carries one uploaded file for a driver.
type UploadInput struct {
	DriverID domain.DriverID
	Type     domain.DocumentType

	Content             []byte
	DeclaredContentType string
	Filename            string
}

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeJPEG = "image/jpeg"
)
