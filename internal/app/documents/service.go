package documents

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/conductores/driver-registry-api/internal/app/apperr"
	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/ports/out/blobstore"
	clockport "github.com/conductores/driver-registry-api/internal/ports/out/clock"
	"github.com/conductores/driver-registry-api/internal/ports/out/documentrepo"
	"github.com/conductores/driver-registry-api/internal/ports/out/driverrepo"
)

const (
	DefaultMaxBytes = 5 << 20
	DefaultURLTTL   = 300 * time.Second

	signConcurrency = 8
)

type URLSigner interface {
	Sign(key string, ttl time.Duration) (string, time.Time, error)
}

type Metrics interface {
	IncDocumentUploaded(docType string)
	IncUploadRejected(code string)
}

type Service struct {
	drivers driverrepo.Repository
	docs    documentrepo.Repository
	blobs   blobstore.Store
	signer  URLSigner
	clk     clockport.Clock
	log     *zap.Logger
	metrics Metrics

	newDocumentID func() domain.DocumentID

	// MaxBytes bounds the size of a single upload.
	MaxBytes int64
	// URLTTL is the lifetime of signed download URLs.
	URLTTL time.Duration
}

func NewService(
	drivers driverrepo.Repository,
	docs documentrepo.Repository,
	blobs blobstore.Store,
	signer URLSigner,
	clk clockport.Clock,
	log *zap.Logger,
	metrics Metrics,
) *Service {
	return &Service{
		drivers: drivers,
		docs:    docs,
		blobs:   blobs,
		signer:  signer,
		clk:     clk,
		log:     log.Named("documents"),
		metrics: metrics,
		newDocumentID: func() domain.DocumentID {
			return domain.DocumentID(uuid.NewString())
		},
		MaxBytes: DefaultMaxBytes,
		URLTTL:   DefaultURLTTL,
	}
}

// Upload validates and stores one document for the caller's own driver profile.
// Every validation runs before the content store is touched.
func (s *Service) Upload(ctx context.Context, caller domain.IdentityID, in UploadInput) (domain.ResolvedDocument, error) {
	contentType, err := s.validate(in)
	if err != nil {
		if ae, ok := apperr.As(err); ok {
			s.metrics.IncUploadRejected(ae.Code)
		}
		return domain.ResolvedDocument{}, err
	}
	if _, err := s.ownedDriver(ctx, caller, in.DriverID); err != nil {
		if ae, ok := apperr.As(err); ok {
			s.metrics.IncUploadRejected(ae.Code)
		}
		return domain.ResolvedDocument{}, err
	}

	now := s.clk.Now().UTC()
	doc := domain.Document{
		ID:          s.newDocumentID(),
		DriverID:    in.DriverID,
		Type:        in.Type,
		Location:    domain.DocumentLocation(in.DriverID, in.Type, now),
		ContentType: contentType,
		Size:        int64(len(in.Content)),
		CreatedAt:   now,
	}

	if err := s.blobs.Put(ctx, doc.Location, doc.ContentType, in.Content); err != nil {
		s.log.Error("store document bytes",
			zap.String("driver_id", string(doc.DriverID)),
			zap.String("location", doc.Location),
			zap.Error(err),
		)
		return domain.ResolvedDocument{}, &apperr.Error{
			Status:  500,
			Code:    "STORAGE_ERROR",
			Message: "Could not store the document.",
			Cause:   err,
		}
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		s.discardObject(context.WithoutCancel(ctx), doc, err)
		return domain.ResolvedDocument{}, &apperr.Error{
			Status:  500,
			Code:    "STORAGE_ERROR",
			Message: "Could not record the document.",
			Cause:   err,
		}
	}

	s.metrics.IncDocumentUploaded(string(doc.Type))
	s.log.Info("document uploaded",
		zap.String("driver_id", string(doc.DriverID)),
		zap.String("type", string(doc.Type)),
		zap.Int64("size", doc.Size),
	)
	return s.resolve(doc)
}

// List returns the caller's own documents with signed URLs.
// discardObject deletes the bytes of a document whose row could not be
// inserted, unless an earlier row shares the same location.
func (s *Service) discardObject(ctx context.Context, doc domain.Document, insertErr error) {
	existing, err := s.docs.ListByDriver(ctx, doc.DriverID)
	if err != nil {
		s.log.Error("orphaned document bytes",
			zap.String("location", doc.Location),
			zap.NamedError("insert_error", insertErr),
			zap.NamedError("list_error", err),
		)
		return
	}
	for _, d := range existing {
		if d.Location == doc.Location {
			s.log.Warn("kept document bytes referenced by another row",
				zap.String("location", doc.Location),
				zap.String("document_id", string(d.ID)),
				zap.NamedError("insert_error", insertErr),
			)
			return
		}
	}
	if err := s.blobs.Delete(ctx, doc.Location); err != nil {
		s.log.Error("orphaned document bytes",
			zap.String("location", doc.Location),
			zap.NamedError("insert_error", insertErr),
			zap.NamedError("delete_error", err),
		)
	}
}

func (s *Service) List(ctx context.Context, caller domain.IdentityID, driverID domain.DriverID) ([]domain.ResolvedDocument, error) {
	if _, err := s.ownedDriver(ctx, caller, driverID); err != nil {
		return nil, err
	}
	return s.ResolveForDriver(ctx, driverID)
}

// ResolveForDriver lists a driver's documents and signs a download URL for
// each. Signing runs concurrently; output order matches the repository order.
func (s *Service) ResolveForDriver(ctx context.Context, driverID domain.DriverID) ([]domain.ResolvedDocument, error) {
	docs, err := s.docs.ListByDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	out := make([]domain.ResolvedDocument, len(docs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(signConcurrency)
	for i, d := range docs {
		g.Go(func() error {
			rd, err := s.resolve(d)
			if err != nil {
				return err
			}
			out[i] = rd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) resolve(d domain.Document) (domain.ResolvedDocument, error) {
	u, exp, err := s.signer.Sign(d.Location, s.URLTTL)
	if err != nil {
		return domain.ResolvedDocument{}, fmt.Errorf("sign %s: %w", d.Location, err)
	}
	return domain.ResolvedDocument{Document: d, URL: u, ExpiresAt: exp}, nil
}

// CheckType rejects a document type outside the allow-list. The HTTP adapter
// calls it before reading the request body.
func CheckType(t domain.DocumentType) error {
	if t.Valid() {
		return nil
	}
	allowed := make([]string, 0, len(domain.DocumentTypes))
	for _, v := range domain.DocumentTypes {
		allowed = append(allowed, string(v))
	}
	return &apperr.Error{
		Status:  400,
		Code:    "INVALID_DOCUMENT_TYPE",
		Message: fmt.Sprintf("Unknown document type %q.", t),
		Details: map[string]any{"allowed": allowed},
	}
}

// TooLarge is the error returned for uploads above maxBytes.
func TooLarge(maxBytes int64) *apperr.Error {
	return &apperr.Error{
		Status:  413,
		Code:    "FILE_TOO_LARGE",
		Message: "The file exceeds the upload size limit.",
		Details: map[string]any{"maxBytes": maxBytes},
	}
}

func (s *Service) validate(in UploadInput) (string, error) {
	if err := CheckType(in.Type); err != nil {
		return "", err
	}
	if len(in.Content) == 0 {
		return "", &apperr.Error{
			Status:  400,
			Code:    "FILE_REQUIRED",
			Message: "A non-empty file is required in the \"file\" field.",
		}
	}
	if int64(len(in.Content)) > s.MaxBytes {
		return "", TooLarge(s.MaxBytes)
	}
	return detectContentType(in.DeclaredContentType, in.Content)
}

// detectContentType accepts only PDF and JPEG. The sniffed type is
// authoritative; a declared type other than a generic one must agree with it.
func detectContentType(declared string, content []byte) (string, error) {
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(content))
	if sniffed != ContentTypePDF && sniffed != ContentTypeJPEG {
		return "", unsupportedMedia(sniffed)
	}

	declared = strings.TrimSpace(declared)
	if declared == "" {
		return sniffed, nil
	}
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return "", unsupportedMedia(declared)
	}
	if mt == "application/octet-stream" || mt == sniffed {
		return sniffed, nil
	}
	return "", unsupportedMedia(mt)
}

func unsupportedMedia(got string) *apperr.Error {
	return &apperr.Error{
		Status:  400,
		Code:    "UNSUPPORTED_MEDIA_TYPE",
		Message: "Only PDF and JPEG files are accepted.",
		Details: map[string]any{"contentType": got},
	}
}

func (s *Service) ownedDriver(ctx context.Context, caller domain.IdentityID, driverID domain.DriverID) (domain.Driver, error) {
	d, err := s.drivers.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, driverrepo.ErrNotFound) {
			return domain.Driver{}, apperr.Forbidden("You can only manage documents of your own driver profile.")
		}
		return domain.Driver{}, fmt.Errorf("load driver: %w", err)
	}
	if d.IdentityID != caller {
		return domain.Driver{}, apperr.Forbidden("You can only manage documents of your own driver profile.")
	}
	return d, nil
}
