package application

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dl-issuer/dl_issuer/internal/logging"
	"github.com/dl-issuer/dl_issuer/internal/session"
)

const (
	// SubmittedAlert is shown to the applicant after a successful submission.
	SubmittedAlert = "You have successfully submitted your application."

	idLength   = 10
	idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// BaseFields are the personal fields of the form.
type BaseFields struct {
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	IssueDate  string `json:"issueDate"`
}

// LicenseFields are the license-specific fields of the form.
type LicenseFields struct {
	DrivingLicenseID   string `json:"drivingLicenseID"`
	Country            string `json:"country"`
	DrivingClass       string `json:"drivingClass"`
	Email              string `json:"email"`
	IssuerOrganization string `json:"issuerOrganization"`
}

// Form is the application form state.
type Form struct {
	Base      BaseFields    `json:"base"`
	License   LicenseFields `json:"license"`
	HolderDID string        `json:"holderDid"`
}

// IDGenerator produces application identifiers.
type IDGenerator func() (string, error)

// RandomID returns a random alphanumeric identifier of ten characters.
func RandomID() (string, error) {
	alphabetSize := big.NewInt(int64(len(idAlphabet)))
	var b strings.Builder
	b.Grow(idLength)
	for i := 0; i < idLength; i++ {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		b.WriteByte(idAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// Service handles application submissions.
type Service struct {
	repo     Repository
	reporter logging.Reporter
	newID    IDGenerator
	now      func() time.Time
}

// Option customises the service.
type Option func(*Service)

// WithIDGenerator overrides the identifier source.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Service) { s.newID = gen }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an application service.
func NewService(repo Repository, reporter logging.Reporter, opts ...Option) *Service {
	s := &Service{repo: repo, reporter: reporter, newID: RandomID, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults returns the cleared form for sess.
func (s *Service) Defaults(sess session.Session) Form {
	return Form{
		License: LicenseFields{
			Country:            "Singapore",
			DrivingClass:       "1",
			IssuerOrganization: "Automobile Association of Singapore",
		},
		HolderDID: sess.DID,
	}
}

func validate(form Form) error {
	fields := map[string]string{}
	required := map[string]string{
		"email":            form.License.Email,
		"givenName":        form.Base.GivenName,
		"familyName":       form.Base.FamilyName,
		"issueDate":        form.Base.IssueDate,
		"drivingLicenseID": form.License.DrivingLicenseID,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			fields[name] = "required"
		}
	}
	if !ValidDrivingClass(form.License.DrivingClass) {
		fields["drivingClass"] = "must be one of " + strings.Join(DrivingClasses, ", ")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Submit validates form and stores a new pending application for sess.
func (s *Service) Submit(ctx context.Context, sess session.Session, form Form) (Record, error) {
	if err := validate(form); err != nil {
		return Record{}, err
	}

	applicationID, err := s.newID()
	if err != nil {
		return Record{}, s.fail(ctx, fmt.Errorf("generate application id: %w", err))
	}

	lic := License{
		DrivingLicenseID:         form.License.DrivingLicenseID,
		Country:                  form.License.Country,
		DrivingClass:             form.License.DrivingClass,
		Email:                    form.License.Email,
		IssuerOrganization:       form.License.IssuerOrganization,
		AffinidiDrivingLicenseID: applicationID,
	}
	idClass, err := EncodeLicense(lic)
	if err != nil {
		return Record{}, s.fail(ctx, err)
	}

	holder := form.HolderDID
	if holder == "" {
		holder = sess.DID
	}

	rec := Record{
		DocID:         uuid.NewString(),
		Username:      sess.Username,
		ApplicationID: applicationID,
		Approved:      false,
		Payload: Payload{
			GivenName:  form.Base.GivenName,
			FamilyName: form.Base.FamilyName,
			IssueDate:  form.Base.IssueDate,
			HolderDID:  holder,
			IDClass:    idClass,
		},
		CreatedAt: s.now().UTC(),
		License:   lic,
	}

	if err := s.repo.Add(ctx, rec); err != nil {
		return Record{}, s.fail(ctx, fmt.Errorf("store application: %w", err))
	}
	return rec, nil
}

func (s *Service) fail(ctx context.Context, err error) error {
	if s.reporter != nil {
		s.reporter.Report(ctx, err.Error())
	}
	return err
}
