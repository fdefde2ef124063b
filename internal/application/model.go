package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Collection is the logical document collection holding applications.
const Collection = "drivinglicense-waiting-approval"

// ErrNotFound is returned when no application matches the document id.
var ErrNotFound = errors.New("application not found")

// DrivingClasses lists the accepted driving classes, in display order.
var DrivingClasses = []string{"1", "2", "2A", "2B", "3", "3A", "3C", "3CA", "4", "4A", "5"}

// License holds the license-specific fields carried inside the payload.
type License struct {
	DrivingLicenseID         string `json:"drivingLicenseID"`
	Country                  string `json:"country"`
	DrivingClass             string `json:"drivingClass"`
	Email                    string `json:"email"`
	IssuerOrganization       string `json:"issuerOrganization"`
	AffinidiDrivingLicenseID string `json:"affinidiDrivingLicenseID"`
}

// Payload is the credential subject sent to the issuer.
type Payload struct {
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	IssueDate  string `json:"issueDate"`
	HolderDID  string `json:"holderDid"`
	IDClass    string `json:"idClass"`
}

// Record is one application awaiting or past approval.
type Record struct {
	DocID         string     `json:"docID"`
	Username      string     `json:"username"`
	ApplicationID string     `json:"applicationID"`
	Approved      bool       `json:"approved"`
	Payload       Payload    `json:"payload"`
	CreatedAt     time.Time  `json:"createdAt"`
	ApprovedAt    *time.Time `json:"approvedAt,omitempty"`

	// License is Payload.IDClass decoded at ingestion.
	License License `json:"-"`
}

// Filter selects records by approval state. A nil Approved matches all.
type Filter struct {
	Approved *bool
}

// Pending matches records not yet approved.
func Pending() Filter {
	f := false
	return Filter{Approved: &f}
}

// Approved matches finalized records.
func Approved() Filter {
	t := true
	return Filter{Approved: &t}
}

func (f Filter) match(r Record) bool {
	return f.Approved == nil || *f.Approved == r.Approved
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid application: " + strings.Join(parts, ", ")
}

// ParseLicense decodes an idClass string.
func ParseLicense(idClass string) (License, error) {
	var lic License
	if err := json.Unmarshal([]byte(idClass), &lic); err != nil {
		return License{}, fmt.Errorf("parse idClass: %w", err)
	}
	return lic, nil
}

// EncodeLicense serializes license fields to the idClass string.
func EncodeLicense(lic License) (string, error) {
	raw, err := json.Marshal(lic)
	if err != nil {
		return "", fmt.Errorf("encode idClass: %w", err)
	}
	return string(raw), nil
}

// hydrate parses the license of a record loaded from storage.
func hydrate(r Record) (Record, error) {
	lic, err := ParseLicense(r.Payload.IDClass)
	if err != nil {
		return Record{}, fmt.Errorf("application %s: %w", r.DocID, err)
	}
	r.License = lic
	return r, nil
}

// ValidDrivingClass reports whether class is one of DrivingClasses.
func ValidDrivingClass(class string) bool {
	for _, c := range DrivingClasses {
		if c == class {
			return true
		}
	}
	return false
}
