package approval

import (
	"net/http"

	"github.com/dl-issuer/dl_issuer/internal/application"
)

// IssuerRoute is where the issuer lands after approving or rejecting.
const IssuerRoute = "/issuer"

const applicationsPath = "/api/v1/issuer/applications/"

// Action is something the viewer can do from a screen. A disabled action is
// shown but has nothing to call.
type Action struct {
	Label    string `json:"label"`
	Method   string `json:"method,omitempty"`
	Href     string `json:"href,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// ListItem is one row of the issuer's application list.
type ListItem struct {
	DocID    string `json:"docID"`
	Heading  string `json:"heading"`
	Approved bool   `json:"approved"`
	ViewMore Action `json:"viewMore"`
}

// Field is a labelled value on the detail screen.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// DetailView is the issuer's view of one application.
type DetailView struct {
	DocID     string   `json:"docID"`
	Heading   string   `json:"heading"`
	Username  string   `json:"username"`
	Approved  bool     `json:"approved"`
	HolderDID string   `json:"holderDid"`
	Email     string   `json:"email"`
	Fields    []Field  `json:"fields"`
	Actions   []Action `json:"actions"`
}

func heading(rec application.Record) string {
	return "Application ID: " + rec.ApplicationID
}

// NewListItem renders rec for the list screen.
func NewListItem(rec application.Record) ListItem {
	return ListItem{
		DocID:    rec.DocID,
		Heading:  heading(rec),
		Approved: rec.Approved,
		ViewMore: Action{Label: "View more", Method: http.MethodGet, Href: applicationsPath + rec.DocID},
	}
}

// NewDetailView renders rec for the detail screen. Approve and Reject are
// offered only while the application is pending.
func NewDetailView(rec application.Record) DetailView {
	lic := rec.License
	view := DetailView{
		DocID:     rec.DocID,
		Heading:   heading(rec),
		Username:  rec.Username,
		Approved:  rec.Approved,
		HolderDID: rec.Payload.HolderDID,
		Email:     lic.Email,
		Fields: []Field{
			{Label: "Given Name:", Value: rec.Payload.GivenName},
			{Label: "Family Name:", Value: rec.Payload.FamilyName},
			{Label: "Date of Issuance:", Value: rec.Payload.IssueDate},
			{Label: "Issuer Organisation:", Value: lic.IssuerOrganization},
			{Label: "Country of Issuance:", Value: lic.Country},
			{Label: "Driving Class:", Value: lic.DrivingClass},
		},
		// no proof document is collected on submission
		Actions: []Action{{Label: "View Proof of Document", Disabled: true}},
	}
	if !rec.Approved {
		view.Actions = append(view.Actions,
			Action{Label: "Approve", Method: http.MethodPost, Href: applicationsPath + rec.DocID + "/approve"},
			Action{Label: "Reject", Method: http.MethodPost, Href: applicationsPath + rec.DocID + "/reject"},
		)
	}
	return view
}
