package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dl-issuer/dl_issuer/internal/apiclient"
	"github.com/dl-issuer/dl_issuer/internal/application"
	"github.com/dl-issuer/dl_issuer/internal/logging"
	"github.com/dl-issuer/dl_issuer/internal/notification"
	"github.com/dl-issuer/dl_issuer/internal/session"
)

// ApprovedAlert is shown to the issuer once an application is approved.
const ApprovedAlert = "Application has been approved and have alerted the applicant."

// Step names, in execution order.
const (
	StepIssueUnsigned = "issue_unsigned"
	StepSign          = "sign"
	StepStore         = "store"
	StepShare         = "share"
	StepEmail         = "email"
	StepFinalize      = "finalize"
)

// CredentialAPI is the subset of the issuer and wallet APIs used to issue a
// credential.
type CredentialAPI interface {
	IssueUnsignedVC(ctx context.Context, data apiclient.DrivingLicenseData) (apiclient.BuildUnsignedOutput, error)
	SignVC(ctx context.Context, in apiclient.SignCredentialInput) (apiclient.SignCredentialOutput, error)
	StoreSignedVCs(ctx context.Context, in apiclient.StoreCredentialsInput) (apiclient.StoreCredentialsOutput, error)
	ShareCredential(ctx context.Context, id string) (apiclient.ShareOutput, error)
}

// ClientFactory returns an API client acting as the session user.
type ClientFactory func(sess session.Session) CredentialAPI

// Result describes an approval. On failure it still lists what completed.
type Result struct {
	DocID          string   `json:"docID"`
	ApplicationID  string   `json:"applicationID"`
	Completed      []string `json:"completed_steps"`
	FailedStep     string   `json:"failed_step,omitempty"`
	CredentialID   string   `json:"credentialId,omitempty"`
	SharingURL     string   `json:"sharingUrl,omitempty"`
	EmailDelivered bool     `json:"email_delivered"`
	Alert          string   `json:"alert,omitempty"`
	Redirect       string   `json:"redirect,omitempty"`
}

// RejectResult describes a rejection.
type RejectResult struct {
	DocID    string `json:"docID"`
	Redirect string `json:"redirect"`
}

// Deps wires the approval service.
type Deps struct {
	Repo      application.Repository
	Clients   ClientFactory
	Notifier  notification.Notifier
	Reporter  logging.Reporter
	Guard     Guard
	WalletURL string
	Logger    *slog.Logger
	Now       func() time.Time
}

// Service runs the issuer's review actions.
type Service struct {
	repo      application.Repository
	clients   ClientFactory
	notifier  notification.Notifier
	reporter  logging.Reporter
	guard     Guard
	walletURL string
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds the approval service. A nil guard defaults to an
// in-process one.
func NewService(d Deps) *Service {
	s := &Service{
		repo:      d.Repo,
		clients:   d.Clients,
		notifier:  d.Notifier,
		reporter:  d.Reporter,
		guard:     d.Guard,
		walletURL: d.WalletURL,
		logger:    d.Logger,
		now:       d.Now,
	}
	if s.guard == nil {
		s.guard = NewLocalGuard()
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// List renders the applications matching filter.
func (s *Service) List(ctx context.Context, filter application.Filter) ([]ListItem, error) {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]ListItem, 0, len(records))
	for _, rec := range records {
		items = append(items, NewListItem(rec))
	}
	return items, nil
}

// Detail renders one application.
func (s *Service) Detail(ctx context.Context, docID string) (DetailView, error) {
	rec, err := s.repo.Get(ctx, docID)
	if err != nil {
		return DetailView{}, err
	}
	return NewDetailView(rec), nil
}

type issuance struct {
	record         application.Record
	api            CredentialAPI
	unsigned       json.RawMessage
	signed         json.RawMessage
	credentialID   string
	share          apiclient.ShareOutput
	emailDelivered bool
}

func (s *Service) steps() []Step[issuance] {
	return []Step[issuance]{
		{Name: StepIssueUnsigned, Run: func(ctx context.Context, st *issuance) error {
			p := st.record.Payload
			out, err := st.api.IssueUnsignedVC(ctx, apiclient.DrivingLicenseData{
				GivenName:  p.GivenName,
				FamilyName: p.FamilyName,
				IssueDate:  p.IssueDate,
				IDClass:    p.IDClass,
			})
			st.unsigned = out.UnsignedVC
			return err
		}},
		{Name: StepSign, Run: func(ctx context.Context, st *issuance) error {
			out, err := st.api.SignVC(ctx, apiclient.SignCredentialInput{UnsignedCredential: st.unsigned})
			st.signed = out.SignedCredential
			return err
		}},
		{Name: StepStore, Run: func(ctx context.Context, st *issuance) error {
			out, err := st.api.StoreSignedVCs(ctx, apiclient.StoreCredentialsInput{Data: []json.RawMessage{st.signed}})
			if err != nil {
				return err
			}
			if len(out.CredentialIDs) == 0 {
				return ErrNoCredentialStored
			}
			st.credentialID = out.CredentialIDs[0]
			return nil
		}},
		{Name: StepShare, Run: func(ctx context.Context, st *issuance) error {
			out, err := st.api.ShareCredential(ctx, st.credentialID)
			st.share = out
			return err
		}},
		{Name: StepEmail, BestEffort: true, Run: func(ctx context.Context, st *issuance) error {
			msg, err := notification.CredentialIssued(st.share.QRCode, st.share.SharingURL, st.record.License.Email, s.walletURL)
			if err != nil {
				return err
			}
			if err := s.notifier.Send(ctx, msg); err != nil {
				return err
			}
			st.emailDelivered = true
			return nil
		}},
		{Name: StepFinalize, Run: func(ctx context.Context, st *issuance) error {
			return s.repo.MarkApproved(ctx, st.record.DocID, s.now())
		}},
	}
}

// Approve issues the credential for docID as sess, emails the applicant and
// marks the application approved. On a failed step the reporter is told, the
// remaining steps are skipped and a *StepError is returned alongside the
// partial result.
func (s *Service) Approve(ctx context.Context, sess session.Session, docID string) (Result, error) {
	release, err := s.guard.Acquire(ctx, docID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	rec, err := s.repo.Get(ctx, docID)
	if err != nil {
		return Result{}, err
	}
	if rec.Approved {
		return Result{}, ErrFinalized
	}

	st := &issuance{record: rec, api: s.clients(sess)}
	outcome := runSteps(ctx, st, s.steps(), s.logger)

	res := Result{
		DocID:          rec.DocID,
		ApplicationID:  rec.ApplicationID,
		Completed:      outcome.Completed,
		FailedStep:     outcome.Failed,
		CredentialID:   st.credentialID,
		SharingURL:     st.share.SharingURL,
		EmailDelivered: st.emailDelivered,
	}
	if !outcome.OK() {
		stepErr := &StepError{Step: outcome.Failed, Completed: outcome.Completed, Err: outcome.Err}
		s.report(ctx, stepErr)
		return res, stepErr
	}

	s.logger.InfoContext(ctx, "application approved",
		slog.String("doc_id", rec.DocID),
		slog.String("application_id", rec.ApplicationID),
		slog.Bool("email_delivered", st.emailDelivered))
	res.Alert = ApprovedAlert
	res.Redirect = IssuerRoute
	return res, nil
}

// Reject deletes a pending application. No external service is called.
func (s *Service) Reject(ctx context.Context, docID string) (RejectResult, error) {
	release, err := s.guard.Acquire(ctx, docID)
	if err != nil {
		return RejectResult{}, err
	}
	defer release()

	rec, err := s.repo.Get(ctx, docID)
	if err != nil {
		return RejectResult{}, err
	}
	if rec.Approved {
		return RejectResult{}, ErrFinalized
	}
	if err := s.repo.Delete(ctx, docID); err != nil {
		if !errors.Is(err, application.ErrNotFound) {
			s.report(ctx, err)
		}
		return RejectResult{}, fmt.Errorf("reject application: %w", err)
	}
	s.logger.InfoContext(ctx, "application rejected", slog.String("doc_id", docID))
	return RejectResult{DocID: docID, Redirect: IssuerRoute}, nil
}

func (s *Service) report(ctx context.Context, err error) {
	if s.reporter != nil {
		s.reporter.Report(ctx, err.Error())
	}
}
