package approval

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dl-issuer/dl_issuer/internal/apiclient"
	"github.com/dl-issuer/dl_issuer/internal/application"
	"github.com/dl-issuer/dl_issuer/internal/logging"
	"github.com/dl-issuer/dl_issuer/internal/notification"
	"github.com/dl-issuer/dl_issuer/internal/session"
)

type fakeAPI struct {
	calls     []string
	failAt    string
	err       error
	issued    apiclient.DrivingLicenseData
	storedIDs []string
}

func (f *fakeAPI) fail(step string) error {
	f.calls = append(f.calls, step)
	if f.failAt == step {
		return f.err
	}
	return nil
}

func (f *fakeAPI) IssueUnsignedVC(_ context.Context, data apiclient.DrivingLicenseData) (apiclient.BuildUnsignedOutput, error) {
	f.issued = data
	if err := f.fail(StepIssueUnsigned); err != nil {
		return apiclient.BuildUnsignedOutput{}, err
	}
	return apiclient.BuildUnsignedOutput{UnsignedVC: json.RawMessage(`{"unsigned":true}`)}, nil
}

func (f *fakeAPI) SignVC(_ context.Context, in apiclient.SignCredentialInput) (apiclient.SignCredentialOutput, error) {
	if err := f.fail(StepSign); err != nil {
		return apiclient.SignCredentialOutput{}, err
	}
	return apiclient.SignCredentialOutput{SignedCredential: json.RawMessage(`{"signed":true}`)}, nil
}

func (f *fakeAPI) StoreSignedVCs(_ context.Context, in apiclient.StoreCredentialsInput) (apiclient.StoreCredentialsOutput, error) {
	if err := f.fail(StepStore); err != nil {
		return apiclient.StoreCredentialsOutput{}, err
	}
	ids := f.storedIDs
	if ids == nil {
		ids = []string{"someId"}
	}
	return apiclient.StoreCredentialsOutput{CredentialIDs: ids}, nil
}

func (f *fakeAPI) ShareCredential(_ context.Context, id string) (apiclient.ShareOutput, error) {
	if err := f.fail(StepShare); err != nil {
		return apiclient.ShareOutput{}, err
	}
	return apiclient.ShareOutput{QRCode: "someQrCode", SharingURL: "someSharingUrl"}, nil
}

type fakeNotifier struct {
	sent []notification.Message
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, msg notification.Message) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

type recordingReporter struct {
	messages []string
}

func (r *recordingReporter) Report(_ context.Context, message string) {
	r.messages = append(r.messages, message)
}

type fixture struct {
	repo     application.Repository
	api      *fakeAPI
	notifier *fakeNotifier
	reporter *recordingReporter
	service  *Service
}

var issuer = session.Session{ID: "sid", Username: "issuer", AccessToken: "issuer-token", DID: "did:elem:issuer"}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     application.NewMemoryRepository(),
		api:      &fakeAPI{},
		notifier: &fakeNotifier{},
		reporter: &recordingReporter{},
	}
	f.service = NewService(Deps{
		Repo:      f.repo,
		Clients:   func(session.Session) CredentialAPI { return f.api },
		Notifier:  f.notifier,
		Reporter:  f.reporter,
		WalletURL: "https://wallet.example",
		Logger:    logging.Discard(),
	})
	return f
}

func seed(t *testing.T, repo application.Repository, docID string, approved bool) application.Record {
	t.Helper()
	lic := application.License{
		DrivingLicenseID:         "S1234567A",
		Country:                  "someCountry",
		DrivingClass:             "someDrivingClass",
		Email:                    "someEmail",
		IssuerOrganization:       "someIssuerOrganization",
		AffinidiDrivingLicenseID: "k2r3io23f2",
	}
	idClass, err := application.EncodeLicense(lic)
	require.NoError(t, err)
	rec := application.Record{
		DocID:         docID,
		Username:      "someUser",
		ApplicationID: "k2r3io23f2",
		Approved:      approved,
		Payload: application.Payload{
			GivenName:  "someGivenName",
			FamilyName: "someFamilyName",
			IssueDate:  "someDate",
			HolderDID:  "someHolderDid",
			IDClass:    idClass,
		},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Add(context.Background(), rec))
	return rec
}

func labels(actions []Action) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Label)
	}
	return out
}

func TestDetailShowsActionsOnlyWhilePending(t *testing.T) {
	f := newFixture(t)
	seed(t, f.repo, "pending", false)
	seed(t, f.repo, "done", true)

	view, err := f.service.Detail(context.Background(), "pending")
	require.NoError(t, err)
	assert.Equal(t, "Application ID: k2r3io23f2", view.Heading)
	assert.Equal(t, []Field{
		{Label: "Given Name:", Value: "someGivenName"},
		{Label: "Family Name:", Value: "someFamilyName"},
		{Label: "Date of Issuance:", Value: "someDate"},
		{Label: "Issuer Organisation:", Value: "someIssuerOrganization"},
		{Label: "Country of Issuance:", Value: "someCountry"},
		{Label: "Driving Class:", Value: "someDrivingClass"},
	}, view.Fields)
	assert.Equal(t, []string{"View Proof of Document", "Approve", "Reject"}, labels(view.Actions))
	assert.Equal(t, Action{Label: "View Proof of Document", Disabled: true}, view.Actions[0])
	assert.False(t, view.Actions[1].Disabled)

	view, err = f.service.Detail(context.Background(), "done")
	require.NoError(t, err)
	assert.Equal(t, []string{"View Proof of Document"}, labels(view.Actions))
}

func TestListItems(t *testing.T) {
	f := newFixture(t)
	seed(t, f.repo, "pending", false)
	seed(t, f.repo, "done", true)

	items, err := f.service.List(context.Background(), application.Pending())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Application ID: k2r3io23f2", items[0].Heading)
	assert.Equal(t, "View more", items[0].ViewMore.Label)
	assert.Equal(t, "/api/v1/issuer/applications/pending", items[0].ViewMore.Href)
}

func TestApproveHappyPath(t *testing.T) {
	f := newFixture(t)
	seed(t, f.repo, "doc-1", false)

	res, err := f.service.Approve(context.Background(), issuer, "doc-1")
	require.NoError(t, err)

	assert.Equal(t, []string{StepIssueUnsigned, StepSign, StepStore, StepShare}, f.api.calls)
	assert.Equal(t, []string{StepIssueUnsigned, StepSign, StepStore, StepShare, StepEmail, StepFinalize}, res.Completed)
	assert.Empty(t, f.api.issued.HolderDID)
	assert.Equal(t, "someGivenName", f.api.issued.GivenName)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "someEmail", f.notifier.sent[0].Destination)
	assert.Contains(t, f.notifier.sent[0].Body, "someQrCode")
	assert.Contains(t, f.notifier.sent[0].Body, "someSharingUrl")

	assert.Equal(t, IssuerRoute, res.Redirect)
	assert.Equal(t, ApprovedAlert, res.Alert)
	assert.True(t, res.EmailDelivered)
	assert.Equal(t, "someId", res.CredentialID)
	assert.Empty(t, f.reporter.messages)

	rec, err := f.repo.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.True(t, rec.Approved)
}

func TestApproveFailsAtFirstStep(t *testing.T) {
	f := newFixture(t)
	seed(t, f.repo, "doc-1", false)
	f.api.failAt, f.api.err = StepIssueUnsigned, errors.New("someErrorMessage")

	res, err := f.service.Approve(context.Background(), issuer, "doc-1")
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepIssueUnsigned, stepErr.Step)
	assert.Empty(t, stepErr.Completed)

	assert.Equal(t, []string{StepIssueUnsigned}, f.api.calls)
	assert.Empty(t, f.notifier.sent)
	assert.Empty(t, res.Redirect)
	assert.Empty(t, res.Alert)
	assert.Equal(t, []string{"someErrorMessage"}, f.reporter.messages)

	rec, _ := f.repo.Get(context.Background(), "doc-1")
	assert.False(t, rec.Approved)
}

func TestApprovePartialFailureReportsCompletedSteps(t *testing.T) {
	f := newFixture(t)
	seed(t, f.repo, "doc-1", false)
	f.api.failAt, f.api.err = StepShare, errors.New("share unavailable")

	res, err := f.service.Approve(context.Background(), issuer, "doc-1")
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepShare, stepErr.Step)
	assert.Equal(t, []string{StepIssueUnsigned, StepSign, StepStore}, stepErr.Completed)
	assert.Equal(t, StepShare, res.FailedStep)
	assert.Equal(t, "someId", res.CredentialID)
	assert.Empty(t, f.notifier.sent)
}

func TestApproveEmptyStoreResult(t *testing.T) {
	f := newFixture(t)
	seed(t, f.repo, "doc-1", false)
	f.api.storedIDs = []string{}

	_, err := f.service.Approve(context.Background(), issuer, "doc-1")
	assert.ErrorIs(t, err, ErrNoCredentialStored)
	assert.NotContains(t, f.api.calls, StepShare)
}

func TestApproveContinuesWhenEmailFails(t *testing.T) {
	f := newFixture(t)
	seed(t, f.repo, "doc-1", false)
	f.notifier.err = errors.New("ses down")

	res, err := f.service.Approve(context.Background(), issuer, "doc-1")
	require.NoError(t, err)
	assert.False(t, res.EmailDelivered)
	assert.NotContains(t, res.Completed, StepEmail)
	assert.Contains(t, res.Completed, StepFinalize)
	assert.Equal(t, IssuerRoute, res.Redirect)
}

func TestApproveFinalizedApplication(t *testing.T) {
	f := newFixture(t)
	seed(t, f.repo, "doc-1", true)

	_, err := f.service.Approve(context.Background(), issuer, "doc-1")
	assert.ErrorIs(t, err, ErrFinalized)
	assert.Empty(t, f.api.calls)

	_, err = f.service.Reject(context.Background(), "doc-1")
	assert.ErrorIs(t, err, ErrFinalized)
}

func TestApproveUnknownApplication(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Approve(context.Background(), issuer, "missing")
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestRejectDeletesWithoutNetworkCalls(t *testing.T) {
	f := newFixture(t)
	seed(t, f.repo, "doc-1", false)

	res, err := f.service.Reject(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, IssuerRoute, res.Redirect)
	assert.Empty(t, f.api.calls)
	assert.Empty(t, f.notifier.sent)

	_, err = f.repo.Get(context.Background(), "doc-1")
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestGuardRejectsConcurrentAction(t *testing.T) {
	f := newFixture(t)
	seed(t, f.repo, "doc-1", false)

	release, err := f.service.guard.Acquire(context.Background(), "doc-1")
	require.NoError(t, err)

	_, err = f.service.Approve(context.Background(), issuer, "doc-1")
	assert.ErrorIs(t, err, ErrInProgress)
	release()

	_, err = f.service.Approve(context.Background(), issuer, "doc-1")
	assert.NoError(t, err)
}

func TestRedisGuard(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	guard := NewRedisGuard(client, time.Minute, logging.Discard())
	ctx := context.Background()

	release, err := guard.Acquire(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(guardPrefix+"doc-1"))

	_, err = guard.Acquire(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrInProgress)

	release()
	assert.False(t, mr.Exists(guardPrefix+"doc-1"))
}

func TestRedisGuardExpiredReleaseKeepsNewHolder(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	guard := NewRedisGuard(client, time.Second, logging.Discard())
	ctx := context.Background()

	releaseFirst, err := guard.Acquire(ctx, "doc-1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	releaseSecond, err := guard.Acquire(ctx, "doc-1")
	require.NoError(t, err)

	releaseFirst()
	assert.True(t, mr.Exists(guardPrefix+"doc-1"))
	_, err = guard.Acquire(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrInProgress)

	releaseSecond()
	assert.False(t, mr.Exists(guardPrefix+"doc-1"))
}

func TestRunStepsStopsAtFirstBlockingFailure(t *testing.T) {
	var ran []string
	mk := func(name string, err error, bestEffort bool) Step[int] {
		return Step[int]{Name: name, BestEffort: bestEffort, Run: func(context.Context, *int) error {
			ran = append(ran, name)
			return err
		}}
	}
	boom := errors.New("boom")
	state := 0
	out := runSteps(context.Background(), &state, []Step[int]{
		mk("a", nil, false),
		mk("b", boom, true),
		mk("c", boom, false),
		mk("d", nil, false),
	}, logging.Discard())

	assert.Equal(t, []string{"a", "b", "c"}, ran)
	assert.Equal(t, []string{"a"}, out.Completed)
	assert.Equal(t, "c", out.Failed)
	assert.ErrorIs(t, out.Err, boom)
	assert.Contains(t, out.Skipped, "b")
}
