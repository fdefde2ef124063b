package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// DrivingLicenseData is the issuer build-unsigned request body.
type DrivingLicenseData struct {
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	IssueDate  string `json:"issueDate"`
	HolderDID  string `json:"holderDid"`
	IDClass    string `json:"idClass"`
}

// SignUp registers a wallet user.
func (c *Client) SignUp(ctx context.Context, username, password string) (AuthOutput, error) {
	var out AuthOutput
	err := c.do(ctx, ServiceWallet, http.MethodPost, EndpointSignUp, Credentials{Username: username, Password: password}, &out)
	return out, err
}

// LogIn authenticates a wallet user.
func (c *Client) LogIn(ctx context.Context, username, password string) (AuthOutput, error) {
	var out AuthOutput
	err := c.do(ctx, ServiceWallet, http.MethodPost, EndpointLogIn, Credentials{Username: username, Password: password}, &out)
	return out, err
}

// Logout invalidates the bearer token at the wallet.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, ServiceWallet, http.MethodPost, EndpointLogOut, nil, nil)
}

// IssueUnsignedVC asks the issuer to build an unsigned driving-license
// credential. The holder DID is always sent empty; the issuer binds holder
// identity separately.
func (c *Client) IssueUnsignedVC(ctx context.Context, data DrivingLicenseData) (BuildUnsignedOutput, error) {
	data.HolderDID = ""
	var out BuildUnsignedOutput
	err := c.do(ctx, ServiceIssuer, http.MethodPost, EndpointVCBuildUnsigned, data, &out)
	return out, err
}

// SignVC asks the wallet to sign an unsigned credential.
func (c *Client) SignVC(ctx context.Context, in SignCredentialInput) (SignCredentialOutput, error) {
	var out SignCredentialOutput
	err := c.do(ctx, ServiceWallet, http.MethodPost, EndpointWalletSignCredentials, in, &out)
	return out, err
}

// StoreSignedVCs stores signed credentials in the wallet.
func (c *Client) StoreSignedVCs(ctx context.Context, in StoreCredentialsInput) (StoreCredentialsOutput, error) {
	var out StoreCredentialsOutput
	err := c.do(ctx, ServiceWallet, http.MethodPost, EndpointWalletCredentials, in, &out)
	return out, err
}

// GetSavedVCs lists credentials stored in the wallet.
func (c *Client) GetSavedVCs(ctx context.Context) ([]json.RawMessage, error) {
	var out []json.RawMessage
	if err := c.do(ctx, ServiceWallet, http.MethodGet, EndpointWalletCredentials, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteStoredVC removes a stored credential.
func (c *Client) DeleteStoredVC(ctx context.Context, id string) error {
	return c.do(ctx, ServiceWallet, http.MethodDelete, credentialPath(url.PathEscape(id)), nil, nil)
}

// ShareCredential creates a sharing artifact (QR code + URL) for a stored credential.
func (c *Client) ShareCredential(ctx context.Context, id string) (ShareOutput, error) {
	var out ShareOutput
	err := c.do(ctx, ServiceWallet, http.MethodPost, credentialPath(url.PathEscape(id))+"/share", nil, &out)
	return out, err
}

// VerifyCredentials asks the verifier to check signed credentials.
func (c *Client) VerifyCredentials(ctx context.Context, in VerifyInput) (VerifyOutput, error) {
	var out VerifyOutput
	err := c.do(ctx, ServiceVerifier, http.MethodPost, EndpointVerifierVerifyVCs, in, &out)
	return out, err
}
