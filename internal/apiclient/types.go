package apiclient

import "encoding/json"

// Credentials is the user name / password pair accepted by sign-up and login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthOutput is returned by sign-up and login.
type AuthOutput struct {
	AccessToken string `json:"accessToken"`
	DID         string `json:"did"`
}

// BuildUnsignedOutput wraps the unsigned credential produced by the issuer.
type BuildUnsignedOutput struct {
	UnsignedVC json.RawMessage `json:"unsignedVC"`
}

// SignCredentialInput is the wallet sign request body.
type SignCredentialInput struct {
	UnsignedCredential json.RawMessage `json:"unsignedCredential"`
}

// SignCredentialOutput wraps the signed credential returned by the wallet.
type SignCredentialOutput struct {
	SignedCredential json.RawMessage `json:"signedCredential"`
}

// StoreCredentialsInput is the wallet store request body.
type StoreCredentialsInput struct {
	Data []json.RawMessage `json:"data"`
}

// StoreCredentialsOutput lists identifiers assigned to stored credentials.
type StoreCredentialsOutput struct {
	CredentialIDs []string `json:"credentialIds"`
}

// ShareOutput is the sharing artifact for a stored credential.
type ShareOutput struct {
	QRCode     string `json:"qrCode"`
	SharingURL string `json:"sharingUrl"`
}

// VerifyInput is the verifier request body.
type VerifyInput struct {
	VerifiableCredentials []json.RawMessage `json:"verifiableCredentials"`
}

// VerifyOutput reports the verifier's decision.
type VerifyOutput struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}
