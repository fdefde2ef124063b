package apiclient

// Endpoint paths relative to the service base URLs.
const (
	EndpointSignUp                = "/users/signup"
	EndpointLogIn                 = "/users/login"
	EndpointLogOut                = "/users/logout"
	EndpointVCBuildUnsigned       = "/vc/build-unsigned"
	EndpointWalletSignCredentials = "/wallet/sign-credential"
	EndpointWalletCredentials     = "/wallet/credentials"
	EndpointVerifierVerifyVCs     = "/verifier/verify-vcs"
)

// Service identifies one of the separately configured upstream APIs.
type Service string

const (
	ServiceWallet   Service = "wallet"
	ServiceIssuer   Service = "issuer"
	ServiceVerifier Service = "verifier"
)
