package notification

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

const (
	credentialIssuedSubject = "Your Driving License Verifiable Credential"
	qrImagePrefix           = "data:image/"
)

var credentialIssuedTemplate = template.Must(template.New("credential_issued").Parse(`<html>
<body>
<h3>Your driving license application has been approved.</h3>
<p>Scan the QR code below with your wallet to receive your Driving License Verifiable Credential.</p>
<img src="{{.QRCode}}" alt="QR code"/>
<p>Alternatively, open this link to view the credential: <a href="{{.SharingURL}}">{{.SharingURL}}</a></p>
{{if .WalletURL}}<p>Log in to your wallet at <a href="{{.WalletURL}}">{{.WalletURL}}</a> to store it.</p>{{end}}
</body>
</html>`))

type credentialIssuedData struct {
	QRCode     any
	SharingURL string
	WalletURL  string
}

// CredentialIssued builds the email sent to an applicant once their
// credential has been stored and shared.
func CredentialIssued(qrCode, sharingURL, recipient, walletURL string) (Message, error) {
	if recipient == "" {
		return Message{}, errors.New("recipient is required")
	}
	var buf bytes.Buffer
	data := credentialIssuedData{
		QRCode:     qrSource(qrCode),
		SharingURL: sharingURL,
		WalletURL:  walletURL,
	}
	if err := credentialIssuedTemplate.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render email: %w", err)
	}
	return Message{
		Kind:        KindCredentialIssued,
		Destination: recipient,
		Subject:     credentialIssuedSubject,
		Body:        buf.String(),
	}, nil
}

// qrSource trusts image data URLs only. Anything else goes through the
// template's URL filtering.
func qrSource(qrCode string) any {
	if strings.HasPrefix(qrCode, qrImagePrefix) {
		return template.URL(qrCode)
	}
	return qrCode
}
