package auth

import (
	"context"
	"regexp"

	"github.com/sakif/photohunt/internal/apperror"
	"github.com/sakif/photohunt/internal/identity"
)

// clientIDPattern splits an OAuth client id into its numeric project prefix
// and the rest.
var clientIDPattern = regexp.MustCompile(`^(\d*)(.*)\.apps\.googleusercontent\.com$`)

// Verifier checks that an access token is live and was issued to this
// application's OAuth client.
type Verifier struct {
	client   identity.Client
	clientID string
}

func NewVerifier(client identity.Client, clientID string) *Verifier {
	return &Verifier{client: client, clientID: clientID}
}

// Verify asks the provider about accessToken.
//
// Transport or decoding failures return TokenVerificationFailed, a token the
// provider rejects returns InvalidToken with the provider's message, and a
// token issued to a different project returns ClientMismatch.
func (v *Verifier) Verify(ctx context.Context, accessToken string) (*identity.TokenInfo, error) {
	info, err := v.client.VerifyToken(ctx, accessToken)
	if err != nil {
		return nil, apperror.TokenVerificationFailed(err)
	}
	if info.Error != "" {
		return nil, apperror.InvalidToken(info.Error)
	}

	if !sameProject(info.IssuedTo, v.clientID) {
		return nil, apperror.ClientMismatch()
	}
	return info, nil
}

// sameProject compares the numeric prefixes of two client ids. Ids that do
// not have the provider's shape, or have no numeric prefix, never match.
func sameProject(issuedTo, clientID string) bool {
	got := projectNumber(issuedTo)
	want := projectNumber(clientID)
	return got != "" && got == want
}

func projectNumber(clientID string) string {
	m := clientIDPattern.FindStringSubmatch(clientID)
	if m == nil {
		return ""
	}
	return m[1]
}
