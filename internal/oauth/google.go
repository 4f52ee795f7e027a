package oauth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

// Payload is the identity extracted from a verified ID token.
type Payload struct {
	Email string
	Name  string
}

// Verifier validates a third-party identity token and extracts the
// holder's email and name.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (Payload, error)
}

// GoogleVerifier validates Google ID tokens against a configured
// OAuth client audience.
type GoogleVerifier struct {
	clientID string
}

func NewGoogleVerifier(clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, errors.New("GOOGLE_CLIENT_ID is required")
	}
	return &GoogleVerifier{clientID: clientID}, nil
}

func (v *GoogleVerifier) Verify(ctx context.Context, token string) (Payload, error) {
	payload, err := idtoken.Validate(ctx, token, v.clientID)
	if err != nil {
		return Payload{}, fmt.Errorf("validate id token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return Payload{}, errors.New("id token has no email claim")
	}
	name, _ := payload.Claims["name"].(string)
	if name == "" {
		name = email
	}

	return Payload{Email: email, Name: name}, nil
}
