package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/homecook/storefront/internal/apperr"
	"google.golang.org/api/option"
)

// Identity is what the identity provider vouches for.
type Identity struct {
	UID      string
	Email    string
	Name     string
	PhotoURL string
}

// Verifier checks an identity provider ID token.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (Identity, error)
}

// IDTokenVerifier is the part of *fbauth.Client the gateway uses.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier verifies Firebase ID tokens.
type FirebaseVerifier struct {
	client IDTokenVerifier
}

// NewFirebaseVerifier initializes a Firebase app for projectID. credentialsFile
// may be empty to use application default credentials.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

// NewFirebaseVerifierWithClient wraps an existing token verifier.
func NewFirebaseVerifierWithClient(c IDTokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: c}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", apperr.ErrAuth, err)
	}
	email, _ := tok.Claims["email"].(string)
	if email == "" {
		return Identity{}, fmt.Errorf("%w: token has no email", apperr.ErrAuth)
	}
	name, _ := tok.Claims["name"].(string)
	picture, _ := tok.Claims["picture"].(string)
	return Identity{UID: tok.UID, Email: email, Name: name, PhotoURL: picture}, nil
}

// HMACVerifier accepts HS256 ID tokens signed with a shared secret. It stands in
// for the identity provider in local development.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

type devClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

func (v *HMACVerifier) Verify(_ context.Context, idToken string) (Identity, error) {
	var c devClaims
	_, err := jwt.ParseWithClaims(idToken, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", apperr.ErrAuth, err)
	}
	if strings.TrimSpace(c.Email) == "" {
		return Identity{}, fmt.Errorf("%w: token has no email", apperr.ErrAuth)
	}
	return Identity{UID: c.Subject, Email: c.Email, Name: c.Name, PhotoURL: c.Picture}, nil
}

var errNoVerifier = errors.New("no identity verifier configured")
