// README: Traveller identity. Verifies Firebase ID tokens for middleware.Auth,
// which guards every /api route and the voice websocket (?access_token=).
package infra

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseToken is the verified caller. UID keys plans and quota.
type FirebaseToken struct {
	UID    string
	Email  string
	Claims map[string]interface{}
}

type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error)
}

// FirebaseOptions configure NewFirebaseVerifier. An empty CredentialsFile
// falls back to application-default credentials. CheckRevoked makes every
// verification also reject sessions revoked from the Firebase console, at
// the cost of one Auth backend lookup per request.
type FirebaseOptions struct {
	ProjectID       string
	CredentialsFile string
	CheckRevoked    bool
}

type firebaseVerifier struct {
	client       *auth.Client
	checkRevoked bool
}

func NewFirebaseVerifier(ctx context.Context, o FirebaseOptions) (TokenVerifier, error) {
	if o.ProjectID == "" {
		return nil, fmt.Errorf("firebase: project id is required")
	}
	var opts []option.ClientOption
	if o.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(o.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: o.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Auth: %w", err)
	}
	return &firebaseVerifier{client: client, checkRevoked: o.CheckRevoked}, nil
}

func (v *firebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error) {
	var (
		token *auth.Token
		err   error
	)
	if v.checkRevoked {
		token, err = v.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	} else {
		token, err = v.client.VerifyIDToken(ctx, idToken)
	}
	if err != nil {
		return nil, err
	}
	return tokenFromClaims(token.UID, token.Claims), nil
}

// tokenFromClaims leaves Email empty when the claim is missing or not a string,
// as for anonymous and phone sign-ins.
func tokenFromClaims(uid string, claims map[string]interface{}) *FirebaseToken {
	email, _ := claims["email"].(string)
	return &FirebaseToken{UID: uid, Email: email, Claims: claims}
}
