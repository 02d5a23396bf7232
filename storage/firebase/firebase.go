// Package firebasestore keeps wizard sessions and saved progress in the Firebase Realtime Database.
//
// The database rules must index sessions by identity:
//
//	{"rules": {"wizard_sessions": {".indexOn": ["identity"]}}}
package firebasestore

import (
	"context"
	"encoding/base64"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/philosothon/philosothon/core"
)

const (
	sessionsPath = "wizard_sessions"
	progressPath = "registration_progress"
)

// Client holds the Realtime Database client shared by the stores.
type Client struct {
	db *db.Client
}

func NewClient(ctx context.Context, conf *core.Config) (*Client, error) {
	var opts []option.ClientOption
	if conf.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.Firebase.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: conf.Firebase.DatabaseURL}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting database client")
	}
	return &Client{db: client}, nil
}

// encodeKey makes an arbitrary ID safe as a database key ('.', '#', '$', '[', ']' and '/' are not allowed).
func encodeKey(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}
