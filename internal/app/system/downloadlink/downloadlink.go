// internal/app/system/downloadlink/downloadlink.go
//
// Package downloadlink issues short-lived signed tokens that let a browser
// fetch a stored file without a bearer header.
package downloadlink

import (
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const tokenName = "file-download"

// Signer signs and verifies download tokens.
type Signer struct {
	sc  *securecookie.SecureCookie
	ttl time.Duration
}

type payload struct {
	FileID string
	UserID string
}

// New builds a Signer. hashKey must be at least 32 bytes.
func New(hashKey string, ttl time.Duration) (*Signer, error) {
	if len(hashKey) < 32 {
		return nil, errors.New("downloadlink: key must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	sc := securecookie.New([]byte(hashKey), nil)
	sc.MaxAge(int(ttl / time.Second))
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &Signer{sc: sc, ttl: ttl}, nil
}

// TTL is how long an issued token stays valid.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Sign returns a token granting userID access to fileID.
func (s *Signer) Sign(fileID, userID primitive.ObjectID) (string, error) {
	return s.sc.Encode(tokenName, payload{FileID: fileID.Hex(), UserID: userID.Hex()})
}

// Verify checks the token's signature and age and returns the file and user ids.
func (s *Signer) Verify(token string) (fileID, userID primitive.ObjectID, err error) {
	var p payload
	if err := s.sc.Decode(tokenName, token, &p); err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, fmt.Errorf("downloadlink: %w", err)
	}
	if fileID, err = primitive.ObjectIDFromHex(p.FileID); err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, fmt.Errorf("downloadlink: file id: %w", err)
	}
	if userID, err = primitive.ObjectIDFromHex(p.UserID); err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, fmt.Errorf("downloadlink: user id: %w", err)
	}
	return fileID, userID, nil
}
