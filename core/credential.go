package core

import (
	"encoding/base64"
	"errors"
	"strings"
)

// Credential is a login/secret pair decoded from an Authorization header.
// It is never persisted.
type Credential struct {
	Identifier string
	Secret     string
}

// DecodeCredential parses "<scheme> <base64(identifier:secret)>".
// The scheme itself is not checked.
func DecodeCredential(header string) (Credential, error) {
	_, encoded, ok := strings.Cut(strings.TrimSpace(header), " ")
	encoded = strings.TrimSpace(encoded)
	if !ok || encoded == "" {
		return Credential{}, errors.New("missing encoded credential")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Credential{}, err
	}
	identifier, secret, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Credential{}, errors.New("missing credential separator")
	}
	return Credential{Identifier: identifier, Secret: secret}, nil
}

// EncodeCredential builds an Authorization header value.
func EncodeCredential(scheme, identifier, secret string) string {
	return scheme + " " + base64.StdEncoding.EncodeToString([]byte(identifier+":"+secret))
}
