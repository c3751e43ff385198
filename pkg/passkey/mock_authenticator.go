// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package passkey

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncbor"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

// MockAuthenticator simulates a FIDO2 authenticator for testing. It
// fabricates attestation and assertion responses in the parsed form the
// ceremony engine consumes, signed with a real P-256 key so signature
// verification succeeds.
type MockAuthenticator struct {
	// AAGUID is the authenticator model identifier (16 bytes).
	AAGUID []byte

	// CredentialID identifies the single credential this authenticator holds.
	CredentialID []byte

	// SignCount is the signature counter reported in authenticator data.
	SignCount uint32

	// UserPresent controls the UP flag.
	UserPresent bool

	// UserVerified controls the UV flag.
	UserVerified bool

	privateKey *ecdsa.PrivateKey
	rpID       string
	rpIDHash   []byte
}

// MockOption configures a MockAuthenticator.
type MockOption func(*MockAuthenticator)

// WithCredentialID sets a fixed credential ID.
func WithCredentialID(id []byte) MockOption {
	return func(m *MockAuthenticator) {
		m.CredentialID = id
	}
}

// WithSignCount sets the initial signature counter.
func WithSignCount(count uint32) MockOption {
	return func(m *MockAuthenticator) {
		m.SignCount = count
	}
}

// WithUserVerified controls the UV flag.
func WithUserVerified(uv bool) MockOption {
	return func(m *MockAuthenticator) {
		m.UserVerified = uv
	}
}

// NewMockAuthenticator creates a mock authenticator scoped to the given RP ID.
func NewMockAuthenticator(rpID string, opts ...MockOption) (*MockAuthenticator, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	aaguid := make([]byte, 16)
	if _, err := rand.Read(aaguid); err != nil {
		return nil, err
	}

	credID := make([]byte, 32)
	if _, err := rand.Read(credID); err != nil {
		return nil, err
	}

	rpIDHash := sha256.Sum256([]byte(rpID))

	m := &MockAuthenticator{
		AAGUID:       aaguid,
		CredentialID: credID,
		SignCount:    0,
		UserPresent:  true,
		UserVerified: true,
		privateKey:   privateKey,
		rpID:         rpID,
		rpIDHash:     rpIDHash[:],
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// PublicKeyCOSE returns the credential public key in COSE format.
func (m *MockAuthenticator) PublicKeyCOSE() ([]byte, error) {
	pub := m.privateKey.Public().(*ecdsa.PublicKey)

	coseKey := map[int]interface{}{
		1:  2,                          // kty: EC2
		3:  int(webauthncose.AlgES256), // alg: ES256
		-1: 1,                          // crv: P-256
		-2: pub.X.Bytes(),
		-3: pub.Y.Bytes(),
	}

	return webauthncbor.Marshal(coseKey)
}

// SetSignCount forces the counter to a specific value. Useful for
// exercising clone detection.
func (m *MockAuthenticator) SetSignCount(count uint32) {
	m.SignCount = count
}

// Attest produces a parsed registration response for the given challenge.
// The challenge is the base64url string carried in the creation options.
func (m *MockAuthenticator) Attest(challenge, origin string, userID []byte) (*protocol.ParsedCredentialCreationData, error) {
	authData, err := m.authenticatorData(true)
	if err != nil {
		return nil, err
	}

	clientDataJSON := m.clientDataJSON(challenge, origin, "webauthn.create")

	// "none" attestation carries no statement, so no signature is needed here.
	attObjBytes, err := webauthncbor.Marshal(map[string]interface{}{
		"authData": authData,
		"fmt":      "none",
		"attStmt":  map[string]interface{}{},
	})
	if err != nil {
		return nil, err
	}

	pubKey, err := m.PublicKeyCOSE()
	if err != nil {
		return nil, err
	}

	parsedAttObj := protocol.AttestationObject{
		Format:       "none",
		AttStatement: map[string]interface{}{},
		AuthData: protocol.AuthenticatorData{
			RPIDHash: m.rpIDHash,
			Flags:    m.flags(true),
			Counter:  m.SignCount,
			AttData: protocol.AttestedCredentialData{
				AAGUID:              m.AAGUID,
				CredentialID:        m.CredentialID,
				CredentialPublicKey: pubKey,
			},
		},
	}

	credentialID := base64.RawURLEncoding.EncodeToString(m.CredentialID)

	return &protocol.ParsedCredentialCreationData{
		ParsedPublicKeyCredential: protocol.ParsedPublicKeyCredential{
			ParsedCredential: protocol.ParsedCredential{
				ID:   credentialID,
				Type: "public-key",
			},
			RawID:                  m.CredentialID,
			ClientExtensionResults: protocol.AuthenticationExtensionsClientOutputs{},
		},
		Response: protocol.ParsedAttestationResponse{
			CollectedClientData: protocol.CollectedClientData{
				Type:      "webauthn.create",
				Challenge: challenge,
				Origin:    origin,
			},
			AttestationObject: parsedAttObj,
			Transports:        []protocol.AuthenticatorTransport{protocol.USB},
		},
		Raw: protocol.CredentialCreationResponse{
			PublicKeyCredential: protocol.PublicKeyCredential{
				Credential: protocol.Credential{
					ID:   credentialID,
					Type: "public-key",
				},
				RawID:                  m.CredentialID,
				ClientExtensionResults: protocol.AuthenticationExtensionsClientOutputs{},
			},
			AttestationResponse: protocol.AuthenticatorAttestationResponse{
				AuthenticatorResponse: protocol.AuthenticatorResponse{
					ClientDataJSON: clientDataJSON,
				},
				AttestationObject: attObjBytes,
				Transports:        []string{"usb"},
			},
		},
	}, nil
}

// Assert produces a parsed authentication response for the given
// challenge, incrementing the signature counter first.
func (m *MockAuthenticator) Assert(challenge, origin string, userHandle []byte) (*protocol.ParsedCredentialAssertionData, error) {
	m.SignCount++

	authData, err := m.authenticatorData(false)
	if err != nil {
		return nil, err
	}

	clientDataJSON := m.clientDataJSON(challenge, origin, "webauthn.get")
	clientDataHash := sha256.Sum256(clientDataJSON)

	// The assertion signature covers authData || SHA-256(clientDataJSON).
	signed := append(authData, clientDataHash[:]...)
	digest := sha256.Sum256(signed)
	signature, err := ecdsa.SignASN1(rand.Reader, m.privateKey, digest[:])
	if err != nil {
		return nil, err
	}

	credentialID := base64.RawURLEncoding.EncodeToString(m.CredentialID)

	return &protocol.ParsedCredentialAssertionData{
		ParsedPublicKeyCredential: protocol.ParsedPublicKeyCredential{
			ParsedCredential: protocol.ParsedCredential{
				ID:   credentialID,
				Type: "public-key",
			},
			RawID:                  m.CredentialID,
			ClientExtensionResults: protocol.AuthenticationExtensionsClientOutputs{},
		},
		Response: protocol.ParsedAssertionResponse{
			CollectedClientData: protocol.CollectedClientData{
				Type:      "webauthn.get",
				Challenge: challenge,
				Origin:    origin,
			},
			AuthenticatorData: protocol.AuthenticatorData{
				RPIDHash: m.rpIDHash,
				Flags:    m.flags(false),
				Counter:  m.SignCount,
			},
			Signature:  signature,
			UserHandle: userHandle,
		},
		Raw: protocol.CredentialAssertionResponse{
			PublicKeyCredential: protocol.PublicKeyCredential{
				Credential: protocol.Credential{
					ID:   credentialID,
					Type: "public-key",
				},
				RawID:                  m.CredentialID,
				ClientExtensionResults: protocol.AuthenticationExtensionsClientOutputs{},
			},
			AssertionResponse: protocol.AuthenticatorAssertionResponse{
				AuthenticatorResponse: protocol.AuthenticatorResponse{
					ClientDataJSON: clientDataJSON,
				},
				AuthenticatorData: authData,
				Signature:         signature,
				UserHandle:        userHandle,
			},
		},
	}, nil
}

func (m *MockAuthenticator) flags(attested bool) protocol.AuthenticatorFlags {
	var flags byte
	if m.UserPresent {
		flags |= 0x01 // UP
	}
	if m.UserVerified {
		flags |= 0x04 // UV
	}
	if attested {
		flags |= 0x40 // AT
	}
	return protocol.AuthenticatorFlags(flags)
}

func (m *MockAuthenticator) authenticatorData(attested bool) ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(m.rpIDHash)
	buf.WriteByte(byte(m.flags(attested)))

	counter := make([]byte, 4)
	binary.BigEndian.PutUint32(counter, m.SignCount)
	buf.Write(counter)

	if attested {
		buf.Write(m.AAGUID)

		credIDLen := make([]byte, 2)
		binary.BigEndian.PutUint16(credIDLen, uint16(len(m.CredentialID)))
		buf.Write(credIDLen)
		buf.Write(m.CredentialID)

		pubKey, err := m.PublicKeyCOSE()
		if err != nil {
			return nil, err
		}
		buf.Write(pubKey)
	}

	return buf.Bytes(), nil
}

func (m *MockAuthenticator) clientDataJSON(challenge, origin, ceremonyType string) []byte {
	clientData := struct {
		Type      string `json:"type"`
		Challenge string `json:"challenge"`
		Origin    string `json:"origin"`
	}{
		Type:      ceremonyType,
		Challenge: challenge,
		Origin:    origin,
	}

	jsonBytes, _ := json.Marshal(clientData)
	return jsonBytes
}
