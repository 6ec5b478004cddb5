package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"

	"github.com/golang-jwt/jwt/v5"
)

const RS256 = "RS256"

// KeyPair is an RSA key pair used for RS256 signing.
type KeyPair struct {
	KeyID      string
	PrivateKey *rsa.PrivateKey
}

// JWKS represents a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kty string `json:"kty"`           // Key type
	Use string `json:"use,omitempty"` // sig or enc
	Kid string `json:"kid,omitempty"` // Key ID
	Alg string `json:"alg,omitempty"` // Algorithm
	N   string `json:"n,omitempty"`   // Modulus
	E   string `json:"e,omitempty"`   // Exponent
}

// GenerateRSAKeyPair generates a new RSA key pair for RS256 signing
func GenerateRSAKeyPair(keyID string, bits int) (*KeyPair, error) {
	if bits < 2048 {
		bits = 2048
	}
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}
	return &KeyPair{KeyID: keyID, PrivateKey: privateKey}, nil
}

// LoadKeyPairFromPEM loads a PKCS#1 or PKCS#8 encoded RSA private key.
func LoadKeyPairFromPEM(keyID string, pemData []byte) (*KeyPair, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return &KeyPair{KeyID: keyID, PrivateKey: key}, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return &KeyPair{KeyID: keyID, PrivateKey: key}, nil
}

// ExportPrivateKeyPEM exports the private key as PKCS#1 PEM
func (kp *KeyPair) ExportPrivateKeyPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(kp.PrivateKey),
	})
}

// ToJWK converts the public half of the key pair to JWK format
func (kp *KeyPair) ToJWK() JWK {
	pub := kp.PrivateKey.PublicKey
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Kid: kp.KeyID,
		Alg: RS256,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// KeySetProvider is implemented by signers whose verification keys can be published.
type KeySetProvider interface {
	JWKS() JWKS
}

// RSASigner implements Signer using RS256. Tokens carry the key id in their header.
type RSASigner struct {
	keyPair *KeyPair
}

var (
	_ Signer         = (*RSASigner)(nil)
	_ KeySetProvider = (*RSASigner)(nil)
)

// NewRSASigner signs with keyPair.
func NewRSASigner(keyPair *KeyPair) *RSASigner {
	return &RSASigner{keyPair: keyPair}
}

func (r *RSASigner) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = r.keyPair.KeyID

	signedToken, err := token.SignedString(r.keyPair.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token with RSA key: %w", err)
	}
	return signedToken, nil
}

func (r *RSASigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	if kid, ok := token.Header["kid"].(string); ok && kid != r.keyPair.KeyID {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return &r.keyPair.PrivateKey.PublicKey, nil
}

func (r *RSASigner) GetSigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodRS256
}

// JWKS returns the key set holding the signer's public key.
func (r *RSASigner) JWKS() JWKS {
	return JWKS{Keys: []JWK{r.keyPair.ToJWK()}}
}
