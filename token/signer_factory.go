package token

import (
	"fmt"
	"os"
	"strings"
)

const (
	HS256 = "HS256"

	rsaKeyBits   = 2048
	defaultKeyID = "mock-api-1"
)

// SignerConfig selects and parameterises the token signer.
type SignerConfig interface {
	GetSigningAlgorithm() string
	GetSigningSecret() string
	GetSigningKeyFile() string
}

// NewSigner creates the signer named by cfg. For RS256 the key is read from the
// configured PEM file, or generated when no file is set.
func NewSigner(cfg SignerConfig) (Signer, error) {
	switch alg := strings.ToUpper(cfg.GetSigningAlgorithm()); alg {
	case "", HS256:
		if cfg.GetSigningSecret() == "" {
			return nil, fmt.Errorf("HS256 signing requires a secret")
		}
		return NewHMACSigner(cfg.GetSigningSecret()), nil

	case RS256:
		keyPair, err := rsaKeyPair(cfg.GetSigningKeyFile())
		if err != nil {
			return nil, err
		}
		return NewRSASigner(keyPair), nil

	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
}

func rsaKeyPair(path string) (*KeyPair, error) {
	if path == "" {
		keyPair, err := GenerateRSAKeyPair(defaultKeyID, rsaKeyBits)
		if err != nil {
			return nil, fmt.Errorf("failed to generate RS256 key pair: %w", err)
		}
		return keyPair, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}
	keyPair, err := LoadKeyPairFromPEM(defaultKeyID, data)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key %s: %w", path, err)
	}
	return keyPair, nil
}
