package devapi

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v4"
	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwk"
)

var (
	ErrFailedToGenerateKey  = fmt.Errorf("failed to generate signing key")
	ErrFailedToCastKey      = fmt.Errorf("failed to cast key to jwk.Key")
	ErrNoSuitablePrivateKey = fmt.Errorf("no suitable private key found")
	ErrFailedToGetRawKey    = fmt.Errorf("failed to get raw key")
	ErrFailedToSignJWT      = fmt.Errorf("failed to sign JWT")
)

const rsaKeyBits = 2048

// Signer issues RS256 tokens, rotating through the private keys of its set.
type Signer struct {
	keys     jwk.Set
	mu       sync.Mutex
	keyIndex int
}

// NewSigner generates count RSA keys.
func NewSigner(count int) (*Signer, error) {
	if count < 1 {
		count = 1
	}
	set := jwk.NewSet()
	for i := 0; i < count; i++ {
		raw, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToGenerateKey, err)
		}
		key, err := jwk.New(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToGenerateKey, err)
		}
		if err := key.Set(jwk.KeyIDKey, fmt.Sprintf("devapi-%d", i)); err != nil {
			return nil, err
		}
		if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
			return nil, err
		}
		set.Add(key)
	}
	return &Signer{keys: set}, nil
}

// Sign signs claims with the next key in rotation.
func (s *Signer) Sign(claims jwt.MapClaims) (string, error) {
	privateKey, keyID, err := s.nextPrivateKey()
	if err != nil {
		return "", err
	}

	token := &jwt.Token{
		Header: map[string]interface{}{
			"typ": "JWT",
			"alg": jwt.SigningMethodRS256.Alg(),
			"kid": keyID,
		},
		Claims: claims,
		Method: jwt.SigningMethodRS256,
	}

	signed, err := token.SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFailedToSignJWT, err)
	}
	return signed, nil
}

// PublicSet returns the public half of the key set, for the JWKS endpoint.
func (s *Signer) PublicSet() (jwk.Set, error) {
	return jwk.PublicSetOf(s.keys)
}

func (s *Signer) nextPrivateKey() (interface{}, string, error) {
	ctx := context.Background()

	var privateKeys []jwk.Key
	for it := s.keys.Iterate(ctx); it.Next(ctx); {
		key, ok := it.Pair().Value.(jwk.Key)
		if !ok {
			return nil, "", ErrFailedToCastKey
		}
		if canUseForSigning(key) {
			privateKeys = append(privateKeys, key)
		}
	}
	if len(privateKeys) == 0 {
		return nil, "", ErrNoSuitablePrivateKey
	}

	s.mu.Lock()
	selected := privateKeys[s.keyIndex%len(privateKeys)]
	s.keyIndex = (s.keyIndex + 1) % len(privateKeys)
	s.mu.Unlock()

	var raw interface{}
	if err := selected.Raw(&raw); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrFailedToGetRawKey, err)
	}
	return raw, selected.KeyID(), nil
}

func canUseForSigning(key jwk.Key) bool {
	if key.KeyType() != jwa.RSA {
		return false
	}
	rsaKey, ok := key.(jwk.RSAPrivateKey)
	return ok && rsaKey.D() != nil
}
