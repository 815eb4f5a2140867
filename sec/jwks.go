package sec

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const publicPEMSuffix = "_public.pem"

// JWK JSON Web Key
type JWK struct {
	Kty string `json:"kty"` // Key Type
	Use string `json:"use"` // Usage
	Kid string `json:"kid"` // Key ID
	Alg string `json:"alg"` // Algorithm
	N   string `json:"n"`   // Modulus
	E   string `json:"e"`   // Exponent
}

// ToPublicKey Convert JWK to an rsa.PublicKey
func (j *JWK) ToPublicKey() (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode N: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode E: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}

func NewJWKFromPublicKey(kid string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Kid: kid,
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// JWKS JSON Web Key Set, served so that clients can check which keys are trusted
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// KeySet holds the RSA public keys accepted for bearer tokens, by key id.
// Safe for concurrent use; keys fetched from an auth server are swapped in with Merge.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey
}

var ErrUnknownKeyID = errors.New("unknown key id")

func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]*rsa.PublicKey)}
}

func (s *KeySet) Add(kid string, pub *rsa.PublicKey) {
	s.mu.Lock()
	s.keys[kid] = pub
	s.mu.Unlock()
}

// Merge adds every key of jwks, replacing same-kid entries. Returns the number added.
func (s *KeySet) Merge(jwks *JWKS) (int, error) {
	fresh := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for i := range jwks.Keys {
		pub, err := jwks.Keys[i].ToPublicKey()
		if err != nil {
			return 0, fmt.Errorf("kid %q: %w", jwks.Keys[i].Kid, err)
		}
		fresh[jwks.Keys[i].Kid] = pub
	}
	s.mu.Lock()
	for kid, pub := range fresh {
		s.keys[kid] = pub
	}
	s.mu.Unlock()
	return len(fresh), nil
}

func (s *KeySet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

func (s *KeySet) Lookup(kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	pub, ok := s.keys[kid]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKeyID, kid)
	}
	return pub, nil
}

func (s *KeySet) JWKS() *JWKS {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jwks := &JWKS{Keys: make([]JWK, 0, len(s.keys))}
	for kid, pub := range s.keys {
		jwks.Keys = append(jwks.Keys, NewJWKFromPublicKey(kid, pub))
	}
	return jwks
}

// LoadPublicKeySet reads every `<kid>_public.pem` in dirPath. Non-RSA keys are skipped.
func LoadPublicKeySet(dirPath string) (*KeySet, error) {
	dirEntries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key directory: %w", err)
	}
	set := NewKeySet()
	for _, entry := range dirEntries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), publicPEMSuffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dirPath, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read pem file %s: %w", entry.Name(), err)
		}
		pub, err := parsePublicPEM(data)
		if err != nil {
			log.Printf("[WARN] skipping key file %s: %v", entry.Name(), err)
			continue
		}
		set.Add(strings.TrimSuffix(entry.Name(), publicPEMSuffix), pub)
	}
	log.Printf("[INFO] %d public keys loaded from %s", set.Len(), dirPath)
	return set, nil
}
