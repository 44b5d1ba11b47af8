// Package jwkset encodes and decodes RSA signing keys as a JSON Web Key Set.
package jwkset

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// Key is a public signing key and its key id.
type Key struct {
	Kid    string
	Public *rsa.PublicKey
}

type set struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// Encode renders keys as an RS256 JWKS document.
func Encode(keys []Key) ([]byte, error) {
	out := set{Keys: make([]jwk, 0, len(keys))}
	for _, k := range keys {
		if k.Public == nil || k.Kid == "" {
			return nil, errors.New("jwkset: key requires kid and public key")
		}
		out.Keys = append(out.Keys, jwk{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: k.Kid,
			N:   base64.RawURLEncoding.EncodeToString(k.Public.N.Bytes()),
			// e is a big-endian unsigned int.
			E: base64.RawURLEncoding.EncodeToString(big.NewInt(int64(k.Public.E)).Bytes()),
		})
	}
	return json.Marshal(out)
}

// Parse decodes a JWKS document into RSA public keys by kid. Non-RSA keys are skipped.
func Parse(b []byte) (map[string]*rsa.PublicKey, error) {
	var s set
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	out := make(map[string]*rsa.PublicKey, len(s.Keys))
	for _, k := range s.Keys {
		if k.Kty != "RSA" || k.Kid == "" || k.N == "" || k.E == "" {
			continue
		}
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, err
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, err
		}
		e := new(big.Int).SetBytes(eb).Int64()
		if e <= 0 || e > int64(^uint(0)>>1) {
			return nil, fmt.Errorf("invalid jwk exponent")
		}
		out[k.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(e)}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable jwks keys")
	}
	return out, nil
}
