package jwks_testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/conductores/driver-registry-api/internal/platform/auth/jwkset"
)

type Keypair struct {
	Kid     string
	Private *rsa.PrivateKey
}

func GenerateRSAKeypair(kid string) (Keypair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Kid: kid, Private: priv}, nil
}

// NewRotatingJWKSServer returns a JWKS server whose key set can be swapped at runtime.
func NewRotatingJWKSServer() (*httptest.Server, func(keys []Keypair)) {
	var doc atomic.Value // []byte
	doc.Store([]byte(`{"keys":[]}`))

	setKeys := func(keys []Keypair) {
		pub := make([]jwkset.Key, 0, len(keys))
		for _, kp := range keys {
			pub = append(pub, jwkset.Key{Kid: kp.Kid, Public: &kp.Private.PublicKey})
		}
		b, err := jwkset.Encode(pub)
		if err != nil {
			panic(err)
		}
		doc.Store(b)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc.Load().([]byte))
	}))

	return srv, setKeys
}

// Claims describes a token to mint. Role and NotBefore are optional.
type Claims struct {
	Issuer    string
	Audience  string
	Subject   string
	Role      string
	Now       time.Time
	ExpiresIn time.Duration
	NotBefore *time.Duration
}

// MintRS256JWT creates a token signed with kp, carrying kp.Kid in the header.
func MintRS256JWT(kp Keypair, c Claims) (string, error) {
	mc := jwt.MapClaims{
		"iss": c.Issuer,
		"aud": c.Audience,
		"sub": c.Subject,
		"exp": c.Now.Add(c.ExpiresIn).Unix(),
	}
	if c.Role != "" {
		mc["role"] = c.Role
	}
	if c.NotBefore != nil {
		mc["nbf"] = c.Now.Add(*c.NotBefore).Unix()
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, mc)
	tok.Header["kid"] = kp.Kid
	return tok.SignedString(kp.Private)
}
