package jose

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// JWK is a JSON Web Key.
type JWK struct {
	KTY string `json:"kty"`
	CRV string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
	D   string `json:"d"`
}

// ParseSigningKey parses a PEM-encoded EC or RSA private key from the
// file, returning *ecdsa.PrivateKey or *rsa.PrivateKey.
func ParseSigningKey(signingKeyPath string) (any, error) {
	keyByte, err := os.ReadFile(signingKeyPath)
	if err != nil {
		return nil, err
	}
	if keyByte == nil {
		return nil, errors.New("private key missing")
	}

	if ecKey, err := jwt.ParseECPrivateKeyFromPEM(keyByte); err == nil {
		return ecKey, nil
	}

	rsaKey, err := jwt.ParseRSAPrivateKeyFromPEM(keyByte)
	if err != nil {
		return nil, err
	}

	return rsaKey, nil
}

// CreateJWK creates a JWK from the signing key.
func CreateJWK(signingKeyPath string) (*JWK, any, error) {
	privateKey, err := ParseSigningKey(signingKeyPath)
	if err != nil {
		return nil, nil, err
	}

	key, err := jwk.Import(privateKey)
	if err != nil {
		return nil, nil, err
	}

	encoded, err := json.Marshal(key)
	if err != nil {
		return nil, nil, err
	}

	var raw struct {
		KTY string `json:"kty"`
		CRV string `json:"crv"`
		X   string `json:"x"`
		Y   string `json:"y"`
		D   string `json:"d"`
	}
	if err := json.Unmarshal(encoded, &raw); err != nil {
		return nil, nil, err
	}

	result := &JWK{
		KTY: raw.KTY,
		CRV: raw.CRV,
	}
	if x, err := base64.RawURLEncoding.DecodeString(raw.X); err == nil {
		result.X = base64.RawStdEncoding.EncodeToString(x)
	}
	if y, err := base64.RawURLEncoding.DecodeString(raw.Y); err == nil {
		result.Y = base64.RawStdEncoding.EncodeToString(y)
	}
	if raw.D != "" {
		if d, err := base64.RawURLEncoding.DecodeString(raw.D); err == nil {
			result.D = base64.RawStdEncoding.EncodeToString(d)
		}
	}

	return result, privateKey, nil
}
