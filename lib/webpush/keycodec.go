package webpush

import (
	"encoding/base64"
	"strings"
)

// RawKeyLen is the size of an uncompressed P-256 public key point: one
// marker byte plus two 32-byte coordinates.
const RawKeyLen = 65

// pemMarker prefixes keys that arrive as a whole DER-encoded
// SubjectPublicKeyInfo rather than the bare point.
const pemMarker = "MF"

// DecodeVapidKey converts a server-supplied VAPID public key into the raw
// byte form accepted as an applicationServerKey.
//
// Keys normally arrive as unpadded URL-safe base64 of the bare 65-byte
// point. Some backends instead emit the standard-base64 DER wrapping; those
// start with "MF", and the point is the last 65 bytes of the decoded value.
func DecodeVapidKey(key string) ([]byte, error) {
	if strings.HasPrefix(key, pemMarker) {
		raw, err := base64.StdEncoding.DecodeString(key)
		if err != nil {
			return nil, ErrKeyDecode.New("pem branch: %v", err)
		}
		if len(raw) < RawKeyLen {
			return nil, ErrKeyDecode.New("pem branch: decoded %d bytes, want at least %d", len(raw), RawKeyLen)
		}
		return raw[len(raw)-RawKeyLen:], nil
	}

	normalized := strings.ReplaceAll(key, "-", "+")
	normalized = strings.ReplaceAll(normalized, "_", "/")
	if rem := len(normalized) % 4; rem != 0 {
		normalized += strings.Repeat("=", 4-rem)
	}

	raw, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		return nil, ErrKeyDecode.New("url-safe branch: %v", err)
	}
	return raw, nil
}
