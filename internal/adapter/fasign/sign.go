package fasign

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OpenAPI v5 wire constants.
const (
	APISubVersion = "5.1"
	SignType      = "HMAC-SHA256"

	HeaderAppID       = "X-FASC-App-Id"
	HeaderSignType    = "X-FASC-Sign-Type"
	HeaderTimestamp   = "X-FASC-Timestamp"
	HeaderNonce       = "X-FASC-Nonce"
	HeaderSubVersion  = "X-FASC-Api-SubVersion"
	HeaderAccessToken = "X-FASC-AccessToken"
	HeaderGrantType   = "X-FASC-Grant-Type"
	HeaderSign        = "X-FASC-Sign"

	paramBizContent = "bizContent"
)

// ErrMissingTimestamp means the caller forgot the mandatory timestamp
// parameter. This is a programming error, not a runtime fallback.
var ErrMissingTimestamp = errors.New("timestamp parameter is required for signature generation")

// Sign computes the provider signature over the parameter map:
// empty params are dropped, keys sorted ascending, joined as k=v&k2=v2,
// signText = hex(SHA-256(joined)), secretSigning = HMAC-SHA256(appSecret,
// timestamp), signature = lowercase hex of HMAC-SHA256(secretSigning, signText).
func Sign(appSecret string, params map[string]string) (string, error) {
	timestamp := strings.TrimSpace(params[HeaderTimestamp])
	if timestamp == "" {
		return "", ErrMissingTimestamp
	}

	keys := make([]string, 0, len(params))
	for key, value := range params {
		if strings.TrimSpace(value) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, params[key]))
	}
	joined := strings.Join(pairs, "&")

	signTextSum := sha256.Sum256([]byte(joined))
	signText := hex.EncodeToString(signTextSum[:])

	secretMac := hmac.New(sha256.New, []byte(appSecret))
	secretMac.Write([]byte(timestamp))
	secretSigning := secretMac.Sum(nil)

	sigMac := hmac.New(sha256.New, secretSigning)
	sigMac.Write([]byte(signText))
	return hex.EncodeToString(sigMac.Sum(nil)), nil
}

// VerifySign recomputes the signature and compares it in constant time.
func VerifySign(appSecret string, params map[string]string, declared string) bool {
	expected, err := Sign(appSecret, params)
	if err != nil {
		return false
	}
	got := strings.ToLower(strings.TrimSpace(declared))
	return hmac.Equal([]byte(expected), []byte(got))
}

func nowMillis() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

var nonceLimit = new(big.Int).Exp(big.NewInt(10), big.NewInt(32), nil)

// newNonce returns a 32-digit numeric string from a crypto-secure source.
func newNonce() string {
	n, err := rand.Int(rand.Reader, nonceLimit)
	if err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return fmt.Sprintf("%032d", n)
}
