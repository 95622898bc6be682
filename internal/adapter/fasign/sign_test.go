package fasign

import (
	"errors"
	"strings"
	"testing"
)

func baseParams() map[string]string {
	return map[string]string{
		HeaderAppID:      "app-1",
		HeaderSignType:   SignType,
		HeaderTimestamp:  "1700000000000",
		HeaderNonce:      "12345678901234567890123456789012",
		HeaderSubVersion: APISubVersion,
		paramBizContent:  `{"taskId":"t-1"}`,
	}
}

func TestSignDeterministic(t *testing.T) {
	first, err := Sign("secret", baseParams())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	second, err := Sign("secret", baseParams())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if first != second {
		t.Errorf("signature not deterministic: %s vs %s", first, second)
	}
}

func TestSignIsLowercaseHex(t *testing.T) {
	sig, err := Sign("secret", baseParams())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(sig) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(sig))
	}
	if sig != strings.ToLower(sig) {
		t.Errorf("signature must be lowercase: %s", sig)
	}
	for _, c := range sig {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Fatalf("non-hex character %q in signature", c)
		}
	}
}

func TestSignDropsBlankParams(t *testing.T) {
	withBlank := baseParams()
	withBlank[HeaderAccessToken] = ""
	withBlank["X-FASC-Extra"] = "   "

	plain, err := Sign("secret", baseParams())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	blanked, err := Sign("secret", withBlank)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if plain != blanked {
		t.Errorf("blank params must not change the signature")
	}
}

func TestSignSensitiveToValues(t *testing.T) {
	plain, err := Sign("secret", baseParams())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	changed := baseParams()
	changed[paramBizContent] = `{"taskId":"t-2"}`
	other, err := Sign("secret", changed)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if plain == other {
		t.Errorf("different bizContent produced the same signature")
	}

	otherSecret, err := Sign("another-secret", baseParams())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if plain == otherSecret {
		t.Errorf("different secret produced the same signature")
	}
}

func TestSignRequiresTimestamp(t *testing.T) {
	params := baseParams()
	delete(params, HeaderTimestamp)
	if _, err := Sign("secret", params); !errors.Is(err, ErrMissingTimestamp) {
		t.Fatalf("expected ErrMissingTimestamp, got %v", err)
	}

	params[HeaderTimestamp] = "   "
	if _, err := Sign("secret", params); !errors.Is(err, ErrMissingTimestamp) {
		t.Fatalf("expected ErrMissingTimestamp for blank timestamp, got %v", err)
	}
}

func TestVerifySignRoundTrip(t *testing.T) {
	params := baseParams()
	sig, err := Sign("secret", params)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if !VerifySign("secret", params, sig) {
		t.Errorf("valid signature rejected")
	}
	if !VerifySign("secret", params, strings.ToUpper(sig)) {
		t.Errorf("case difference in declared signature must not matter")
	}
	if VerifySign("secret", params, sig[:63]+"0") {
		t.Errorf("tampered signature accepted")
	}
	if VerifySign("wrong", params, sig) {
		t.Errorf("signature accepted with wrong secret")
	}

	params[paramBizContent] = `{"taskId":"tampered"}`
	if VerifySign("secret", params, sig) {
		t.Errorf("signature accepted for tampered content")
	}
}

func TestNewNonceFormat(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 16; i++ {
		nonce := newNonce()
		if len(nonce) != 32 {
			t.Fatalf("expected 32 digits, got %d (%s)", len(nonce), nonce)
		}
		for _, c := range nonce {
			if c < '0' || c > '9' {
				t.Fatalf("nonce must be numeric: %s", nonce)
			}
		}
		seen[nonce] = struct{}{}
	}
	if len(seen) < 2 {
		t.Errorf("nonces are not random")
	}
}
