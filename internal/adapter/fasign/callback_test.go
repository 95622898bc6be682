package fasign

import (
	"errors"
	"testing"

	domainErrors "github.com/opendigger/pointgate/internal/domain/errors"
)

func TestParseCallbackOutcomes(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    Outcome
	}{
		{"sign finished event", `{"event":"SIGN_FINISHED","transReferenceId":"c-1"}`, OutcomeSigned},
		{"contract signed event", `{"type":"contract_signed","transReferenceId":"c-1"}`, OutcomeSigned},
		{"signed status", `{"status":"SIGNED","transReferenceId":"c-1"}`, OutcomeSigned},
		{"success result", `{"signResult":"success","transReferenceId":"c-1"}`, OutcomeSigned},
		{"rejected", `{"status":"REJECTED","transReferenceId":"c-1"}`, OutcomeFailed},
		{"cancelled either spelling", `{"signStatus":"CANCELED","transReferenceId":"c-1"}`, OutcomeFailed},
		{"failed wins over signed event", `{"event":"SIGN_FINISH","status":"FAILED","transReferenceId":"c-1"}`, OutcomeFailed},
		{"unrecognized", `{"event":"SEAL_APPLIED","transReferenceId":"c-1"}`, OutcomeUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			callback, err := ParseCallback([]byte(tc.payload))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if callback.Outcome != tc.want {
				t.Errorf("outcome = %s, want %s", callback.Outcome, tc.want)
			}
			if callback.Correlator != "c-1" {
				t.Errorf("correlator = %s", callback.Correlator)
			}
		})
	}
}

func TestParseCallbackNestedCorrelator(t *testing.T) {
	payload := `{"event":"SIGN_FINISHED","data":{"bizId":"c-9","status":"SIGNED"}}`
	callback, err := ParseCallback([]byte(payload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if callback.Correlator != "c-9" {
		t.Errorf("correlator = %s", callback.Correlator)
	}
	if callback.Outcome != OutcomeSigned {
		t.Errorf("outcome = %s", callback.Outcome)
	}
}

func TestParseCallbackMalformed(t *testing.T) {
	for _, payload := range []string{"", "not json", `{"event":"SIGN_FINISHED"}`} {
		if _, err := ParseCallback([]byte(payload)); !errors.Is(err, ErrMalformedCallback) {
			t.Errorf("payload %q: expected ErrMalformedCallback, got %v", payload, err)
		}
	}
}

func callbackHeaders(t *testing.T, secret, bizContent string) map[string]string {
	t.Helper()
	headers := map[string]string{
		HeaderAppID:      "app-1",
		HeaderSignType:   SignType,
		HeaderTimestamp:  "1700000000000",
		HeaderNonce:      "00000000000000000000000000000001",
		HeaderSubVersion: APISubVersion,
	}
	params := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		params[k] = v
	}
	params[paramBizContent] = bizContent
	sig, err := Sign(secret, params)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	headers[HeaderSign] = sig
	return headers
}

func TestCallbackVerifierAccepts(t *testing.T) {
	bizContent := `{"status":"SIGNED","transReferenceId":"c-1"}`
	headers := callbackHeaders(t, "secret", bizContent)

	verifier := NewCallbackVerifier("secret")
	if err := verifier.Verify(func(name string) string { return headers[name] }, bizContent); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestCallbackVerifierRejects(t *testing.T) {
	bizContent := `{"status":"SIGNED","transReferenceId":"c-1"}`
	headers := callbackHeaders(t, "secret", bizContent)
	verifier := NewCallbackVerifier("secret")

	tampered := `{"status":"SIGNED","transReferenceId":"c-2"}`
	if err := verifier.Verify(func(name string) string { return headers[name] }, tampered); !errors.Is(err, domainErrors.ErrSignatureVerification) {
		t.Errorf("tampered content: expected ErrSignatureVerification, got %v", err)
	}

	wrong := NewCallbackVerifier("other-secret")
	if err := wrong.Verify(func(name string) string { return headers[name] }, bizContent); !errors.Is(err, domainErrors.ErrSignatureVerification) {
		t.Errorf("wrong secret: expected ErrSignatureVerification, got %v", err)
	}

	noSig := func(name string) string {
		if name == HeaderSign {
			return ""
		}
		return headers[name]
	}
	if err := verifier.Verify(noSig, bizContent); !errors.Is(err, domainErrors.ErrSignatureVerification) {
		t.Errorf("missing signature: expected ErrSignatureVerification, got %v", err)
	}
}
