package fasign

import (
	"encoding/json"
	"errors"
	"strings"

	domainErrors "github.com/opendigger/pointgate/internal/domain/errors"
)

// ErrMalformedCallback means the callback body could not be interpreted.
// Malformed payloads are rejected before any record lookup.
var ErrMalformedCallback = errors.New("malformed callback payload")

// Outcome is the verified result a callback reports for a signing task.
type Outcome string

const (
	OutcomeUnknown Outcome = "unknown"
	OutcomeSigned  Outcome = "signed"
	OutcomeFailed  Outcome = "failed"
)

// Callback is a parsed, not yet verified provider notification.
type Callback struct {
	Correlator string
	Outcome    Outcome
}

// CallbackVerifier checks inbound callback signatures with the shared secret.
type CallbackVerifier struct {
	appSecret string
}

func NewCallbackVerifier(appSecret string) *CallbackVerifier {
	return &CallbackVerifier{appSecret: appSecret}
}

var signedCallbackHeaders = []string{
	HeaderAppID,
	HeaderSignType,
	HeaderTimestamp,
	HeaderNonce,
	HeaderSubVersion,
	HeaderAccessToken,
}

// Verify recomputes the signature over the declared header parameters plus
// bizContent and compares it in constant time. header yields a request
// header value by name.
func (v *CallbackVerifier) Verify(header func(string) string, bizContent string) error {
	declared := header(HeaderSign)
	if strings.TrimSpace(declared) == "" {
		return domainErrors.ErrSignatureVerification
	}

	params := make(map[string]string, len(signedCallbackHeaders)+1)
	for _, name := range signedCallbackHeaders {
		if value := header(name); value != "" {
			params[name] = value
		}
	}
	if bizContent != "" {
		params[paramBizContent] = bizContent
	}

	if !VerifySign(v.appSecret, params, declared) {
		return domainErrors.ErrSignatureVerification
	}
	return nil
}

type callbackEnvelope struct {
	Event            string            `json:"event"`
	Type             string            `json:"type"`
	Status           string            `json:"status"`
	SignStatus       string            `json:"signStatus"`
	Result           string            `json:"result"`
	SignResult       string            `json:"signResult"`
	TransReferenceID string            `json:"transReferenceId"`
	BizID            string            `json:"bizId"`
	Data             *callbackEnvelope `json:"data"`
}

var signedEvents = map[string]struct{}{
	"SIGN_FINISH":     {},
	"SIGN_FINISHED":   {},
	"SIGN_COMPLETE":   {},
	"SIGN_COMPLETED":  {},
	"CONTRACT_SIGNED": {},
}

var signedStatuses = map[string]struct{}{
	"SIGNED":    {},
	"COMPLETED": {},
	"FINISHED":  {},
	"SUCCESS":   {},
	"OK":        {},
}

var failedStatuses = map[string]struct{}{
	"FAILED":    {},
	"FAIL":      {},
	"REJECTED":  {},
	"CANCELLED": {},
	"CANCELED":  {},
}

// ParseCallback interprets the bizContent of a provider callback. The
// provider's exact payload schema varies per product configuration, so the
// parser accepts the known field spellings and falls back to OutcomeUnknown.
func ParseCallback(bizContent []byte) (*Callback, error) {
	if len(bizContent) == 0 {
		return nil, ErrMalformedCallback
	}

	var env callbackEnvelope
	if err := json.Unmarshal(bizContent, &env); err != nil {
		return nil, ErrMalformedCallback
	}

	nested := env.Data
	if nested == nil {
		nested = &callbackEnvelope{}
	}

	correlator := firstNonEmpty(env.TransReferenceID, env.BizID, nested.TransReferenceID, nested.BizID)
	if correlator == "" {
		return nil, ErrMalformedCallback
	}

	event := upper(firstNonEmpty(env.Event, env.Type, nested.Event, nested.Type))
	status := upper(firstNonEmpty(env.Status, env.SignStatus, nested.Status, nested.SignStatus))
	result := upper(firstNonEmpty(env.Result, env.SignResult, nested.Result, nested.SignResult))

	outcome := OutcomeUnknown
	if _, ok := failedStatuses[status]; ok {
		outcome = OutcomeFailed
	} else if isSigned(event, status, result) {
		outcome = OutcomeSigned
	}

	return &Callback{Correlator: correlator, Outcome: outcome}, nil
}

func isSigned(event, status, result string) bool {
	if _, ok := signedEvents[event]; ok {
		return true
	}
	if _, ok := signedStatuses[status]; ok {
		return true
	}
	_, ok := signedStatuses[result]
	return ok
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func upper(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}
