package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
)

// ErrInvalidSignature is deliberately generic; callers must not learn which
// part of the verification failed.
var ErrInvalidSignature = errors.New("invalid signature")

// SignatureVerifier checks the two HMAC contracts of the payment flow: the
// client-reported confirmation signature and the gateway webhook signature.
type SignatureVerifier struct {
	keySecret       []byte
	webhookSecret   []byte
	allowUnverified bool
	logger          *slog.Logger
}

func NewSignatureVerifier(keySecret, webhookSecret string, allowUnverified bool, logger *slog.Logger) *SignatureVerifier {
	if webhookSecret == "" && allowUnverified {
		logger.Warn("webhook signature verification is disabled; all webhook events will be accepted unverified")
	}
	return &SignatureVerifier{
		keySecret:       []byte(keySecret),
		webhookSecret:   []byte(webhookSecret),
		allowUnverified: allowUnverified,
		logger:          logger,
	}
}

// VerifyClientConfirmation checks the signature the client relays after
// completing checkout. The gateway documents it as
// HMAC-SHA256(orderID|paymentID, keySecret), hex encoded.
func (v *SignatureVerifier) VerifyClientConfirmation(gatewayOrderID, gatewayPaymentID, signature string) error {
	payload := gatewayOrderID + "|" + gatewayPaymentID
	return verify(v.keySecret, []byte(payload), signature)
}

// VerifyWebhook checks the signature header against the exact raw request
// body. With no webhook secret configured and unverified acceptance enabled,
// every event passes; each acceptance is logged.
func (v *SignatureVerifier) VerifyWebhook(rawBody []byte, signature string) error {
	if len(v.webhookSecret) == 0 {
		if v.allowUnverified {
			v.logger.Warn("accepting webhook event without signature verification")
			return nil
		}
		return ErrInvalidSignature
	}
	return verify(v.webhookSecret, rawBody, signature)
}

func verify(secret, payload []byte, signature string) error {
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	// hmac.Equal is constant time over the full value.
	if !hmac.Equal(expected, provided) {
		return ErrInvalidSignature
	}
	return nil
}

// SignPayload computes the hex HMAC-SHA256 of payload under secret. Used by
// tests and by the gateway simulator tooling.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
