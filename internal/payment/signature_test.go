package payment

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server/internal/domain"
)

const testSecret = "whsec_test"

func signedHeader(body []byte, secret string, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, ComputeSignature(body, secret, ts))
}

func TestVerifySignatureValid(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{"id":"evt_1"}`)

	err := VerifySignature(body, signedHeader(body, testSecret, now), testSecret, DefaultTolerance, now)
	assert.NoError(t, err)
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{"id":"evt_1"}`)

	err := VerifySignature(body, signedHeader(body, "whsec_other", now), testSecret, DefaultTolerance, now)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestVerifySignatureTamperedBody(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{"id":"evt_1","credits":10}`)
	header := signedHeader(body, testSecret, now)

	tampered := []byte(`{"id":"evt_1","credits":9999}`)
	err := VerifySignature(tampered, header, testSecret, DefaultTolerance, now)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestVerifySignatureStaleTimestamp(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{"id":"evt_1"}`)
	header := signedHeader(body, testSecret, now.Add(-10*time.Minute))

	err := VerifySignature(body, header, testSecret, DefaultTolerance, now)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestVerifySignatureMalformedHeader(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{"id":"evt_1"}`)

	for _, header := range []string{"", "t=abc,v1=deadbeef", "v1=deadbeef", "t=1700000000"} {
		err := VerifySignature(body, header, testSecret, DefaultTolerance, now)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature, "header %q", header)
	}
}
