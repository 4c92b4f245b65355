package license

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcceptAny(t *testing.T) {
	v := AcceptAny{}
	ctx := context.Background()

	assert.ErrorIs(t, v.Verify(ctx, "fp", ""), ErrEmptyToken)
	assert.NoError(t, v.Verify(ctx, "fp", "x"))
	assert.NoError(t, v.Verify(ctx, "other", " anything at all "))
}

func TestVerifierFunc(t *testing.T) {
	var gotFP, gotToken string
	v := VerifierFunc(func(ctx context.Context, fingerprint, token string) error {
		gotFP, gotToken = fingerprint, token
		return ErrRejected
	})

	err := v.Verify(context.Background(), "fp", "tok")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, "fp", gotFP)
	assert.Equal(t, "tok", gotToken)
}
