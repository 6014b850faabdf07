package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"oidcgate/pkg/platform/sentinel"
)

func TestValidateForConsumeWrapsSentinels(t *testing.T) {
	now := time.Now()
	base := AuthorizationCode{
		Code:        "c-1",
		RedirectURI: "https://app.example.com/callback",
		ExpiresAt:   now.Add(time.Minute),
	}

	expired := base
	expired.ExpiresAt = now.Add(-time.Minute)
	assert.True(t, errors.Is(expired.ValidateForConsume(base.RedirectURI, now), sentinel.ErrExpired))

	used := base
	used.MarkUsed()
	assert.True(t, errors.Is(used.ValidateForConsume(base.RedirectURI, now), sentinel.ErrAlreadyUsed))

	mismatched := base
	assert.True(t, errors.Is(mismatched.ValidateForConsume("https://evil.example.com/cb", now), sentinel.ErrInvalidState))

	ok := base
	assert.NoError(t, ok.ValidateForConsume(base.RedirectURI, now))
}
