package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassificationPredicates(t *testing.T) {
	notFound := NotFound("Instagram profile '%s' not found.", "ghost")
	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsRateLimited(notFound))
	assert.Equal(t, 404, notFound.Code)

	rateLimited := RateLimited("Instagram responded with HTTP 429 Too Many Requests.")
	assert.True(t, IsRateLimited(rateLimited))
	assert.Equal(t, 429, rateLimited.Code)

	timeout := Timeout("connection failed: %v", "dial tcp")
	assert.True(t, IsTimeout(timeout))
	assert.Equal(t, 0, timeout.Code)
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("retrieval failed: %w", NotFound("gone"))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsNotFound(fmt.Errorf("plain failure")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(TypeTimeout))
	assert.True(t, IsRetryable(TypeUnexpected))
	assert.False(t, IsRetryable(TypeNotFound))
	assert.False(t, IsRetryable(TypeRateLimited))
}

func TestErrorFormatting(t *testing.T) {
	withCode := NotFound("gone")
	assert.Equal(t, "not_found error (code 404): gone", withCode.Error())

	withoutCode := Timeout("slow")
	assert.Equal(t, "timeout error: slow", withoutCode.Error())
}

func TestRuntimeError(t *testing.T) {
	err := &RuntimeError{Reasons: []string{"proxy a: timeout", "direct: refused"}}
	assert.True(t, IsRuntime(err))
	assert.Contains(t, err.Error(), "proxy a: timeout")
	assert.Contains(t, err.Error(), "direct: refused")

	empty := &RuntimeError{}
	assert.Equal(t, "profile retrieval failed: no data returned", empty.Error())

	assert.False(t, IsRuntime(NotFound("gone")))
}
