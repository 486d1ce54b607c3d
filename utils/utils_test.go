package utils

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Circuit Breaker Tests

func TestCircuitBreaker_NewCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker("test")

	assert.Equal(t, "test", cb.Name())
	assert.Equal(t, uint32(100), cb.maxRequests)
	assert.Equal(t, 60*time.Second, cb.interval)
	assert.Equal(t, 60*time.Second, cb.timeout)
	assert.Equal(t, 0.6, cb.failureRatio)
	assert.Equal(t, StateClosed, cb.state)
}

func TestCircuitBreaker_ExecuteSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	expectedResult := "success"
	result, err := cb.Execute(ctx, func() (any, error) {
		return expectedResult, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, expectedResult, result)
	assert.Equal(t, StateClosed, cb.state)
	assert.Equal(t, uint32(1), cb.counts.Requests)
	assert.Equal(t, uint32(1), cb.counts.TotalSuccesses)
	assert.Equal(t, uint32(0), cb.counts.TotalFailures)
}

func TestCircuitBreaker_ExecuteFailure(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	expectedError := errors.New("test error")
	result, err := cb.Execute(ctx, func() (any, error) {
		return nil, expectedError
	})

	assert.Error(t, err)
	assert.Equal(t, expectedError, err)
	assert.Nil(t, result)
	assert.Equal(t, uint32(1), cb.counts.Requests)
	assert.Equal(t, uint32(0), cb.counts.TotalSuccesses)
	assert.Equal(t, uint32(1), cb.counts.TotalFailures)
}

func TestCircuitBreaker_ConcurrentExecute(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cb.Execute(ctx, func() (any, error) {
				return "ok", nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, uint32(50), cb.counts.Requests)
	assert.Equal(t, uint32(50), cb.counts.TotalSuccesses)
	assert.Equal(t, StateClosed, cb.state)
}

// Code Generation Tests

func TestGenerateCode(t *testing.T) {
	code1, err := GenerateCode(8)
	assert.NoError(t, err)
	assert.Len(t, code1, 16)
	assert.Equal(t, strings.ToUpper(code1), code1)

	code2, err := GenerateCode(8)
	assert.NoError(t, err)
	assert.NotEqual(t, code1, code2)
}

func TestGenerateTicketCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[23456789ABCDEFGHJKMNPQRSTUVWXYZ]{4}-[23456789ABCDEFGHJKMNPQRSTUVWXYZ]{4}-[23456789ABCDEFGHJKMNPQRSTUVWXYZ]{4}$`)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := GenerateTicketCode()
		assert.NoError(t, err)
		assert.Regexp(t, pattern, code)
		assert.False(t, seen[code], "generated duplicate %s", code)
		seen[code] = true
	}
}

func TestGenerateTicketCode_AvoidsAmbiguousCharacters(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateTicketCode()
		assert.NoError(t, err)
		for _, c := range []string{"0", "O", "1", "I", "L"} {
			assert.NotContains(t, strings.ReplaceAll(code, "-", ""), c)
		}
	}
}

func TestNormalizeTicketCode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already normalized", "7GJK-Q2MN-XW4B", "7GJK-Q2MN-XW4B"},
		{"lowercase", "7gjk-q2mn-xw4b", "7GJK-Q2MN-XW4B"},
		{"surrounding whitespace", "  7GJK-Q2MN-XW4B\n", "7GJK-Q2MN-XW4B"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTicketCode(tt.input))
		})
	}
}
