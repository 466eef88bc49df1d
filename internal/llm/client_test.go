package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderForModel(t *testing.T) {
	assert.Equal(t, ProviderGemini, providerForModel("gemini-2.0-flash"))
	assert.Equal(t, ProviderOpenAI, providerForModel("gpt-4o-mini"))
	assert.Equal(t, ProviderOpenAI, providerForModel(""))
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("rate limit exceeded"), true},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("RESOURCE_EXHAUSTED: quota"), true},
		{errors.New("context deadline exceeded (timeout)"), true},
		{errors.New("invalid api key"), false},
		{errors.New("content filtered"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, isTransient(tc.err), "err=%v", tc.err)
	}
}
