package provider

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestClassifyOpenAI(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{
			name: "quota code",
			err:  &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Code: "insufficient_quota"},
			want: QuotaExceeded,
		},
		{
			name: "quota type",
			err:  &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Type: "insufficient_quota"},
			want: QuotaExceeded,
		},
		{
			name: "rate limited",
			err:  &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Code: "rate_limit_exceeded"},
			want: RateLimited,
		},
		{
			name: "bad key",
			err:  fmt.Errorf("chat: %w", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized}),
			want: AuthenticationFailed,
		},
		{
			name: "request error",
			err:  &openai.RequestError{HTTPStatusCode: http.StatusBadGateway, Err: errors.New("bad gateway")},
			want: NetworkError,
		},
		{
			name: "transport",
			err:  errors.New("dial tcp: connection refused"),
			want: NetworkError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyOpenAI(tt.err))
		})
	}
}
