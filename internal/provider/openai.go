package provider

import (
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ClassifyOpenAI maps go-openai errors to an ErrorKind. It serves every
// OpenAI-compatible backend, chat and speech alike.
func ClassifyOpenAI(err error) ErrorKind {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Type == "insufficient_quota" || fmt.Sprint(apiErr.Code) == "insufficient_quota" {
			return QuotaExceeded
		}
		return ClassifyStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return ClassifyStatus(reqErr.HTTPStatusCode)
	}

	return ClassifyTransport(err)
}
