package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/nikhilbhutani/voiceover/internal/llm"
	"github.com/nikhilbhutani/voiceover/internal/prompt"
)

var errEmptyScript = errors.New("response was empty after removing preamble")

// TextTransformStage cleans, and when needed translates, a transcript.
type TextTransformStage struct {
	chain *llm.Chain
}

// NewTextTransformStage wraps chain so that every provider reply has its
// preamble stripped; a reply that is nothing but preamble counts as a
// malformed response and the chain moves on.
func NewTextTransformStage(chain *llm.Chain) *TextTransformStage {
	return &TextTransformStage{chain: chain.WithPostprocess(stripReply)}
}

func stripReply(resp *llm.ChatResponse) (*llm.ChatResponse, error) {
	text := prompt.StripPreamble(resp.Content)
	if text == "" {
		return nil, errEmptyScript
	}
	out := *resp
	out.Content = text
	return &out, nil
}

// Clean returns the cleaned script. Whitespace-only transcripts return an
// empty script without calling any provider.
func (s *TextTransformStage) Clean(ctx context.Context, transcript, targetLanguage string) (*CleanedScript, error) {
	language := prompt.NormalizeLanguage(targetLanguage)
	if strings.TrimSpace(transcript) == "" {
		return &CleanedScript{TargetLanguage: language}, nil
	}

	res, err := s.chain.Run(ctx, llm.ChatRequest{Messages: []llm.Message{
		{Role: "system", Content: prompt.System},
		{Role: "user", Content: prompt.User(transcript, language)},
	}})
	if err != nil {
		return nil, err
	}

	return &CleanedScript{
		Text:           res.Value.Content,
		WasTranslated:  prompt.NeedsTranslation(language),
		TargetLanguage: language,
		Provider:       res.Provider,
		Model:          res.Value.Model,
		CostUSD:        res.Value.CostUSD,
		Attempts:       res.Attempts,
	}, nil
}
