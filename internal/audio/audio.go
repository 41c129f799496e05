// Package audio holds the small helpers shared by synthesis providers and the
// HTTP layer: transport encoding and a cheap "is this audio" check.
package audio

import (
	"bytes"
	"encoding/base64"
)

const (
	FormatMP3 = "mp3"
	FormatWAV = "wav"
)

// minUnsignedSize is the size above which unrecognized bytes are still
// accepted as audio.
const minUnsignedSize = 1024

// ContentType returns the MIME type for a format tag.
func ContentType(format string) string {
	switch format {
	case FormatWAV:
		return "audio/wav"
	case FormatMP3:
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}

// Encode returns the base64 transport form of audio. Empty audio encodes to "".
func Encode(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode.
func Decode(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

// Valid reports whether data plausibly holds WAV or MP3 audio.
func Valid(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
		return true
	}
	if bytes.HasPrefix(data, []byte("ID3")) {
		return true
	}
	// MPEG frame sync: 11 set bits.
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return true
	}
	return len(data) > minUnsignedSize
}
