package model

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrEmptyDisplay = errors.New("display content is empty")

// Payload is the persistable form of a save. Exactly one of Data or
// SourceURL is set.
type Payload struct {
	Data        []byte
	ContentType string
	SourceURL   string
}

// ExtractPayload turns display content into something the store can keep.
// Data URLs and bare base64 are decoded; http(s) URLs are kept by reference.
func ExtractPayload(display string) (Payload, error) {
	display = strings.TrimSpace(display)
	if display == "" {
		return Payload{}, ErrEmptyDisplay
	}

	if strings.HasPrefix(display, "http://") || strings.HasPrefix(display, "https://") {
		return Payload{SourceURL: display}, nil
	}

	contentType := "image/png"
	encoded := display
	if strings.HasPrefix(display, "data:") {
		header, body, found := strings.Cut(display, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return Payload{}, errors.New("display content is not a base64 data URL")
		}
		contentType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		encoded = body
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Payload{}, err
	}
	return Payload{Data: data, ContentType: contentType}, nil
}
