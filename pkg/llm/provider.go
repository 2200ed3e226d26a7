// Package llm holds the types shared by the vision model integrations that
// turn an image into alt text.
//
// Example usage:
//
//	engine, err := openai.NewProvider(os.Getenv("OPENAI_API_KEY"), openai.WithModel("gpt-4o-mini"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	text, err := engine.Describe(ctx, llm.Image{URL: src, MIMEType: "image/png", Data: data})
package llm

import (
	"context"
	"encoding/base64"
	"net/http"
)

// DefaultPrompt asks a vision model for alt text.
const DefaultPrompt = "Write alt text for this image for a screen reader user. " +
	"Reply with one plain sentence of at most 125 characters. " +
	"Do not start with \"image of\" or \"picture of\" and do not add quotes."

// Image is a fetched image handed to a model.
type Image struct {
	// URL is where the image was fetched from.
	URL string
	// MIMEType of Data; sniffed from the bytes when empty.
	MIMEType string
	Data     []byte
}

// ContentType returns MIMEType, sniffing Data when it is unset.
func (i Image) ContentType() string {
	if i.MIMEType != "" {
		return i.MIMEType
	}
	return http.DetectContentType(i.Data)
}

// DataURL encodes the image as a data: URL.
func (i Image) DataURL() string {
	return "data:" + i.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Describer produces a short description of an image.
//
// Implementations return the model's raw text; callers sanitize it before
// it reaches a page.
type Describer interface {
	// Name identifies the engine in logs and configuration ("openai", "gemini").
	Name() string

	// Describe returns a description of img.
	Describe(ctx context.Context, img Image) (string, error)
}
