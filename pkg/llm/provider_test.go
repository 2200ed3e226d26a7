package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageContentType(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

	assert.Equal(t, "image/webp", Image{MIMEType: "image/webp", Data: png}.ContentType())
	assert.Equal(t, "image/png", Image{Data: png}.ContentType())
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", Image{Data: png}.DataURL())
}
