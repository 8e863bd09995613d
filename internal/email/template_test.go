package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSubstitutes(t *testing.T) {
	out := Render("Hello {{username}}, visit {{link}}.", map[string]string{
		"username": "alice",
		"link":     "https://example.com/verify",
	}, false)
	assert.Equal(t, "Hello alice, visit https://example.com/verify.", out)
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	out := Render("Hello {{username}}, code {{code}}.", map[string]string{
		"username": "alice",
	}, false)
	assert.Equal(t, "Hello alice, code {{code}}.", out)
}

func TestRenderEscapesValuesInHTML(t *testing.T) {
	data := map[string]string{"username": `<script>alert("x")</script>`}

	escaped := Render("<p>Hi {{username}}</p>", data, true)
	assert.Equal(t, "<p>Hi &lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;</p>", escaped)

	// Plain text bodies keep the raw value.
	plain := Render("Hi {{username}}", data, false)
	assert.Equal(t, `Hi <script>alert("x")</script>`, plain)
}

func TestRenderEmptyData(t *testing.T) {
	assert.Equal(t, "Hello {{username}}", Render("Hello {{username}}", nil, false))
}
