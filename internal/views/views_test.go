package views

import (
	"bytes"
	"testing"
	"time"

	"til/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New("my til")
	require.NoError(t, err)
	return r
}

func TestIndex(t *testing.T) {
	r := newRenderer(t)
	posts := []models.Post{
		{
			ID:      2,
			Text:    "Learned **goroutines**",
			Created: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
			Tags:    []models.Tag{{ID: 1, Text: "go"}, {ID: 2, Text: "rust"}},
		},
		{ID: 1, Text: "untagged", Created: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	require.NoError(t, r.Index(&buf, posts))
	out := buf.String()

	assert.Contains(t, out, "<title>my til</title>")
	assert.Contains(t, out, `<form method="post" action="/">`)
	assert.Contains(t, out, `name="text"`)
	assert.Contains(t, out, `name="tags"`)
	assert.Contains(t, out, "<strong>goroutines</strong>")
	assert.Contains(t, out, "<li>go</li>")
	assert.Contains(t, out, "<li>rust</li>")
	assert.Contains(t, out, "2024-03-02")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("post-2")), bytes.Index(buf.Bytes(), []byte("post-1")))
}

func TestIndex_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newRenderer(t).Index(&buf, nil))
	assert.Contains(t, buf.String(), "nothing yet")
}

func TestIndex_RawHTMLNotRendered(t *testing.T) {
	var buf bytes.Buffer
	posts := []models.Post{{ID: 1, Text: "<script>alert(1)</script>", Created: time.Now()}}
	require.NoError(t, newRenderer(t).Index(&buf, posts))
	assert.NotContains(t, buf.String(), "<script>alert(1)</script>")
}

func TestIndex_TagTextEscaped(t *testing.T) {
	var buf bytes.Buffer
	posts := []models.Post{{ID: 1, Text: "x", Created: time.Now(), Tags: []models.Tag{{Text: "<b>"}}}}
	require.NoError(t, newRenderer(t).Index(&buf, posts))
	assert.Contains(t, buf.String(), "<li>&lt;b&gt;</li>")
}

func TestAuthn(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newRenderer(t).Authn(&buf))
	assert.Contains(t, buf.String(), `action="/duo"`)
	assert.Contains(t, buf.String(), `name="username"`)
}

func TestDuo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newRenderer(t).Duo(&buf, "api-x.duosecurity.com", "TX|abc|def:APP|ghi|jkl", "/duo_validate"))
	out := buf.String()
	assert.Contains(t, out, `data-host="api-x.duosecurity.com"`)
	assert.Contains(t, out, `data-sig-request="TX|abc|def:APP|ghi|jkl"`)
	assert.Contains(t, out, `data-post-action="/duo_validate"`)
}

func TestGreeting(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newRenderer(t).Greeting(&buf, "<author>"))
	assert.Contains(t, buf.String(), "hello, &lt;author&gt;")
	assert.Contains(t, buf.String(), "my til")
}
