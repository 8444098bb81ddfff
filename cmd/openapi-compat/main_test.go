package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baselineYAML = `
swagger: "2.0"
paths:
  /posts:
    parameters:
      - name: q
        in: query
    get:
      responses:
        200:
          description: OK
  /posts/{id}/like:
    post:
      responses:
        "201":
          description: Liked
        "404":
          description: Not Found
`

func TestParse_YAMLWithIntegerCodes(t *testing.T) {
	s, err := parse([]byte(baselineYAML))
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"200": true}, s["/posts"]["get"])
	assert.NotContains(t, s["/posts"], "parameters")
	assert.Equal(t, map[string]bool{"201": true, "404": true}, s["/posts/{id}/like"]["post"])
}

func TestParse_MissingPaths(t *testing.T) {
	_, err := parse([]byte(`swagger: "2.0"`))
	assert.Error(t, err)
}

func TestBreakingChanges(t *testing.T) {
	base, err := parse([]byte(baselineYAML))
	require.NoError(t, err)

	revision, err := parse([]byte(`{"paths": {"/posts/{id}/like": {"post": {"responses": {"201": {}}}}}}`))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"removed path: /posts",
		"removed response code: POST /posts/{id}/like -> 404",
	}, breakingChanges(base, revision))

	assert.Empty(t, breakingChanges(base, base))
}

func TestBuiltinDocumentCoversBaseline(t *testing.T) {
	doc, err := builtin()
	require.NoError(t, err)

	base, err := parse([]byte(baselineYAML))
	require.NoError(t, err)
	assert.Empty(t, breakingChanges(base, doc))
	assert.Contains(t, doc, "/users/{userId}/likes")
}
