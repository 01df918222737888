package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	cases := map[string]bool{
		"y\n":    true,
		"YES\n":  true,
		"keep":   true,
		"n\n":    false,
		"\n":     false,
		"":       false,
		"deny\n": false,
	}
	for input, want := range cases {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(input), &out, "Keep? ")
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", input)
		assert.Equal(t, "Keep? ", out.String())
	}
}

func TestParseKind(t *testing.T) {
	kind, err := parseKind("notes")
	require.NoError(t, err)
	assert.Equal(t, "notes", string(kind))

	_, err = parseKind("secrets")
	require.Error(t, err)
}
