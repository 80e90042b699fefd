package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureLocation = "https://docs.renovatebot.com/renovate-schema.json"

func loadFixture(t *testing.T) []byte {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", "renovate-schema.json"))
	require.NoError(t, err)
	return raw
}

func compileFixture(t *testing.T) *Validator {
	t.Helper()
	v, err := Compile(fixtureLocation, loadFixture(t))
	require.NoError(t, err)
	return v
}

func messages(violations []Violation) string {
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		parts = append(parts, v.Message)
	}
	return strings.Join(parts, " ")
}

func TestCompile(t *testing.T) {
	t.Run("Should compile a draft-04 schema", func(t *testing.T) {
		v := compileFixture(t)

		assert.Equal(t, fixtureLocation, v.Location())
		doc, ok := v.Document().(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "JSON schema for Renovate config files", doc["title"])
	})

	t.Run("Should fail on malformed JSON", func(t *testing.T) {
		_, err := Compile(fixtureLocation, []byte(`{"type":`))

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSchemaCompile)
	})

	t.Run("Should fail on a document that is not a valid schema", func(t *testing.T) {
		_, err := Compile(fixtureLocation, []byte(`{"type": 12}`))

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSchemaCompile)
	})
}

func TestValidator_Validate(t *testing.T) {
	v := compileFixture(t)

	t.Run("Should accept an empty object", func(t *testing.T) {
		result := v.Validate(map[string]any{})

		assert.True(t, result.Valid)
		assert.Empty(t, result.Violations)
	})

	t.Run("Should treat a nil document as an empty object", func(t *testing.T) {
		assert.True(t, v.Validate(nil).Valid)
	})

	t.Run("Should accept extends as an array of strings", func(t *testing.T) {
		result := v.Validate(map[string]any{"extends": []any{"config:base"}})

		assert.True(t, result.Valid)
	})

	t.Run("Should report every oneOf branch for a wrong extends type", func(t *testing.T) {
		result := v.Validate(map[string]any{"extends": 123, "invalidField": "not allowed"})

		require.False(t, result.Valid)
		require.GreaterOrEqual(t, len(result.Violations), 3)
		for _, violation := range result.Violations {
			assert.Equal(t, "/extends", violation.Path)
		}
		text := messages(result.Violations)
		assert.Contains(t, text, "want array")
		assert.Contains(t, text, "want string")
		assert.Equal(t, "oneOf", result.Violations[len(result.Violations)-1].Keyword)
	})

	t.Run("Should report violations on several paths", func(t *testing.T) {
		result := v.Validate(map[string]any{
			"prHourlyLimit":   -1,
			"semanticCommits": "sometimes",
		})

		require.False(t, result.Valid)
		paths := make([]string, 0, len(result.Violations))
		for _, violation := range result.Violations {
			paths = append(paths, violation.Path)
		}
		assert.Contains(t, paths, "/prHourlyLimit")
		assert.Contains(t, paths, "/semanticCommits")
	})

	t.Run("Should point into nested arrays", func(t *testing.T) {
		result := v.Validate(map[string]any{
			"packageRules": []any{
				map[string]any{"enabled": true},
				map[string]any{"enabled": "yes"},
			},
		})

		require.False(t, result.Valid)
		assert.Equal(t, "/packageRules/1/enabled", result.Violations[0].Path)
		assert.Equal(t, "type", result.Violations[0].Keyword)
	})

	t.Run("Should reject a non object document", func(t *testing.T) {
		result := v.Validate([]any{"config:base"})

		require.False(t, result.Valid)
		assert.Equal(t, "", result.Violations[0].Path)
	})

	t.Run("Should not mutate the document", func(t *testing.T) {
		doc := map[string]any{"extends": []any{"config:base"}, "labels": 7}

		v.Validate(doc)

		assert.Equal(t, map[string]any{"extends": []any{"config:base"}, "labels": 7}, doc)
	})
}

func TestInstancePath(t *testing.T) {
	t.Run("Should escape JSON pointer tokens", func(t *testing.T) {
		assert.Equal(t, "", instancePath(nil))
		assert.Equal(t, "/a~1b/c~0d/0", instancePath([]string{"a/b", "c~d", "0"}))
	})
}
