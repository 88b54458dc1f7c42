package goextract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goextract "github.com/soundprediction/go-extract"
)

func TestResolverFlatArrayOfStrings(t *testing.T) {
	reply := "```yaml\n- Alice\n- Bob\n- Charlie\n```"
	r := goextract.NewResolver(goextract.FormatYAML, true)

	got, err := r.Resolve(reply, false)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Alice", got[0].Text)
	assert.Equal(t, "Bob", got[1].Text)
	assert.Equal(t, "Charlie", got[2].Text)
	for _, e := range got {
		assert.Contains(t, e.Class, "text")
		assert.Equal(t, 0, e.GroupIndex)
	}
}

func TestResolverStructuredWithExplicitIndex(t *testing.T) {
	reply := "```yaml\nextractions:\n  - person: Alice\n    person_index: 1\n  - person: Bob\n    person_index: 2\n```"
	r := goextract.NewResolver(goextract.FormatYAML, true)

	got, err := r.Resolve(reply, false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[0].Text)
	assert.Equal(t, "Bob", got[1].Text)
	assert.Equal(t, "person", got[0].Class)
}

func TestResolverCategoryForm(t *testing.T) {
	reply := "```yaml\nextractions:\n  - person: Alice\n    place: Paris\n```"
	r := goextract.NewResolver(goextract.FormatYAML, true)

	got, err := r.Resolve(reply, false)
	require.NoError(t, err)
	require.Len(t, got, 2)

	classes := map[string]string{}
	for _, e := range got {
		classes[e.Class] = e.Text
	}
	assert.Equal(t, "Alice", classes["person"])
	assert.Equal(t, "Paris", classes["place"])
}

func TestResolverCategoryMap(t *testing.T) {
	reply := "```yaml\nperson:\n  - Alice\n  - Bob\nplace: Paris\n```"
	r := goextract.NewResolver(goextract.FormatYAML, true)

	got, err := r.Resolve(reply, false)
	require.NoError(t, err)
	require.Len(t, got, 3)

	var people []string
	var places []string
	for _, e := range got {
		switch e.Class {
		case "person":
			people = append(people, e.Text)
		case "place":
			places = append(places, e.Text)
		}
	}
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, people)
	assert.Equal(t, []string{"Paris"}, places)
}

func TestResolverMissingFence(t *testing.T) {
	r := goextract.NewResolver(goextract.FormatYAML, true)
	_, err := r.Resolve("no fences here", false)
	assert.Error(t, err)
}

func TestResolverSuppressParseErrors(t *testing.T) {
	r := goextract.NewResolver(goextract.FormatYAML, true)
	got, err := r.Resolve("no fences here", true)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolverJSONRepairFallback(t *testing.T) {
	// Trailing comma and a missing closing brace: invalid strict JSON.
	reply := "```json\n{\"extractions\": [{\"extraction_class\": \"person\", \"extraction_text\": \"Alice\",}]\n```"
	r := goextract.NewResolver(goextract.FormatJSON, true)

	got, err := r.Resolve(reply, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].Text)
	assert.Equal(t, "person", got[0].Class)
}

func TestResolverAttributesAndListAttribute(t *testing.T) {
	reply := "```yaml\nextractions:\n  - person: Alice\n    person_attributes:\n      role: [doctor, researcher]\n```"
	r := goextract.NewResolver(goextract.FormatYAML, true)

	got, err := r.Resolve(reply, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Attributes)

	roleAttr, ok := got[0].Attributes["role"]
	require.True(t, ok)
	list, isList := roleAttr.List()
	require.True(t, isList)
	assert.Equal(t, []string{"doctor", "researcher"}, list)
}
