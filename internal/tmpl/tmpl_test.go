package tmpl

import (
	"testing"

	"github.com/eeu479/proxyman-helper/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestActiveValues_PrefersActiveVariant(t *testing.T) {
	block := model.Block{
		ActiveVariantID: strPtr("v2"),
		TemplateVariants: []model.TemplateVariant{
			{ID: "v1", Values: []model.TemplateValue{{Key: "name", Value: "one"}}},
			{ID: "v2", Values: []model.TemplateValue{{Key: "name", Value: "two"}}},
		},
		TemplateValues: []model.TemplateValue{{Key: "name", Value: "fallback"}},
	}
	values := ActiveValues(block)
	assert.Equal(t, []model.TemplateValue{{Key: "name", Value: "two"}}, values)
}

func TestActiveValues_FallsBackToFirstVariant(t *testing.T) {
	block := model.Block{
		TemplateVariants: []model.TemplateVariant{
			{ID: "v1", Values: []model.TemplateValue{{Key: "name", Value: "one"}}},
		},
	}
	assert.Equal(t, "one", ActiveValues(block)[0].Value)
}

func TestActiveValues_FallsBackToTopLevel(t *testing.T) {
	block := model.Block{TemplateValues: []model.TemplateValue{{Key: "name", Value: "top"}}}
	assert.Equal(t, "top", ActiveValues(block)[0].Value)
}

func TestMergedValues_PathParamDoesNotShadowActiveValue(t *testing.T) {
	match := model.BlockMatch{
		Block: model.Block{TemplateValues: []model.TemplateValue{{Key: "id", Value: "explicit"}}},
		ExtractedParams: map[string]string{
			"id":   "from-path",
			"name": "captured",
		},
	}
	values := MergedValues(match)

	byKey := map[string]string{}
	for _, v := range values {
		byKey[v.Key] = v.Value
	}
	assert.Equal(t, "explicit", byKey["id"])
	assert.Equal(t, "captured", byKey["name"])
}

func TestRender_SequentialSubstitutionIsNotRescanned(t *testing.T) {
	values := []model.TemplateValue{
		{Key: "a", Value: "{{b}}"},
		{Key: "b", Value: "final"},
	}
	got := Render("{{a}}", values)
	assert.Equal(t, "{{b}}", got)
}

func TestRender_SkipsEmptyKeys(t *testing.T) {
	values := []model.TemplateValue{{Key: "", Value: "ignored"}}
	assert.Equal(t, "{{}}", Render("{{}}", values))
}

func TestSubstitutionString_ArrayFiltersDisabledEntries(t *testing.T) {
	v := model.TemplateValue{
		ValueType: "array",
		Value:     `[{"v":"a","e":true},{"v":"b","e":false},{"v":"c"}]`,
	}
	assert.Equal(t, `["a","c"]`, substitutionString(v))
}

func TestSubstitutionString_ArrayOfPlainStrings(t *testing.T) {
	v := model.TemplateValue{ValueType: "array", Value: `["x","y"]`}
	assert.Equal(t, `["x","y"]`, substitutionString(v))
}

func TestSubstitutionString_EmptyArrayValue(t *testing.T) {
	v := model.TemplateValue{ValueType: "array", Value: "   "}
	assert.Equal(t, "[]", substitutionString(v))
}

func TestSubstitutionString_MalformedArrayFallsBackToRaw(t *testing.T) {
	v := model.TemplateValue{ValueType: "array", Value: "not-json"}
	assert.Equal(t, "not-json", substitutionString(v))
}

func TestNormalizeJSONQuotes(t *testing.T) {
	got := NormalizeJSONQuotes("“hello”")
	assert.Equal(t, `"hello"`, got)
}

func strPtr(s string) *string { return &s }
