// Package tmpl implements the block template engine: active-variant value
// selection, path-param merging, and literal {{key}} substitution.
package tmpl

import (
	"encoding/json"
	"strings"

	"github.com/eeu479/proxyman-helper/internal/model"
)

// ActiveValues selects the block's active value set: the active variant's
// values if set and found, else the first variant's values, else the
// block's top-level TemplateValues.
func ActiveValues(block model.Block) []model.TemplateValue {
	if block.ActiveVariantID != nil {
		for _, variant := range block.TemplateVariants {
			if variant.ID == *block.ActiveVariantID {
				return variant.Values
			}
		}
	}
	if len(block.TemplateVariants) > 0 {
		return block.TemplateVariants[0].Values
	}
	return block.TemplateValues
}

// MergedValues appends synthesized path-param values (that don't already
// shadow an active value's key) after the block's active values.
func MergedValues(match model.BlockMatch) []model.TemplateValue {
	values := append([]model.TemplateValue(nil), ActiveValues(match.Block)...)

	existing := make(map[string]bool, len(values))
	for _, v := range values {
		existing[v.Key] = true
	}

	for key, value := range match.ExtractedParams {
		if existing[key] {
			continue
		}
		values = append(values, model.TemplateValue{
			ID:        "path-param-" + key,
			Key:       key,
			Value:     value,
			ValueType: "string",
		})
	}
	return values
}

// Render performs literal left-to-right {{key}} substitution for each value
// with a non-empty key. Each value's substitution string replaces every
// occurrence of its needle in the output so far, so a later value's needle
// is also replaced inside text inserted by an earlier value; earlier values
// are never applied again.
func Render(template string, values []model.TemplateValue) string {
	output := template
	for _, v := range values {
		if v.Key == "" {
			continue
		}
		needle := "{{" + v.Key + "}}"
		output = strings.ReplaceAll(output, needle, substitutionString(v))
	}
	return output
}

func substitutionString(v model.TemplateValue) string {
	if v.ValueType != "array" {
		return v.Value
	}
	trimmed := strings.TrimSpace(v.Value)
	if trimmed == "" {
		return "[]"
	}
	var parsed interface{}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return v.Value
	}
	arr, ok := parsed.([]interface{})
	if !ok {
		return v.Value
	}

	enabled := make([]string, 0, len(arr))
	for _, item := range arr {
		switch e := item.(type) {
		case map[string]interface{}:
			val, _ := e["v"].(string)
			on := true
			if rawEnabled, present := e["e"]; present {
				if b, ok := rawEnabled.(bool); ok {
					on = b
				}
			}
			if on {
				enabled = append(enabled, val)
			}
		case string:
			enabled = append(enabled, e)
		default:
			return v.Value
		}
	}

	serialized, err := json.Marshal(enabled)
	if err != nil {
		return v.Value
	}
	return string(serialized)
}

// NormalizeJSONQuotes replaces Unicode left/right double quotation marks
// (U+201C, U+201D) with ASCII '"' to tolerate values pasted from rich-text
// editors.
func NormalizeJSONQuotes(value string) string {
	replacer := strings.NewReplacer("“", "\"", "”", "\"")
	return replacer.Replace(value)
}
