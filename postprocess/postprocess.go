// Package postprocess retrofits optional serde metadata onto the enums of a
// generated artifact.
package postprocess

import (
	"regexp"
	"strings"
)

// SerdeAttributes are inserted between an enum's derive and its declaration.
var SerdeAttributes = []string{
	`#[cfg_attr(feature = "serde", derive(serde::Serialize, serde::Deserialize))]`,
	`#[cfg_attr(feature = "serde", serde(rename_all = "kebab-case"))]`,
}

// enumDerive matches a derive attribute immediately followed, across
// whitespace only, by a public enum.
var enumDerive = regexp.MustCompile(`#\s*\[\s*derive\s*\((?P<d>[^)]+)\)\s*\]\s*pub\s*(?P<s>enum)`)

// Apply returns text with SerdeAttributes added to every enum when enabled,
// and text unchanged otherwise. Annotated enums no longer match, so applying
// twice equals applying once.
func Apply(text string, enabled bool) string {
	if !enabled {
		return text
	}
	replacement := "#[derive(${d})]\n" + strings.Join(SerdeAttributes, "\n") + "\npub ${s}"
	return enumDerive.ReplaceAllString(text, replacement)
}

// Count reports how many enums Apply would annotate.
func Count(text string) int {
	return len(enumDerive.FindAllStringIndex(text, -1))
}

// Annotated reports how many enums already carry the serde attributes.
func Annotated(text string) int {
	return strings.Count(text, SerdeAttributes[1]+"\npub enum")
}
