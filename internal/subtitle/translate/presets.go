package translate

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are an experienced semantic translator. Follow the instructions carefully."

// Built-in presets. Anything else is looked up by the caller among stored presets.
const (
	PresetNone        = ""
	PresetAnime       = "anime"
	PresetMovie       = "movie"
	PresetDocumentary = "documentary"
	PresetCustom      = "custom"
)

var presetGuidelines = map[string]string{
	PresetAnime: "Additional guidelines for anime translation:\n" +
		"- Use casual, natural speech patterns appropriate for anime dialogue\n" +
		"- Keep honorifics (-san, -kun, -chan, -senpai, -sensei) where the target language has no equivalent\n" +
		"- Keep character names consistent\n" +
		"- Match the emotional tone of the line\n" +
		"- Translate onomatopoeia and sound effects appropriately",
	PresetMovie: "Additional guidelines for movie/drama translation:\n" +
		"- Use natural conversational style appropriate for the genre\n" +
		"- Render idioms with equivalent expressions\n" +
		"- Match the formal/informal register of the original dialogue",
	PresetDocumentary: "Additional guidelines for documentary translation:\n" +
		"- Use formal, precise language\n" +
		"- Translate technical terminology accurately\n" +
		"- Keep proper nouns, scientific names and place names intact\n" +
		"- Keep numbers, dates and measurements exact",
}

// BuiltinPresets lists the preset names that need no stored prompt.
func BuiltinPresets() []string {
	return []string{PresetAnime, PresetMovie, PresetDocumentary, PresetCustom}
}

// IsBuiltinPreset reports whether name is handled without a database lookup.
func IsBuiltinPreset(name string) bool {
	switch name {
	case PresetNone, PresetAnime, PresetMovie, PresetDocumentary, PresetCustom:
		return true
	}
	return false
}

// Instructions returns the extra system guidance for a preset. customPrompt is used
// for the custom preset and for stored presets resolved by the caller.
func Instructions(preset, customPrompt string) string {
	if g, ok := presetGuidelines[preset]; ok {
		if customPrompt != "" {
			return g + "\n\nUser instructions: " + customPrompt
		}
		return g
	}
	if customPrompt != "" {
		return "User instructions: " + customPrompt
	}
	return ""
}

// SystemMessage returns the system prompt for req.
func SystemMessage(req Request) string {
	if strings.TrimSpace(req.Instructions) == "" {
		return systemPrompt
	}
	return systemPrompt + "\n\n" + req.Instructions
}

// UserMessage returns the user prompt carrying the text to translate.
func UserMessage(req Request) string {
	return fmt.Sprintf("Translate this to %s. ONLY translate, NEVER provide explanations or insight on "+
		"the translation itself, just strictly translate the text as clearly as you can, assuming the "+
		"reader will have the context. The text to translate starts on the next line.\n\n%s",
		req.Language, req.Text)
}
