package imagegen

import (
	"strings"
	"testing"
)

func TestBuildPromptDeterministic(t *testing.T) {
	first := BuildPrompt("Tokyo", "Typhoons")
	second := BuildPrompt("Tokyo", "Typhoons")
	if first != second {
		t.Errorf("expected identical prompts, got %q and %q", first, second)
	}
	for _, want := range []string{"Tokyo", "Typhoons", "photorealistic"} {
		if !strings.Contains(first, want) {
			t.Errorf("prompt %q does not contain %q", first, want)
		}
	}
}

func TestBuildPromptPlacesIssueBeforeCity(t *testing.T) {
	got := BuildPrompt("London", "Flooding")
	if !strings.Contains(got, "impact of Flooding in London") {
		t.Errorf("unexpected prompt: %q", got)
	}
}

func TestBuildPromptDiffersPerInput(t *testing.T) {
	if BuildPrompt("London", "Flooding") == BuildPrompt("Mumbai", "Flooding") {
		t.Error("prompts for different cities should differ")
	}
}
