package describe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefine_RemoteRewriteAcceptedVerbatim(t *testing.T) {
	rewrite := strings.Repeat("A refined description with plenty of visual detail. ", 3)
	llm := &stubCompleter{out: "\"" + rewrite + "\" [END]"}
	ref := NewRefiner(llm, 0)

	got := ref.Refine(context.Background(), "original", "make it moodier")

	assert.Equal(t, strings.TrimSpace(rewrite), got)
}

func TestRefine_ShortRemoteOutputFallsThrough(t *testing.T) {
	ref := NewRefiner(&stubCompleter{out: "ok"}, 0)

	got := ref.Refine(context.Background(), "A cat with fur.", "white fur")
	assert.Equal(t, "A cat with pristine white fur.", got)
}

func TestRefine_RemoteErrorFallsThrough(t *testing.T) {
	ref := NewRefiner(&stubCompleter{err: errors.New("timeout")}, 0)

	got := ref.Refine(context.Background(), "A cat with fur.", "white fur")
	assert.Equal(t, "A cat with pristine white fur.", got)
}

func TestRefine_DeterministicForFixedFeedback(t *testing.T) {
	ref := NewRefiner(nil, 0)
	ctx := context.Background()

	first := ref.Refine(ctx, "A cat with fur.", "white fur")
	second := ref.Refine(ctx, "A cat with fur.", "white fur")

	require.Equal(t, first, second)
	assert.Contains(t, first, "pristine white fur")
}

func TestApplyRules_TableDriven(t *testing.T) {
	// A template description carrying every anchor the rules target.
	base := templateDescription("a red fox in snow", pickZero)

	tests := []struct {
		name        string
		description string
		feedback    string
		want        []string
		absent      []string
	}{
		{
			name:        "wings replaces subject clause",
			description: base,
			feedback:    "give it wings",
			want:        []string{"winged animal", "majestic feathered wings spread gracefully"},
			absent:      []string{"The animal is captured with incredible detail,"},
		},
		{
			name:        "white fur replaces texture anchor",
			description: base,
			feedback:    "white fur please",
			want:        []string{"pristine white fur with individual texture details"},
			absent:      []string{furTextureAnchor},
		},
		{
			name:        "white fur without anchor rewrites bare word",
			description: "A cat with fur.",
			feedback:    "white fur",
			want:        []string{"A cat with pristine white fur."},
		},
		{
			name:        "black fur variant",
			description: base,
			feedback:    "make it black",
			want:        []string{"sleek black fur", "glossy appearance"},
		},
		{
			name:        "blue eyes replaces eye clause",
			description: base,
			feedback:    "blue eyes",
			want:        []string{"striking blue eyes that gleam with intelligence"},
			absent:      []string{expressiveAnchor},
		},
		{
			name:        "green eyes replaces eye clause",
			description: base,
			feedback:    "I want green eyes",
			want:        []string{"mesmerizing green eyes that sparkle"},
		},
		{
			name:        "colorful boosts palette clause",
			description: base,
			feedback:    "more color overall",
			want:        []string{"Vibrant, saturated color palette with bold hues"},
			absent:      []string{colorAnchor},
		},
		{
			name:        "darker swaps brightness words case-insensitively",
			description: "A scene with Golden light and vibrant tones.",
			feedback:    "make it darker",
			want:        []string{"dark, moody light", "dark, moody tones"},
			absent:      []string{"Golden", "vibrant"},
		},
		{
			name:        "brighter swaps darkness words",
			description: "A dark alley with dramatic shadows.",
			feedback:    "brighter please",
			want:        []string{"bright, luminous"},
			absent:      []string{"dramatic"},
		},
		{
			name:        "more detail appends elaboration",
			description: base,
			feedback:    "more detail",
			want:        []string{"Additional intricate details include fine textures"},
		},
		{
			name:        "minimal strips complexity words",
			description: "An intricate, detailed pattern.",
			feedback:    "keep it simple",
			want:        []string{"clean, minimalist"},
			absent:      []string{"intricate"},
		},
		{
			name:        "background feedback appended verbatim",
			description: base,
			feedback:    "change the background to a starry sky",
			want:        []string{"The background is specifically modified: change the background to a starry sky."},
		},
		{
			name:        "garden swaps environment clause",
			description: base,
			feedback:    "add a flower garden",
			want:        []string{"The lush garden environment filled with blooming flowers"},
			absent:      []string{environmentAnchor},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyRules(tt.description, tt.feedback)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
			for _, a := range tt.absent {
				assert.NotContains(t, got, a)
			}
		})
	}
}

func TestApplyRules_RequirementExtraction(t *testing.T) {
	base := templateDescription("a red fox in snow", pickZero)

	got := applyRules(base, "it must have a crescent moon in the sky")

	require.Contains(t, got, "Importantly, incorporating the specific requirements: a crescent moon in the sky.")
	// The splice lands directly before the mood anchor.
	idx := strings.Index(got, "incorporating the specific requirements")
	moodIdx := strings.Index(got, moodAnchor)
	assert.Greater(t, moodIdx, idx)
}

func TestApplyRules_ShouldHavePhrase(t *testing.T) {
	base := templateDescription("a red fox in snow", pickZero)

	got := applyRules(base, "the scene should have falling snowflakes")
	assert.Contains(t, got, "incorporating the specific requirements: falling snowflakes")
}

func TestApplyRules_NoMatchingRuleLeavesDescription(t *testing.T) {
	base := templateDescription("a red fox in snow", pickZero)

	got := applyRules(base, "hmm, not sure yet")
	assert.Equal(t, base, got)
}

func TestCleanRewrite(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text untouched", input: "A description.", want: "A description."},
		{name: "wrapping quotes trimmed", input: "\"A description.\"", want: "A description."},
		{name: "curly quotes trimmed", input: "“A description.”", want: "A description."},
		{name: "end marker trimmed", input: "A description. [END]", want: "A description."},
		{name: "quotes and marker", input: "'A description.' END", want: "A description."},
		{name: "whitespace collapsed", input: "   A description.\n", want: "A description."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanRewrite(tt.input))
		})
	}
}
