package describe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	out   string
	err   error
	calls int
}

func (s *stubCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	s.calls++
	return s.out, s.err
}

// pickZero always selects the first pool entry, pinning the template output.
func pickZero(int) int { return 0 }

func TestGenerate_RemotePreferred(t *testing.T) {
	llm := &stubCompleter{out: "  A remote description.  "}
	gen := NewGenerator(llm)

	got := gen.Generate(context.Background(), "a red fox in snow")

	assert.Equal(t, "A remote description.", got)
	assert.Equal(t, 1, llm.calls)
}

func TestGenerate_RemoteErrorFallsBack(t *testing.T) {
	gen := NewGenerator(&stubCompleter{err: errors.New("boom")})
	gen.pick = pickZero

	got := gen.Generate(context.Background(), "a red fox in snow")

	assert.Contains(t, got, "a red fox in snow")
	assert.Contains(t, got, "The overall mood")
}

func TestGenerate_RemoteEmptyFallsBack(t *testing.T) {
	gen := NewGenerator(&stubCompleter{out: "   "})
	gen.pick = pickZero

	got := gen.Generate(context.Background(), "a red fox in snow")
	assert.Contains(t, got, "a red fox in snow")
}

func TestGenerate_NoRemoteConfigured(t *testing.T) {
	gen := NewGenerator(nil)
	gen.pick = pickZero

	got := gen.Generate(context.Background(), "a quiet harbor")
	assert.Contains(t, got, "a quiet harbor")
}

func TestTemplateDescription_Deterministic(t *testing.T) {
	first := templateDescription("a red fox in snow", pickZero)
	second := templateDescription("a red fox in snow", pickZero)
	assert.Equal(t, first, second)
}

func TestTemplateDescription_KeywordClauses(t *testing.T) {
	tests := []struct {
		name         string
		prompt       string
		wantClause   string
		absentClause string
	}{
		{
			name:         "animal prompt adds anatomical clause",
			prompt:       "a sleeping cat",
			wantClause:   animalClause,
			absentClause: landscapeClause,
		},
		{
			name:         "landscape prompt adds environment clause",
			prompt:       "a mountain valley at dusk",
			wantClause:   landscapeClause,
			absentClause: portraitClause,
		},
		{
			name:         "portrait prompt adds facial clause",
			prompt:       "portrait of an old sailor",
			wantClause:   portraitClause,
			absentClause: animalClause,
		},
		{
			name:         "animal in landscape gets both",
			prompt:       "a red fox in snow",
			wantClause:   animalClause,
			absentClause: portraitClause,
		},
		{
			name:         "neutral prompt gets no class clause",
			prompt:       "swirling abstract shapes",
			wantClause:   closingClauses,
			absentClause: animalClause,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := templateDescription(tt.prompt, pickZero)
			assert.Contains(t, got, tt.wantClause)
			assert.NotContains(t, got, tt.absentClause)
		})
	}
}

func TestTemplateDescription_AlwaysCarriesFixedSections(t *testing.T) {
	got := templateDescription("anything at all", pickZero)

	require.True(t, strings.HasPrefix(got, "A highly detailed digital artwork of anything at all"))
	assert.Contains(t, got, "The scene is illuminated by")
	assert.Contains(t, got, "The composition follows")
	assert.Contains(t, got, colorAnchor)
	assert.Contains(t, got, moodAnchor)
}

func TestTemplateDescription_SelectorVariesPhrases(t *testing.T) {
	pickOne := func(int) int { return 1 }

	a := templateDescription("a quiet harbor", pickZero)
	b := templateDescription("a quiet harbor", pickOne)

	assert.NotEqual(t, a, b)
	assert.Contains(t, a, lightingOptions[0])
	assert.Contains(t, b, lightingOptions[1])
}
