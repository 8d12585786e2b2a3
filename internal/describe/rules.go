package describe

import (
	"regexp"
	"strings"
)

// Anchor fragments targeted by substring-replacement rules. They appear in
// the template clauses of generator.go.
const (
	furTextureAnchor  = "showing individual fur textures"
	expressiveAnchor  = "expressive eyes"
	colorAnchor       = "Rich color palette"
	environmentAnchor = "The natural environment"
	moodAnchor        = "The overall mood"
)

var (
	brightWords      = regexp.MustCompile(`(?i)bright|vibrant|golden`)
	darkWords        = regexp.MustCompile(`(?i)dark|moody|dramatic`)
	complexityWords  = regexp.MustCompile(`(?i)detailed|intricate|complex`)
	furWord          = regexp.MustCompile(`(?i)\bfur\b`)
	requirementSplit = regexp.MustCompile(`(?i)must have|should have`)
)

// rule is one (feedback predicate, description mutation) pair. Rules are
// independently applicable; the fixed order in refinementRules only matters
// where two rules target overlapping anchor text.
type rule struct {
	name  string
	match func(feedback string) bool
	apply func(desc, feedback string) string
}

func feedbackContains(keywords ...string) func(string) bool {
	return func(feedback string) bool {
		for _, k := range keywords {
			if strings.Contains(feedback, k) {
				return true
			}
		}
		return false
	}
}

// replaceFurClause swaps the generic fur-texture clause for a color-specific
// one, falling back to replacing the bare word when the description did not
// come from the local template.
func replaceFurClause(replacement, bareWord string) func(string, string) string {
	return func(desc, _ string) string {
		if strings.Contains(desc, furTextureAnchor) {
			return strings.Replace(desc, furTextureAnchor, replacement, 1)
		}
		return furWord.ReplaceAllString(desc, bareWord)
	}
}

var refinementRules = []rule{
	{
		name:  "wings",
		match: feedbackContains("wings"),
		apply: func(desc, _ string) string {
			return strings.Replace(desc,
				"The animal is captured with incredible detail",
				"The winged animal is captured with incredible detail, featuring majestic feathered wings spread gracefully",
				1)
		},
	},
	{
		name:  "white fur",
		match: feedbackContains("white"),
		apply: replaceFurClause(
			"showing pristine white fur with individual texture details and a soft, fluffy appearance",
			"pristine white fur"),
	},
	{
		name:  "black fur",
		match: feedbackContains("black"),
		apply: replaceFurClause(
			"showing sleek black fur with individual texture details and a glossy appearance",
			"sleek black fur"),
	},
	{
		name:  "flowing hair",
		match: feedbackContains("long hair", "flowing"),
		apply: func(desc, _ string) string {
			return strings.Replace(desc, "fur textures", "long, flowing fur that cascades naturally", 1)
		},
	},
	{
		name:  "blue eyes",
		match: feedbackContains("blue eyes"),
		apply: func(desc, _ string) string {
			return strings.Replace(desc, expressiveAnchor, "striking blue eyes that gleam with intelligence", 1)
		},
	},
	{
		name:  "green eyes",
		match: feedbackContains("green eyes"),
		apply: func(desc, _ string) string {
			return strings.Replace(desc, expressiveAnchor, "mesmerizing green eyes that sparkle", 1)
		},
	},
	{
		name:  "more color",
		match: feedbackContains("more color", "colorful"),
		apply: func(desc, _ string) string {
			return strings.Replace(desc, colorAnchor,
				"Vibrant, saturated color palette with bold hues and striking contrasts", 1)
		},
	},
	{
		name:  "darker",
		match: feedbackContains("darker", "moody"),
		apply: func(desc, _ string) string {
			return brightWords.ReplaceAllString(desc, "dark, moody")
		},
	},
	{
		name:  "brighter",
		match: feedbackContains("brighter", "lighter"),
		apply: func(desc, _ string) string {
			return darkWords.ReplaceAllString(desc, "bright, luminous")
		},
	},
	{
		name:  "more detail",
		match: feedbackContains("more detail", "detailed"),
		apply: func(desc, _ string) string {
			return desc + " Additional intricate details include fine textures, subtle gradations, and carefully rendered surface materials."
		},
	},
	{
		name:  "minimal",
		match: feedbackContains("simple", "minimal"),
		apply: func(desc, _ string) string {
			return complexityWords.ReplaceAllString(desc, "clean, minimalist")
		},
	},
	{
		name:  "background",
		match: feedbackContains("background"),
		apply: func(desc, feedback string) string {
			return desc + " The background is specifically modified: " + feedback + "."
		},
	},
	{
		name:  "garden",
		match: feedbackContains("flower", "garden"),
		apply: func(desc, _ string) string {
			return strings.Replace(desc, environmentAnchor,
				"The lush garden environment filled with blooming flowers", 1)
		},
	},
	{
		name:  "specific requirements",
		match: feedbackContains("must have", "should have"),
		apply: spliceRequirements,
	},
}

// spliceRequirements extracts the free text after "must have"/"should have"
// and splices it in front of the mood anchor.
func spliceRequirements(desc, feedback string) string {
	parts := requirementSplit.Split(feedback, 2)
	if len(parts) < 2 {
		return desc
	}
	req := strings.TrimSpace(parts[1])
	if req == "" {
		return desc
	}
	return strings.Replace(desc, moodAnchor,
		"Importantly, incorporating the specific requirements: "+req+". "+moodAnchor, 1)
}

// applyRules runs the full rule table in its fixed order over a working copy
// of the description.
func applyRules(original, feedback string) string {
	desc := original
	lower := strings.ToLower(feedback)
	for _, r := range refinementRules {
		if r.match(lower) {
			desc = r.apply(desc, feedback)
		}
	}
	return desc
}
