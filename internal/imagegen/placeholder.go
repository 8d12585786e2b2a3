package imagegen

import (
	"encoding/base64"
	"fmt"
	"strings"
)

var placeholderPalette = []string{"#ff69b4", "#00bcd4", "#9c27b0", "#32cd32", "#ffb300"}

// renderPlaceholder draws a deterministic SVG stand-in for a description when
// every remote provider is exhausted. Same description, same image.
func renderPlaceholder(description string) *Artifact {
	words := strings.Fields(strings.ToLower(description))
	display := strings.Join(firstN(words, 3), " ")
	accent := placeholderPalette[len(words)%len(placeholderPalette)]

	svg := fmt.Sprintf(`<svg width="1024" height="1024" viewBox="0 0 1024 1024" xmlns="http://www.w3.org/2000/svg">
  <defs>
    <linearGradient id="bg" x1="0%%" y1="0%%" x2="100%%" y2="100%%">
      <stop offset="0%%" style="stop-color:%s;stop-opacity:1"/>
      <stop offset="100%%" style="stop-color:#1a1a2e;stop-opacity:1"/>
    </linearGradient>
  </defs>
  <rect width="1024" height="1024" fill="url(#bg)"/>
  <circle cx="220" cy="220" r="60" fill="rgba(255,255,255,0.18)"/>
  <circle cx="790" cy="330" r="36" fill="rgba(255,255,255,0.12)"/>
  <circle cx="620" cy="720" r="48" fill="rgba(255,255,255,0.10)"/>
  <text x="512" y="420" font-family="Arial, sans-serif" font-size="44" font-weight="bold" fill="#ffffff" text-anchor="middle">Image Providers Unavailable</text>
  <text x="512" y="500" font-family="Arial, sans-serif" font-size="28" fill="rgba(255,255,255,0.9)" text-anchor="middle">%s</text>
  <text x="512" y="620" font-family="Arial, sans-serif" font-size="20" fill="rgba(255,255,255,0.7)" text-anchor="middle">A placeholder was rendered locally - retry to reach the providers again</text>
</svg>`, accent, escapeXML(display))

	return &Artifact{
		URL:      "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg)),
		Provider: "placeholder",
	}
}

func firstN(words []string, n int) []string {
	if len(words) < n {
		return words
	}
	return words[:n]
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
