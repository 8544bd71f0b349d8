package relay

import "strings"

// Sentinel frames inserted around the generated HTML document so the page
// builder can split chat text from markup without re-parsing every chunk.
// They are a private wire convention with the builder UI.
const (
	HTMLStartSentinel = "HTML_START"
	HTMLEndSentinel   = "HTML_END"
)

var htmlMarkers = []string{"<!doctype", "<html"}

// BoundaryDetector classifies an LLM token stream into chat frames and HTML
// frames, independent of which provider produced the deltas. Feed returns the
// frames one delta yields; Finish flushes whatever is still pending and
// closes the HTML block.
//
// Markdown fences are stripped before anything else: models wrap generated
// markup in ```html fences even when told not to, and a fence in front of
// <!DOCTYPE must not defeat detection. The marker itself can straddle two
// deltas, so detection always runs over the cumulative pending text, and chat
// text that could still turn out to be the start of a marker is withheld
// until the next delta decides.
type BoundaryDetector struct {
	pending       string
	htmlStartSent bool
	inHTMLBlock   bool
}

func NewBoundaryDetector() *BoundaryDetector {
	return &BoundaryDetector{}
}

func (d *BoundaryDetector) Feed(delta string) []string {
	clean := stripCodeFences(delta)
	if clean == "" {
		return nil
	}

	// Once inside HTML everything to end-of-stream is HTML; no more scanning.
	if d.htmlStartSent {
		return []string{clean}
	}

	d.pending += clean
	lower := asciiLower(d.pending)

	idx := -1
	for _, marker := range htmlMarkers {
		if i := strings.Index(lower, marker); i >= 0 && (idx < 0 || i < idx) {
			idx = i
		}
	}

	if idx >= 0 {
		var frames []string
		if idx > 0 {
			frames = append(frames, d.pending[:idx])
		}
		frames = append(frames, HTMLStartSentinel, d.pending[idx:])
		d.htmlStartSent = true
		d.inHTMLBlock = true
		d.pending = ""
		return frames
	}

	hold := markerPrefixSuffixLen(lower)
	emit := d.pending[:len(d.pending)-hold]
	d.pending = d.pending[len(d.pending)-hold:]
	if emit == "" {
		return nil
	}
	return []string{emit}
}

// Finish flushes withheld chat text (a marker prefix that never completed is
// just chat) and emits HTML_END iff HTML_START went out.
func (d *BoundaryDetector) Finish() []string {
	var frames []string
	if !d.htmlStartSent && d.pending != "" {
		frames = append(frames, d.pending)
		d.pending = ""
	}
	if d.htmlStartSent && d.inHTMLBlock {
		frames = append(frames, HTMLEndSentinel)
		d.inHTMLBlock = false
	}
	return frames
}

func stripCodeFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	s = strings.ReplaceAll(s, "```html\n", "")
	s = strings.ReplaceAll(s, "```html", "")
	return strings.ReplaceAll(s, "```", "")
}

// markerPrefixSuffixLen returns the length of the longest suffix of lower
// that is a proper prefix of an HTML marker. That tail stays pending so a
// marker split across deltas is never leaked as chat.
func markerPrefixSuffixLen(lower string) int {
	longest := 0
	for _, marker := range htmlMarkers {
		limit := len(marker) - 1
		if limit > len(lower) {
			limit = len(lower)
		}
		for n := limit; n > longest; n-- {
			if strings.HasPrefix(marker, lower[len(lower)-n:]) {
				longest = n
				break
			}
		}
	}
	return longest
}

// asciiLower lowercases A-Z only, so byte offsets into the result line up
// with the original text even when the model emits multibyte runes.
func asciiLower(s string) string {
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
