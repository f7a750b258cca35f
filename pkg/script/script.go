// Package script turns generated text into a structured video script.
package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
)

// FallbackChapterTitle names the single chapter synthesized when no
// chapter headers could be found.
const FallbackChapterTitle = "Content"

type Chapter struct {
	Number int    `json:"number" jsonschema:"minimum=1"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// ExtractedScript is derived from a generation buffer. It is never edited
// in place; extraction is simply run again.
type ExtractedScript struct {
	MainTitle   string    `json:"mainTitle"`
	AltTitle1   string    `json:"altTitle1"`
	AltTitle2   string    `json:"altTitle2"`
	Description string    `json:"description"`
	Chapters    []Chapter `json:"chapters"`
}

// Strategy finds chapters in text. Numbers returned by a strategy are the
// ones written in the text; the extractor renumbers them.
type Strategy interface {
	Name() string
	Chapters(text string) []Chapter
}

// Extractor runs its strategies in order and keeps the first non-empty
// result.
type Extractor struct {
	strategies []Strategy
}

func NewExtractor(strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = []Strategy{Structured{}, LineScan{}}
	}
	return &Extractor{strategies: strategies}
}

var defaultExtractor = NewExtractor()

// Extract runs the default structured then line-scan strategies.
func Extract(text string) ExtractedScript {
	return defaultExtractor.Extract(text)
}

// Extract parses text. A non-empty input always yields at least one
// chapter; when no strategy finds one, the raw input becomes the body of a
// single fallback chapter, even if it is only whitespace.
func (e *Extractor) Extract(text string) ExtractedScript {
	raw := text
	text = strings.ReplaceAll(text, "\r\n", "\n")
	out := ExtractedScript{
		MainTitle:   field(text, mainTitleRe),
		AltTitle1:   field(text, altTitle1Re),
		AltTitle2:   field(text, altTitle2Re),
		Description: field(text, descriptionRe),
	}

	for _, s := range e.strategies {
		chapters := s.Chapters(text)
		if len(chapters) == 0 {
			logger.Debug("[Script] strategy found no chapters", "strategy", s.Name())
			continue
		}
		out.Chapters = renumber(chapters)
		return out
	}

	if raw != "" {
		out.Chapters = []Chapter{{Number: 1, Title: FallbackChapterTitle, Body: raw}}
	}
	return out
}

func renumber(chapters []Chapter) []Chapter {
	out := make([]Chapter, len(chapters))
	for i, c := range chapters {
		c.Number = i + 1
		if c.Title == "" {
			c.Title = fmt.Sprintf("Chapter %d", c.Number)
		}
		out[i] = c
	}
	return out
}

func labelRe(labels ...string) *regexp.Regexp {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = regexp.QuoteMeta(l)
	}
	return regexp.MustCompile(`\*\*(?:` + strings.Join(quoted, "|") + `)\*\*[ \t]*[:：]?[ \t]*(?:\n\s*)?([^\n]+)`)
}

var (
	mainTitleRe   = labelRe("主标题", "Main Title")
	altTitle1Re   = labelRe("备选标题1", "Alternative Title 1")
	altTitle2Re   = labelRe("备选标题2", "Alternative Title 2")
	descriptionRe = labelRe("视频简介", "Description", "Video Description")
)

func field(text string, re *regexp.Regexp) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// chapterHeader matches "第3章：title" and "Chapter 3: title".
const chapterHeader = `(?:第\s*(\d+)\s*章|[Cc]hapter\s+(\d+))\s*[:：][ \t]*([^\n]*)`

var (
	// strictHeaderRe only accepts compact headers at the start of a line and
	// captures the separator in group 3.
	strictHeaderRe = regexp.MustCompile(`(?m)^(?:第(\d+)章|[Cc]hapter (\d+))([:：])[ \t]*([^\n]*)(?:\n|$)`)
	lineHeaderRe = regexp.MustCompile(`^` + chapterHeader + `$`)
	// Section headers and format notes end a chapter body.
	stopRe = regexp.MustCompile(`(?m)^[ \t]*(?:\*\*|格式要求|重要格式要求|严格格式要求)`)
)

func isStopLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "**") ||
		strings.HasPrefix(trimmed, "格式要求") ||
		strings.HasPrefix(trimmed, "重要格式要求") ||
		strings.HasPrefix(trimmed, "严格格式要求")
}

func cleanTitle(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*#"))
}

func headerNumber(m []string) int {
	n := m[1]
	if n == "" {
		n = m[2]
	}
	v, _ := strconv.Atoi(n)
	return v
}

// Structured matches every chapter header and takes the text up to the
// next chapter header or section header as its body. Chapters with an
// empty body are dropped. It gives up, returning nil, unless every header
// line is written flush left in compact form with the same separator.
type Structured struct{}

func (Structured) Name() string { return "structured" }

func (Structured) Chapters(text string) []Chapter {
	idx := strictHeaderRe.FindAllStringSubmatchIndex(text, -1)
	if len(idx) == 0 || len(idx) != countHeaderLines(text) {
		return nil
	}
	sep := text[idx[0][6]:idx[0][7]]
	for _, m := range idx[1:] {
		if text[m[6]:m[7]] != sep {
			return nil
		}
	}

	var chapters []Chapter
	for i, m := range idx {
		end := len(text)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		bodyStart := m[1]
		if loc := stopRe.FindStringIndex(text[bodyStart:end]); loc != nil {
			end = bodyStart + loc[0]
		}

		body := strings.TrimSpace(text[bodyStart:end])
		if body == "" {
			continue
		}
		groups := submatches(text, m)
		chapters = append(chapters, Chapter{
			Number: headerNumber(groups),
			Title:  cleanTitle(groups[4]),
			Body:   body,
		})
	}
	return chapters
}

func countHeaderLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if lineHeaderRe.MatchString(strings.TrimSpace(line)) {
			n++
		}
	}
	return n
}

func submatches(text string, m []int) []string {
	out := make([]string, len(m)/2)
	for i := range out {
		if m[2*i] >= 0 {
			out[i] = text[m[2*i]:m[2*i+1]]
		}
	}
	return out
}

// LineScan walks the text line by line. A chapter header line starts a
// new chapter, a section header line stops collecting, and every other
// line is appended to the current chapter with its line break kept.
type LineScan struct{}

func (LineScan) Name() string { return "line-scan" }

func (LineScan) Chapters(text string) []Chapter {
	var (
		chapters   []Chapter
		current    *Chapter
		body       []string
		collecting bool
	)
	flush := func() {
		if current == nil {
			return
		}
		if b := strings.TrimSpace(strings.Join(body, "\n")); b != "" {
			current.Body = b
			chapters = append(chapters, *current)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if m := lineHeaderRe.FindStringSubmatch(trimmed); m != nil {
			flush()
			current = &Chapter{Number: headerNumber(m), Title: cleanTitle(m[3])}
			body = nil
			collecting = true
			continue
		}
		if isStopLine(trimmed) {
			collecting = false
			continue
		}
		if collecting && current != nil {
			body = append(body, line)
		}
	}
	flush()
	return chapters
}
