package service

import (
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"

	"legal-analyzer-backend/models"
)

// Max estimated tokens per clause before fallback chunking kicks in
const maxClauseTokens = 512

// Fallback chunking window sizes, in characters (~375 and ~50 tokens)
const (
	chunkSize    = 1500
	chunkOverlap = 200
)

// Heading patterns for detecting legal section boundaries. A position is a
// heading if any pattern matches; overlapping matches are deduplicated by
// earliest start.
var headingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bSection\s+\d+(?:\.\d+)*\.?`),                       // Section 1, Section 1.2
	regexp.MustCompile(`\bArticle\s+\d+(?:\.\d+)*\.?`),                       // Article 1, Article 1.2
	regexp.MustCompile(`(?m)^[ \t]*\d+\.\d+(?:\.\d+)*\.?[ \t]+[^\n]+`),       // 1.1, 3.2.1
	regexp.MustCompile(`(?m)^(?:I{1,3}|IV|V|VI{0,3}|IX|X)\.?[ \t]+[^\n]+`),   // Roman numerals
	regexp.MustCompile(`(?m)^[A-Z][A-Z \t]{4,}[A-Z][ \t]*$`),                 // ALL CAPS HEADINGS
}

var pageMarkerPattern = regexp.MustCompile(`\[PAGE:\d+\]\n?`)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// estimateTokens gives a rough token count: ~4 chars per token
func estimateTokens(text string) int {
	return len(text) / 4
}

// pageSpan maps a byte range of the concatenated stream to its source page
type pageSpan struct {
	start, end int
	page       int
}

type headingMatch struct {
	start, end int
	title      string
}

// Segment splits extracted document pages into clauses using a hybrid
// strategy: heading-based section splitting first, falling back to
// overlapping character chunks for unstructured or oversized text.
func Segment(pages []models.Page, documentID string) []models.Clause {
	var builder strings.Builder
	var spans []pageSpan
	for _, p := range pages {
		start := builder.Len()
		fmt.Fprintf(&builder, "[PAGE:%d]\n", p.Page)
		builder.WriteString(p.Text)
		builder.WriteString("\n\n")
		spans = append(spans, pageSpan{start: start, end: builder.Len(), page: p.Page})
	}
	fullText := builder.String()

	matches := findHeadings(fullText)
	if len(matches) == 0 {
		// No structure detected, chunk each page independently so chunk
		// pages stay exact
		log.Printf("No section structure detected, using fallback chunking")
		var clauses []models.Clause
		for _, p := range pages {
			clauses = append(clauses, chunkText(p.Text, p.Page, chunkBaseID(documentID, p.Page))...)
		}
		log.Printf("Segmented document into %d clauses", len(clauses))
		return clauses
	}

	log.Printf("Found %d section headings", len(matches))
	var clauses []models.Clause
	for i, m := range matches {
		end := len(fullText)
		if i+1 < len(matches) {
			end = matches[i+1].start
		}
		sectionText := fullText[m.start:end]
		cleanText := strings.TrimSpace(pageMarkerPattern.ReplaceAllString(sectionText, ""))
		if cleanText == "" {
			continue
		}
		page := resolvePage(spans, m.start)
		clauseID := sectionClauseID(documentID, i+1, m.title)

		if estimateTokens(cleanText) > maxClauseTokens {
			// Oversized section, re-chunk it under the same heading
			log.Printf("Section %q exceeds token limit, chunking", truncateString(m.title, 30))
			subChunks := chunkText(cleanText, page, clauseID)
			for j := range subChunks {
				subChunks[j].SectionTitle = m.title
			}
			clauses = append(clauses, subChunks...)
		} else {
			clauses = append(clauses, models.Clause{
				ClauseID:     clauseID,
				SectionTitle: m.title,
				Text:         cleanText,
				Page:         page,
			})
		}
	}

	log.Printf("Segmented document into %d clauses", len(clauses))
	return clauses
}

// findHeadings scans the stream with every heading pattern and returns
// matches ordered by start position, overlaps removed.
func findHeadings(text string) []headingMatch {
	var all []headingMatch
	for _, re := range headingPatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			title := strings.TrimSpace(text[loc[0]:loc[1]])
			if title == "" {
				title = "Untitled"
			}
			all = append(all, headingMatch{start: loc[0], end: loc[1], title: title})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].start != all[j].start {
			return all[i].start < all[j].start
		}
		return all[i].end > all[j].end
	})

	var deduped []headingMatch
	lastEnd := -1
	for _, m := range all {
		if m.start < lastEnd {
			continue // overlaps an earlier heading
		}
		deduped = append(deduped, m)
		lastEnd = m.end
	}
	return deduped
}

// chunkText splits long text into overlapping character-based chunks.
// Window i+1 starts at window i's end minus the fixed overlap.
func chunkText(text string, page int, baseID string) []models.Clause {
	runes := []rune(text)
	var chunks []models.Clause
	start := 0
	idx := 0
	for start < len(runes) {
		end := start + chunkSize
		sliceEnd := end
		if sliceEnd > len(runes) {
			sliceEnd = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:sliceEnd]))
		if chunk != "" {
			chunks = append(chunks, models.Clause{
				ClauseID:     fmt.Sprintf("%s-chunk-%d", baseID, idx),
				SectionTitle: "Untitled",
				Text:         chunk,
				Page:         page,
			})
			idx++
		}
		start = end - chunkOverlap
	}
	return chunks
}

// sectionClauseID builds a deterministic id from the document id, the
// heading's positional index, and a sanitized slug of the heading text
func sectionClauseID(documentID string, position int, heading string) string {
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(heading), "-"), "-")
	slug = truncateString(slug, 30)
	if documentID == "" {
		return fmt.Sprintf("section-%d-%s", position, slug)
	}
	return fmt.Sprintf("%s-section-%d-%s", documentID, position, slug)
}

// chunkBaseID builds the parent id for page-level fallback chunks
func chunkBaseID(documentID string, page int) string {
	if documentID == "" {
		return fmt.Sprintf("p%d", page)
	}
	return fmt.Sprintf("%s-p%d", documentID, page)
}

// resolvePage maps a byte offset of the concatenated stream to its page
func resolvePage(spans []pageSpan, offset int) int {
	for _, s := range spans {
		if offset >= s.start && offset < s.end {
			return s.page
		}
	}
	return 1
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
