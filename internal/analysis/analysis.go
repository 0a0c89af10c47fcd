// Package analysis scores manuscript text for editors with simple
// counting heuristics. No external model is involved.
package analysis

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

const (
	maxKeywords     = 10
	minKeywordRunes = 4

	// Scores the heuristics cannot measure are reported as fixed values.
	originalContentScore = 85
	plagiarismRisk       = "unknown"
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the a an is are was were be been being have has had do does did will
		would could should may might must shall can need to of in for on with at by from as into
		through during before after above below between under again further then once and but or
		nor so yet both each few more most other some such no not only own same than too very just
		also now this that these those`) {
		stopWords[w] = struct{}{}
	}
}

var suggestions = []string{
	"Consider reviewing the abstract for clarity.",
	"Ensure all citations are properly formatted.",
	"Check for consistency in terminology throughout the text.",
}

// Report is the outcome of analysing a piece of text.
type Report struct {
	Summary              string   `json:"summary"`
	Keywords             []string `json:"keywords"`
	GrammarScore         int      `json:"grammar_score"`
	Suggestions          []string `json:"suggestions"`
	PlagiarismRisk       string   `json:"plagiarism_risk"`
	ReadabilityScore     int      `json:"readability_score"`
	WordCount            int      `json:"word_count"`
	SentenceCount        int      `json:"sentence_count"`
	OriginalContentScore int      `json:"original_content_score"`
}

// Recommendation is the editorial verdict derived from a Report.
type Recommendation string

const (
	RecommendAccept Recommendation = "ACCEPT"
	RecommendRevise Recommendation = "REVISE"
	RecommendReject Recommendation = "REJECT"
)

// Review is a Report plus a recommendation.
type Review struct {
	Report
	Recommendation Recommendation `json:"recommendation"`
	Confidence     string         `json:"confidence"`
	OverallScore   int            `json:"overall_score"`
}

// Analyze counts words and sentences, estimates readability and extracts
// the most frequent content words.
func Analyze(text string) *Report {
	words := strings.Fields(text)
	sentences := countSentences(text)
	readability := readabilityScore(len(words), sentences)

	return &Report{
		Summary:              summary(len(words), sentences),
		Keywords:             keywords(words),
		GrammarScore:         80 + readability/10,
		Suggestions:          slices.Clone(suggestions),
		PlagiarismRisk:       plagiarismRisk,
		ReadabilityScore:     readability,
		WordCount:            len(words),
		SentenceCount:        sentences,
		OriginalContentScore: originalContentScore,
	}
}

// Summarize analyses text and turns the mean of the grammar, readability and
// originality scores into a recommendation.
func Summarize(text string) *Review {
	r := Analyze(text)
	avg := float64(r.GrammarScore+r.ReadabilityScore+r.OriginalContentScore) / 3

	review := &Review{Report: *r, OverallScore: int(avg)}
	switch {
	case avg >= 85:
		review.Recommendation, review.Confidence = RecommendAccept, "HIGH"
	case avg >= 70:
		review.Recommendation, review.Confidence = RecommendRevise, "MEDIUM"
	default:
		review.Recommendation, review.Confidence = RecommendReject, "LOW"
	}
	return review
}

func summary(words, sentences int) string {
	return fmt.Sprintf("Abstract contains %d words across %d sentences.", words, sentences)
}

func countSentences(text string) int {
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == '.' || r == '!' || r == '?' })
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

// readabilityScore is 100 at an average of 15 words per sentence and loses
// three points per extra word, clamped to [0, 100].
func readabilityScore(words, sentences int) int {
	avg := float64(words) / float64(max(sentences, 1))
	score := 100 - (avg-15)*3
	return int(min(100, max(0, score)))
}

// keywords ranks content words by frequency. Ties keep first-seen order.
func keywords(words []string) []string {
	fold := cases.Fold()
	counts := make(map[string]int)
	var order []string
	for _, w := range words {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
				return r
			}
			return -1
		}, fold.String(w))
		if utf8.RuneCountInString(clean) < minKeywordRunes {
			continue
		}
		if _, stop := stopWords[clean]; stop {
			continue
		}
		if counts[clean] == 0 {
			order = append(order, clean)
		}
		counts[clean]++
	}

	slices.SortStableFunc(order, func(a, b string) int { return counts[b] - counts[a] })
	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	if order == nil {
		order = []string{}
	}
	return order
}
