// Package skills implements pattern mining, skill generation, storage,
// routing, and execution (spec.md §4.4). Grounded structurally on the
// teacher's internal/skills package shape (Manager, Store, config-gated
// IsEnabled, status enum) even though the teacher's own package mines
// skills from markdown files on disk rather than from tool-call
// sequences in the event log — the mining/generation/routing logic here
// is new, built to spec, in that structural idiom.
package skills

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/nexuscore/agentcore/pkg/models"
)

func toolNameFromPayload(payload json.RawMessage) string {
	var p models.ToolCallPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return ""
	}
	return p.ToolName
}

func userInputFromPayload(payload json.RawMessage) string {
	var p models.UserInputPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return ""
	}
	return p.Text
}

// ExtractToolSequence pulls the ordered tool names called during one
// execution out of its event stream, for feeding into the analyzer.
func ExtractToolSequence(events []models.Event) []string {
	var seq []string
	for _, evt := range events {
		if evt.Kind != models.EventToolCall {
			continue
		}
		// The caller is expected to have already decoded ToolCallPayload
		// elsewhere in the pipeline (eventstore.describe does this for
		// display); here we only need the tool name, so a cheap decode
		// keeps this package free of an eventstore import.
		name := toolNameFromPayload(evt.Payload)
		if name != "" {
			seq = append(seq, name)
		}
	}
	return seq
}

// ExtractUserInput pulls the original request text out of an execution's
// UserInput event, for feeding into the analyzer's keyword extraction
// alongside ExtractToolSequence's tool-name sequence.
func ExtractUserInput(events []models.Event) string {
	for _, evt := range events {
		if evt.Kind == models.EventUserInput {
			return userInputFromPayload(evt.Payload)
		}
	}
	return ""
}

// ExecutionRecord pairs one execution's ordered tool-call sequence with
// the text of its UserInput event — the two inputs the pattern analyzer
// needs per spec.md §4.4: the sequence for n-gram mining, the text for
// "candidate keywords from the UserInput text of matching executions."
type ExecutionRecord struct {
	ToolSequence []string
	UserInput    string
}

// AnalyzerConfig bounds what the n-gram miner considers a pattern worth
// surfacing.
type AnalyzerConfig struct {
	MinNGram       int
	MaxNGram       int
	MinOccurrences int
	MinConfidence  float64
	// TopKKeywords caps how many ranked keywords a surviving pattern keeps,
	// per spec.md §4.4's "frequency ranking (top-K, default 5)".
	TopKKeywords int
}

// DefaultAnalyzerConfig mirrors internal/config.SkillsConfig's defaults.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{MinNGram: 2, MaxNGram: 5, MinOccurrences: 3, MinConfidence: 0.6, TopKKeywords: 5}
}

// Analyzer mines repeated tool-name n-grams across many executions'
// sequences.
type Analyzer struct {
	cfg AnalyzerConfig
}

// NewAnalyzer constructs an Analyzer.
func NewAnalyzer(cfg AnalyzerConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

type ngramKey string

func keyFor(seq []string) ngramKey {
	return ngramKey(strings.Join(seq, "\x1f"))
}

// Analyze mines records (one ExecutionRecord per execution) for repeated
// contiguous tool-name n-grams meeting the configured occurrence and
// confidence thresholds, returning one DetectedPattern per surviving
// n-gram, longest-first so a longer pattern is preferred over a shorter
// sub-pattern it subsumes. Each pattern's Keywords are ranked by frequency
// across the UserInput text of every matching execution, per spec.md
// §4.4.
func (a *Analyzer) Analyze(records []ExecutionRecord) []models.DetectedPattern {
	total := len(records)
	counts := map[ngramKey]int{}
	samples := map[ngramKey][]string{}
	grams := map[ngramKey][]string{}
	keywordTexts := map[ngramKey][]string{}

	maxN := a.cfg.MaxNGram
	if maxN <= 0 {
		maxN = 5
	}
	minN := a.cfg.MinNGram
	if minN <= 0 {
		minN = 2
	}

	for seqIdx, rec := range records {
		seq := rec.ToolSequence
		seen := map[ngramKey]bool{}
		for n := minN; n <= maxN && n <= len(seq); n++ {
			for i := 0; i+n <= len(seq); i++ {
				gram := seq[i : i+n]
				key := keyFor(gram)
				if seen[key] {
					continue // count each execution at most once per n-gram
				}
				seen[key] = true
				counts[key]++
				grams[key] = gram
				if len(samples[key]) < 3 {
					samples[key] = append(samples[key], sampleLabel(seqIdx, gram))
				}
				if rec.UserInput != "" {
					keywordTexts[key] = append(keywordTexts[key], rec.UserInput)
				}
			}
		}
	}

	topK := a.cfg.TopKKeywords
	if topK <= 0 {
		topK = 5
	}

	var patterns []models.DetectedPattern
	for key, count := range counts {
		if count < a.cfg.MinOccurrences {
			continue
		}
		confidence := float64(count) / float64(total)
		if total > 0 && confidence < a.cfg.MinConfidence {
			continue
		}
		gram := grams[key]
		patterns = append(patterns, models.DetectedPattern{
			ToolSequence:    append([]string(nil), gram...),
			Occurrences:     count,
			TotalExecutions: total,
			Keywords:        keywordsFromTexts(keywordTexts[key], topK),
			SampleInputs:    samples[key],
			Status:          models.PatternDetected,
			DetectedAt:      time.Now().UTC(),
		})
	}

	sort.Slice(patterns, func(i, j int) bool {
		if len(patterns[i].ToolSequence) != len(patterns[j].ToolSequence) {
			return len(patterns[i].ToolSequence) > len(patterns[j].ToolSequence)
		}
		return patterns[i].Occurrences > patterns[j].Occurrences
	})
	return patterns
}

func sampleLabel(seqIdx int, gram []string) string {
	return strings.Join(gram, " -> ")
}

// skillStopwords are dropped before keyword frequency ranking. Per the
// Open Question in spec.md §9 ("keyword-stopword list language coverage
// is ambiguous... define it explicitly per deployment"), this is an
// English-only default.
var skillStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "to": true, "and": true,
	"in": true, "on": true, "for": true, "with": true, "is": true, "my": true,
	"i": true, "me": true, "you": true, "it": true, "this": true, "that": true,
	"please": true, "can": true, "could": true, "would": true, "do": true,
	"does": true, "be": true, "are": true, "was": true, "were": true,
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// keywordsFromTexts tokenizes texts (one execution's UserInput per
// element), strips stopwords, ranks the survivors by occurrence frequency
// across all of them (ties broken alphabetically for determinism), and
// returns the top topK — spec.md §4.4's "frequency ranking (top-K,
// default 5)."
func keywordsFromTexts(texts []string, topK int) []string {
	if topK <= 0 {
		topK = 5
	}
	freq := map[string]int{}
	var order []string
	for _, text := range texts {
		for _, tok := range tokenize(text) {
			if tok == "" || skillStopwords[tok] {
				continue
			}
			if freq[tok] == 0 {
				order = append(order, tok)
			}
			freq[tok]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		if freq[order[i]] != freq[order[j]] {
			return freq[order[i]] > freq[order[j]]
		}
		return order[i] < order[j]
	})
	if len(order) > topK {
		order = order[:topK]
	}
	return order
}
