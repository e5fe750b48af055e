package skills

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/nexuscore/agentcore/pkg/models"
)

// regexMatchTimeout bounds a single trigger regex's match attempt so a
// pathological backtracking pattern can't stall the router.
const regexMatchTimeout = 50 * time.Millisecond

// RouterConfig bounds the router's DoS/ReDoS exposure and match threshold,
// mirroring internal/config.SkillsConfig's router_* fields.
type RouterConfig struct {
	MaxInputChars int
	MaxRegexChars int
	MinScore      float64
}

// DefaultRouterConfig mirrors config.DefaultSkillsConfig's router fields.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{MaxInputChars: 10_000, MaxRegexChars: 500, MinScore: 0.3}
}

// Match pairs a routed skill with the score and intent, if any, that won it.
type Match struct {
	Skill models.Skill
	Score float64
}

// IntentClassifier labels free text with zero or more intent tags, hybridized
// into the router's score the way spec.md §4.4's "intent label match" term
// is computed. A nil classifier simply contributes no intent score.
type IntentClassifier interface {
	Classify(text string) []string
}

// SemanticScorer contributes an embedding-similarity term so the router can
// hybridize keyword/regex matching with semantic routing, per spec.md §4.4's
// "optional semantic router ... hybridize by blending scores" note.
type SemanticScorer interface {
	Score(text string, skill models.Skill) float64
}

// Router scores free-text input against every Active skill's trigger set and
// returns the single best match, or nothing if no skill clears MinScore.
// Grounded structurally on the teacher's internal/agent/routing.Heuristic-
// Classifier tag-matching shape, generalized to weighted keyword+regex+
// intent+priority scoring with the DoS/ReDoS guards spec.md §4.4 and §8 name.
type Router struct {
	cfg        RouterConfig
	classifier IntentClassifier
	semantic   SemanticScorer
}

// NewRouter constructs a Router. classifier and semantic may both be nil.
func NewRouter(cfg RouterConfig, classifier IntentClassifier, semantic SemanticScorer) *Router {
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 10_000
	}
	if cfg.MaxRegexChars <= 0 {
		cfg.MaxRegexChars = 500
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = 0.3
	}
	return &Router{cfg: cfg, classifier: classifier, semantic: semantic}
}

const (
	weightKeyword  = 0.4
	weightRegex    = 0.3
	weightIntent   = 0.2
	weightPriority = 0.1
	// priorityNorm caps how much a skill's Priority field can contribute;
	// priorities are expected in a small human-authored range (0-10).
	priorityNorm = 10.0
)

// Route returns the best-scoring Active skill for input, or ok=false if
// input exceeds the DoS guard or no skill clears MinScore.
func (r *Router) Route(input string, skills []models.Skill) (Match, bool) {
	if len(input) > r.cfg.MaxInputChars {
		return Match{}, false
	}

	lower := strings.ToLower(input)
	var intents []string
	if r.classifier != nil {
		intents = r.classifier.Classify(input)
	}

	var best Match
	found := false
	for _, skill := range skills {
		if skill.Status != models.SkillActive {
			continue
		}
		score := r.score(lower, input, skill, intents)
		if r.semantic != nil {
			score = 0.7*score + 0.3*r.semantic.Score(input, skill)
		}
		if score >= r.cfg.MinScore && (!found || score > best.Score) {
			best = Match{Skill: skill, Score: score}
			found = true
		}
	}
	return best, found
}

func (r *Router) score(lower, original string, skill models.Skill, intents []string) float64 {
	var total float64

	if kw := keywordOverlap(lower, skill.Triggers.Keywords); kw > 0 {
		total += weightKeyword * kw
	}
	if rg := r.regexOverlap(original, skill.Triggers.Regexes); rg > 0 {
		total += weightRegex * rg
	}
	if it := intentOverlap(intents, skill.Triggers.Intents); it > 0 {
		total += weightIntent * it
	}
	if skill.Triggers.Priority > 0 {
		bonus := float64(skill.Triggers.Priority) / priorityNorm
		if bonus > 1 {
			bonus = 1
		}
		total += weightPriority * bonus
	}
	return total
}

func keywordOverlap(lower string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	hits := 0
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

// regexOverlap matches original against skill.Triggers.Regexes, skipping any
// pattern whose source text exceeds MaxRegexChars — the ReDoS guard of
// spec.md §8's "regex patterns longer than 500 chars are skipped". Uses
// regexp2 (a backtracking engine) under a bounded match timeout rather than
// Go's linear-time regexp so patterns with backreferences/lookaheads (which
// a user-authored skill trigger may contain) still can't pin a goroutine.
func (r *Router) regexOverlap(original string, patterns []string) float64 {
	if len(patterns) == 0 {
		return 0
	}
	hits := 0
	considered := 0
	for _, pattern := range patterns {
		if len(pattern) > r.cfg.MaxRegexChars {
			continue
		}
		considered++
		re, err := regexp2.Compile(pattern, regexp2.None)
		if err != nil {
			continue
		}
		re.MatchTimeout = regexMatchTimeout
		matched, err := re.MatchString(original)
		if err == nil && matched {
			hits++
		}
	}
	if considered == 0 {
		return 0
	}
	return float64(hits) / float64(considered)
}

func intentOverlap(intents, required []string) float64 {
	if len(required) == 0 {
		return 0
	}
	want := make(map[string]bool, len(required))
	for _, i := range required {
		want[i] = true
	}
	hits := 0
	for _, i := range intents {
		if want[i] {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	return float64(hits) / float64(len(required))
}
