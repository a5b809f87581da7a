// Package classify assigns a topic category and a priority tier to news
// items using keyword-frequency heuristics. The keyword tables are the
// tunable policy of the classifier: hand-curated, bilingual
// English/Spanish, and deliberately kept as reviewable constants.
package classify

import (
	"regexp"
	"strings"
)

// Category is a fixed topic bucket for report items.
type Category string

const (
	CategoryNewModels Category = "new-models"
	CategoryResearch  Category = "research"
	CategoryRobots    Category = "robots"
	CategoryFunding   Category = "funding"
	CategoryApps      Category = "apps"
	CategoryGeneral   Category = "general"
)

// DisplayOrder is the fixed order in which categories appear in a report.
var DisplayOrder = []Category{
	CategoryNewModels,
	CategoryResearch,
	CategoryRobots,
	CategoryFunding,
	CategoryApps,
	CategoryGeneral,
}

// precedence breaks ties when two categories score equally.
var precedence = []Category{
	CategoryFunding,
	CategoryNewModels,
	CategoryResearch,
	CategoryRobots,
	CategoryApps,
}

// Priority orders items within a category. Lower sorts first.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

var categoryKeywords = map[Category][]string{
	CategoryNewModels: {
		"gpt", "claude", "gemini", "llama", "mistral", "deepseek",
		"new model", "nuevo modelo", "foundation model", "frontier model",
		"model release", "open weights", "multimodal", "reasoning model",
		"checkpoint", "context window", "fine-tun", "parámetros",
	},
	CategoryResearch: {
		"research", "investigación", "paper", "arxiv", "study", "estudio",
		"benchmark", "researchers", "investigadores", "university",
		"universidad", "breakthrough", "avance científico", "findings",
		"hallazgos", "experiment", "experimento",
	},
	CategoryRobots: {
		"robot", "robótica", "robotics", "humanoid", "humanoide",
		"drone", "dron", "autonomous vehicle", "vehículo autónomo",
		"self-driving", "conducción autónoma", "actuator", "boston dynamics",
	},
	CategoryFunding: {
		"funding", "financiación", "financiamiento", "raises", "recauda",
		"series a", "series b", "series c", "series d", "serie a", "serie b",
		"seed round", "ronda semilla", "ronda de", "valuation", "valoración",
		"venture", "investors", "inversores", "investment", "inversión",
		"million", "millones", "billion", "acquisition", "adquisición", "ipo",
	},
	CategoryApps: {
		"app", "aplicación", "feature", "función", "launches", "lanza",
		"lanzamiento", "update", "actualización", "chatbot", "assistant",
		"asistente", "integration", "integración", "plugin", "users",
		"usuarios", "beta", "subscription", "suscripción",
	},
}

// aiKeywords feed the priority table, not the category scores. Short
// tokens are matched on word boundaries so "ai" does not fire on "said".
var aiKeywords = []string{
	"ai", "ia", "artificial intelligence", "inteligencia artificial",
	"machine learning", "aprendizaje automático", "llm", "deep learning",
	"neural network", "red neuronal",
}

// announcementKeywords mark first-party company news, which outranks
// commentary regardless of category.
var announcementKeywords = []string{
	"announces", "anuncia", "unveils", "presenta", "launches", "lanza",
	"introduces", "releases", "acquires", "adquiere", "partners with",
}

// Categorize picks the category whose keyword list occurs most often in
// text. All-zero scores fall back to CategoryGeneral.
func Categorize(text string) Category {
	lowered := strings.ToLower(text)

	best := CategoryGeneral
	bestScore := 0
	for _, cat := range precedence {
		score := 0
		for _, kw := range categoryKeywords[cat] {
			score += strings.Count(lowered, kw)
		}
		if score > bestScore {
			best = cat
			bestScore = score
		}
	}
	return best
}

// Score applies the fixed priority decision table.
func Score(category Category, text string) Priority {
	switch {
	case category == CategoryFunding:
		return PriorityHigh
	case containsAny(text, announcementKeywords):
		return PriorityHigh
	case category == CategoryResearch || category == CategoryRobots:
		return PriorityMedium
	case containsAny(text, aiKeywords):
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// containsAny distinguishes phrases and short words: phrases match as
// substrings, tokens of three or fewer characters require word boundaries.
func containsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)

	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}

		if strings.Contains(k, " ") {
			if strings.Contains(text, k) {
				return true
			}
			continue
		}

		if len(k) <= 3 {
			re := regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`)
			if re.MatchString(text) {
				return true
			}
			continue
		}

		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
