package classify

import "testing"

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Category
	}{
		{"empty text", "", CategoryGeneral},
		{"no keywords", "The weather was nice over the weekend", CategoryGeneral},
		{"funding round", "Acme raises $100 million in Series B funding from top investors", CategoryFunding},
		{"research paper", "Researchers publish a paper on arxiv with benchmark results", CategoryResearch},
		{"robotics", "A humanoid robot from Boston Dynamics walks on two legs", CategoryRobots},
		{"model release", "GPT and Claude get a new model release with a bigger context window", CategoryNewModels},
		{"spanish funding", "La startup recauda 50 millones en una ronda de financiación", CategoryFunding},
		{"app launch", "The chatbot assistant launches a new feature for users in beta", CategoryApps},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Categorize(tt.text); got != tt.want {
				t.Errorf("Categorize(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestCategorize_PrecedenceBreaksTies(t *testing.T) {
	// One funding keyword, one new-models keyword: funding has precedence.
	text := "funding gpt"
	if got := Categorize(text); got != CategoryFunding {
		t.Errorf("tie broken wrong: got %q, want %q", got, CategoryFunding)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		text     string
		want     Priority
	}{
		{"funding is always high", CategoryFunding, "whatever text", PriorityHigh},
		{"announcement is high", CategoryApps, "OpenAI launches a new assistant", PriorityHigh},
		{"research is medium", CategoryResearch, "a study of transformer internals", PriorityMedium},
		{"robots is medium", CategoryRobots, "warehouse automation arms", PriorityMedium},
		{"ai mention is medium", CategoryGeneral, "AI beats humans at another game", PriorityMedium},
		{"nothing special is low", CategoryGeneral, "a quiet week in tech", PriorityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.category, tt.text); got != tt.want {
				t.Errorf("Score(%q, %q) = %v, want %v", tt.category, tt.text, got, tt.want)
			}
		})
	}
}

func TestContainsAny_ShortTokensNeedWordBoundaries(t *testing.T) {
	// "ai" must not fire inside "said".
	if containsAny("he said hello", []string{"ai"}) {
		t.Error("short token matched inside a longer word")
	}
	if !containsAny("AI wins again", []string{"ai"}) {
		t.Error("short token did not match as a standalone word")
	}
	if !containsAny("the machine learning race", []string{"machine learning"}) {
		t.Error("phrase did not match as substring")
	}
}

func TestPriorityString(t *testing.T) {
	if PriorityHigh.String() != "high" || PriorityMedium.String() != "medium" || PriorityLow.String() != "low" {
		t.Error("priority names do not match their tiers")
	}
}
