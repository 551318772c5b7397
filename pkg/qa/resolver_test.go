package qa

import (
	"testing"
	"time"

	"github.com/cultiflow/cultivoice/internal/models"
)

func seedPair(t *testing.T, repo Repository, question, answer, language string) *models.QAPair {
	t.Helper()
	pair := &models.QAPair{
		Question:     question,
		QuestionNorm: Normalize(question),
		Language:     language,
		Answer:       answer,
	}
	if err := repo.Upsert(pair); err != nil {
		t.Fatalf("seed %q: %v", question, err)
	}
	return pair
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{" What is Cultiflow? ", "what is cultiflow"},
		{"HELLO!!", "hello"},
		{"Where are you located?!;", "where are you located"},
		{"wo ho te sɛn", "wo ho te sɛn"},
		{"", ""},
		{"  ?!  ", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveExactMatch(t *testing.T) {
	repo := NewMemoryRepository()
	seedPair(t, repo, "What is Cultiflow?", "Cultiflow is a technology company in Ghana.", "en")
	resolver := NewResolver(repo, Options{Language: "en"})

	res := resolver.Resolve("  what is CULTIFLOW?! ")
	if res.Source != SourceStored {
		t.Fatalf("source = %q, want %q", res.Source, SourceStored)
	}
	if res.Answer != "Cultiflow is a technology company in Ghana." {
		t.Errorf("unexpected answer %q", res.Answer)
	}
	if res.Matched != "What is Cultiflow?" {
		t.Errorf("matched = %q, want stored question", res.Matched)
	}

	stored, err := repo.FindExact("what is cultiflow", "en")
	if err != nil {
		t.Fatalf("find after resolve: %v", err)
	}
	if stored.UsageCount != 1 {
		t.Errorf("usage count = %d, want 1", stored.UsageCount)
	}
	if stored.LastUsedAt == nil {
		t.Error("last used not stamped")
	}
}

func TestResolveFuzzyBothDirections(t *testing.T) {
	repo := NewMemoryRepository()
	seedPair(t, repo, "What services do you offer?", "We offer voice assistants.", "en")
	resolver := NewResolver(repo, Options{Language: "en"})

	for _, question := range []string{
		"services do you offer",
		"please tell me what services do you offer now",
	} {
		res := resolver.Resolve(question)
		if res.Source != SourceStored {
			t.Fatalf("Resolve(%q) source = %q, want %q", question, res.Source, SourceStored)
		}
		if res.Answer != "We offer voice assistants." {
			t.Errorf("Resolve(%q) answer = %q", question, res.Answer)
		}
	}

	stored, err := repo.FindExact("what services do you offer", "en")
	if err != nil {
		t.Fatalf("find after resolve: %v", err)
	}
	if stored.UsageCount != 2 {
		t.Errorf("usage count = %d, want 2", stored.UsageCount)
	}
}

func TestResolveFuzzyNeedsTwoWords(t *testing.T) {
	repo := NewMemoryRepository()
	seedPair(t, repo, "What services do you offer?", "We offer voice assistants.", "en")
	resolver := NewResolver(repo, Options{Language: "en"})

	res := resolver.Resolve("services")
	if res.Source != SourceDefault {
		t.Fatalf("source = %q, want %q", res.Source, SourceDefault)
	}
	if res.Answer != DefaultAnswerFor("en") {
		t.Errorf("answer = %q, want default", res.Answer)
	}
}

func TestResolveSkipsSingleWordPairs(t *testing.T) {
	repo := NewMemoryRepository()
	seedPair(t, repo, "Help!", "custom stored help answer", "en")
	resolver := NewResolver(repo, Options{Language: "en"})

	res := resolver.Resolve("help me figure this out")
	if res.Source != SourceKeyword {
		t.Fatalf("source = %q, want %q", res.Source, SourceKeyword)
	}
	if res.Answer == "custom stored help answer" {
		t.Error("fuzzy match hit a single-word pair")
	}

	// The keyword tier persisted the full question, so the next ask is
	// an exact hit.
	res = resolver.Resolve("help me figure this out")
	if res.Source != SourceStored {
		t.Fatalf("second source = %q, want %q", res.Source, SourceStored)
	}
}

func TestResolveKeywordPersistsPair(t *testing.T) {
	repo := NewMemoryRepository()
	resolver := NewResolver(repo, Options{Language: "en"})

	res := resolver.Resolve("What is your phone")
	if res.Source != SourceKeyword {
		t.Fatalf("source = %q, want %q", res.Source, SourceKeyword)
	}
	if res.Matched != "phone" {
		t.Errorf("matched = %q, want keyword", res.Matched)
	}

	stored, err := repo.FindExact("what is your phone", "en")
	if err != nil {
		t.Fatalf("persisted pair missing: %v", err)
	}
	if stored.Question != "What is your phone" {
		t.Errorf("stored question = %q", stored.Question)
	}
	if stored.UsageCount != 0 {
		t.Errorf("new pair usage = %d, want 0", stored.UsageCount)
	}
	if stored.LastUsedAt != nil {
		t.Error("new pair should not be stamped as used")
	}
}

func TestResolveBrandFallback(t *testing.T) {
	repo := NewMemoryRepository()
	seedPair(t, repo, "What is the company name?", "The company name is Cultiflow.", "en")
	resolver := NewResolver(repo, Options{Language: "en"})

	res := resolver.Resolve("name of the company")
	if res.Source != SourceStored {
		t.Fatalf("source = %q, want %q", res.Source, SourceStored)
	}
	if res.Answer != "The company name is Cultiflow." {
		t.Errorf("answer = %q", res.Answer)
	}

	// Without the word company the question falls to the keyword tier.
	res = resolver.Resolve("name of the organization")
	if res.Source != SourceKeyword {
		t.Fatalf("source = %q, want %q", res.Source, SourceKeyword)
	}
}

func TestResolveDefaultAndEmpty(t *testing.T) {
	resolver := NewResolver(NewMemoryRepository(), Options{Language: "en"})

	for _, question := range []string{"banana kumquat", "", "   ?!  "} {
		res := resolver.Resolve(question)
		if res.Source != SourceDefault {
			t.Fatalf("Resolve(%q) source = %q, want %q", question, res.Source, SourceDefault)
		}
		if res.Answer != DefaultAnswerFor("en") {
			t.Errorf("Resolve(%q) answer = %q", question, res.Answer)
		}
	}
}

func TestResolveSurvivesBrokenStore(t *testing.T) {
	resolver := NewResolver(failingRepo{}, Options{Language: "en"})

	res := resolver.Resolve("what is the location of the office")
	if res.Source != SourceKeyword {
		t.Fatalf("source = %q, want %q", res.Source, SourceKeyword)
	}

	res = resolver.Resolve("banana kumquat")
	if res.Source != SourceDefault {
		t.Fatalf("source = %q, want %q", res.Source, SourceDefault)
	}
}

func TestResolveTwiKeywords(t *testing.T) {
	repo := NewMemoryRepository()
	resolver := NewResolver(repo, Options{Language: "tw"})

	res := resolver.Resolve("wo ho te sɛn")
	if res.Source != SourceKeyword {
		t.Fatalf("source = %q, want %q", res.Source, SourceKeyword)
	}
	if res.Answer != "Me ho ye. Meda wo ase sɛ wobu me. Wo ho te sɛn?" {
		t.Errorf("answer = %q", res.Answer)
	}

	if _, err := repo.FindExact("wo ho te sɛn", "tw"); err != nil {
		t.Errorf("keyword answer not persisted: %v", err)
	}

	res = resolver.Resolve("hmm mmm")
	if res.Answer != DefaultAnswerFor("tw") {
		t.Errorf("fallback answer = %q, want twi default", res.Answer)
	}
}

func TestSortPairs(t *testing.T) {
	older := time.Now().Add(-2 * time.Hour)
	newer := time.Now()
	build := func() []models.QAPair {
		return []models.QAPair{
			{ID: 1, QuestionNorm: "a b c d", UsageCount: 5, LastUsedAt: &older},
			{ID: 2, QuestionNorm: "bb cc dd ee ff gg hh", UsageCount: 2, LastUsedAt: &newer},
			{ID: 3, QuestionNorm: "aaaa bbbb", UsageCount: 9},
		}
	}

	cases := []struct {
		order string
		want  []uint
	}{
		{OrderRecent, []uint{2, 1, 3}},
		{OrderPopular, []uint{3, 1, 2}},
		{OrderSpecific, []uint{2, 3, 1}},
	}
	for _, tc := range cases {
		pairs := build()
		sortPairs(pairs, tc.order)
		for i, id := range tc.want {
			if pairs[i].ID != id {
				t.Errorf("order %s: position %d = id %d, want %d", tc.order, i, pairs[i].ID, id)
			}
		}
	}
}
