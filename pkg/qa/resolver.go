package qa

import (
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/cultiflow/cultivoice/internal/models"
	"github.com/cultiflow/cultivoice/pkg/constants"
	"github.com/cultiflow/cultivoice/pkg/logger"
)

// Source tells where a resolved answer came from.
type Source string

const (
	SourceStored  Source = "stored"  // persisted pair, exact or fuzzy
	SourceKeyword Source = "keyword" // static keyword table
	SourceDefault Source = "default" // terminal fallback
)

// Fuzzy scan orders. Recent biases toward answers callers keep asking
// for, popular toward the highest counters, specific toward the longest
// stored question.
const (
	OrderRecent   = "recent"
	OrderPopular  = "popular"
	OrderSpecific = "specific"
)

// Options tune a Resolver. Zero fields take language-appropriate
// defaults in NewResolver.
type Options struct {
	Language      string
	FuzzyOrder    string
	MinFuzzyWords int
	Brand         string
	Keywords      []Keyword
	DefaultAnswer string
}

// Resolution is the outcome of a lookup. Pair is set only when the
// answer came from the store.
type Resolution struct {
	Answer  string
	Source  Source
	Matched string
	Pair    *models.QAPair
}

// Resolver turns a transcribed question into an answer through tiered
// lookup: exact store match, fuzzy store match, static keyword table,
// default fallback. Resolution always produces an answer, a broken
// store degrades to the static tiers.
type Resolver struct {
	repo Repository
	opts Options
}

func NewResolver(repo Repository, opts Options) *Resolver {
	if opts.Language == "" {
		opts.Language = constants.LANG_ENGLISH
	}
	if opts.FuzzyOrder == "" {
		opts.FuzzyOrder = OrderRecent
	}
	if opts.MinFuzzyWords <= 0 {
		opts.MinFuzzyWords = 2
	}
	if opts.Brand == "" {
		opts.Brand = "cultiflow"
	}
	if opts.Keywords == nil {
		opts.Keywords = KeywordsFor(opts.Language)
	}
	if opts.DefaultAnswer == "" {
		opts.DefaultAnswer = DefaultAnswerFor(opts.Language)
	}
	return &Resolver{repo: repo, opts: opts}
}

// Normalize lowercases a question and strips surrounding whitespace and
// trailing punctuation, so lookups ignore phrasing noise.
func Normalize(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	q = strings.TrimRight(q, ".?!,;:")
	return strings.TrimSpace(q)
}

// Resolve answers a question. Store failures are logged and degrade to
// the keyword and default tiers, the caller always gets an answer.
func (r *Resolver) Resolve(question string) *Resolution {
	norm := Normalize(question)
	if norm == "" {
		return &Resolution{Answer: r.opts.DefaultAnswer, Source: SourceDefault}
	}

	pair, err := r.repo.FindExact(norm, r.opts.Language)
	if err == nil {
		r.touch(pair)
		return &Resolution{Answer: pair.Answer, Source: SourceStored, Matched: pair.Question, Pair: pair}
	}
	if !errors.Is(err, ErrNotFound) {
		logger.Warn("qa exact lookup failed",
			zap.String("backend", r.repo.Name()), zap.Error(err))
	}

	pairs, err := r.repo.List(r.opts.Language)
	if err != nil {
		logger.Warn("qa list failed, skipping fuzzy match",
			zap.String("backend", r.repo.Name()), zap.Error(err))
	} else {
		if hit := r.fuzzyMatch(norm, pairs); hit != nil {
			r.touch(hit)
			return &Resolution{Answer: hit.Answer, Source: SourceStored, Matched: hit.Question, Pair: hit}
		}
		if hit := r.brandMatch(norm, pairs); hit != nil {
			r.touch(hit)
			return &Resolution{Answer: hit.Answer, Source: SourceStored, Matched: hit.Question, Pair: hit}
		}
	}

	for _, kw := range r.opts.Keywords {
		if strings.Contains(norm, kw.Keyword) {
			r.persist(question, norm, kw.Answer)
			return &Resolution{Answer: kw.Answer, Source: SourceKeyword, Matched: kw.Keyword}
		}
	}

	return &Resolution{Answer: r.opts.DefaultAnswer, Source: SourceDefault}
}

// fuzzyMatch scans stored pairs for substring containment in either
// direction. Questions under MinFuzzyWords words and stored pairs of a
// single word are too short to contain safely.
func (r *Resolver) fuzzyMatch(norm string, pairs []models.QAPair) *models.QAPair {
	if len(strings.Fields(norm)) < r.opts.MinFuzzyWords {
		return nil
	}
	sortPairs(pairs, r.opts.FuzzyOrder)
	for i := range pairs {
		stored := pairs[i].QuestionNorm
		if len(strings.Fields(stored)) < 2 {
			continue
		}
		if strings.Contains(stored, norm) || strings.Contains(norm, stored) {
			return &pairs[i]
		}
	}
	return nil
}

// brandMatch routes company-name questions whose wording shares no
// substring with the stored pair to the pair naming the brand.
func (r *Resolver) brandMatch(norm string, pairs []models.QAPair) *models.QAPair {
	if r.opts.Brand == "" {
		return nil
	}
	if !strings.Contains(norm, "company") || !strings.Contains(norm, "name") {
		return nil
	}
	brand := strings.ToLower(r.opts.Brand)
	for i := range pairs {
		stored := pairs[i].QuestionNorm
		if strings.Contains(stored, "company") && strings.Contains(stored, "name") &&
			strings.Contains(strings.ToLower(pairs[i].Answer), brand) {
			return &pairs[i]
		}
	}
	return nil
}

// persist stores a keyword-tier answer as a new pair so the next ask
// resolves from the store. The new pair starts with a zero counter.
func (r *Resolver) persist(question, norm, answer string) {
	pair := &models.QAPair{
		Question:     strings.TrimSpace(question),
		QuestionNorm: norm,
		Language:     r.opts.Language,
		Answer:       answer,
	}
	if err := r.repo.Upsert(pair); err != nil {
		logger.Warn("qa persist failed",
			zap.String("backend", r.repo.Name()), zap.Error(err))
	}
}

func (r *Resolver) touch(pair *models.QAPair) {
	if err := r.repo.Touch(pair); err != nil {
		logger.Warn("qa usage update failed",
			zap.String("backend", r.repo.Name()), zap.Error(err))
	}
}

func sortPairs(pairs []models.QAPair, order string) {
	switch order {
	case OrderPopular:
		sort.SliceStable(pairs, func(i, j int) bool {
			if pairs[i].UsageCount != pairs[j].UsageCount {
				return pairs[i].UsageCount > pairs[j].UsageCount
			}
			return laterUsed(&pairs[i], &pairs[j])
		})
	case OrderSpecific:
		sort.SliceStable(pairs, func(i, j int) bool {
			li, lj := len(pairs[i].QuestionNorm), len(pairs[j].QuestionNorm)
			if li != lj {
				return li > lj
			}
			return pairs[i].UsageCount > pairs[j].UsageCount
		})
	default:
		sort.SliceStable(pairs, func(i, j int) bool {
			return laterUsed(&pairs[i], &pairs[j])
		})
	}
}

// laterUsed reports whether a was used more recently than b. Never-used
// pairs sort last, full ties keep insertion order.
func laterUsed(a, b *models.QAPair) bool {
	switch {
	case a.LastUsedAt != nil && b.LastUsedAt != nil:
		if !a.LastUsedAt.Equal(*b.LastUsedAt) {
			return a.LastUsedAt.After(*b.LastUsedAt)
		}
		return a.ID < b.ID
	case a.LastUsedAt != nil:
		return true
	default:
		return false
	}
}
