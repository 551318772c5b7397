package bootstrap

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cultiflow/cultivoice/internal/models"
	"github.com/cultiflow/cultivoice/pkg/constants"
	"github.com/cultiflow/cultivoice/pkg/logger"
	"github.com/cultiflow/cultivoice/pkg/qa"
)

type SeedService struct {
	db *gorm.DB
}

func NewSeedService(db *gorm.DB) *SeedService {
	return &SeedService{db: db}
}

// SeedAll loads the starter answer set. Company pairs go first so their
// answers win when a builtin shares the same normalized question.
func (s *SeedService) SeedAll() error {
	if err := s.seedCompanyPairs(); err != nil {
		return err
	}
	return s.seedAssistantPairs()
}

// companyPairs is the starter set about the company itself. The "what
// do you do" variants share one answer so sloppy transcripts still
// resolve to it.
var companyPairs = [][2]string{
	{"What is Cultiflow?", "Cultiflow is a technology company in Ghana. We build voice assistants and software."},
	{"What services do you offer?", "We offer voice assistants, IVR systems, and business software solutions."},
	{"Where are you located?", "We are based in Accra, Ghana."},
	{"What is the company name?", "The company name is Cultiflow."},
	{"How can I reach you?", "You can call this number or email info@cultiflow.com."},
	{"Who runs Cultiflow?", "Cultiflow is run by the Cultiflow team."},
	{"What do you do?", "We build voice assistants, IVR systems, and business software."},
	{"what you do", "We build voice assistants, IVR systems, and business software."},
	{"what does you do", "We build voice assistants, IVR systems, and business software."},
	{"what do we do", "We build voice assistants, IVR systems, and business software."},
	{"what does cultiflow do", "We build voice assistants, IVR systems, and business software."},
	{"Where is Cultiflow?", "Cultiflow is based in Ghana."},
	{"How can I contact you?", "Call this number or visit the Cultiflow website."},
}

func (s *SeedService) seedCompanyPairs() error {
	pairs := make([]models.QAPair, 0, len(companyPairs))
	for _, entry := range companyPairs {
		pairs = append(pairs, models.QAPair{
			Question:     entry[0],
			QuestionNorm: qa.Normalize(entry[0]),
			Language:     constants.LANG_ENGLISH,
			Answer:       entry[1],
		})
	}
	return s.seedPairs("company", pairs)
}

func (s *SeedService) seedAssistantPairs() error {
	return s.seedPairs("assistant", qa.BuiltinPairs(constants.LANG_ENGLISH))
}

// seedPairs inserts the pairs that are missing. Existing rows are left
// untouched so reseeding never resets usage counters.
func (s *SeedService) seedPairs(kind string, pairs []models.QAPair) error {
	created := 0
	for i := range pairs {
		pair := pairs[i]
		_, err := models.GetQAPairByNorm(s.db, pair.QuestionNorm, pair.Language)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := models.CreateQAPair(s.db, &pair); err != nil {
			logger.Error("Failed to seed qa pair",
				zap.String("question", pair.Question),
				zap.Error(err))
			continue
		}
		created++
	}
	logger.Info("qa pairs seeded",
		zap.String("kind", kind),
		zap.Int("created", created),
		zap.Int("existing", len(pairs)-created))
	return nil
}
