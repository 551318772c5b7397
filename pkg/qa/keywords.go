package qa

import (
	"github.com/cultiflow/cultivoice/internal/models"
	"github.com/cultiflow/cultivoice/pkg/constants"
)

// Keyword maps a substring of the caller's question to a canned answer.
type Keyword struct {
	Keyword string
	Answer  string
}

// Stock assistant pairs seeded into every English repository. Order is
// the seeding order, earlier entries win when norms collide.
var englishBuiltins = [][2]string{
	{"hello", "Hello! How can I help you today?"},
	{"hi", "Hi there! What can I do for you?"},
	{"good morning", "Good morning! How may I assist you?"},
	{"good afternoon", "Good afternoon! How can I help you?"},
	{"good evening", "Good evening! What do you need?"},
	{"what is your name", "I am a voice assistant. How can I help you?"},
	{"who are you", "I am a voice assistant designed to answer your questions."},
	{"what can you do", "I can answer questions and help you with information. What would you like to know?"},
	{"where are you located", "I am a virtual assistant, so I don't have a physical location."},
	{"where is the office", "Please contact our main office for location information."},
	{"what is your address", "For address information, please contact our main office."},
	{"how can you help me", "I can answer questions and provide information. What would you like to know?"},
	{"what do you do", "I answer questions and provide information. Ask me anything!"},
	{"help", "I'm here to help! What do you need assistance with?"},
}

var englishKeywords = []Keyword{
	{"name", "I am a voice assistant. How can I help you?"},
	{"location", "For location information, please contact our main office."},
	{"address", "For address information, please contact our main office."},
	{"help", "I'm here to help! What do you need assistance with?"},
	{"contact", "For contact information, please reach out to our main office."},
	{"phone", "For phone number information, please contact our main office."},
	{"email", "For email information, please contact our main office."},
}

var twiKeywords = []Keyword{
	{"wo ho te sɛn", "Me ho ye. Meda wo ase sɛ wobu me. Wo ho te sɛn?"},
	{"wo ho te sen", "Me ho ye. Meda wo ase sɛ wobu me. Wo ho te sɛn?"},
	{"ɛte sɛn", "Ɛyɛ. Me ho ye. Ɛte sɛn wo nso?"},
	{"akwaaba", "Meda wo ase. Yɛma wo akwaaba!"},
	{"meda wo ase", "Mepa wo kyɛw. Ɛyɛ me anigyeɛ sɛ meka wo ho."},
	{"me din", "Me din ne Cultiflow Voice Assistant. Me bɛboa wo sɛn?"},
	{"wo din", "Me din ne Cultiflow Voice Assistant. Me bɛboa wo sɛn?"},
	{"help", "Mepɛ sɛ meboa wo. Ka me sɛn na ɛsɛ sɛ meyɛ ma wo."},
	{"boa me", "Mepɛ sɛ meboa wo. Ka me sɛn na ɛsɛ sɛ meyɛ ma wo."},
}

const (
	englishDefaultAnswer = "I'm sorry, I didn't understand that clearly. Could you please repeat your question?"
	twiDefaultAnswer     = "Meda wo ase sɛ wobu me. Mepɛ sɛ meboa wo, nanso me nte asɛm no yi yiye. San ka bio, anaa ka me sɛn na ɛsɛ sɛ meyɛ ma wo."
	twiApology           = "Mepa wo kyɛw, me nte asɛm no yi yiye. San ka bio."
	englishWelcome       = "Welcome to Cultiflow. How can I help you today?"
	twiWelcome           = "Akwaaba. Yɛma wo akwaaba wɔ Cultiflow."
)

// BuiltinPairs returns the stock assistant pairs for a language, ready to
// seed into a repository.
func BuiltinPairs(language string) []models.QAPair {
	var src [][2]string
	if language == constants.LANG_ENGLISH {
		src = englishBuiltins
	}
	pairs := make([]models.QAPair, 0, len(src))
	for _, qa := range src {
		pairs = append(pairs, models.QAPair{
			Question:     qa[0],
			QuestionNorm: Normalize(qa[0]),
			Language:     language,
			Answer:       qa[1],
		})
	}
	return pairs
}

// KeywordsFor returns the static keyword table for a language. Unknown
// languages get the English table.
func KeywordsFor(language string) []Keyword {
	if language == constants.LANG_TWI {
		return twiKeywords
	}
	return englishKeywords
}

// DefaultAnswerFor returns the terminal fallback answer for a language.
func DefaultAnswerFor(language string) string {
	if language == constants.LANG_TWI {
		return twiDefaultAnswer
	}
	return englishDefaultAnswer
}

// ApologyFor returns the line behind the fallback clip, heard whenever a
// turn fails before a real answer reaches the output path.
func ApologyFor(language string) string {
	if language == constants.LANG_TWI {
		return twiApology
	}
	return englishDefaultAnswer
}

// WelcomeFor returns the greeting line rendered for the switch to play
// when a call is answered.
func WelcomeFor(language string) string {
	if language == constants.LANG_TWI {
		return twiWelcome
	}
	return englishWelcome
}

// SeedBuiltins loads the stock pairs for a language into a repository.
// Existing rows keep their usage counters.
func SeedBuiltins(repo Repository, language string) error {
	for _, pair := range BuiltinPairs(language) {
		p := pair
		if err := repo.Upsert(&p); err != nil {
			return err
		}
	}
	return nil
}
