// voicectl is the operator tool for the assistant: it manages stored
// question/answer pairs, inspects calls and renders greeting audio
// without going through the switch.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cast"
	"gorm.io/gorm"

	"github.com/cultiflow/cultivoice/cmd/bootstrap"
	"github.com/cultiflow/cultivoice/internal/models"
	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/constants"
	"github.com/cultiflow/cultivoice/pkg/logger"
	"github.com/cultiflow/cultivoice/pkg/qa"
	"github.com/cultiflow/cultivoice/pkg/synthesizer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		usage()
		return
	}

	if err := config.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(&config.GlobalConfig.Log, config.GlobalConfig.App.Mode); err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}

	var err error
	switch cmd {
	case "add":
		err = cmdAdd(args)
	case "update":
		err = cmdUpdate(args)
	case "delete":
		err = cmdDelete(args)
	case "list":
		err = cmdList(args)
	case "search":
		err = cmdSearch(args)
	case "view":
		err = cmdView(args)
	case "calls":
		err = cmdCalls(args)
	case "turns":
		err = cmdTurns(args)
	case "stats":
		err = cmdStats(args)
	case "seed":
		err = cmdSeed(args)
	case "say":
		err = cmdSay(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		logger.Sync()
		os.Exit(2)
	}
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: voicectl <command> [flags]

QA pairs:
  add     -q <question> -a <answer> [-lang en]  store or update a pair
  update  -id <id> [-q ...] [-a ...]            edit a pair by row id
  delete  -q <question> [-lang en]              remove a pair everywhere
  list    [-lang ...] [-limit 50]               pairs, most used first
  search  -q <term> [-lang ...]                 find pairs by substring
  seed                                          load the starter pairs

Calls:
  view    -id <call-id>                         one call with its turns
  calls   [-limit 10]                           recent calls
  turns   [-limit 20]                           latest turns across calls
  stats   [-date YYYY-MM-DD]                    call aggregates

Audio:
  say     [-text ...] [-lang tw] [-o out.wav]   render a phrase to WAV
`)
}

// openDatabase prepares the configured store with SQL chatter silenced,
// the tool's own output stays readable.
func openDatabase() (*gorm.DB, error) {
	return bootstrap.SetupDatabase(io.Discard, &bootstrap.Options{AutoMigrate: true})
}

// openRepository builds the same backend stack the assistant resolves
// against, so edits land exactly where lookups read.
func openRepository(db *gorm.DB) qa.Repository {
	mirror := bootstrap.OpenMirror(&config.GlobalConfig.QA)
	repo := qa.NewRepository(config.GlobalConfig.QA.Backend, db, mirror)
	if repo.Name() == "memory" {
		fmt.Fprintln(os.Stderr, "warning: qa backend is memory, edits will not outlive this run")
	}
	return repo
}

func cmdAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	question := fs.String("q", "", "question wording")
	answer := fs.String("a", "", "answer text")
	lang := fs.String("lang", constants.LANG_ENGLISH, "language tag")
	fs.Parse(args)

	if *question == "" || *answer == "" {
		fs.Usage()
		return errors.New("add needs -q and -a")
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	pair := &models.QAPair{
		Question:     *question,
		QuestionNorm: qa.Normalize(*question),
		Language:     *lang,
		Answer:       *answer,
	}
	if err := openRepository(db).Upsert(pair); err != nil {
		return err
	}
	fmt.Printf("stored pair %d [%s] %q\n", pair.ID, pair.Language, pair.Question)
	return nil
}

func cmdUpdate(args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	id := fs.String("id", "", "row id of the pair")
	question := fs.String("q", "", "new question wording")
	answer := fs.String("a", "", "new answer text")
	fs.Parse(args)

	pairID := cast.ToUint(*id)
	if pairID == 0 {
		fs.Usage()
		return errors.New("update needs -id")
	}
	if *question == "" && *answer == "" {
		return errors.New("update needs -q or -a")
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	pair, err := models.GetQAPairByID(db, pairID)
	if err != nil {
		return fmt.Errorf("pair %d not found: %w", pairID, err)
	}
	if *question != "" {
		pair.Question = *question
		pair.QuestionNorm = qa.Normalize(*question)
	}
	if *answer != "" {
		pair.Answer = *answer
	}
	if err := models.UpdateQAPair(db, pair); err != nil {
		return err
	}
	fmt.Printf("updated pair %d [%s] %q\n", pair.ID, pair.Language, pair.Question)
	return nil
}

func cmdDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	question := fs.String("q", "", "question wording to delete")
	lang := fs.String("lang", constants.LANG_ENGLISH, "language tag")
	fs.Parse(args)

	if *question == "" {
		fs.Usage()
		return errors.New("delete needs -q")
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	deleted, err := openRepository(db).Delete(qa.Normalize(*question), *lang)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("no pair matches %q [%s]", *question, *lang)
	}
	fmt.Printf("deleted %q [%s]\n", *question, *lang)
	return nil
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	lang := fs.String("lang", "", "language tag, empty for all")
	limit := fs.Int("limit", 50, "maximum rows")
	fs.Parse(args)

	db, err := openDatabase()
	if err != nil {
		return err
	}
	pairs, err := models.TopQAPairs(db, *lang, *limit)
	if err != nil {
		return err
	}
	printPairs(pairs)

	total, err := models.CountQAPairs(db, *lang)
	if err != nil {
		return err
	}
	fmt.Printf("%d of %d pairs\n", len(pairs), total)
	return nil
}

func cmdSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	term := fs.String("q", "", "substring to find")
	lang := fs.String("lang", "", "language tag, empty for all")
	fs.Parse(args)

	if *term == "" {
		fs.Usage()
		return errors.New("search needs -q")
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	pairs, err := models.SearchQAPairs(db, *term, *lang, 50)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		fmt.Println("no matches")
		return nil
	}
	printPairs(pairs)
	return nil
}

func cmdView(args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	id := fs.String("id", "", "call row id or call uuid")
	fs.Parse(args)

	if *id == "" {
		fs.Usage()
		return errors.New("view needs -id")
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	var call *models.Call
	if rowID := cast.ToUint(*id); rowID > 0 {
		call, err = models.GetCallByID(db, rowID)
	} else {
		call, err = models.GetCallWithConversations(db, *id)
	}
	if err != nil {
		return fmt.Errorf("call %s not found: %w", *id, err)
	}

	fmt.Printf("call %d  %s\n", call.ID, call.CallUUID)
	fmt.Printf("  caller %s  extension %s  language %s\n",
		orDash(call.CallerNumber), orDash(call.Extension), call.Language)
	fmt.Printf("  status %s  started %s  duration %.1fs  turns %d\n",
		call.Status, call.StartTime.Format("2006-01-02 15:04:05"), call.Duration, call.Turns)
	if call.ErrorMessage != "" {
		fmt.Printf("  error %s\n", call.ErrorMessage)
	}
	for _, turn := range call.Conversations {
		fmt.Printf("  %d. Q [%s] %s\n", turn.Sequence, turn.QuestionLang, turn.Question)
		fmt.Printf("     A [%s] (%s) %s\n", turn.AnswerLang, turn.AnswerSource, turn.Answer)
		if turn.FailureReason != "" {
			fmt.Printf("     failure %s\n", turn.FailureReason)
		}
		if t := turn.Timings; t != (models.StageTimings{}) {
			fmt.Printf("     timings stt=%dms resolve=%dms tts=%dms\n",
				t.TranscribeMs, t.ResolveMs, t.SynthesizeMs)
		}
	}
	return nil
}

func cmdCalls(args []string) error {
	fs := flag.NewFlagSet("calls", flag.ExitOnError)
	limit := fs.Int("limit", 10, "maximum rows")
	fs.Parse(args)

	db, err := openDatabase()
	if err != nil {
		return err
	}
	calls, err := models.GetRecentCalls(db, *limit)
	if err != nil {
		return err
	}
	if len(calls) == 0 {
		fmt.Println("no calls recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tLANG\tTURNS\tSECONDS\tCALLER")
	for _, c := range calls {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%.1f\t%s\n",
			c.ID, c.StartTime.Format("2006-01-02 15:04:05"), c.Status,
			c.Language, c.Turns, c.Duration, orDash(c.CallerNumber))
	}
	return w.Flush()
}

func cmdTurns(args []string) error {
	fs := flag.NewFlagSet("turns", flag.ExitOnError)
	limit := fs.Int("limit", 20, "maximum rows")
	fs.Parse(args)

	db, err := openDatabase()
	if err != nil {
		return err
	}
	turns, err := models.GetRecentConversations(db, *limit)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		fmt.Println("no turns recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tCALL\tSOURCE\tQUESTION\tANSWER")
	for _, c := range turns {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			c.CreatedAt.Format("2006-01-02 15:04:05"), c.CallID, c.AnswerSource,
			ellipsize(c.Question, 40), ellipsize(c.Answer, 50))
	}
	return w.Flush()
}

func cmdStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	date := fs.String("date", "", "calendar day as YYYY-MM-DD")
	fs.Parse(args)

	db, err := openDatabase()
	if err != nil {
		return err
	}

	if *date != "" {
		day, err := time.ParseInLocation("2006-01-02", *date, time.Local)
		if err != nil {
			return fmt.Errorf("bad -date %q: %w", *date, err)
		}
		stats, err := models.GetDailyCallStats(db, day)
		if err != nil {
			return err
		}
		fmt.Printf("%s  calls %d (%d completed, %d failed)  turns %d\n",
			stats.Date, stats.Calls, stats.Completed, stats.Failed, stats.Conversations)
		return nil
	}

	stats, err := models.GetCallStatistics(db)
	if err != nil {
		return err
	}
	fmt.Printf("total calls       %d\n", stats.TotalCalls)
	fmt.Printf("calls today       %d\n", stats.TodayCalls)
	fmt.Printf("total turns       %d\n", stats.TotalConversations)
	fmt.Printf("average duration  %.1fs\n", stats.AverageDuration)
	return nil
}

func cmdSeed(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("seed takes no arguments, got %q", args)
	}
	db, err := openDatabase()
	if err != nil {
		return err
	}
	return bootstrap.NewSeedService(db).SeedAll()
}

func cmdSay(args []string) error {
	fs := flag.NewFlagSet("say", flag.ExitOnError)
	text := fs.String("text", "", "phrase to render (default: the welcome line)")
	lang := fs.String("lang", constants.LANG_TWI, "language tag")
	output := fs.String("o", "out.wav", "output WAV path")
	fs.Parse(args)

	phrase := *text
	if phrase == "" {
		phrase = qa.WelcomeFor(*lang)
	}

	cfg := config.GlobalConfig.Services.TTS
	cfg.Language = *lang
	tts, err := synthesizer.NewSynthesisService(&cfg, nil, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	clip, err := tts.Synthesize(ctx, phrase)
	if err != nil {
		return err
	}
	if err := audio.WriteWAV(*output, clip); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%.1fs of audio) for %q\n", *output, clip.Duration().Seconds(), phrase)
	return nil
}

func printPairs(pairs []models.QAPair) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLANG\tUSED\tQUESTION\tANSWER")
	for _, p := range pairs {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			p.ID, p.Language, p.UsageCount, ellipsize(p.Question, 40), ellipsize(p.Answer, 60))
	}
	w.Flush()
}

// ellipsize shortens a cell so tabwriter columns stay on one screen.
func ellipsize(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
