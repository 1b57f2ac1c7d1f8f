package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/corpus"
	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/scoring"
	"github.com/spigell/resume-matcher/internal/server"
	"github.com/spigell/resume-matcher/internal/utils"
)

const (
	OutputTable = "table"
	OutputJSON  = "json"

	PromptBack         = "back"
	PromptExit         = "exit"
	PromptFeedback     = "Show resume feedback"
	PromptResultToFile = "Dump result to file"

	descriptionPreview = 300
)

var errExit = errors.New("exit requested")

var matchCmd = &cobra.Command{
	Use:   "match <resume-file>",
	Short: "Rank the job corpus against a resume (.pdf, .docx or .txt)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		match(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().IntP("top", "n", matching.DefaultEnrichLimit, "how many matches to show and enrich")
	matchCmd.Flags().StringP("output", "o", OutputTable, "output format: table or json")
	matchCmd.Flags().Bool("dump", false, "write the full result to a temporary json file")
	matchCmd.Flags().BoolP("interactive", "i", false, "browse the matches interactively")

	viper.BindPFlag("pipeline.enrich-limit", matchCmd.Flags().Lookup("top"))
}

func match(cmd *cobra.Command, path string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, config := setup()

	output, _ := cmd.Flags().GetString("output")
	if output != OutputTable && output != OutputJSON {
		logger.Fatal("unsupported output format", zap.String("output", output))
	}

	matcher, _, err := newMatcher(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the matcher", zap.Error(err))
	}

	text, err := readResume(path, config.Server.MaxUploadBytes)
	if err != nil {
		logger.Fatal("reading the resume", zap.Error(err))
	}

	logger.Info("starting the match", zap.String("file", path), zap.String("version", version))

	result, err := matcher.Recommend(ctx, matching.Request{Text: text})
	if err != nil {
		logger.Fatal("matching the resume", zap.Error(err))
	}

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		filename, err := corpus.DumpToTmpFile("match_*.json", result)
		if err != nil {
			logger.Fatal("dump result to file", zap.Error(err))
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
	}

	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		if err := browse(cmd.OutOrStdout(), logger, result); err != nil && !errors.Is(err, errExit) {
			logger.Fatal("exiting", zap.Error(err))
		}
		return
	}

	if err := printResult(cmd.OutOrStdout(), output, result); err != nil {
		logger.Fatal("printing the result", zap.Error(err))
	}
}

func readResume(path string, limit int64) (string, error) {
	if limit <= 0 {
		limit = server.DefaultMaxUploadBytes
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return extraction.ReadAll(filepath.Base(path), "", f, limit)
}

func printResult(w io.Writer, output string, result *matching.Result) error {
	if output == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSCORE\tSIMILARITY\tSKILLS\tLEVEL\tTITLE\tCOMPANY")
	for i, job := range result.Matches {
		fmt.Fprintf(tw, "%d\t%.3f\t%.3f\t%.0f%%\t%.2f\t%s\t%s\n",
			i+1,
			job.Score,
			job.Similarity,
			job.Analysis.MatchPercentage,
			job.Analysis.LevelMatch,
			job.Title,
			job.Company,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\ncandidates: %d, level: %s, feedback: %d/100 (%s)\n",
		result.Candidates,
		result.Experience.Level,
		result.Feedback.OverallScore,
		result.Feedback.Grade,
	)
	return nil
}

// browse lets the user pick a match and shows its score breakdown.
func browse(w io.Writer, logger *zap.Logger, result *matching.Result) error {
	for {
		items := make([]string, 0, len(result.Matches)+3)
		for i, job := range result.Matches {
			items = append(items, fmt.Sprintf("%d %.3f %s / %s", i+1, job.Score, job.Title, job.Company))
		}
		items = append(items, PromptFeedback, PromptResultToFile, PromptExit)

		prompt := promptui.Select{
			Label: "Choose a match and press ENTER",
			Items: items,
			Size:  15,
		}

		idx, selected, err := prompt.Run()
		if err != nil {
			return err
		}

		switch selected {
		case PromptExit:
			return errExit
		case PromptFeedback:
			printFeedback(w, result)
		case PromptResultToFile:
			filename, err := corpus.DumpToTmpFile("match_*.json", result)
			if err != nil {
				return fmt.Errorf("dump result to file: %w", err)
			}
			logger.Info("dumping result to file", zap.String("filename", filename))
		default:
			if err := showMatch(w, result.Matches[idx]); err != nil {
				return err
			}
		}
	}
}

func showMatch(w io.Writer, job *matching.RankedJob) error {
	a := job.Analysis

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"id", job.ID},
		{"title", job.Title},
		{"company", job.Company},
		{"level", job.Level},
		{"url", job.OriginalURL},
		{"score", fmt.Sprintf("%.3f", job.Score)},
		{"similarity", fmt.Sprintf("%.3f", job.Similarity)},
		{"semantic score", fmt.Sprintf("%.3f (%s)", a.SemanticScore, a.ScoringStrategy)},
		{"level match", fmt.Sprintf("%.2f (you: %s)", a.LevelMatch, a.CandidateLevel)},
		{"skill match", fmt.Sprintf("%.0f%%", a.MatchPercentage)},
		{"matching skills", strings.Join(a.Matching, ", ")},
		{"missing skills", strings.Join(a.Missing, ", ")},
	}
	if a.ScoringStrategy == scoring.StrategyWeighted {
		rows = append(rows,
			[2]string{"experience section", fmt.Sprintf("%.3f", a.SectionScores.Experience)},
			[2]string{"skills section", fmt.Sprintf("%.3f", a.SectionScores.Skills)},
			[2]string{"education section", fmt.Sprintf("%.3f", a.SectionScores.Education)},
		)
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s\n\n", utils.TruncateForLog(job.Description, descriptionPreview))

	back := promptui.Select{Label: "Continue", Items: []string{PromptBack}}
	_, _, err := back.Run()
	return err
}

func printFeedback(w io.Writer, result *matching.Result) {
	fb := result.Feedback
	fmt.Fprintf(w, "\n%s (%d/100, grade %s)\n", fb.Summary, fb.OverallScore, fb.Grade)
	for _, s := range fb.Strengths {
		fmt.Fprintf(w, "  + %s\n", s)
	}
	for _, s := range fb.Suggestions {
		fmt.Fprintf(w, "  [%s] %s: %s\n", s.Severity, s.Title, s.Message)
	}
	fmt.Fprintln(w)
}
