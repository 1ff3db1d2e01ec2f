package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
)

var (
	fixSubjectPath string
	fixResultPath  string
	fixOutcomePath string
	fixOutPath     string
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Feed validation signals back to the oracle for a corrected rule set",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.close()

		subject, err := loadSubject(fixSubjectPath)
		if err != nil {
			return err
		}

		var prior rules.SynthesisResult
		if err := readJSON(fixResultPath, &prior); err != nil {
			return fmt.Errorf("failed to read synthesis result: %w", err)
		}
		var outcome rules.ApplyOutcome
		if err := readJSON(fixOutcomePath, &outcome); err != nil {
			return fmt.Errorf("failed to read apply outcome: %w", err)
		}
		if len(outcome.Signals) == 0 {
			return fmt.Errorf("outcome carries no validation signals; nothing to fix")
		}

		// Fix what was actually committed, not the pre-link review copy.
		prior.Rules = outcome.CommittedRules

		fixed, err := s.pipe.ReviewAndFix(ctx, subject, &prior, outcome.Signals)
		if err != nil {
			return err
		}
		if err := writeJSON(fixOutPath, fixed); err != nil {
			return err
		}

		fmt.Printf("corrected set has %d rule(s); review written to %s\n", len(fixed.Rules), fixOutPath)
		fmt.Printf("\n%s\n", fixed.Explanation)
		return nil
	},
}

func init() {
	fixCmd.Flags().StringVar(&fixSubjectPath, "subject", "subject.yaml", "subject description file")
	fixCmd.Flags().StringVar(&fixResultPath, "result", "result.json", "previously applied synthesis result")
	fixCmd.Flags().StringVar(&fixOutcomePath, "outcome", "outcome.json", "apply outcome carrying the signals")
	fixCmd.Flags().StringVarP(&fixOutPath, "out", "o", "result.json", "where to write the corrected result")
}
