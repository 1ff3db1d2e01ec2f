package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
)

var (
	applySubjectPath string
	applyResultPath  string
	outcomePath      string
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Commit a reviewed rule set (and planned companion effects) to the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.close()

		subject, err := loadSubject(applySubjectPath)
		if err != nil {
			return err
		}
		subject, err = ensureSubjectDocument(ctx, s, subject)
		if err != nil {
			return err
		}

		var result rules.SynthesisResult
		if err := readJSON(applyResultPath, &result); err != nil {
			return fmt.Errorf("failed to read synthesis result: %w", err)
		}

		outcome, err := s.pipe.Apply(ctx, subject, &result)
		if err != nil {
			return err
		}
		if err := writeJSON(outcomePath, outcome); err != nil {
			return err
		}

		fmt.Printf("committed %d rule(s), created %d companion effect(s)\n",
			len(outcome.CommittedRules), len(outcome.CreatedSideEffects))
		if len(outcome.Signals) > 0 {
			fmt.Printf("%d validation signal(s) captured; run `forge fix` to request a corrected set:\n", len(outcome.Signals))
			for _, sig := range outcome.Signals {
				fmt.Printf("  - %s\n", sig.Message)
			}
		} else {
			fmt.Println("no validation signals observed in the window")
		}
		fmt.Printf("outcome written to %s\n", outcomePath)
		return nil
	},
}

func init() {
	applyCmd.Flags().StringVar(&applySubjectPath, "subject", "subject.yaml", "subject description file")
	applyCmd.Flags().StringVar(&applyResultPath, "result", "result.json", "reviewed synthesis result")
	applyCmd.Flags().StringVarP(&outcomePath, "out", "o", "outcome.json", "where to write the apply outcome")
}
