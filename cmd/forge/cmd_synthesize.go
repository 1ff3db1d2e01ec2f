package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
)

var (
	subjectPath    string
	resultPath     string
	requirements   string
	ignoreOriginal bool
	sideEffectMode string
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Generate a rule set for a subject and write it out for review",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.close()

		subject, err := loadSubject(subjectPath)
		if err != nil {
			return err
		}
		req := rules.GenerationRequest{
			CustomRequirements:        requirements,
			IgnoreOriginalDescription: ignoreOriginal,
			SideEffectMode:            rules.SideEffectMode(sideEffectMode),
		}

		result, err := s.pipe.Synthesize(ctx, subject, req)
		if err != nil {
			return err
		}
		if err := writeJSON(resultPath, result); err != nil {
			return err
		}

		fmt.Printf("synthesized %d rule(s) for %q\n", len(result.Rules), subject.Name)
		if len(result.SideEffectPlans) > 0 {
			fmt.Printf("planned %d companion effect(s)\n", len(result.SideEffectPlans))
		}
		fmt.Printf("\n%s\n\nreview written to %s\n", result.Explanation, resultPath)
		return nil
	},
}

func init() {
	synthesizeCmd.Flags().StringVar(&subjectPath, "subject", "subject.yaml", "subject description file")
	synthesizeCmd.Flags().StringVarP(&resultPath, "out", "o", "result.json", "where to write the synthesis result")
	synthesizeCmd.Flags().StringVar(&requirements, "requirements", "", "operator requirements (highest priority)")
	synthesizeCmd.Flags().BoolVar(&ignoreOriginal, "ignore-description", false, "ignore the subject's own description (requires --requirements)")
	synthesizeCmd.Flags().StringVar(&sideEffectMode, "side-effect-mode", "", `companion effect mode: "toggle" or "discrete-effect"`)
}
