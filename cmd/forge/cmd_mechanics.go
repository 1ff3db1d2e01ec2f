package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mechanicsSubjectPath string

var mechanicsCmd = &cobra.Command{
	Use:   "mechanics",
	Short: "Show the mechanic keywords identified in a subject's description",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.close()

		subject, err := loadSubject(mechanicsSubjectPath)
		if err != nil {
			return err
		}

		keywords := s.pipe.Mechanics(ctx, subject)
		if len(keywords) == 0 {
			fmt.Println("no mechanics identified")
			return nil
		}
		for _, kw := range keywords {
			fmt.Println(kw)
		}
		return nil
	},
}

func init() {
	mechanicsCmd.Flags().StringVar(&mechanicsSubjectPath, "subject", "subject.yaml", "subject description file")
}
