package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/regform/internal/prompt"
	"github.com/zjrosen/regform/internal/registration"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Ask for the inputs one at a time with inline validation",
	Args:  cobra.NoArgs,
	RunE:  runPrompt,
}

var promptOutput string

func init() {
	rootCmd.AddCommand(promptCmd)

	promptCmd.Flags().StringVarP(&promptOutput, "output", "o", "", "also print the final state as yaml or json")
}

func runPrompt(cmd *cobra.Command, _ []string) error {
	if promptOutput != "" {
		if err := validateOutputFormat(promptOutput); err != nil {
			return err
		}
	}

	rt, err := newRuntime("regform-prompt")
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	res, err := prompt.Run(cmd.Context(), prompt.NewSurveyDriver(out), registration.Fields{}, rt.sessionOptions()...)
	if errors.Is(err, prompt.ErrAborted) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("prompting: %w", err)
	}

	if promptOutput != "" {
		if err := writeDocument(out, promptOutput, res.State); err != nil {
			return err
		}
	}
	if !res.State.IsValid {
		return errFormInvalid
	}
	_, _ = fmt.Fprintf(out, "Registered %s\n", res.Fields.Username)
	return nil
}
