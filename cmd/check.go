package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/regform/internal/inputfile"
	"github.com/zjrosen/regform/internal/registration"
	"github.com/zjrosen/regform/internal/scheduler"
	"github.com/zjrosen/regform/internal/tracing"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate inputs once and print the settled form state",
	Long: `Feed the given inputs through the validation pipeline, wait for every quiet
period to elapse and print the resulting form state. Exits with status 1 when
the form is invalid.`,
	Example: `  regform check --username alice --password AAAaaa999999 --password-again AAAaaa999999
  regform check --from form.yaml -o json`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

var checkOpts struct {
	username      string
	password      string
	passwordAgain string
	from          string
	output        string
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkOpts.username, "username", "u", "", "user name")
	checkCmd.Flags().StringVarP(&checkOpts.password, "password", "p", "", "password")
	checkCmd.Flags().StringVar(&checkOpts.passwordAgain, "password-again", "", "password confirmation")
	checkCmd.Flags().StringVarP(&checkOpts.from, "from", "f", "", "read inputs from a YAML file; flags override its values")
	checkCmd.Flags().StringVarP(&checkOpts.output, "output", "o", outputYAML, "output format: yaml or json")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	if err := validateOutputFormat(checkOpts.output); err != nil {
		return err
	}

	var fields registration.Fields
	if checkOpts.from != "" {
		loaded, err := inputfile.Load(checkOpts.from)
		if err != nil {
			return err
		}
		fields = loaded
	}
	flags := cmd.Flags()
	if checkOpts.from == "" || flags.Changed("username") {
		fields.Username = checkOpts.username
	}
	if checkOpts.from == "" || flags.Changed("password") {
		fields.Password = checkOpts.password
	}
	if checkOpts.from == "" || flags.Changed("password-again") {
		fields.PasswordAgain = checkOpts.passwordAgain
	}

	rt, err := newRuntime("regform-check")
	if err != nil {
		return err
	}
	defer rt.Close()

	state := settle(cmd.Context(), rt, fields)

	if err := writeDocument(cmd.OutOrStdout(), checkOpts.output, state); err != nil {
		return err
	}
	if !state.IsValid {
		return errFormInvalid
	}
	return nil
}

// settle runs fields through a session on a virtual clock and returns the
// state once every debounce timer has fired.
func settle(ctx context.Context, rt *runtime, fields registration.Fields) registration.FormState {
	_, span := rt.provider.Tracer().Start(ctx, tracing.SpanEvaluate)
	defer span.End()

	sched := scheduler.NewManual(time.Now())
	defer sched.Close()

	s := registration.New(sched, fields, cfg.Debounce.Registration(), rt.sessionOptions()...)
	defer s.Close()

	sched.Settle()
	state := s.State()

	span.SetAttributes(
		attribute.String(tracing.AttrSessionID, s.ID()),
		attribute.String(tracing.AttrSource, "check"),
		attribute.Bool(tracing.AttrFormValid, state.IsValid),
	)
	return state
}
