package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/permitflow/internal/client"
	"github.com/shaiso/permitflow/internal/config"
	"github.com/shaiso/permitflow/internal/decision"
	"github.com/shaiso/permitflow/internal/domain"
	"github.com/shaiso/permitflow/internal/phase"
	"github.com/shaiso/permitflow/internal/texts"
)

// NewTransitionCmd создаёт команду предпросмотра перехода фазы.
//
// Читает extraParameters дела (JSON-массив) из файла или stdin и печатает
// коллекцию после перехода. Дело при этом не изменяется.
func NewTransitionCmd(outputFn func() *Output) *cobra.Command {
	var status, action, display string
	var clearDisplay bool

	cmd := &cobra.Command{
		Use:   "transition FILE|-",
		Short: "Preview extra parameters after a phase transition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var current []domain.ExtraParameter
			if err := readJSON(cmd, args[0], &current); err != nil {
				return err
			}

			var statusPtr *string
			if cmd.Flags().Changed("status") {
				statusPtr = &status
			}
			actionPtr := &action

			var (
				updated []domain.ExtraParameter
				err     error
			)
			switch {
			case clearDisplay:
				updated, err = phase.ComputeTransitionWithDisplay(current, statusPtr, actionPtr, nil)
			case cmd.Flags().Changed("display"):
				updated, err = phase.ComputeTransitionWithDisplay(current, statusPtr, actionPtr, &display)
			default:
				updated, err = phase.ComputeTransition(current, statusPtr, actionPtr)
			}
			if err != nil {
				return err
			}

			out := outputFn()
			if phase.Equal(current, updated) {
				out.Success("No change")
			}

			rows := make([][]string, len(updated))
			for i, p := range updated {
				rows[i] = []string{p.Key, strings.Join(p.Values, ", ")}
			}
			out.Print([]string{"KEY", "VALUES"}, rows, updated)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "process.phaseStatus value (omit to remove)")
	cmd.Flags().StringVar(&action, "action", "", "process.phaseAction value (required)")
	cmd.Flags().StringVar(&display, "display", "", "process.displayPhase value")
	cmd.Flags().BoolVar(&clearDisplay, "clear-display", false, "Clear process.displayPhase")
	cmd.MarkFlagRequired("action")
	cmd.MarkFlagsMutuallyExclusive("display", "clear-display")

	return cmd
}

// NewDecisionCmd создаёт группу команд для решений.
func NewDecisionCmd(configFn func() string, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decision",
		Short: "Work with decisions",
	}

	cmd.AddCommand(newDecisionPreviewCmd(configFn, outputFn))

	return cmd
}

func newDecisionPreviewCmd(configFn func() string, outputFn func() *Output) *cobra.Command {
	var automatic bool
	var at string

	cmd := &cobra.Command{
		Use:   "preview FILE|-",
		Short: "Preview the decision built from a rule engine response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp client.RuleResponse
			if err := readJSON(cmd, args[0], &resp); err != nil {
				return err
			}

			now := time.Now().UTC()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at, expected RFC3339: %w", err)
				}
				now = t.UTC()
			}

			cfg, err := config.Load(configFn())
			if err != nil {
				return err
			}
			renderer, err := texts.New(cfg.Texts)
			if err != nil {
				return err
			}

			result := decision.Aggregate(resp)
			d := decision.Synthesize(result, automatic, renderer.Decision(), now)

			decidedAt := ""
			if d.DecidedAt != nil {
				decidedAt = d.DecidedAt.Format(time.RFC3339)
			}
			rows := [][]string{
				{"RESULT", result.Value},
				{"TYPE", string(d.DecisionType)},
				{"OUTCOME", string(d.DecisionOutcome)},
				{"DESCRIPTION", d.Description},
				{"DECIDED AT", decidedAt},
			}
			outputFn().Print([]string{"FIELD", "VALUE"}, rows, d)
			return nil
		},
	}

	cmd.Flags().BoolVar(&automatic, "automatic", false, "Build a FINAL automatic decision instead of RECOMMENDED")
	cmd.Flags().StringVar(&at, "at", "", "Decision time (RFC3339, default: now)")

	return cmd
}

// NewConfigCmd создаёт группу команд для конфигурации.
func NewConfigCmd(configFn func() string, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect worker configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFn())
			if err != nil {
				return err
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			outputFn().Raw(data)
			return nil
		},
	})

	return cmd
}

func readJSON(cmd *cobra.Command, path string, v any) error {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
