package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/permitflow/internal/tasks"
)

// NewErrandCmd создаёт группу команд для просмотра дел.
func NewErrandCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "errand",
		Short: "Inspect errands",
	}

	cmd.AddCommand(newErrandShowCmd(clientFn, outputFn))

	return cmd
}

func newErrandShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ErrandOpts

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show the process state of an errand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid errand id %q", args[0])
			}

			state, err := clientFn().GetErrandState(id, opts)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"ID", strconv.FormatInt(state.ID, 10)},
				{"NUMBER", state.ErrandNumber},
				{"CASE TYPE", state.CaseType},
				{"PHASE", state.Phase},
				{"STATE", state.State},
				{"PHASE STATUS", state.PhaseStatus},
				{"PHASE ACTION", state.PhaseAction},
				{"DISPLAY PHASE", state.DisplayPhase},
				{"ADMINISTRATOR", strconv.FormatBool(state.Administrator)},
				{"FINAL DECISION", state.FinalDecision},
				{"LATEST STATUS", state.LatestStatus},
				{"PERMIT NUMBER", state.PermitNumber},
				{"UPDATED", state.Updated},
			}
			outputFn().Print([]string{"FIELD", "VALUE"}, rows, state)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.MunicipalityID, "municipality-id", "", "Municipality id (default: worker setting)")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "", "Namespace (default: worker setting)")

	return cmd
}

// NewTopicsCmd создаёт группу команд для топиков воркера.
func NewTopicsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:     "topics",
		Aliases: []string{"workers"},
		Short:   "Show polled topics and their counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if local {
				names := tasks.Topics()
				rows := make([][]string, len(names))
				for i, n := range names {
					rows[i] = []string{n}
				}
				outputFn().Print([]string{"TOPIC"}, rows, names)
				return nil
			}

			topics, err := clientFn().ListTopics()
			if err != nil {
				return err
			}

			headers := []string{"TOPIC", "COMPLETED", "INCIDENTS", "LOST", "LAST POLL"}
			rows := make([][]string, len(topics))
			for i, t := range topics {
				rows[i] = []string{
					t.Topic,
					strconv.FormatInt(t.Completed, 10),
					strconv.FormatInt(t.Incidents, 10),
					strconv.FormatInt(t.Lost, 10),
					t.LastPoll,
				}
			}

			outputFn().Print(headers, rows, topics)
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "List task names built into this binary without calling the API")
	cmd.AddCommand(newTopicsWakeCmd(clientFn, outputFn))

	return cmd
}

func newTopicsWakeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "wake TOPIC",
		Short: "Poll a topic immediately and notify other instances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			wake, err := clientFn().WakeTopic(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Topic woken: %s", wake.Topic))
			out.Print(
				[]string{"TOPIC", "WOKEN", "PUBLISHED"},
				[][]string{{wake.Topic, strconv.FormatBool(wake.Woken), strconv.FormatBool(wake.Published)}},
				wake,
			)
			return nil
		},
	}
}

// NewJournalCmd создаёт группу команд для журнала эффектов.
func NewJournalCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect and purge the side-effect journal",
	}

	cmd.AddCommand(
		newJournalListCmd(clientFn, outputFn),
		newJournalPurgeCmd(clientFn, outputFn),
	)

	return cmd
}

func newJournalListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list ERRAND_NUMBER",
		Short: "List recorded effects of an errand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := clientFn().ListJournal(args[0])
			if err != nil {
				return err
			}

			headers := []string{"TASK", "EFFECT", "REFERENCE", "CREATED"}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{e.Task, e.Effect, e.Reference, e.CreatedAt}
			}

			outputFn().Print(headers, rows, entries)
			return nil
		},
	}
}

func newJournalPurgeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var olderThan time.Duration
	var before string

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete journal entries older than a threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			var opts PurgeOpts
			switch {
			case before != "":
				t, err := time.Parse(time.RFC3339, strings.TrimSpace(before))
				if err != nil {
					return fmt.Errorf("invalid --before, expected RFC3339: %w", err)
				}
				opts.Before = t
			case olderThan > 0:
				opts.OlderThan = olderThan
			default:
				return fmt.Errorf("--older-than or --before is required")
			}

			purge, err := clientFn().PurgeJournal(opts)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Purged %d entries", purge.Purged))
			out.Print(
				[]string{"BEFORE", "PURGED"},
				[][]string{{purge.Before, strconv.FormatInt(purge.Purged, 10)}},
				purge,
			)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Delete entries older than this duration (e.g. 720h)")
	cmd.Flags().StringVar(&before, "before", "", "Delete entries created before this RFC3339 time")

	return cmd
}

// NewReadyCmd создаёт команду проверки готовности воркера.
func NewReadyCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check worker readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := clientFn().Ready()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(health.Checks))
			for _, name := range sortedKeys(health.Checks) {
				rows = append(rows, []string{name, health.Checks[name]})
			}
			outputFn().Print([]string{"CHECK", "RESULT"}, rows, health)

			if health.Status != "ok" {
				return fmt.Errorf("worker is %s", health.Status)
			}
			return nil
		},
	}
}
