package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"case-coach/server/internal/model"
	"case-coach/server/internal/orchestrator"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type runOptions struct {
	theme      string
	difficulty string
	caseType   string
	industry   string
	startStage string
	substep    string
}

func newRunCommand(opts *globalOptions) *cobra.Command {
	ro := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Conduct an interview in the terminal",
		Long: `Conduct an interview in the terminal.

Type an answer and press enter. Type /quit to stop early.
--start-stage jumps straight to a stage (with --substep, default START) and
prints that stage's prompt without going through the opening.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			params := model.CaseParams{
				Theme:      firstNonEmpty(ro.theme, cfg.Interview.Theme),
				Difficulty: firstNonEmpty(ro.difficulty, cfg.Interview.Difficulty),
				CaseType:   firstNonEmpty(ro.caseType, cfg.Interview.CaseType),
				Industry:   firstNonEmpty(ro.industry, cfg.Interview.Industry),
			}
			con := newConsole(cmd.OutOrStdout())
			return runInterview(ctx, a, con, bufio.NewScanner(cmd.InOrStdin()), params, ro)
		},
	}

	cmd.Flags().StringVar(&ro.theme, "theme", "", "Case theme")
	cmd.Flags().StringVar(&ro.difficulty, "difficulty", "", "Case difficulty (easy, medium, hard)")
	cmd.Flags().StringVar(&ro.caseType, "case-type", "", "Case type, e.g. profitability or market entry")
	cmd.Flags().StringVar(&ro.industry, "industry", "", "Industry of the client")
	cmd.Flags().StringVar(&ro.startStage, "start-stage", "", "Jump to this stage id")
	cmd.Flags().StringVar(&ro.substep, "substep", string(model.SubstepStart), "Substep used with --start-stage")
	return cmd
}

func runInterview(ctx context.Context, a *app, con *console, in *bufio.Scanner, params model.CaseParams, ro *runOptions) error {
	ctrl := a.ctrl
	sess := model.NewSession(uuid.NewString(), uuid.NewString(), params)
	con.info("Generating your case...")

	var first model.Turn
	var err error
	if ro.startStage != "" {
		sub, ok := model.ParseSubstep(ro.substep)
		if !ok {
			return fmt.Errorf("%w: %q", orchestrator.ErrInvalidSubstep, ro.substep)
		}
		if err := ctrl.DebugSetPosition(ctx, sess, ro.startStage, sub); err != nil {
			return err
		}
		first, err = ctrl.EmitCurrentPrompt(ctx, sess)
	} else {
		first, err = ctrl.Start(ctx, sess)
	}
	if err != nil {
		return err
	}
	con.turns(append([]model.Turn{first}, ctrl.Flush(sess)...))

	for !ctrl.Finished(sess) {
		con.prompt()
		if !in.Scan() {
			break
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			con.info("Interview stopped.")
			return nil
		}

		turn, err := ctrl.Step(ctx, sess, line)
		if errors.Is(err, orchestrator.ErrInterviewComplete) {
			break
		}
		if err != nil {
			return err
		}
		con.turns(append([]model.Turn{turn}, ctrl.Flush(sess)...))
	}
	if err := in.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	if sess.Report == nil {
		return nil
	}
	con.report(sess.Report)
	if err := a.publisher.PublishReport(ctx, sess.ID, sess.Report); err != nil {
		a.logger.Warn("publish report failed", "session", sess.ID, "err", err)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
