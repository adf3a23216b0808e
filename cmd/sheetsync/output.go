package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/ui"
)

// finishReport prints a run report and records its exit code.
func finishReport(rep *model.RunReport) {
	exitCode = rep.ExitCode()
	if jsonOutput {
		printJSON(rep)
		return
	}
	printReport(rep)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printReport(rep *model.RunReport) {
	writeReport(os.Stdout, rep)
}

func writeReport(out io.Writer, rep *model.RunReport) {
	header := rep.Command
	if rep.Mode != "" {
		header += " (" + string(rep.Mode) + ")"
	}
	fmt.Fprintf(out, "%s %s  %s\n", ui.RenderAccent(rep.ID), header,
		ui.RenderMuted(rep.Finished.Sub(rep.Started).Round(time.Millisecond).String()))

	if len(rep.Units) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PHASE\tUNIT\tSTATUS\tATTEMPTS\tDETAIL")
		for _, u := range rep.Units {
			detail := u.Detail
			if u.Error != "" {
				detail = u.Error
			}
			attempts := "-"
			if u.Attempts > 0 {
				attempts = fmt.Sprint(u.Attempts)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.Phase, u.Unit, ui.RenderStatus(u.Status, u.Fatal), attempts, detail)
		}
		w.Flush()
	}

	fmt.Fprintf(out, "ok %d  failed %d  skipped %d  exit %s\n",
		rep.Count(model.StatusOK), rep.Count(model.StatusFailed), rep.Count(model.StatusSkipped),
		ui.RenderExitCode(rep.ExitCode()))
}

func printPointers(entries []model.MetaEntry) {
	writePointers(os.Stdout, entries)
}

func writePointers(out io.Writer, entries []model.MetaEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No Master pointers found.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TAB\tLAST_DATE_COL\tROW")
	for _, e := range entries {
		row := "-"
		if e.Row > 0 {
			row = fmt.Sprint(e.Row)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Tab, e.Column, row)
	}
	w.Flush()
}

func printRuns(runs []*model.RunReport) {
	writeRuns(os.Stdout, runs)
}

func writeRuns(out io.Writer, runs []*model.RunReport) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOMMAND\tMODE\tSTARTED\tDURATION")
	for _, r := range runs {
		mode := string(r.Mode)
		if mode == "" {
			mode = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Command, mode,
			r.Started.Local().Format("2006-01-02 15:04:05"),
			r.Finished.Sub(r.Started).Round(time.Second))
	}
	w.Flush()
}
