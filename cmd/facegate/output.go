package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/alfredjeanlab/facegate/internal/gate"
	"github.com/alfredjeanlab/facegate/internal/model"
	"github.com/alfredjeanlab/facegate/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printStatus(w io.Writer, st gate.Status) {
	fmt.Fprintf(w, "State:         %s\n", ui.RenderState(st.State))
	fmt.Fprintf(w, "Failures:      %s\n", ui.RenderCount(st.Count, st.Threshold))
	registered := "no"
	if st.Registered {
		registered = "yes"
	}
	fmt.Fprintf(w, "Registered:    %s\n", registered)
	fmt.Fprintf(w, "Counter:       %s\n", ui.RenderMuted(st.CounterPath))
	fmt.Fprintf(w, "Registration:  %s\n", ui.RenderMuted(st.RegistrationPath))
	if st.CounterError != "" {
		fmt.Fprintf(w, "Counter error: %s\n", st.CounterError)
	}
	if st.State == model.StateArmed && !st.Registered {
		fmt.Fprintln(w, ui.RenderMuted("\nThe gate is not registered to run at boot. Use 'facegate arm' to install it."))
	}
	if st.State == model.StateTripped {
		fmt.Fprintln(w, ui.RenderMuted("\nThe failsafe has tripped. Use 'facegate arm' to re-arm the gate."))
	}
}

func printAttemptTable(w io.Writer, attempts []model.Attempt) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tID\tOUTCOME\tCOUNT\tEXIT\tDETAIL")
	for _, a := range attempts {
		exit := "-"
		if a.Ran {
			exit = fmt.Sprintf("%d", a.ExitCode)
			if a.TimedOut {
				exit = "timeout"
			}
		}
		detail := a.Reason
		if a.Error != "" {
			if detail != "" {
				detail += ": "
			}
			detail += a.Error
		}
		if len(detail) > 60 {
			detail = detail[:57] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d->%d\t%s\t%s\n",
			a.At.Local().Format("2006-01-02 15:04:05"),
			a.ID,
			ui.RenderOutcome(a.Outcome),
			a.CountBefore,
			a.CountAfter,
			exit,
			detail,
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d attempts\n", len(attempts))
}
