package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tracker/internal/log"
	"tracker/internal/render"
)

const shellPrompt = "tracker> "

// shell reads one command per line and runs it against the open app. The
// session marker is kept in memory, so closing the shell logs the user out.
func (rt *runtime) shell(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rt.print(render.Banner(rt.app.Tracker.View()))
	rt.print(`Type "help" for commands, "exit" to quit.`)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(rt.out, shellPrompt)

		line, err := rt.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)

		fields := strings.Fields(line)
		switch {
		case len(fields) == 0:
		case fields[0] == "exit" || fields[0] == "quit":
			return nil
		case fields[0] == "shell":
			rt.print("Already in the shell.")
		default:
			log.FromContext(ctx).DebugContext(ctx, "Shell command", "command", fields[0])
			sub := rt.rootCmd()
			sub.SetArgs(shellArgs(line, fields))
			if err := sub.ExecuteContext(ctx); err != nil {
				fmt.Fprintln(rt.errOut, Alert(err))
			}
		}

		if eof {
			fmt.Fprintln(rt.out)
			return nil
		}
	}
}

// shellArgs splits a shell line into command arguments. The name given to
// login is taken verbatim from the rest of the line so inner spaces survive.
func shellArgs(line string, fields []string) []string {
	if fields[0] != "login" || len(fields) == 1 {
		return fields
	}
	name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "login"))
	return []string{"login", name}
}
