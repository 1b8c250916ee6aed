package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
	"github.com/ulordchain/ucwallet/internal/dispatch"
	"github.com/ulordchain/ucwallet/internal/ui"
)

// runShell reads commands until exit or Ctrl-D. Ctrl-C clears the current
// line, or cancels the command that is running.
func (a *app) runShell(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            ui.Prompt(),
		HistoryFile:       a.cfg.HistoryFile(),
		AutoComplete:      &completer{disp: a.disp},
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("starting shell: %w", err)
	}
	defer rl.Close()

	fmt.Fprint(rl.Stdout(), ui.Banner(Version, a.cfg.Provider))
	a.out = rl.Stdout()
	if !verbose && term.IsTerminal(int(os.Stderr.Fd())) {
		a.spinOut = rl.Stderr()
	}

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if a.runLine(ctx, line) {
			return nil
		}
	}
}

// runLine executes one shell line and reports whether the shell should exit.
func (a *app) runLine(parent context.Context, line string) bool {
	ctx, stop := interruptible(parent)
	defer stop()

	a.log.Debug("command", "line", line)
	res, err := a.disp.Dispatch(ctx, line)

	var missing *dispatch.MissingFunctionError
	if errors.As(err, &missing) {
		res, err = a.pickFunction(ctx, missing.Contract)
	}
	if err != nil {
		a.log.Warn("command failed", "line", line, "err", err)
		fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		return false
	}
	printResult(a.out, res)
	return res != nil && res.Exit
}

// pickFunction lets the user choose a function of contractName. Functions
// without parameters run immediately; others print their usage.
func (a *app) pickFunction(ctx context.Context, contractName string) (*dispatch.Result, error) {
	dc, err := a.registry.Get(contractName)
	if err != nil {
		return nil, err
	}
	var items []ui.PickerItem
	for _, fn := range dc.FunctionNames() {
		spec, _ := dc.Function(fn)
		items = append(items, ui.PickerItem{Label: fn, SubLabel: spec.Usage(), Value: fn})
	}
	fn, err := ui.PickItem(contractName, items)
	if err != nil || fn == "" {
		return &dispatch.Result{}, err
	}
	spec, _ := dc.Function(fn)
	if len(spec.Inputs) > 0 {
		return &dispatch.Result{Output: ui.Hint(fmt.Sprintf("%s %s %s", contractName, fn, spec.Usage()))}, nil
	}
	return a.disp.Invoke(ctx, contractName, fn, nil)
}

func printResult(w io.Writer, res *dispatch.Result) {
	switch {
	case res == nil || res.Exit:
	case res.Pending && res.Output == "":
		fmt.Fprintln(w, ui.Pending(res.TxHash.Hex()))
	case res.Pending:
		fmt.Fprintln(w, ui.Warn(res.Output))
	case res.View:
		fmt.Fprintln(w, ui.Val(res.Output))
	case res.Output != "":
		fmt.Fprintln(w, res.Output)
	}
}

// completer proposes command, contract and function names.
type completer struct {
	disp interface{ Complete([]string) []string }
}

// Do implements readline.AutoCompleter.
func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	typed := string(line[:pos])
	tokens := strings.Fields(typed)
	if typed == "" || strings.HasSuffix(typed, " ") {
		tokens = append(tokens, "")
	}
	prefix := tokens[len(tokens)-1]

	var out [][]rune
	for _, cand := range c.disp.Complete(tokens) {
		if strings.HasPrefix(cand, prefix) {
			out = append(out, []rune(cand[len(prefix):]+" "))
		}
	}
	return out, len([]rune(prefix))
}
