package workflows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/session"
)

// Instruction is one tokenized vault command.
type Instruction struct {
	Command string
	Args    []string
}

// ParseInstruction splits a line on whitespace. The second result is false
// for a blank line.
func ParseInstruction(line string) (Instruction, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Instruction{}, false
	}
	return Instruction{Command: strings.ToLower(fields[0]), Args: fields[1:]}, true
}

func (in Instruction) String() string {
	return strings.Join(append([]string{in.Command}, in.Args...), " ")
}

// InstructionSource yields instructions until it returns io.EOF.
type InstructionSource interface {
	Next(ctx context.Context) (Instruction, error)
}

// Instructions is an InstructionSource over a fixed list, used for one-shot
// invocations.
type Instructions []Instruction

// Next pops the first instruction.
func (s *Instructions) Next(ctx context.Context) (Instruction, error) {
	if err := ctx.Err(); err != nil {
		return Instruction{}, err
	}
	if len(*s) == 0 {
		return Instruction{}, io.EOF
	}
	in := (*s)[0]
	*s = (*s)[1:]
	return in, nil
}

// ResultSink presents dispatcher output.
type ResultSink interface {
	Render(r *Result)
	Fail(err error)
}

// Result is the presentable outcome of one instruction.
type Result struct {
	Command string

	// Entries is set by list.
	Entries []Entry

	// Craft is set by craft.
	Craft *CraftResult

	// Messages are short confirmations such as "Record 4 added".
	Messages []string

	// Problems are per-item failures that did not stop the instruction.
	Problems []error

	// Exit asks the caller to stop reading instructions.
	Exit bool
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// AutoLogin authenticates on the first command that needs the vault
	// unlocked. Without it such commands fail with ErrNotAuthenticated.
	AutoLogin bool

	// Rotate is passed to the rotate workflow.
	Rotate RotateOptions
}

// Dispatcher maps instructions onto vault workflows.
type Dispatcher struct {
	vault *Vault
	opts  DispatcherOptions
}

type command struct {
	name    string
	usage   string
	summary string

	// locked commands need an authenticated session.
	locked bool
	run    func(d *Dispatcher, ctx context.Context, args []string) (*Result, error)
}

// commands is filled in init because help reads it.
var commands []command

func init() {
	commands = []command{
		{"list", "list [field value]", "show stored credentials, optionally filtered", true, (*Dispatcher).runList},
		{"add", "add [site] [username] password", "store a new credential", true, (*Dispatcher).runAdd},
		{"update", "update field new_value id", "change one field of a credential", true, (*Dispatcher).runUpdate},
		{"delete", "delete id | id id ... | a..b", "remove credentials by id or range", true, (*Dispatcher).runDelete},
		{"rotate", "rotate", "change the master passphrase and re-encrypt everything", true, (*Dispatcher).runRotate},
		{"craft", "craft phrase...", "turn a phrase into a stronger password", false, (*Dispatcher).runCraft},
		{"help", "help", "show this help", false, (*Dispatcher).runHelp},
		{"exit", "exit", "close the vault", false, (*Dispatcher).runExit},
	}
}

var aliases = map[string]string{
	"del":  "delete",
	"upd":  "update",
	"chmk": "rotate",
	"quit": "exit",
}

// CommandNames returns every command and alias, sorted, for completion.
func CommandNames() []string {
	names := make([]string, 0, len(commands)+len(aliases))
	for _, c := range commands {
		names = append(names, c.name)
	}
	for alias := range aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}

// NewDispatcher returns a dispatcher over v.
func NewDispatcher(v *Vault, opts DispatcherOptions) *Dispatcher {
	return &Dispatcher{vault: v, opts: opts}
}

func lookup(name string) (command, bool) {
	if target, ok := aliases[name]; ok {
		name = target
	}
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// Execute runs one instruction.
//
// Returns ErrCommandNotFound for an unknown command. Errors from the
// underlying workflow are returned unchanged; kerrors.IsFatal tells the
// caller whether to stop. A non-nil result can accompany an error when part
// of the instruction completed before it failed.
func (d *Dispatcher) Execute(ctx context.Context, in Instruction) (*Result, error) {
	c, ok := lookup(strings.ToLower(in.Command))
	if !ok {
		return nil, fmt.Errorf("%w: %q (try help)", kerrors.ErrCommandNotFound, in.Command)
	}

	if c.locked {
		if err := d.unlock(ctx); err != nil {
			return nil, err
		}
	}

	d.vault.Logger.Debugf("Executing %s with %d argument(s)", c.name, len(in.Args))
	result, err := c.run(d, ctx, in.Args)
	if result != nil {
		result.Command = c.name
	}
	return result, err
}

// Run executes instructions from src until exit, io.EOF or a fatal error.
// Non-fatal errors are passed to sink.Fail and the loop continues.
func (d *Dispatcher) Run(ctx context.Context, src InstructionSource, sink ResultSink) error {
	for {
		in, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		result, err := d.Execute(ctx, in)
		if err != nil {
			// Work done before the failure, such as ids already deleted.
			if result != nil {
				sink.Render(result)
			}
			sink.Fail(err)
			if kerrors.IsFatal(err) {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		sink.Render(result)
		if result.Exit {
			return nil
		}
	}
}

func (d *Dispatcher) unlock(ctx context.Context) error {
	s := d.vault.Session
	if s == nil {
		return kerrors.ErrNotAuthenticated
	}
	if !d.opts.AutoLogin || s.State() == session.StateAuthenticated {
		return s.RequireAuthenticated()
	}
	return d.Login(ctx)
}

// Login authenticates the session now rather than on the first command that
// needs it. Successful logins and lockouts are written to the audit trail.
func (d *Dispatcher) Login(ctx context.Context) error {
	s := d.vault.Session
	if s == nil {
		return kerrors.ErrNotAuthenticated
	}
	if s.State() == session.StateAuthenticated {
		return nil
	}

	err := s.Authenticate(ctx)
	entry := audit.Entry{Operation: "login", Algorithm: s.Algorithm().String()}
	if err != nil {
		entry.Outcome = audit.OutcomeFailure
		entry.Algorithm = ""
	}
	if err == nil || errors.Is(err, kerrors.ErrLockedOut) {
		d.vault.Audit.Log(entry)
	}
	return err
}

func (d *Dispatcher) runList(ctx context.Context, args []string) (*Result, error) {
	opts := ListOptions{}
	switch len(args) {
	case 0:
	case 2:
		opts.Field, opts.Value = args[0], args[1]
	default:
		return nil, fmt.Errorf("%w: usage: list [field value]", kerrors.ErrInvalidArguments)
	}

	res, err := List(ctx, d.vault, opts)
	if err != nil {
		return nil, err
	}
	return &Result{Entries: res.Entries, Problems: res.Problems}, nil
}

func (d *Dispatcher) runAdd(ctx context.Context, args []string) (*Result, error) {
	opts, err := AddOptionsFromArgs(args)
	if err != nil {
		return nil, err
	}

	res, err := Add(ctx, d.vault, opts)
	if err != nil {
		return nil, err
	}
	return &Result{Messages: []string{fmt.Sprintf("Record %d added", res.ID)}}, nil
}

func (d *Dispatcher) runUpdate(ctx context.Context, args []string) (*Result, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("%w: usage: update field new_value id", kerrors.ErrInvalidArguments)
	}
	id, err := parseID(args[2])
	if err != nil {
		return nil, err
	}

	res, err := Update(ctx, d.vault, UpdateOptions{Field: args[0], Value: args[1], ID: id})
	if err != nil {
		return nil, err
	}
	return &Result{Messages: []string{fmt.Sprintf("Record %d %s updated", res.ID, res.Field)}}, nil
}

func (d *Dispatcher) runDelete(ctx context.Context, args []string) (*Result, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: usage: delete id | id id ... | a..b", kerrors.ErrInvalidArguments)
	}
	ids, err := ParseIDs(args)
	if err != nil {
		return nil, err
	}

	res, err := Delete(ctx, d.vault, DeleteOptions{IDs: ids})
	if res == nil {
		return nil, err
	}

	result := &Result{Problems: res.Problems}
	if len(res.Deleted) > 0 {
		result.Messages = append(result.Messages, fmt.Sprintf("Deleted %s", joinIDs(res.Deleted)))
	}
	return result, err
}

func (d *Dispatcher) runRotate(ctx context.Context, args []string) (*Result, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("%w: rotate takes no arguments", kerrors.ErrInvalidArguments)
	}

	res, err := Rotate(ctx, d.vault, d.opts.Rotate)
	if err != nil {
		return nil, err
	}
	return &Result{Messages: []string{fmt.Sprintf("Master key rotated, %d record(s) re-encrypted", res.Count)}}, nil
}

func (d *Dispatcher) runCraft(_ context.Context, args []string) (*Result, error) {
	res, err := Craft(CraftOptions{Phrase: strings.Join(args, " ")})
	if err != nil {
		return nil, err
	}
	return &Result{Craft: res}, nil
}

func (d *Dispatcher) runHelp(_ context.Context, _ []string) (*Result, error) {
	return &Result{Messages: HelpLines()}, nil
}

func (d *Dispatcher) runExit(_ context.Context, _ []string) (*Result, error) {
	return &Result{Exit: true}, nil
}

// HelpLines describes every command, one per line.
func HelpLines() []string {
	width := 0
	for _, c := range commands {
		width = max(width, len(c.usage))
	}

	reverse := make(map[string][]string)
	for alias, target := range aliases {
		reverse[target] = append(reverse[target], alias)
	}

	lines := make([]string, 0, len(commands))
	for _, c := range commands {
		line := fmt.Sprintf("%-*s  %s", width, c.usage, c.summary)
		if names := reverse[c.name]; len(names) > 0 {
			sort.Strings(names)
			line += fmt.Sprintf(" (alias: %s)", strings.Join(names, ", "))
		}
		lines = append(lines, line)
	}
	return lines
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}
