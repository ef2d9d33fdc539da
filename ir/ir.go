// Package ir defines the immutable intermediate representation of a
// runnable shell command graph: commands, pipelines, redirects and
// process-substitution markers. Values are frozen at construction time;
// every builder method returns a new value rather than mutating its
// receiver.
package ir

// Standard fd aliases, provided for readability only — any non-negative
// integer is a valid fd.
const (
	Stdin  = 0
	Stdout = 1
	Stderr = 2
)

// Runnable is the sum type {Command, Pipeline}.
type Runnable interface {
	isRunnable()
}

// Arg is one element of a Command's argument list: either a literal
// string or an embedded process-substitution marker.
type Arg interface {
	isArg()
}

// strArg is a literal argument string.
type strArg string

func (strArg) isArg() {}

// Str wraps a literal string as a Command argument.
func Str(s string) Arg { return strArg(s) }

// ArgString returns a's literal string and true if a was constructed via
// Str; otherwise it returns false, signalling a is a SubIn/SubOut
// process-substitution marker that its caller must resolve separately.
func ArgString(a Arg) (string, bool) {
	s, ok := a.(strArg)
	return string(s), ok
}

// EnvOp is one entry of a Command's environment overlay. Order is
// significant: later entries win over earlier ones for the same Name.
// Unset removes the variable from the child's environment rather than
// setting it.
type EnvOp struct {
	Name  string
	Value string
	Unset bool
}

// SetEnv returns an EnvOp that sets Name to Value.
func SetEnv(name, value string) EnvOp { return EnvOp{Name: name, Value: value} }

// UnsetEnv returns an EnvOp that removes Name from the child's environment.
func UnsetEnv(name string) EnvOp { return EnvOp{Name: name, Unset: true} }

// Command is a single process invocation: an ordered argument list, an
// ordered redirect list, an environment overlay and an optional working
// directory. Command is value-immutable — With* methods never mutate
// the receiver, they return a new Command.
type Command struct {
	args      []Arg
	redirects []Redirect
	env       []EnvOp
	dir       string
}

func (Command) isRunnable() {}

// Cmd constructs a Command from its argument list.
func Cmd(args ...Arg) Command {
	return Command{args: append([]Arg(nil), args...)}
}

// Args returns a copy of the command's argument list.
func (c Command) Args() []Arg {
	return append([]Arg(nil), c.args...)
}

// Redirects returns a copy of the command's redirect list, in
// declaration order.
func (c Command) Redirects() []Redirect {
	return append([]Redirect(nil), c.redirects...)
}

// Env returns a copy of the command's environment overlay, in
// declaration order.
func (c Command) Env() []EnvOp {
	return append([]EnvOp(nil), c.env...)
}

// Dir returns the command's working directory override, or "" to
// inherit the caller's.
func (c Command) Dir() string {
	return c.dir
}

// WithArgs appends positional arguments and returns the resulting Command.
func (c Command) WithArgs(args ...Arg) Command {
	return Command{
		args:      append(append([]Arg(nil), c.args...), args...),
		redirects: c.redirects,
		env:       c.env,
		dir:       c.dir,
	}
}

// WithRedirect appends a redirect and returns the resulting Command.
func (c Command) WithRedirect(r Redirect) Command {
	return Command{
		args:      c.args,
		redirects: append(append([]Redirect(nil), c.redirects...), r),
		env:       c.env,
		dir:       c.dir,
	}
}

// Read attaches a FdFromFile or FdFromSub redirect reading into fd
// (typically Stdin).
func (c Command) Read(src ReadSrc, fd int) Command {
	switch s := src.(type) {
	case SubIn:
		return c.WithRedirect(FdFromSub{Fd: fd, Sub: s})
	case Path:
		return c.WithRedirect(FdFromFile{Fd: fd, Path: string(s)})
	default:
		panic("ir: unknown ReadSrc variant")
	}
}

// Write attaches a FdToFile or FdToSub redirect writing fd (typically
// Stdout). append applies to a Path destination only.
func (c Command) Write(dst WriteDst, fd int, append bool) Command {
	switch d := dst.(type) {
	case SubOut:
		return c.WithRedirect(FdToSub{Fd: fd, Sub: d})
	case Path:
		return c.WithRedirect(FdToFile{Fd: fd, Path: string(d), Append: append})
	default:
		panic("ir: unknown WriteDst variant")
	}
}

// Feed attaches a FdFromData redirect injecting data into fd (typically
// Stdin).
func (c Command) Feed(data Data, fd int) Command {
	return c.WithRedirect(FdFromData{Fd: fd, Data: data})
}

// CloseFd attaches a FdClose redirect closing fd.
func (c Command) CloseFd(fd int) Command {
	return c.WithRedirect(FdClose{Fd: fd})
}

// Dup2 attaches a FdToFd redirect duplicating src onto dst.
func (c Command) Dup2(src, dst int) Command {
	return c.WithRedirect(FdToFd{Src: src, Dst: dst})
}

// WithEnv appends an environment overlay entry and returns the
// resulting Command.
func (c Command) WithEnv(op EnvOp) Command {
	return Command{
		args:      c.args,
		redirects: c.redirects,
		env:       append(append([]EnvOp(nil), c.env...), op),
		dir:       c.dir,
	}
}

// WithDir sets the working directory and returns the resulting Command.
func (c Command) WithDir(dir string) Command {
	return Command{
		args:      c.args,
		redirects: c.redirects,
		env:       c.env,
		dir:       dir,
	}
}

// Pipe combines this Command with other into a two-stage Pipeline.
func (c Command) Pipe(other Command) Pipeline {
	return Pipeline{stages: []Command{c, other}}
}

// SubIn returns a process-substitution marker reading this Command's
// stdout: <(c).
func (c Command) SubIn() SubIn { return SubIn{Cmd: c} }

// SubOut returns a process-substitution marker feeding this Command's
// stdin: >(c).
func (c Command) SubOut() SubOut { return SubOut{Cmd: c} }

// Pipeline is a flat, ordered sequence of Commands. Constructors always
// flatten — no Pipeline ever contains a nested Pipeline.
type Pipeline struct {
	stages []Command
}

func (Pipeline) isRunnable() {}

// Seq builds a Pipeline from a mix of Commands and Pipelines, flattening
// any nested Pipeline into its constituent stages. A Seq of zero stages
// is legal and runs as an immediate success.
func Seq(stages ...Runnable) Pipeline {
	var flat []Command
	for _, s := range stages {
		switch v := s.(type) {
		case Pipeline:
			flat = append(flat, v.stages...)
		case Command:
			flat = append(flat, v)
		default:
			panic("ir: unknown Runnable variant")
		}
	}
	return Pipeline{stages: flat}
}

// Stages returns a copy of the pipeline's stage list.
func (p Pipeline) Stages() []Command {
	return append([]Command(nil), p.stages...)
}

// Pipe appends another stage and returns the resulting Pipeline.
func (p Pipeline) Pipe(other Command) Pipeline {
	return Pipeline{stages: append(append([]Command(nil), p.stages...), other)}
}

// Read attaches a read redirect to the first stage.
func (p Pipeline) Read(src ReadSrc, fd int) Pipeline {
	if len(p.stages) == 0 {
		return p
	}
	stages := append([]Command(nil), p.stages...)
	stages[0] = stages[0].Read(src, fd)
	return Pipeline{stages: stages}
}

// Write attaches a write redirect to the last stage.
func (p Pipeline) Write(dst WriteDst, fd int, appendMode bool) Pipeline {
	if len(p.stages) == 0 {
		return p
	}
	stages := append([]Command(nil), p.stages...)
	last := len(stages) - 1
	stages[last] = stages[last].Write(dst, fd, appendMode)
	return Pipeline{stages: stages}
}

// Feed attaches a data-injection redirect to the first stage.
func (p Pipeline) Feed(data Data, fd int) Pipeline {
	if len(p.stages) == 0 {
		return p
	}
	stages := append([]Command(nil), p.stages...)
	stages[0] = stages[0].Feed(data, fd)
	return Pipeline{stages: stages}
}

// CloseFd attaches a close redirect to the last stage.
func (p Pipeline) CloseFd(fd int) Pipeline {
	if len(p.stages) == 0 {
		return p
	}
	stages := append([]Command(nil), p.stages...)
	last := len(stages) - 1
	stages[last] = stages[last].CloseFd(fd)
	return Pipeline{stages: stages}
}
