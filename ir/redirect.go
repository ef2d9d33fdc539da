package ir

// Data is a here-string payload: either a string (UTF-8 encoded on
// write) or raw bytes.
type Data interface {
	isData()
}

// StrData wraps a string payload for FdFromData/Feed.
type StrData string

func (StrData) isData() {}

// BytesData wraps a raw byte payload for FdFromData/Feed.
type BytesData []byte

func (BytesData) isData() {}

// Path is a filesystem path used as a ReadSrc or WriteDst.
type Path string

func (Path) isReadSrc()  {}
func (Path) isWriteDst() {}

// ReadSrc is the sum type {Path, SubIn} accepted by Command.Read.
type ReadSrc interface {
	isReadSrc()
}

// WriteDst is the sum type {Path, SubOut} accepted by Command.Write.
type WriteDst interface {
	isWriteDst()
}

// Redirect is the tagged variant of a single fd-table manipulation
// attached to a Command, in declaration order.
type Redirect interface {
	isRedirect()
}

// FdToFile opens Path for writing at Fd, truncating unless Append.
type FdToFile struct {
	Fd     int
	Path   string
	Append bool
}

func (FdToFile) isRedirect() {}

// FdFromFile opens Path for reading at Fd.
type FdFromFile struct {
	Fd   int
	Path string
}

func (FdFromFile) isRedirect() {}

// FdFromData injects Data at Fd via an internally allocated pipe and an
// async writer task.
type FdFromData struct {
	Fd   int
	Data Data
}

func (FdFromData) isRedirect() {}

// FdToFd duplicates Src onto Dst (POSIX dup2).
type FdToFd struct {
	Src int
	Dst int
}

func (FdToFd) isRedirect() {}

// FdClose closes Fd.
type FdClose struct {
	Fd int
}

func (FdClose) isRedirect() {}

// FdFromSub wires Sub's stdout to this command's Fd via a parent-
// allocated pipe.
type FdFromSub struct {
	Fd  int
	Sub SubIn
}

func (FdFromSub) isRedirect() {}

// FdToSub wires this command's Fd to Sub's stdin via a parent-allocated
// pipe.
type FdToSub struct {
	Fd  int
	Sub SubOut
}

func (FdToSub) isRedirect() {}

// SubIn is an input process-substitution marker: <(cmd). When embedded
// as a Command argument it resolves to a /dev/fd/N path naming a pipe
// whose write end is wired to Cmd's stdout. Cmd's exit code is
// suppressed from pipefail reporting.
type SubIn struct {
	Cmd Runnable
}

func (SubIn) isArg()     {}
func (SubIn) isReadSrc() {}

// SubOut is an output process-substitution marker: >(cmd). When
// embedded as a Command argument it resolves to a /dev/fd/N path naming
// a pipe whose read end is wired to Cmd's stdin. Cmd's exit code is
// suppressed from pipefail reporting.
type SubOut struct {
	Cmd Runnable
}

func (SubOut) isArg()      {}
func (SubOut) isWriteDst() {}

// In wraps r as an input process-substitution marker: <(r).
func In(r Runnable) SubIn { return SubIn{Cmd: r} }

// Out wraps r as an output process-substitution marker: >(r).
func Out(r Runnable) SubOut { return SubOut{Cmd: r} }
