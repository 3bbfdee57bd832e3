package progress

import "github.com/zenprocess/open-lovable-cf/internal/parser"

// Event type tags as they appear on the wire.
const (
	TypeStart           = "start"
	TypeStep            = "step"
	TypePackageProgress = "package-progress"
	TypeFileProgress    = "file-progress"
	TypeFileComplete    = "file-complete"
	TypeFileError       = "file-error"
	TypeCommandProgress = "command-progress"
	TypeCommandOutput   = "command-output"
	TypeCommandComplete = "command-complete"
	TypeCommandError    = "command-error"
	TypeInfo            = "info"
	TypeWarning         = "warning"
	TypeComplete        = "complete"
	TypeError           = "error"
)

// Event is one progress record. Each concrete type below is one kind.
type Event interface {
	Type() string
}

// IsTerminal reports whether e ends a stream.
func IsTerminal(e Event) bool {
	switch e.(type) {
	case Complete, *Complete, Error, *Error:
		return true
	}
	return false
}

type Start struct {
	Message    string `json:"message"`
	TotalSteps int    `json:"totalSteps,omitempty"`
}

type Step struct {
	Step     int      `json:"step"`
	Message  string   `json:"message"`
	Packages []string `json:"packages,omitempty"`
}

// Package progress sub-kinds.
const (
	PackageStart    = "start"
	PackageStatus   = "status"
	PackageInfo     = "info"
	PackageOutput   = "output"
	PackageWarning  = "warning"
	PackageError    = "error"
	PackageSuccess  = "success"
	PackageComplete = "complete"
)

type PackageProgress struct {
	Status            string   `json:"status"`
	Message           string   `json:"message"`
	Packages          []string `json:"packages,omitempty"`
	InstalledPackages []string `json:"installedPackages,omitempty"`
}

// File and command actions.
const (
	ActionCreating     = "creating"
	ActionCreated      = "created"
	ActionUpdated      = "updated"
	ActionEditApplying = "edit-applying"
	ActionEditUpdated  = "edit-updated"
	ActionExecuting    = "executing"
)

type FileProgress struct {
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	FileName string `json:"fileName"`
	Action   string `json:"action"`
}

type FileComplete struct {
	FileName string `json:"fileName"`
	Action   string `json:"action"`
}

type FileError struct {
	FileName string `json:"fileName"`
	Error    string `json:"error"`
}

type CommandProgress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Command string `json:"command"`
	Action  string `json:"action"`
}

type CommandOutput struct {
	Command string `json:"command"`
	Output  string `json:"output"`
	Stream  string `json:"stream"`
}

type CommandComplete struct {
	Command  string `json:"command"`
	ExitCode int    `json:"exitCode"`
	Success  bool   `json:"success"`
}

type CommandError struct {
	Command string `json:"command"`
	Error   string `json:"error"`
}

type Info struct {
	Message string `json:"message"`
}

// CategoryMissingImports marks a warning listing unresolved imports.
const CategoryMissingImports = "missing-imports"

type Warning struct {
	Message        string   `json:"message"`
	Category       string   `json:"category,omitempty"`
	MissingImports []string `json:"missingImports,omitempty"`
}

// Results is the accumulated outcome of one reconciliation run.
type Results struct {
	FilesCreated             []string `json:"filesCreated"`
	FilesUpdated             []string `json:"filesUpdated"`
	PackagesInstalled        []string `json:"packagesInstalled"`
	PackagesAlreadyInstalled []string `json:"packagesAlreadyInstalled"`
	PackagesFailed           []string `json:"packagesFailed"`
	CommandsExecuted         []string `json:"commandsExecuted"`
	Errors                   []string `json:"errors"`
}

// NewResults returns Results with empty, non-nil lists.
func NewResults() *Results {
	return &Results{
		FilesCreated:             []string{},
		FilesUpdated:             []string{},
		PackagesInstalled:        []string{},
		PackagesAlreadyInstalled: []string{},
		PackagesFailed:           []string{},
		CommandsExecuted:         []string{},
		Errors:                   []string{},
	}
}

type Complete struct {
	Results        *Results      `json:"results"`
	Explanation    string        `json:"explanation"`
	Structure      string        `json:"structure"`
	Message        string        `json:"message"`
	MissingImports []string      `json:"missingImports,omitempty"`
	ParsedFiles    []parser.File `json:"parsedFiles,omitempty"`
	Packages       []string      `json:"packages,omitempty"`
	Commands       []string      `json:"commands,omitempty"`
}

type Error struct {
	Error string `json:"error"`
}

// Unknown holds an event whose type this version does not know.
type Unknown struct {
	Kind string
	Raw  []byte
}

func (Start) Type() string           { return TypeStart }
func (Step) Type() string            { return TypeStep }
func (PackageProgress) Type() string { return TypePackageProgress }
func (FileProgress) Type() string    { return TypeFileProgress }
func (FileComplete) Type() string    { return TypeFileComplete }
func (FileError) Type() string       { return TypeFileError }
func (CommandProgress) Type() string { return TypeCommandProgress }
func (CommandOutput) Type() string   { return TypeCommandOutput }
func (CommandComplete) Type() string { return TypeCommandComplete }
func (CommandError) Type() string    { return TypeCommandError }
func (Info) Type() string            { return TypeInfo }
func (Warning) Type() string         { return TypeWarning }
func (Complete) Type() string        { return TypeComplete }
func (Error) Type() string           { return TypeError }
func (u Unknown) Type() string       { return u.Kind }
