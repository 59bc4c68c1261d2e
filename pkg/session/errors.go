package session

import (
	"io/fs"
	"os"
	"syscall"

	"gitlab.com/tozd/go/errors"
)

// Kind classifies a processing failure. File and content kinds are
// recoverable: the failing file is marked failed and the run continues.
// Configuration errors abort the run immediately.
type Kind int

const (
	KindUnknown Kind = iota
	KindPermission
	KindNotFound
	KindIsDirectory
	KindDiskFull
	KindTooManyFiles
	KindEncoding
	KindOutOfMemory
	KindPattern
	KindConfig
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindPermission:
		return "permission-denied"
	case KindNotFound:
		return "not-found"
	case KindIsDirectory:
		return "is-a-directory"
	case KindDiskFull:
		return "disk-full"
	case KindTooManyFiles:
		return "too-many-open-files"
	case KindEncoding:
		return "invalid-encoding"
	case KindOutOfMemory:
		return "out-of-memory"
	case KindPattern:
		return "pattern-failure"
	case KindConfig:
		return "invalid-configuration"
	case KindExternal:
		return "external-tool"
	default:
		return "unknown"
	}
}

// Recoverable reports whether processing may continue with other files
// after an error of this kind.
func (k Kind) Recoverable() bool {
	return k != KindConfig
}

// Remediation is the suggested fix shown in the session report.
func (k Kind) Remediation() string {
	switch k {
	case KindPermission:
		return "check file ownership and permissions, or rerun with sufficient privileges"
	case KindNotFound:
		return "verify the path exists; it may have been moved or deleted since globbing"
	case KindIsDirectory:
		return "pass file paths, not directories; use a glob such as dir/**/*.html"
	case KindDiskFull:
		return "free disk space and rerun; files already written are complete"
	case KindTooManyFiles:
		return "lower concurrency with --jobs or raise the open-file limit (ulimit -n)"
	case KindEncoding:
		return "the file is not valid UTF-8; convert its encoding before rewriting"
	case KindOutOfMemory:
		return "lower --jobs or --chunk-size, or raise --memory-limit"
	case KindPattern:
		return "the file's class attributes could not be processed; it was left untouched"
	case KindConfig:
		return "fix the configuration and rerun"
	case KindExternal:
		return "resolve the external tool failure and rerun"
	default:
		return "rerun with --log-format json for details"
	}
}

// Error is a classified processing failure bound to the path it occurred
// on.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err as a classified error of the given kind.
func New(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// Classify maps an arbitrary failure to a classified error. Already
// classified errors pass through unchanged.
func Classify(err error, path string) *Error {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr
	}

	switch {
	case errors.Is(err, fs.ErrPermission):
		return New(KindPermission, path, err)
	case errors.Is(err, fs.ErrNotExist):
		return New(KindNotFound, path, err)
	case errors.Is(err, syscall.EISDIR):
		return New(KindIsDirectory, path, err)
	case errors.Is(err, syscall.ENOSPC):
		return New(KindDiskFull, path, err)
	case errors.Is(err, syscall.EMFILE), errors.Is(err, syscall.ENFILE):
		return New(KindTooManyFiles, path, err)
	}

	// afero's MemMapFs and some platforms surface EISDIR as a plain
	// *PathError without a syscall errno.
	var perr *os.PathError
	if errors.As(err, &perr) {
		if info, statErr := os.Stat(perr.Path); statErr == nil && info.IsDir() {
			return New(KindIsDirectory, path, err)
		}
	}

	return New(KindUnknown, path, err)
}

// IsFatal reports whether err is classified non-recoverable.
func IsFatal(err error) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return !cerr.Kind.Recoverable()
	}
	return false
}
