package shared

import (
	"errors"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// Replication error kinds. Match them with errors.Is.
var (
	ErrPackageBuild   = errors.New("package build failed")
	ErrPackageRead    = errors.New("package read failed")
	ErrPackageInstall = errors.New("package install failed")
	ErrTransport      = errors.New("transport failed")
)

// ReplicationError tags a cause with one of the replication error kinds.
// The cause is usually an errbuilder error carrying the status code.
type ReplicationError struct {
	Kind error
	Err  error
}

func (e *ReplicationError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *ReplicationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func PackageBuildError(err error) error {
	return wrapKind(ErrPackageBuild, err)
}

func PackageReadError(err error) error {
	return wrapKind(ErrPackageRead, err)
}

func PackageInstallError(err error) error {
	return wrapKind(ErrPackageInstall, err)
}

func TransportError(err error) error {
	return wrapKind(ErrTransport, err)
}

// wrapKind leaves errors that already carry the kind untouched so layers
// can re-wrap freely.
func wrapKind(kind error, err error) error {
	if err != nil && errors.Is(err, kind) {
		return err
	}
	return &ReplicationError{Kind: kind, Err: err}
}

// ErrorCode finds the first errbuilder error in the chain, through kind
// wrappers and joined errors, and returns its code.
func ErrorCode(err error) errbuilder.ErrCode {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) {
		return errbuilder.CodeOf(builder)
	}
	return errbuilder.CodeOf(err)
}
