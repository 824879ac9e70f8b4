package adapters

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/fxamacker/cbor/v2"

	"replication-agent/internal/types"
)

// A package on disk and on the wire is a 4-byte big-endian header length,
// the CBOR-encoded header, then the content bytes.
const (
	packageHeaderPrefixLen = 4
	maxPackageHeaderLen    = 1 << 20
)

func writePackageHeader(w io.Writer, header types.PackageHeader) (int64, error) {
	encoded, err := cbor.Marshal(header)
	if err != nil {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode package header").
			WithCause(err)
	}
	if len(encoded) > maxPackageHeaderLen {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package header too large")
	}
	var prefix [packageHeaderPrefixLen]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(encoded)))
	if _, err := w.Write(prefix[:]); err != nil {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write package header").
			WithCause(err)
	}
	if _, err := w.Write(encoded); err != nil {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write package header").
			WithCause(err)
	}
	return int64(packageHeaderPrefixLen + len(encoded)), nil
}

// readPackageHeader returns the header and the number of bytes it occupied.
func readPackageHeader(r io.Reader) (types.PackageHeader, int64, error) {
	var prefix [packageHeaderPrefixLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return types.PackageHeader{}, 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package stream is truncated").
			WithCause(err)
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size == 0 || size > maxPackageHeaderLen {
		return types.PackageHeader{}, 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid package header length %d", size))
	}
	encoded := make([]byte, size)
	if _, err := io.ReadFull(r, encoded); err != nil {
		return types.PackageHeader{}, 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package header is truncated").
			WithCause(err)
	}
	var header types.PackageHeader
	if err := cbor.Unmarshal(encoded, &header); err != nil {
		return types.PackageHeader{}, 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to decode package header").
			WithCause(err)
	}
	if err := validatePackageHeader(header); err != nil {
		return types.PackageHeader{}, 0, err
	}
	return header, int64(packageHeaderPrefixLen) + int64(size), nil
}

func validatePackageHeader(header types.PackageHeader) error {
	if header.Type == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package header has no type")
	}
	if !header.Action.IsContentAction() {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("package header has invalid action %q", header.Action))
	}
	if len(header.Paths) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package header has no paths")
	}
	return nil
}
