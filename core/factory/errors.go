package factory

import (
	"errors"
	"fmt"

	"github.com/kilianp07/pyro/core/xdata"
)

// Error kinds returned by the registry and factories. Concrete errors are
// *xdata.Error values and match these with errors.Is.
var (
	// ErrInvalidDescriptor reports a descriptor that is neither an
	// identifier string nor a descriptor structure.
	ErrInvalidDescriptor = errors.New("invalid type descriptor")
	// ErrImport reports a module path that is unknown or failed to load.
	ErrImport = errors.New("module import failed")
	// ErrTypeNotFound reports a module that does not define the requested type.
	ErrTypeNotFound = errors.New("type not found")
	// ErrDuplicate reports a second registration under the same identifier.
	ErrDuplicate = errors.New("type already registered")
)

// Error codes carried by *xdata.Error.
const (
	CodeTypeInvalid = "factory-type-invalid"
	CodeImportFail  = "factory-import-fail"
	CodeTypeFail    = "factory-type-fail"
)

func invalidDescriptor(info any) error {
	return xdata.New(ErrInvalidDescriptor, CodeTypeInvalid, nil,
		"reason", "type-desc-invalid",
		"type", fmt.Sprintf("%v", info),
	)
}

func importFail(id, path, name string, cause error) error {
	return xdata.New(ErrImport, CodeImportFail, cause,
		"path", path,
		"T", name,
		"typeinfo", id,
		"suggest", []string{"check-module-path", "check-type-name", "check-registration"},
	)
}

func typeFail(id, name string) error {
	return xdata.New(ErrTypeNotFound, CodeTypeFail, nil,
		"type", name,
		"path", id,
	)
}
