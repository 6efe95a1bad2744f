package source

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
)

// Stager copies a picked file into the staging area and returns the copy's path
type Stager interface {
	Stage(ctx context.Context, path string) (string, error)
}

// FileOpener opens a source file picked by the user. The file is staged
// first when a Stager is set, so the original can be replaced while it is read.
type FileOpener struct {
	Path   string
	Stager Stager
}

// NewFileOpener creates an opener for path staged through stager
func NewFileOpener(path string, stager Stager) *FileOpener {
	return &FileOpener{Path: path, Stager: stager}
}

// Name returns the base name of the file
func (o *FileOpener) Name() string {
	return filepath.Base(o.Path)
}

// Open stages the file and opens it according to its extension
func (o *FileOpener) Open(ctx context.Context) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, shared.ErrCanceled
	}

	path := o.Path
	if o.Stager != nil {
		staged, err := o.Stager.Stage(ctx, o.Path)
		if err != nil {
			return nil, err
		}
		path = staged
	}

	name := o.Name()
	switch strings.ToLower(filepath.Ext(o.Path)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(name, path)
	case ".xlsx", ".xlsm":
		return OpenWorkbook(name, path)
	case ".csv", ".txt":
		return OpenCSV(name, path)
	default:
		return nil, shared.NewValidationError("Unsupported source format: " + filepath.Ext(o.Path))
	}
}

// canceledOpener stands for a dismissed picker
type canceledOpener struct{}

// Canceled returns the opener for a picker the user dismissed
func Canceled() Opener {
	return canceledOpener{}
}

func (canceledOpener) Name() string {
	return ""
}

func (canceledOpener) Open(context.Context) (Source, error) {
	return nil, shared.ErrCanceled
}

// StaticOpener hands out an already opened source
type StaticOpener struct {
	Source Source
}

// Name returns the source name
func (o StaticOpener) Name() string {
	return o.Source.Name()
}

// Open returns the wrapped source
func (o StaticOpener) Open(ctx context.Context) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, shared.ErrCanceled
	}
	return o.Source, nil
}
