package store

import (
	"errors"
	"fmt"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown store backend")

type ParticipantStore interface {
	LoadParticipants() (*ParticipantDocument, error)
	SaveParticipants(doc *ParticipantDocument) error
}

type AssignmentStore interface {
	LoadAssignments() (*AssignmentDocument, error)
	SaveAssignments(doc *AssignmentDocument) error
}

// Store is a handle over both documents. It is opened once at process start
// and closed at shutdown. Documents are read and written whole with no
// cross-process locking, so only one process may use a store at a time.
type Store interface {
	ParticipantStore
	AssignmentStore
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend          string // "json" or "sqlite"
	ParticipantsFile string
	AssignmentsFile  string
	DatabaseURL      string
}

func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "json":
		return NewJSONStore(opts.ParticipantsFile, opts.AssignmentsFile), nil
	case "sqlite":
		return NewSQLiteStore(opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
