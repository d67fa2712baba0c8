// Package assignment maintains the flat collection of engineer assignments
// in the object store. The store has no compare-and-swap, so every mutation
// is a read-all, check, write-all cycle over the single collection document,
// serialized through an in-process mutex. Concurrent writers from separate
// processes still race last-write-wins.
package assignment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/stratabase/borecore/internal/blob"
	"github.com/stratabase/borecore/internal/fault"
	"github.com/stratabase/borecore/internal/model"
)

// RoleChecker resolves whether a user holds a role. Satisfied by
// directory.Directory.
type RoleChecker interface {
	HasRole(ctx context.Context, userID string, role model.Role) (bool, error)
}

// Engine owns the assignments collection document.
type Engine struct {
	store blob.Store
	dir   RoleChecker

	// mu is the single-writer lock for assignments/all.json. Chosen over
	// ETag conditional writes: the memory and filesystem drivers have no
	// conditional-put primitive, and one writer per process is enough for
	// the request-scoped model.
	mu sync.Mutex
}

// New returns an Engine over the given store and directory.
func New(store blob.Store, dir RoleChecker) *Engine {
	return &Engine{store: store, dir: dir}
}

// CreateInput is the payload for a new assignment.
type CreateInput struct {
	TargetID               string           `json:"target_id"`
	TargetKind             model.TargetKind `json:"target_kind"`
	AssignedTo             string           `json:"assigned_to"`
	AssignedBy             string           `json:"assigned_by,omitempty"`
	Notes                  string           `json:"notes,omitempty"`
	ExpectedCompletionDate *time.Time       `json:"expected_completion_date,omitempty"`
}

// requiredRole maps a target kind to the role its assignee must hold.
// Admins qualify for any target.
func requiredRole(kind model.TargetKind) (model.Role, bool) {
	switch kind {
	case model.TargetBorelog, model.TargetStructure, model.TargetSubstructure:
		return model.RoleSiteEngineer, true
	case model.TargetLabReport:
		return model.RoleLabEngineer, true
	default:
		return "", false
	}
}

// Create appends a new active assignment. Fails with Conflict when an
// active assignment already exists for (TargetID, AssignedTo), and with
// NotFound when the assignee does not hold the role the target requires.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*model.Assignment, error) {
	if in.TargetID == "" || in.AssignedTo == "" {
		return nil, fault.Validation("target_id and assigned_to are required")
	}
	role, ok := requiredRole(in.TargetKind)
	if !ok {
		return nil, fault.Validation("unknown target kind %q", in.TargetKind)
	}
	if err := e.checkRole(ctx, in.AssignedTo, role); err != nil {
		return nil, err
	}

	created := model.Assignment{
		AssignmentID:           uuid.New().String(),
		TargetID:               in.TargetID,
		TargetKind:             in.TargetKind,
		AssignedTo:             in.AssignedTo,
		AssignedBy:             in.AssignedBy,
		AssignedAt:             time.Now().UTC(),
		Status:                 model.AssignmentActive,
		Notes:                  in.Notes,
		ExpectedCompletionDate: in.ExpectedCompletionDate,
	}
	err := e.apply(ctx, func(col *model.AssignmentCollection) error {
		for _, a := range col.Assignments {
			if a.Status == model.AssignmentActive && a.TargetID == in.TargetID && a.AssignedTo == in.AssignedTo {
				return fault.Conflict(
					"assignment %s is already active for target %s and assignee %s",
					a.AssignmentID, in.TargetID, in.AssignedTo)
			}
		}
		col.Assignments = append(col.Assignments, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Patch carries the mutable assignment fields; nil means leave unchanged.
type Patch struct {
	Status                 *model.AssignmentStatus `json:"status,omitempty"`
	Notes                  *string                 `json:"notes,omitempty"`
	ExpectedCompletionDate *time.Time              `json:"expected_completion_date,omitempty"`
}

// Update applies the patch to one assignment. Setting status to completed
// stamps CompletedAt; reactivating a pair that already has another active
// assignment is a Conflict.
func (e *Engine) Update(ctx context.Context, assignmentID string, p Patch) (*model.Assignment, error) {
	if p.Status != nil {
		switch *p.Status {
		case model.AssignmentActive, model.AssignmentInactive, model.AssignmentCompleted:
		default:
			return nil, fault.Validation("unknown assignment status %q", *p.Status)
		}
	}

	var updated model.Assignment
	err := e.apply(ctx, func(col *model.AssignmentCollection) error {
		idx := -1
		for i, a := range col.Assignments {
			if a.AssignmentID == assignmentID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fault.NotFound("assignment %s", assignmentID)
		}
		a := col.Assignments[idx]

		if p.Status != nil && *p.Status == model.AssignmentActive && a.Status != model.AssignmentActive {
			for _, other := range col.Assignments {
				if other.AssignmentID != a.AssignmentID &&
					other.Status == model.AssignmentActive &&
					other.TargetID == a.TargetID && other.AssignedTo == a.AssignedTo {
					return fault.Conflict(
						"assignment %s is already active for target %s and assignee %s",
						other.AssignmentID, a.TargetID, a.AssignedTo)
				}
			}
		}
		if p.Status != nil {
			a.Status = *p.Status
			if *p.Status == model.AssignmentCompleted && a.CompletedAt == nil {
				now := time.Now().UTC()
				a.CompletedAt = &now
			}
		}
		if p.Notes != nil {
			a.Notes = *p.Notes
		}
		if p.ExpectedCompletionDate != nil {
			a.ExpectedCompletionDate = p.ExpectedCompletionDate
		}
		col.Assignments[idx] = a
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an assignment from the collection.
func (e *Engine) Delete(ctx context.Context, assignmentID string) error {
	return e.apply(ctx, func(col *model.AssignmentCollection) error {
		for i, a := range col.Assignments {
			if a.AssignmentID == assignmentID {
				col.Assignments = append(col.Assignments[:i], col.Assignments[i+1:]...)
				return nil
			}
		}
		return fault.NotFound("assignment %s", assignmentID)
	})
}

// Filter narrows List output; zero values match everything.
type Filter struct {
	TargetID   string
	TargetKind model.TargetKind
	AssignedTo string
	Status     model.AssignmentStatus
}

func (f Filter) match(a model.Assignment) bool {
	if f.TargetID != "" && a.TargetID != f.TargetID {
		return false
	}
	if f.TargetKind != "" && a.TargetKind != f.TargetKind {
		return false
	}
	if f.AssignedTo != "" && !strings.EqualFold(a.AssignedTo, f.AssignedTo) {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

// List returns matching assignments, newest first.
func (e *Engine) List(ctx context.Context, f Filter) ([]model.Assignment, error) {
	col, err := e.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Assignment, 0, len(col.Assignments))
	for _, a := range col.Assignments {
		if f.match(a) {
			out = append(out, a)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Get returns one assignment by id.
func (e *Engine) Get(ctx context.Context, assignmentID string) (*model.Assignment, error) {
	col, err := e.read(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range col.Assignments {
		if a.AssignmentID == assignmentID {
			return &a, nil
		}
	}
	return nil, fault.NotFound("assignment %s", assignmentID)
}

// apply is the read-modify-write seam: it holds the collection mutex,
// reads the document, runs fn against it, and writes it back only when fn
// succeeds. The concurrency strategy lives here and nowhere else.
func (e *Engine) apply(ctx context.Context, fn func(*model.AssignmentCollection) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	col, err := e.read(ctx)
	if err != nil {
		return err
	}
	if err := fn(col); err != nil {
		return err
	}
	col.UpdatedAt = time.Now().UTC()
	if err := blob.PutJSON(ctx, e.store, blob.AssignmentsKey, col); err != nil {
		return eris.Wrap(err, "assignment: write collection")
	}
	return nil
}

func (e *Engine) read(ctx context.Context) (*model.AssignmentCollection, error) {
	var col model.AssignmentCollection
	err := blob.GetJSON(ctx, e.store, blob.AssignmentsKey, &col)
	if fault.IsNotFound(err) {
		return &model.AssignmentCollection{}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "assignment: read collection")
	}
	return &col, nil
}

func (e *Engine) checkRole(ctx context.Context, userID string, role model.Role) error {
	ok, err := e.dir.HasRole(ctx, userID, role)
	if err != nil {
		return eris.Wrapf(err, "assignment: resolve user %s", userID)
	}
	if ok {
		return nil
	}
	// Admins may take any assignment.
	admin, err := e.dir.HasRole(ctx, userID, model.RoleAdmin)
	if err != nil {
		return eris.Wrapf(err, "assignment: resolve user %s", userID)
	}
	if !admin {
		return fault.NotFound("user %s with role %s", userID, role)
	}
	return nil
}
