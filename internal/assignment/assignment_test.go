package assignment

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratabase/borecore/internal/blob"
	"github.com/stratabase/borecore/internal/fault"
	"github.com/stratabase/borecore/internal/model"
)

// stubDirectory maps user id to role, mirroring the directory contract.
type stubDirectory struct {
	roles map[string]model.Role
}

func (d *stubDirectory) HasRole(_ context.Context, userID string, role model.Role) (bool, error) {
	return d.roles[userID] == role, nil
}

func newEngine(t *testing.T) (*Engine, blob.Store) {
	t.Helper()
	s := blob.NewMemory()
	dir := &stubDirectory{roles: map[string]model.Role{
		"eng-1":   model.RoleSiteEngineer,
		"eng-2":   model.RoleSiteEngineer,
		"lab-1":   model.RoleLabEngineer,
		"admin-1": model.RoleAdmin,
	}}
	return New(s, dir), s
}

func TestCreate_ActivePairIsUnique(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	first, err := e.Create(ctx, CreateInput{TargetID: "B1", TargetKind: model.TargetBorelog, AssignedTo: "eng-1"})
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentActive, first.Status)
	assert.NotEmpty(t, first.AssignmentID)

	_, err = e.Create(ctx, CreateInput{TargetID: "B1", TargetKind: model.TargetBorelog, AssignedTo: "eng-1"})
	require.Error(t, err)
	assert.True(t, fault.IsConflict(err))

	// Same target, different assignee is fine; same assignee, different target too.
	_, err = e.Create(ctx, CreateInput{TargetID: "B1", TargetKind: model.TargetBorelog, AssignedTo: "eng-2"})
	require.NoError(t, err)
	_, err = e.Create(ctx, CreateInput{TargetID: "B2", TargetKind: model.TargetBorelog, AssignedTo: "eng-1"})
	require.NoError(t, err)
}

func TestCreate_ClosedPairReopens(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	first, err := e.Create(ctx, CreateInput{TargetID: "B1", TargetKind: model.TargetBorelog, AssignedTo: "eng-1"})
	require.NoError(t, err)

	done := model.AssignmentCompleted
	updated, err := e.Update(ctx, first.AssignmentID, Patch{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)

	second, err := e.Create(ctx, CreateInput{TargetID: "B1", TargetKind: model.TargetBorelog, AssignedTo: "eng-1"})
	require.NoError(t, err)
	assert.NotEqual(t, first.AssignmentID, second.AssignmentID)
}

func TestCreate_RoleGating(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	// A lab engineer cannot take a borelog target.
	_, err := e.Create(ctx, CreateInput{TargetID: "B1", TargetKind: model.TargetBorelog, AssignedTo: "lab-1"})
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))

	// But owns lab report targets, which site engineers cannot take.
	_, err = e.Create(ctx, CreateInput{TargetID: "R1", TargetKind: model.TargetLabReport, AssignedTo: "lab-1"})
	require.NoError(t, err)
	_, err = e.Create(ctx, CreateInput{TargetID: "R2", TargetKind: model.TargetLabReport, AssignedTo: "eng-1"})
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))

	// Admins qualify for anything; unknown users never do.
	_, err = e.Create(ctx, CreateInput{TargetID: "B1", TargetKind: model.TargetBorelog, AssignedTo: "admin-1"})
	require.NoError(t, err)
	_, err = e.Create(ctx, CreateInput{TargetID: "B1", TargetKind: model.TargetBorelog, AssignedTo: "nobody"})
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))
}

func TestCreate_Validation(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.Create(ctx, CreateInput{TargetKind: model.TargetBorelog, AssignedTo: "eng-1"})
	require.Error(t, err)
	assert.True(t, fault.IsValidation(err))

	_, err = e.Create(ctx, CreateInput{TargetID: "B1", TargetKind: "rig", AssignedTo: "eng-1"})
	require.Error(t, err)
	assert.True(t, fault.IsValidation(err))
}

func TestUpdate_ReactivationConflictsWithActivePair(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	first, err := e.Create(ctx, CreateInput{TargetID: "B1", TargetKind: model.TargetBorelog, AssignedTo: "eng-1"})
	require.NoError(t, err)

	inactive := model.AssignmentInactive
	_, err = e.Update(ctx, first.AssignmentID, Patch{Status: &inactive})
	require.NoError(t, err)

	second, err := e.Create(ctx, CreateInput{TargetID: "B1", TargetKind: model.TargetBorelog, AssignedTo: "eng-1"})
	require.NoError(t, err)

	// Flipping the first back to active would break the one-active invariant.
	active := model.AssignmentActive
	_, err = e.Update(ctx, first.AssignmentID, Patch{Status: &active})
	require.Error(t, err)
	assert.True(t, fault.IsConflict(err))

	// Retire the second and reactivation goes through.
	_, err = e.Update(ctx, second.AssignmentID, Patch{Status: &inactive})
	require.NoError(t, err)
	_, err = e.Update(ctx, first.AssignmentID, Patch{Status: &active})
	require.NoError(t, err)
}

func TestUpdate_UnknownIDAndBadStatus(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	notes := "recheck depths"
	_, err := e.Update(ctx, "ghost", Patch{Notes: &notes})
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))

	first, err := e.Create(ctx, CreateInput{TargetID: "B1", TargetKind: model.TargetBorelog, AssignedTo: "eng-1"})
	require.NoError(t, err)

	bad := model.AssignmentStatus("parked")
	_, err = e.Update(ctx, first.AssignmentID, Patch{Status: &bad})
	require.Error(t, err)
	assert.True(t, fault.IsValidation(err))

	updated, err := e.Update(ctx, first.AssignmentID, Patch{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "recheck depths", updated.Notes)
	assert.Equal(t, model.AssignmentActive, updated.Status, "notes-only patch leaves status alone")
}

func TestDelete(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	first, err := e.Create(ctx, CreateInput{TargetID: "B1", TargetKind: model.TargetBorelog, AssignedTo: "eng-1"})
	require.NoError(t, err)

	require.NoError(t, e.Delete(ctx, first.AssignmentID))

	err = e.Delete(ctx, first.AssignmentID)
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))

	_, err = e.Get(ctx, first.AssignmentID)
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))
}

func TestList_FiltersAndOrder(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	a1, err := e.Create(ctx, CreateInput{TargetID: "B1", TargetKind: model.TargetBorelog, AssignedTo: "eng-1"})
	require.NoError(t, err)
	a2, err := e.Create(ctx, CreateInput{TargetID: "S1", TargetKind: model.TargetStructure, AssignedTo: "eng-2"})
	require.NoError(t, err)
	a3, err := e.Create(ctx, CreateInput{TargetID: "B2", TargetKind: model.TargetBorelog, AssignedTo: "eng-1"})
	require.NoError(t, err)

	all, err := e.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, a3.AssignmentID, all[0].AssignmentID, "newest first")
	assert.Equal(t, a1.AssignmentID, all[2].AssignmentID)

	mine, err := e.List(ctx, Filter{AssignedTo: "ENG-1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2, "assignee filter is case-insensitive")

	structures, err := e.List(ctx, Filter{TargetKind: model.TargetStructure})
	require.NoError(t, err)
	require.Len(t, structures, 1)
	assert.Equal(t, a2.AssignmentID, structures[0].AssignmentID)

	inactive := model.AssignmentInactive
	_, err = e.Update(ctx, a1.AssignmentID, Patch{Status: &inactive})
	require.NoError(t, err)
	active, err := e.List(ctx, Filter{Status: model.AssignmentActive})
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestList_EmptyStore(t *testing.T) {
	e, _ := newEngine(t)
	out, err := e.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCreate_ConcurrentSamePairAdmitsOne(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Create(ctx, CreateInput{TargetID: "B1", TargetKind: model.TargetBorelog, AssignedTo: "eng-1"})
		}(i)
	}
	wg.Wait()

	var created, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case fault.IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, writers-1, conflicts)

	active, err := e.List(ctx, Filter{Status: model.AssignmentActive})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
