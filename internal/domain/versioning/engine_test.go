package versioning

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"tracehub-api/internal/domain/entity"
	"tracehub-api/pkg/errors"
)

const projectID = "project-1"

func newArtifactEngine(t *testing.T, db *memDB) *ArtifactEngine {
	t.Helper()
	e, err := NewArtifactEngine(db.artifactRepos(), nil)
	if err != nil {
		t.Fatalf("NewArtifactEngine() error = %v", err)
	}
	return e
}

func newTraceEngine(t *testing.T, db *memDB) *TraceEngine {
	t.Helper()
	e, err := NewTraceEngine(db.traceRepos(), nil)
	if err != nil {
		t.Fatalf("NewTraceEngine() error = %v", err)
	}
	return e
}

func art(name, body string) *entity.ArtifactAppEntity {
	return &entity.ArtifactAppEntity{Name: name, Type: "Requirement", Summary: name, Body: body}
}

func row(pv *entity.ProjectVersion, mod entity.ModificationType, body string) *entity.ArtifactVersion {
	return &entity.ArtifactVersion{ArtifactID: "a", Version: pv, Modification: mod, Body: body}
}

func TestCalculateModificationTypeTable(t *testing.T) {
	pv := entity.NewProjectVersion(projectID, 1, 0, 0)
	var none *entity.ArtifactVersion

	tests := []struct {
		name   string
		before *entity.ArtifactVersion
		after  *entity.ArtifactVersion
		want   entity.ModificationType
	}{
		{"absent to absent", none, none, NoChange},
		{"absent to present", none, row(pv, entity.ModificationAdded, "x"), entity.ModificationAdded},
		{"present to absent", row(pv, entity.ModificationAdded, "x"), none, entity.ModificationRemoved},
		{"same content", row(pv, entity.ModificationAdded, "x"), row(pv, entity.ModificationModified, "x"), NoChange},
		{"different content", row(pv, entity.ModificationAdded, "x"), row(pv, entity.ModificationModified, "y"), entity.ModificationModified},
		{"removed to present with same content", row(pv, entity.ModificationRemoved, "x"), row(pv, entity.ModificationAdded, "x"), entity.ModificationAdded},
		{"removed to present with new content", row(pv, entity.ModificationRemoved, ""), row(pv, entity.ModificationAdded, "y"), entity.ModificationAdded},
		{"present to removed", row(pv, entity.ModificationAdded, ""), row(pv, entity.ModificationRemoved, ""), entity.ModificationRemoved},
		{"removed to removed", row(pv, entity.ModificationRemoved, ""), row(pv, entity.ModificationRemoved, ""), NoChange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateModificationType(tt.before, tt.after); got != tt.want {
				t.Fatalf("CalculateModificationType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLatestWithFilter(t *testing.T) {
	v1 := entity.NewProjectVersion(projectID, 1, 0, 0)
	v2 := entity.NewProjectVersion(projectID, 1, 1, 0)
	v3 := entity.NewProjectVersion(projectID, 2, 0, 0)
	rows := []*entity.ArtifactVersion{
		row(v3, entity.ModificationModified, "z"),
		row(v1, entity.ModificationAdded, "x"),
		row(v2, entity.ModificationModified, "y"),
	}

	if got := LatestWithFilter(rows, AtOrBefore(v2)); got.Body != "y" {
		t.Fatalf("at v2 = %q, want y", got.Body)
	}
	if got := LatestWithFilter(rows, Before(v2)); got.Body != "x" {
		t.Fatalf("before v2 = %q, want x", got.Body)
	}
	if got := LatestWithFilter(rows, Before(v1)); got != nil {
		t.Fatalf("before v1 = %+v, want none", got)
	}
}

func TestEndToEndModifiedArtifact(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	e := newArtifactEngine(t, db)
	v100 := db.addVersion(projectID, 1, 0, 0)
	v110 := db.addVersion(projectID, 1, 1, 0)

	if _, err := e.SetAppEntities(ctx, v100, []*entity.ArtifactAppEntity{art("A1", "x")}, ModeCompleteSet); err != nil {
		t.Fatalf("apply 1.0.0: %v", err)
	}
	res, err := e.SetAppEntities(ctx, v110, []*entity.ArtifactAppEntity{art("A1", "y")}, ModeCompleteSet)
	if err != nil {
		t.Fatalf("apply 1.1.0: %v", err)
	}
	if len(res.Versions) != 1 || len(res.Errors) != 0 {
		t.Fatalf("expected one row and no errors, got %d rows %d errors", len(res.Versions), len(res.Errors))
	}
	got := res.Versions[0]
	if got.Modification != entity.ModificationModified || got.Body != "y" || got.ProjectVersion() != v110 {
		t.Fatalf("unexpected row %+v", got)
	}

	at, err := e.EntityAt(ctx, got.ArtifactID, v110)
	if err != nil || at.Body != "y" {
		t.Fatalf("EntityAt(1.1.0) = %+v, %v", at, err)
	}
	before, err := e.EntityBefore(ctx, got.ArtifactID, v110)
	if err != nil || before.Body != "x" {
		t.Fatalf("EntityBefore(1.1.0) = %+v, %v", before, err)
	}
}

func TestSnapshotAcrossThreeVersions(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	e := newArtifactEngine(t, db)
	v0 := db.addVersion(projectID, 0, 9, 0)
	v1 := db.addVersion(projectID, 1, 0, 0)
	v2 := db.addVersion(projectID, 2, 0, 0)
	v3 := db.addVersion(projectID, 3, 0, 0)

	for i, pv := range []*entity.ProjectVersion{v1, v2, v3} {
		if _, err := e.SetAppEntity(ctx, pv, art("A", string(rune('a'+i)))); err != nil {
			t.Fatalf("SetAppEntity(%s): %v", pv, err)
		}
	}

	snap, err := e.EntitiesAtVersion(ctx, v2)
	if err != nil || len(snap) != 1 || snap[0].Body != "b" {
		t.Fatalf("EntitiesAtVersion(v2) = %+v, %v", snap, err)
	}
	artifactID := snap[0].ArtifactID
	if before, _ := e.EntityBefore(ctx, artifactID, v2); before.Body != "a" {
		t.Fatalf("EntityBefore(v2) = %q, want a", before.Body)
	}
	if early, _ := e.EntitiesAtVersion(ctx, v0); len(early) != 0 {
		t.Fatalf("EntitiesAtVersion(v0) = %d rows, want 0", len(early))
	}
	history, err := e.History(ctx, artifactID)
	if err != nil || len(history) != 3 || history[0].Modification != entity.ModificationAdded {
		t.Fatalf("History() = %+v, %v", history, err)
	}
}

func TestRemovedEntityIsExcludedFromSnapshot(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	e := newArtifactEngine(t, db)
	v1 := db.addVersion(projectID, 1, 0, 0)
	v2 := db.addVersion(projectID, 1, 1, 0)

	if _, err := e.SetAppEntities(ctx, v1, []*entity.ArtifactAppEntity{art("A", "x"), art("B", "y")}, ModeCompleteSet); err != nil {
		t.Fatal(err)
	}
	removed, err := e.RemoveAppEntity(ctx, v2, art("B", ""))
	if err != nil || removed == nil || removed.Modification != entity.ModificationRemoved || removed.Body != "" {
		t.Fatalf("RemoveAppEntity() = %+v, %v", removed, err)
	}

	snap, err := e.EntitiesAtVersion(ctx, v2)
	if err != nil {
		t.Fatal(err)
	}
	if names := joined(artifactNames(snap, db)); names != "A" {
		t.Fatalf("snapshot at v2 = %q, want A", names)
	}
	if snap, _ := e.EntitiesAtVersion(ctx, v1); len(snap) != 2 {
		t.Fatalf("snapshot at v1 has %d rows, want 2", len(snap))
	}

	again, err := e.RemoveAppEntity(ctx, v2, art("B", ""))
	if err != nil || again != nil {
		t.Fatalf("second RemoveAppEntity() = %+v, %v", again, err)
	}
	missing, err := e.RemoveAppEntity(ctx, v2, art("nobody", ""))
	if err != nil || missing != nil {
		t.Fatalf("RemoveAppEntity(unknown) = %+v, %v", missing, err)
	}
}

func TestReapplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	e := newArtifactEngine(t, db)
	v1 := db.addVersion(projectID, 1, 0, 0)
	v2 := db.addVersion(projectID, 1, 1, 0)

	if _, err := e.SetAppEntities(ctx, v1, []*entity.ArtifactAppEntity{art("A", "x"), art("B", "x"), art("C", "x")}, ModeCompleteSet); err != nil {
		t.Fatal(err)
	}
	batch := []*entity.ArtifactAppEntity{art("A", "y"), art("B", "x"), art("D", "new")}

	first, err := e.SetAppEntities(ctx, v2, batch, ModeCompleteSet)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Versions) != 3 {
		t.Fatalf("first apply wrote %d rows, want 3 (A modified, D added, C removed)", len(first.Versions))
	}
	rowsAfterFirst := len(db.artifactVersions)

	second, err := e.SetAppEntities(ctx, v2, batch, ModeCompleteSet)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Versions) != 0 || len(second.Errors) != 0 {
		t.Fatalf("second apply produced %d rows %d errors, want none", len(second.Versions), len(second.Errors))
	}
	if len(db.artifactVersions) != rowsAfterFirst {
		t.Fatalf("row count changed from %d to %d", rowsAfterFirst, len(db.artifactVersions))
	}
}

func TestOverwriteInPlaceReusesRowID(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	e := newArtifactEngine(t, db)
	v1 := db.addVersion(projectID, 1, 0, 0)

	first, err := e.SetAppEntity(ctx, v1, art("A", "x"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.SetAppEntity(ctx, v1, art("A", "changed"))
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("row id changed from %s to %s", first.ID, second.ID)
	}
	if len(db.artifactVersions) != 1 || db.artifactVersions[0].Body != "changed" {
		t.Fatalf("expected a single overwritten row, got %+v", db.artifactVersions)
	}
}

func TestBatchPartialFailure(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	tx := &countingTx{}
	e, err := NewArtifactEngine(db.artifactRepos(), tx)
	if err != nil {
		t.Fatal(err)
	}
	v1 := db.addVersion(projectID, 1, 0, 0)
	db.failArtifactSave = func(v *entity.ArtifactVersion) error {
		if v.Body == "bad" {
			return errors.ErrIntegrityViolation.WithDetail("duplicate key")
		}
		return nil
	}

	apps := []*entity.ArtifactAppEntity{art("A", "ok"), art("B", "bad"), art("C", "ok"), art("D", "ok")}
	res, err := e.SetAppEntities(ctx, v1, apps, ModeDelta)
	if err != nil {
		t.Fatalf("batch must not fail: %v", err)
	}
	if len(res.Versions) != 3 || len(res.Errors) != 1 {
		t.Fatalf("got %d rows %d errors, want 3 and 1", len(res.Versions), len(res.Errors))
	}
	ce := res.Errors[0]
	if ce.Activity != entity.ActivityArtifacts || ce.EntityName != "B" || ce.ProjectVersionID != v1.ID {
		t.Fatalf("unexpected commit error %+v", ce)
	}
	if !strings.Contains(ce.Description, `failed to save artifact "B"`) {
		t.Fatalf("description %q does not name the artifact", ce.Description)
	}
	if tx.calls != len(apps) {
		t.Fatalf("savepoints = %d, want %d", tx.calls, len(apps))
	}
}

func TestCompleteSetRemovesUnreferenced(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	e := newArtifactEngine(t, db)
	v1 := db.addVersion(projectID, 1, 0, 0)
	v2 := db.addVersion(projectID, 1, 1, 0)
	v3 := db.addVersion(projectID, 1, 2, 0)

	if _, err := e.SetAppEntities(ctx, v1, []*entity.ArtifactAppEntity{art("A", "a"), art("B", "b"), art("C", "c")}, ModeCompleteSet); err != nil {
		t.Fatal(err)
	}

	delta, err := e.SetAppEntities(ctx, v2, []*entity.ArtifactAppEntity{art("A", "a"), art("B", "b")}, ModeDelta)
	if err != nil {
		t.Fatal(err)
	}
	if len(delta.Versions) != 0 {
		t.Fatalf("delta mode wrote %d rows, want 0", len(delta.Versions))
	}

	res, err := e.SetAppEntities(ctx, v3, []*entity.ArtifactAppEntity{art("A", "a"), art("B", "b")}, ModeCompleteSet)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Versions) != 1 || res.Versions[0].Modification != entity.ModificationRemoved {
		t.Fatalf("expected one REMOVED row, got %+v", res.Versions)
	}
	if names := joined(artifactNames(res.Versions, db)); names != "C" {
		t.Fatalf("removed %q, want C", names)
	}
}

func TestDuplicateKeysInBatch(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	e := newArtifactEngine(t, db)
	v1 := db.addVersion(projectID, 1, 0, 0)

	res, err := e.SetAppEntities(ctx, v1, []*entity.ArtifactAppEntity{art("A", "first"), art("A", "second")}, ModeDelta)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Versions) != 1 || res.Versions[0].Body != "first" {
		t.Fatalf("first occurrence should win, got %+v", res.Versions)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Description, "duplicate entry in batch") {
		t.Fatalf("expected duplicate error, got %+v", res.Errors)
	}
}

func TestCompleteSetReuploadAtSameVersion(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	e := newArtifactEngine(t, db)
	v1 := db.addVersion(projectID, 1, 0, 0)

	if _, err := e.SetAppEntities(ctx, v1, []*entity.ArtifactAppEntity{art("A", "a"), art("B", "b")}, ModeCompleteSet); err != nil {
		t.Fatal(err)
	}
	res, err := e.SetAppEntities(ctx, v1, []*entity.ArtifactAppEntity{art("A", "a")}, ModeCompleteSet)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Versions) != 1 || res.Versions[0].Modification != entity.ModificationRemoved {
		t.Fatalf("expected B rewritten as REMOVED, got %+v", res.Versions)
	}
	if len(db.artifactVersions) != 2 {
		t.Fatalf("rows = %d, want 2 (B rewritten in place)", len(db.artifactVersions))
	}

	snap, err := e.EntitiesAtVersion(ctx, v1)
	if err != nil {
		t.Fatal(err)
	}
	if names := joined(artifactNames(snap, db)); names != "A" {
		t.Fatalf("snapshot at v1 = %q, want A", names)
	}

	again, err := e.SetAppEntities(ctx, v1, []*entity.ArtifactAppEntity{art("A", "a")}, ModeCompleteSet)
	if err != nil || len(again.Versions) != 0 {
		t.Fatalf("repeated upload = %+v, %v, want no rows", again, err)
	}
}

func TestRemoveEntityAddedAtSameVersion(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	e := newArtifactEngine(t, db)
	v1 := db.addVersion(projectID, 1, 0, 0)

	added, err := e.SetAppEntity(ctx, v1, art("A", "x"))
	if err != nil {
		t.Fatal(err)
	}
	removed, err := e.RemoveAppEntity(ctx, v1, art("A", ""))
	if err != nil || removed == nil || removed.Modification != entity.ModificationRemoved {
		t.Fatalf("RemoveAppEntity() = %+v, %v", removed, err)
	}
	if removed.ID != added.ID {
		t.Fatalf("row id changed from %s to %s", added.ID, removed.ID)
	}
	if snap, _ := e.EntitiesAtVersion(ctx, v1); len(snap) != 0 {
		t.Fatalf("snapshot at v1 = %+v, want empty", snap)
	}
}

func TestRevertAtSameVersionRestoresEarlierContent(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	e := newArtifactEngine(t, db)
	v1 := db.addVersion(projectID, 1, 0, 0)
	v2 := db.addVersion(projectID, 1, 1, 0)

	if _, err := e.SetAppEntity(ctx, v1, art("A", "x")); err != nil {
		t.Fatal(err)
	}
	modified, err := e.SetAppEntity(ctx, v2, art("A", "y"))
	if err != nil {
		t.Fatal(err)
	}
	reverted, err := e.SetAppEntity(ctx, v2, art("A", "x"))
	if err != nil || reverted == nil || reverted.ID != modified.ID {
		t.Fatalf("revert = %+v, %v", reverted, err)
	}

	base := db.artifacts[0]
	at, err := e.EntityAt(ctx, base.ID, v2)
	if err != nil {
		t.Fatal(err)
	}
	if at == nil || at.Body != "x" {
		t.Fatalf("EntityAt(v2) = %+v, want body x", at)
	}
}

func TestDuplicateAliasesInBatch(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	e := newArtifactEngine(t, db)
	v1 := db.addVersion(projectID, 1, 0, 0)
	v2 := db.addVersion(projectID, 1, 1, 0)

	first, err := e.SetAppEntity(ctx, v1, art("A", "x"))
	if err != nil {
		t.Fatal(err)
	}

	byID := art("A", "first")
	byID.ID = first.ArtifactID
	res, err := e.SetAppEntities(ctx, v2, []*entity.ArtifactAppEntity{byID, art("B", "b"), art("A", "second")}, ModeDelta)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Description, "duplicate entry in batch") {
		t.Fatalf("expected one duplicate error, got %+v", res.Errors)
	}
	at, err := e.EntityAt(ctx, first.ArtifactID, v2)
	if err != nil || at == nil || at.Body != "first" {
		t.Fatalf("EntityAt(v2) = %+v, %v, want first occurrence", at, err)
	}
}

func TestDuplicateResolvedEntityInBatch(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	b := &artifactBinding{repos: db.artifactRepos()}
	folded := func(ctx context.Context, pv *entity.ProjectVersion, app *entity.ArtifactAppEntity) (*entity.Artifact, error) {
		cp := *app
		cp.Name = strings.ToLower(app.Name)
		return b.resolve(ctx, pv, &cp)
	}
	e, err := New(&artifactStore{repos: db.artifactRepos()},
		Binding[*entity.Artifact, *entity.ArtifactVersion, *entity.ArtifactAppEntity]{
			Kind:       entity.ActivityArtifacts,
			Noun:       "artifact",
			Resolve:    folded,
			Lookup:     folded,
			NewVersion: newArtifactVersion,
		}, &countingTx{})
	if err != nil {
		t.Fatal(err)
	}
	v1 := db.addVersion(projectID, 1, 0, 0)

	res, err := e.SetAppEntities(ctx, v1, []*entity.ArtifactAppEntity{art("Login", "first"), art("LOGIN", "second")}, ModeDelta)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Versions) != 1 || res.Versions[0].Body != "first" {
		t.Fatalf("first occurrence should win, got %+v", res.Versions)
	}
	if len(res.Errors) != 1 || res.Errors[0].EntityName != "LOGIN" ||
		!strings.Contains(res.Errors[0].Description, "duplicate entry in batch") {
		t.Fatalf("expected duplicate error for LOGIN, got %+v", res.Errors)
	}
}

func TestRenameThroughIDIsRejected(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	e := newArtifactEngine(t, db)
	v1 := db.addVersion(projectID, 1, 0, 0)
	v2 := db.addVersion(projectID, 1, 1, 0)

	first, err := e.SetAppEntity(ctx, v1, art("A", "x"))
	if err != nil {
		t.Fatal(err)
	}
	renamed := art("renamed", "x")
	renamed.ID = first.ArtifactID
	if _, err := e.SetAppEntity(ctx, v2, renamed); !stderrors.Is(err, errors.ErrInvalidAppEntity) {
		t.Fatalf("expected invalid app entity, got %v", err)
	}
	if len(db.artifacts) != 1 || db.artifacts[0].Name != "A" {
		t.Fatalf("artifacts = %+v", db.artifacts)
	}
}

func TestArtifactResolution(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	e := newArtifactEngine(t, db)
	v1 := db.addVersion(projectID, 1, 0, 0)
	v2 := db.addVersion(projectID, 1, 1, 0)

	first, err := e.SetAppEntity(ctx, v1, art("A", "x"))
	if err != nil {
		t.Fatal(err)
	}

	renamedType := &entity.ArtifactAppEntity{ID: first.ArtifactID, Name: "A", Type: "REQUIREMENT", Body: "x", Summary: "A"}
	if _, err := e.SetAppEntity(ctx, v2, renamedType); err != nil {
		t.Fatal(err)
	}
	if len(db.types) != 1 {
		t.Fatalf("type names should match case-insensitively, got %d types", len(db.types))
	}

	moved := &entity.ArtifactAppEntity{ID: "unknown-id", Name: "A", Type: "Design", Body: "x", Summary: "A"}
	if _, err := e.SetAppEntity(ctx, v2, moved); err != nil {
		t.Fatal(err)
	}
	if len(db.artifacts) != 1 {
		t.Fatalf("unknown id should fall back to name match, got %d artifacts", len(db.artifacts))
	}
	if db.artifacts[0].TypeID != db.types[1].ID {
		t.Fatalf("artifact type was not updated")
	}

	_, err = e.SetAppEntity(ctx, v2, &entity.ArtifactAppEntity{Name: "", Type: "Design"})
	if !stderrors.Is(err, errors.ErrInvalidAppEntity) {
		t.Fatalf("expected invalid app entity, got %v", err)
	}
}

func TestContextCancellationAbortsBatch(t *testing.T) {
	db := newMemDB()
	e := newArtifactEngine(t, db)
	v1 := db.addVersion(projectID, 1, 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.SetAppEntities(ctx, v1, []*entity.ArtifactAppEntity{art("A", "x")}, ModeCompleteSet)
	if !stderrors.Is(err, context.Canceled) || res != nil {
		t.Fatalf("expected context.Canceled, got %v, %+v", err, res)
	}
	if len(db.artifactVersions) != 0 {
		t.Fatalf("cancelled batch wrote %d rows", len(db.artifactVersions))
	}
}

func TestNewRejectsIncompleteBinding(t *testing.T) {
	db := newMemDB()
	_, err := New(&artifactStore{repos: db.artifactRepos()},
		Binding[*entity.Artifact, *entity.ArtifactVersion, *entity.ArtifactAppEntity]{Kind: entity.ActivityArtifacts}, nil)
	if err == nil {
		t.Fatal("expected error for binding without callbacks")
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("delta"); err != nil || m != ModeDelta {
		t.Fatalf("ParseMode(delta) = %q, %v", m, err)
	}
	if _, err := ParseMode("everything"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
