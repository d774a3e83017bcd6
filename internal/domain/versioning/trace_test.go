package versioning

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"tracehub-api/internal/domain/entity"
	"tracehub-api/pkg/errors"
)

func link(source, target string, traceType entity.TraceType, score float64) *entity.TraceAppEntity {
	return &entity.TraceAppEntity{
		SourceName:     source,
		TargetName:     target,
		TraceType:      traceType,
		ApprovalStatus: entity.ApprovalUnreviewed,
		Score:          score,
	}
}

func seedArtifacts(t *testing.T, db *memDB, pv *entity.ProjectVersion, names ...string) {
	t.Helper()
	e := newArtifactEngine(t, db)
	var apps []*entity.ArtifactAppEntity
	for _, n := range names {
		apps = append(apps, art(n, n))
	}
	if _, err := e.SetAppEntities(context.Background(), pv, apps, ModeCompleteSet); err != nil {
		t.Fatalf("seed artifacts: %v", err)
	}
}

func TestManualLinkCannotBeOverridden(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	v1 := db.addVersion(projectID, 1, 0, 0)
	seedArtifacts(t, db, v1, "R1", "D1")
	e := newTraceEngine(t, db)

	manual, err := e.SetAppEntity(ctx, v1, link("R1", "D1", entity.TraceTypeManual, 1))
	if err != nil || manual.Modification != entity.ModificationAdded {
		t.Fatalf("manual link = %+v, %v", manual, err)
	}
	rowsBefore := len(db.linkVersions)

	_, err = e.SetAppEntity(ctx, v1, link("R1", "D1", entity.TraceTypeGenerated, 0.4))
	if !stderrors.Is(err, errors.ErrManualLinkOverride) {
		t.Fatalf("expected manual override error, got %v", err)
	}
	if len(db.linkVersions) != rowsBefore || db.linkVersions[0].TraceType != entity.TraceTypeManual {
		t.Fatalf("generated link must not write, rows = %+v", db.linkVersions)
	}

	res, err := e.SetAppEntities(ctx, v1, []*entity.TraceAppEntity{link("R1", "D1", entity.TraceTypeGenerated, 0.4)}, ModeCompleteSet)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Versions) != 0 || len(res.Errors) != 1 || res.Errors[0].Activity != entity.ActivityTraces {
		t.Fatalf("batch should report one trace error, got %+v", res)
	}

	updated, err := e.SetAppEntity(ctx, v1, &entity.TraceAppEntity{
		SourceName: "R1", TargetName: "D1", TraceType: entity.TraceTypeManual,
		ApprovalStatus: entity.ApprovalApproved, Score: 1,
	})
	if err != nil || updated.ID != manual.ID {
		t.Fatalf("manual update should overwrite in place, got %+v, %v", updated, err)
	}
}

func TestGeneratedLinkAtNewVersionIsAllowed(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	v1 := db.addVersion(projectID, 1, 0, 0)
	v2 := db.addVersion(projectID, 1, 1, 0)
	seedArtifacts(t, db, v1, "R1", "D1")
	e := newTraceEngine(t, db)

	if _, err := e.SetAppEntity(ctx, v1, link("R1", "D1", entity.TraceTypeManual, 1)); err != nil {
		t.Fatal(err)
	}
	v, err := e.SetAppEntity(ctx, v2, link("R1", "D1", entity.TraceTypeGenerated, 0.7))
	if err != nil || v.Modification != entity.ModificationModified {
		t.Fatalf("SetAppEntity(v2) = %+v, %v", v, err)
	}
}

func TestTraceRequiresExistingEndpoints(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	v1 := db.addVersion(projectID, 1, 0, 0)
	seedArtifacts(t, db, v1, "R1")
	e := newTraceEngine(t, db)

	_, err := e.SetAppEntity(ctx, v1, link("R1", "missing", entity.TraceTypeGenerated, 0.5))
	if !stderrors.Is(err, errors.ErrArtifactNotFound) || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected artifact not found naming the endpoint, got %v", err)
	}
	if len(db.links) != 0 {
		t.Fatalf("no link should be created, got %d", len(db.links))
	}

	res, err := e.SetAppEntities(ctx, v1, []*entity.TraceAppEntity{
		link("R1", "missing", entity.TraceTypeGenerated, 0.5),
		link("R1", "R1", entity.TraceTypeGenerated, 0.5),
	}, ModeDelta)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Versions) != 1 || len(res.Errors) != 1 {
		t.Fatalf("got %d rows %d errors, want 1 and 1", len(res.Versions), len(res.Errors))
	}
	if res.Errors[0].Description != "R1 -> missing: could not find artifact: missing" {
		t.Fatalf("description = %q", res.Errors[0].Description)
	}
}

func TestTraceMatrixIsEnsuredOnce(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	v1 := db.addVersion(projectID, 1, 0, 0)
	seedArtifacts(t, db, v1, "R1", "R2", "D1")
	e := newTraceEngine(t, db)

	res, err := e.SetAppEntities(ctx, v1, []*entity.TraceAppEntity{
		link("R1", "D1", entity.TraceTypeGenerated, 0.5),
		link("R2", "D1", entity.TraceTypeGenerated, 0.6),
	}, ModeCompleteSet)
	if err != nil || len(res.Versions) != 2 {
		t.Fatalf("SetAppEntities() = %+v, %v", res, err)
	}
	if len(db.matrices) != 1 {
		t.Fatalf("matrices = %d, want 1 (all artifacts share a type)", len(db.matrices))
	}
}

func TestTraceCompleteSetRemovesMissingLinks(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	v1 := db.addVersion(projectID, 1, 0, 0)
	v2 := db.addVersion(projectID, 2, 0, 0)
	seedArtifacts(t, db, v1, "R1", "R2", "D1")
	e := newTraceEngine(t, db)

	if _, err := e.SetAppEntities(ctx, v1, []*entity.TraceAppEntity{
		link("R1", "D1", entity.TraceTypeGenerated, 0.5),
		link("R2", "D1", entity.TraceTypeGenerated, 0.6),
	}, ModeCompleteSet); err != nil {
		t.Fatal(err)
	}

	res, err := e.SetAppEntities(ctx, v2, []*entity.TraceAppEntity{
		link("R1", "D1", entity.TraceTypeGenerated, 0.5),
	}, ModeCompleteSet)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Versions) != 1 || res.Versions[0].Modification != entity.ModificationRemoved {
		t.Fatalf("expected one REMOVED link, got %+v", res.Versions)
	}

	snap, err := e.EntitiesAtVersion(ctx, v2)
	if err != nil || len(snap) != 1 {
		t.Fatalf("snapshot at v2 = %+v, %v", snap, err)
	}
}

func TestTraceAppValidation(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	v1 := db.addVersion(projectID, 1, 0, 0)
	e := newTraceEngine(t, db)

	_, err := e.SetAppEntity(ctx, v1, &entity.TraceAppEntity{SourceName: "A", TargetName: "B", TraceType: "GUESSED"})
	if !stderrors.Is(err, errors.ErrInvalidAppEntity) {
		t.Fatalf("expected invalid app entity, got %v", err)
	}
}
