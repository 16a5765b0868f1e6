//go:build integration

package repositories

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/memloop-ai/memloop-engine/pkg/apperrors"
	"github.com/memloop-ai/memloop-engine/pkg/models"
	"github.com/memloop-ai/memloop-engine/pkg/testhelpers"
)

func TestProjectRepository_UpsertByRoot(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewProjectRepository(engineDB.DB)
	ctx := context.Background()

	root := fmt.Sprintf("/repos/project-test-%s", uuid.New())

	first, err := repo.UpsertByRoot(ctx, root, "First Label")
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	// Same root resolves to the same project; an empty label does not wipe
	// the stored one.
	second, err := repo.UpsertByRoot(ctx, root, "")
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("same root should resolve to the same project")
	}
	if second.Label != "First Label" {
		t.Errorf("empty label should preserve the existing one, got %q", second.Label)
	}

	// A non-empty label replaces it.
	third, err := repo.UpsertByRoot(ctx, root, "Renamed")
	if err != nil {
		t.Fatalf("third upsert failed: %v", err)
	}
	if third.Label != "Renamed" {
		t.Errorf("expected label to update, got %q", third.Label)
	}
}

func TestProjectRepository_GetByRootMissing(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewProjectRepository(engineDB.DB)

	_, err := repo.GetByRoot(context.Background(), "/repos/never-created")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestProjectRepository_DeleteCascades(t *testing.T) {
	tc := setupFeedbackTest(t)
	ctx := context.Background()

	chunk := tc.storeChunk("docs/doomed.md", "chunk that goes down with the project", nil, "")
	if err := tc.feedback.Upsert(ctx, &models.Feedback{ChunkID: chunk.ID, Helpful: true}); err != nil {
		t.Fatalf("feedback failed: %v", err)
	}

	if err := tc.projects.Delete(ctx, tc.project.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := tc.projects.GetByRoot(ctx, tc.project.Root); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("project should be gone, got %v", err)
	}
	if _, err := tc.chunks.Get(ctx, chunk.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("chunks should cascade with the project, got %v", err)
	}

	if err := tc.projects.Delete(ctx, tc.project.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("deleting twice should be ErrNotFound, got %v", err)
	}
}
