package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"labreserve/internal/domain"
	"labreserve/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListLaboratories_SortedByName(t *testing.T) {
	db := setupTestDB(t)

	labs, err := db.ListLaboratories(context.Background())
	require.NoError(t, err)
	require.Len(t, labs, 3)
	assert.Equal(t, "Biology Lab", labs[0].Name)
	assert.Equal(t, "Chemistry Lab", labs[1].Name)
	assert.Equal(t, "Physics Lab", labs[2].Name)
	assert.Equal(t, 24, labs[0].Capacity)
}

func TestGetLaboratory(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	lab, err := db.GetLaboratory(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Chemistry Lab", lab.Name)

	_, err = db.GetLaboratory(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrLaboratoryNotFound)
}

func TestUpsertLaboratories_Updates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertLaboratories(ctx, []models.Laboratory{
		{ID: 1, Name: "Applied Physics", Description: "Renamed", Capacity: 30},
	}))

	lab, err := db.GetLaboratory(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Applied Physics", lab.Name)
	assert.Equal(t, 30, lab.Capacity)

	labs, err := db.ListLaboratories(ctx)
	require.NoError(t, err)
	assert.Len(t, labs, 3)
}

func TestLoadLaboratories(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "labs.yaml")
		content := `
laboratories:
  - id: 1
    name: "Physics Lab"
    description: "Optics"
    capacity: 20
  - id: 2
    name: "Chemistry Lab"
    capacity: 16
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		labs, err := LoadLaboratories(path)
		require.NoError(t, err)
		require.Len(t, labs, 2)
		assert.Equal(t, "Optics", labs[0].Description)
		assert.Equal(t, 16, labs[1].Capacity)
	})

	t.Run("duplicate ids", func(t *testing.T) {
		path := filepath.Join(dir, "dup.yaml")
		content := "laboratories:\n  - id: 1\n    name: A\n  - id: 1\n    name: B\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		_, err := LoadLaboratories(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadLaboratories(filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestValidateLaboratories(t *testing.T) {
	tests := []struct {
		name    string
		labs    []models.Laboratory
		wantErr bool
	}{
		{"empty", nil, false},
		{"valid", []models.Laboratory{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}, false},
		{"zero id", []models.Laboratory{{ID: 0, Name: "A"}}, true},
		{"no name", []models.Laboratory{{ID: 1, Name: " "}}, true},
		{"negative capacity", []models.Laboratory{{ID: 1, Name: "A", Capacity: -1}}, true},
		{"duplicate", []models.Laboratory{{ID: 1, Name: "A"}, {ID: 1, Name: "B"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLaboratories(tt.labs)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
