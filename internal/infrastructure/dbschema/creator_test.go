package dbschema

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stocker/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add deals table", "add_deals_table"},
		{"Add-Deals-Table", "add_deals_table"},
		{"add__deals__table", "add_deals_table"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_NumbersSequentially(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "create deals", "Deals pipeline")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, "000001_create_deals.up.sql", filepath.Base(first.UpPath))
	assert.Equal(t, "000001_create_deals.down.sql", filepath.Base(first.DownPath))

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Deals pipeline")

	second, err := CreateMigration(dir, "Add Payslips", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)
	assert.Equal(t, "000002_add_payslips.up.sql", filepath.Base(second.UpPath))

	_, err = CreateMigration(dir, "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_b.up.sql":   {Data: []byte("SELECT 1;")},
		"000002_b.down.sql": {Data: []byte("SELECT 1;")},
		"000001_a.up.sql":   {Data: []byte("SELECT 1;")},
		"README.md":         {Data: []byte("ignored")},
		"embed.go":          {Data: []byte("ignored")},
	}
	list, err := ListMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint(1), list[0].Version)
	assert.False(t, list[0].HasDown)
	assert.Equal(t, "b", list[1].Name)
	assert.True(t, list[1].HasDown)

	_, err = ListMigrations(fstest.MapFS{"000003_c.down.sql": {Data: []byte("")}})
	assert.Error(t, err)
}

func TestEmbeddedSchemaIsComplete(t *testing.T) {
	list, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	for i, mf := range list {
		assert.Equal(t, uint(i+1), mf.Version, "versions must be contiguous")
		assert.True(t, mf.HasDown, "%s needs a down file", mf.Name)
	}
}
