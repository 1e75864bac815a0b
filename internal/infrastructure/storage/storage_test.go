package storage

import (
	"context"
	"testing"

	infraconfig "github.com/stocker/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryObjectStorage(t *testing.T) {
	m := NewMemoryObjectStorage()
	ctx := context.Background()

	payload := []byte("a,b\n1,2\n")
	require.NoError(t, m.Put(ctx, "k", payload, ContentTypeCSV))
	payload[0] = 'x'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(got), "stored bytes are copied")
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Delete(ctx, "k"))
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.ErrorIs(t, m.Put(ctx, "", nil, ""), ErrKeyRequired)
}

func TestNew_Provider(t *testing.T) {
	store, err := New(context.Background(), &infraconfig.StorageConfig{Provider: "stub"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryObjectStorage{}, store)

	_, err = New(context.Background(), &infraconfig.StorageConfig{Provider: "gcs"}, zap.NewNop())
	assert.ErrorContains(t, err, "unknown storage provider")
}

func TestChunkKey(t *testing.T) {
	assert.Equal(t, "migrations/t/s/deal/chunk-00012.json", ChunkKey("t", "s", "deal", 12))
}

func TestSniffUpload(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantErr bool
	}{
		{"json array", `[{"title":"Deal A","amount":"10.5"}]`, ContentTypeJSON, false},
		{"csv", "title,amount,currency\nDeal A,10.5,EUR\nDeal B,20,TRY\n", ContentTypeCSV, false},
		{"single column csv", "title\nDeal A\nDeal B\n", ContentTypeCSV, false},
		{"png header", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SniffUpload([]byte(tt.data), ContentTypeJSON, ContentTypeCSV)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedContent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectContentType(t *testing.T) {
	assert.Contains(t, DetectContentType([]byte(`{"a":1}`)), "application/json")
}
