package vectorstore

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_WindowsOverlap(t *testing.T) {
	text := strings.Repeat("a", 1000) + strings.Repeat("b", 1000)

	chunks := Split(text, 800, 100)
	require.Len(t, chunks, 3)
	assert.Equal(t, 800, utf8.RuneCountInString(chunks[0]))
	// Each window starts 700 runes after the previous one.
	assert.Equal(t, strings.Repeat("a", 100), chunks[1][:100])
	assert.True(t, strings.HasSuffix(chunks[2], "b"))
}

func TestSplit_ShortAndEmpty(t *testing.T) {
	assert.Equal(t, []string{"hello"}, Split("hello", 800, 100))
	assert.Empty(t, Split("   \n ", 800, 100))
	assert.Empty(t, Split("", 800, 100))
}

func TestSplit_MultibyteSafe(t *testing.T) {
	text := strings.Repeat("日本語", 400)
	for _, c := range Split(text, 800, 100) {
		assert.True(t, utf8.ValidString(c))
	}
}

func TestMemory_QueryIsNamespaced(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, m.Put(ctx, a, uuid.New(), "Refunds are processed within five business days."))
	require.NoError(t, m.Put(ctx, b, uuid.New(), "Refunds are never offered."))

	got, err := m.Query(ctx, a, "how long do refunds take", 4)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Content, "five business days")

	got, err = m.Query(ctx, uuid.New(), "refunds", 4)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemory_PutReplacesAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	company, doc := uuid.New(), uuid.New()

	require.NoError(t, m.Put(ctx, company, doc, "old pricing text"))
	require.NoError(t, m.Put(ctx, company, doc, "new pricing text"))

	got, err := m.Query(ctx, company, "pricing", 4)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new pricing text", got[0].Content)

	require.NoError(t, m.Delete(ctx, company, doc))
	got, err = m.Query(ctx, company, "pricing", 4)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemory_QueryRespectsK(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	company := uuid.New()
	for i := 0; i < 6; i++ {
		require.NoError(t, m.Put(ctx, company, uuid.New(), "shipping policy"))
	}

	got, err := m.Query(ctx, company, "shipping", 4)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	require.NoError(t, m.DeleteNamespace(ctx, company))
	got, err = m.Query(ctx, company, "shipping", 4)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNamespace(t *testing.T) {
	id := uuid.MustParse("7d7bb3b4-3c0a-4f7e-9a33-0f0b8cbbf9e1")
	assert.Equal(t, "company_7d7bb3b4-3c0a-4f7e-9a33-0f0b8cbbf9e1", Namespace(id))
}
