package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/apperr"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKnowledge_SetupIsIdempotent(t *testing.T) {
	h := newHarness(t, "discard")
	ctx := context.Background()
	c := h.company(t, "owner@acme.test")

	first, err := h.knowledge.Setup(ctx, c.Company.ID)
	require.NoError(t, err)
	second, err := h.knowledge.Setup(ctx, c.Company.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.KnowledgeBaseReady, second.Status)
}

func TestKnowledge_UploadReplacesSameFilename(t *testing.T) {
	h := newHarness(t, "discard")
	ctx := context.Background()
	c := h.company(t, "owner@acme.test")

	doc, err := h.knowledge.UploadText(ctx, c.Company.ID, "faq.txt", "Returns are accepted within thirty days.")
	require.NoError(t, err)
	assert.Equal(t, models.EmbeddingsCompleted, doc.EmbeddingsStatus)

	again, err := h.knowledge.UploadText(ctx, c.Company.ID, "faq.txt", "Returns are accepted within fourteen days.")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, again.ID)

	status, err := h.knowledge.Status(ctx, c.Company.ID)
	require.NoError(t, err)
	require.NotNil(t, status.KnowledgeBase)
	assert.Equal(t, 1, status.KnowledgeBase.FileCount)
	assert.Len(t, status.Documents, 1)

	snippets, err := h.knowledge.Retrieve(ctx, c.Company.ID, "fourteen days", 0)
	require.NoError(t, err)
	require.NotEmpty(t, snippets)
	assert.Contains(t, snippets[0].Content, "fourteen")

	old, err := h.knowledge.Retrieve(ctx, c.Company.ID, "thirty", 0)
	require.NoError(t, err)
	assert.Empty(t, old)
}

func TestKnowledge_UploadRejects(t *testing.T) {
	h := newHarness(t, "discard")
	ctx := context.Background()
	c := h.company(t, "owner@acme.test")

	_, err := h.knowledge.UploadFile(ctx, c.Company.ID, "big.txt", "text/plain", []byte(strings.Repeat("a", 1025)))
	requireKind(t, err, apperr.KindPayloadTooLarge)

	_, err = h.knowledge.UploadFile(ctx, c.Company.ID, "bin.txt", "text/plain", []byte{0xff, 0xfe, 0x00})
	requireKind(t, err, apperr.KindInvalidEncoding)

	_, err = h.knowledge.UploadText(ctx, c.Company.ID, "", "   ")
	requireKind(t, err, apperr.KindValidation)

	_, err = h.knowledge.UploadFile(ctx, c.Company.ID, "", "text/plain", []byte("hello"))
	requireKind(t, err, apperr.KindValidation)

	// Exactly at the limit is accepted.
	_, err = h.knowledge.UploadFile(ctx, c.Company.ID, "edge.txt", "", []byte(strings.Repeat("a", 1024)))
	require.NoError(t, err)
}

func TestKnowledge_VectorFailureMarksDocumentFailed(t *testing.T) {
	h := newHarness(t, "discard")
	ctx := context.Background()
	c := h.company(t, "owner@acme.test")

	svc := NewKnowledgeService(memory.NewKnowledgeBaseStore(h.db), failingVectors{h.vectors}, nil, 1024, 3, zap.NewNop())
	_, err := svc.UploadText(ctx, c.Company.ID, "faq.txt", "some text")
	requireKind(t, err, apperr.KindUpstream)

	docs, err := svc.List(ctx, c.Company.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.EmbeddingsFailed, docs[0].EmbeddingsStatus)
}

func TestKnowledge_DeleteAndTenantIsolation(t *testing.T) {
	h := newHarness(t, "discard")
	ctx := context.Background()
	a := h.company(t, "a@acme.test")
	b := h.company(t, "b@acme.test")

	doc, err := h.knowledge.UploadText(ctx, a.Company.ID, "secret.txt", "launch codes are banana")
	require.NoError(t, err)
	_, err = h.knowledge.UploadText(ctx, b.Company.ID, "public.txt", "our office sells banana bread")
	require.NoError(t, err)

	fromB, err := h.knowledge.Retrieve(ctx, b.Company.ID, "banana launch codes", 5)
	require.NoError(t, err)
	for _, s := range fromB {
		assert.NotContains(t, s.Content, "launch")
	}

	requireKind(t, h.knowledge.Delete(ctx, b.Company.ID, doc.ID), apperr.KindNotFound)
	requireKind(t, h.knowledge.Delete(ctx, a.Company.ID, uuid.New()), apperr.KindNotFound)

	require.NoError(t, h.knowledge.Delete(ctx, a.Company.ID, doc.ID))
	status, err := h.knowledge.Status(ctx, a.Company.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, status.KnowledgeBase.FileCount)
	assert.Empty(t, status.Documents)

	left, err := h.knowledge.Retrieve(ctx, a.Company.ID, "launch codes", 5)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestKnowledge_Clear(t *testing.T) {
	h := newHarness(t, "discard")
	ctx := context.Background()
	c := h.company(t, "owner@acme.test")

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		_, err := h.knowledge.UploadText(ctx, c.Company.ID, name, "shipping takes five days")
		require.NoError(t, err)
	}

	n, err := h.knowledge.Clear(ctx, c.Company.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	docs, err := h.knowledge.List(ctx, c.Company.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)

	snippets, err := h.knowledge.Retrieve(ctx, c.Company.ID, "shipping", 5)
	require.NoError(t, err)
	assert.Empty(t, snippets)
}
