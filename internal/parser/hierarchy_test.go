package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

type entry struct {
	level int
	name  string
}

func buildTree(levels ...entry) []*types.DataItem {
	var b hierarchyBuilder
	for _, l := range levels {
		b.Add(&types.DataItem{Level: l.level, Name: l.name})
	}
	return b.Roots()
}

func names(items []*types.DataItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestHierarchy_Nesting(t *testing.T) {
	roots := buildTree(
		entry{1, "REC"},
		entry{5, "HDR"},
		entry{10, "HDR-A"},
		entry{10, "HDR-B"},
		entry{5, "BODY"},
		entry{15, "BODY-X"},
		entry{1, "OTHER"},
	)

	require.Equal(t, []string{"REC", "OTHER"}, names(roots))
	rec := roots[0]
	assert.Equal(t, []string{"HDR", "BODY"}, names(rec.Children))
	assert.Equal(t, []string{"HDR-A", "HDR-B"}, names(rec.Children[0].Children))
	assert.Equal(t, []string{"BODY-X"}, names(rec.Children[1].Children))
	assert.Equal(t, "BODY", rec.Children[1].Children[0].Parent)
	assert.Empty(t, rec.Parent)
}

func TestHierarchy_UnevenLevels(t *testing.T) {
	// 03 closes both 10 and 05 and becomes a child of 01
	roots := buildTree(
		entry{1, "REC"},
		entry{5, "A"},
		entry{10, "A1"},
		entry{3, "B"},
	)

	require.Len(t, roots, 1)
	assert.Equal(t, []string{"A", "B"}, names(roots[0].Children))
}

func TestHierarchy_SpecialLevels(t *testing.T) {
	roots := buildTree(
		entry{1, "REC"},
		entry{5, "STATUS-CODE"},
		entry{88, "OK"},
		entry{88, "FAILED"},
		entry{5, "AMOUNT"},
		entry{66, "ALIAS"},
		entry{77, "COUNTER"},
		entry{5, "AFTER-77"},
	)

	require.Equal(t, []string{"REC", "COUNTER"}, names(roots))
	rec := roots[0]
	require.Equal(t, []string{"STATUS-CODE", "AMOUNT", "ALIAS", "AFTER-77"}, names(rec.Children))
	assert.Equal(t, []string{"OK", "FAILED"}, names(rec.Children[0].Children))
	assert.Equal(t, "STATUS-CODE", rec.Children[0].Children[0].Parent)
	assert.Equal(t, "REC", rec.Children[2].Parent, "66 belongs to the record")
	assert.Equal(t, "REC", rec.Children[3].Parent, "77 leaves the record open")
}

func TestHierarchy_OrphanCondition(t *testing.T) {
	roots := buildTree(
		entry{88, "LOOSE"},
		entry{77, "STANDALONE"},
	)

	assert.Equal(t, []string{"LOOSE", "STANDALONE"}, names(roots))
}

func TestHierarchy_ConditionAfterStandalone(t *testing.T) {
	roots := buildTree(
		entry{1, "REC"},
		entry{5, "FIELD"},
		entry{77, "EOF-FLAG"},
		entry{88, "AT-EOF"},
	)

	require.Equal(t, []string{"REC", "EOF-FLAG"}, names(roots))
	assert.Empty(t, roots[1].Children, "77 never receives children")
	field := roots[0].Children[0]
	assert.Equal(t, []string{"AT-EOF"}, names(field.Children))
	assert.Equal(t, "FIELD", field.Children[0].Parent)

	roots = buildTree(
		entry{77, "EOF-FLAG"},
		entry{88, "AT-EOF"},
	)
	assert.Equal(t, []string{"EOF-FLAG", "AT-EOF"}, names(roots))
	assert.Empty(t, roots[0].Children)
}
