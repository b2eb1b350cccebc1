package note

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupLines_FirstAppearanceOrder(t *testing.T) {
	entries := []Entry{
		{Product: "Camisa", Assignment: "Deposito", Quantity: 1},
		{Product: "Pantalon", Assignment: "Sucursal Centro", Quantity: 1},
		{Product: "Medias", Assignment: "Deposito", Quantity: 1},
	}

	lines := GroupLines(entries)
	require.Len(t, lines, 2)
	assert.Equal(t, "Dep: Camisa + Medias", lines[0])
	assert.Equal(t, "Suc: Pantalon", lines[1])
}

func TestGroupLines_DuplicatePairsMergeQuantities(t *testing.T) {
	entries := []Entry{
		{Product: "Camisa", Assignment: "Deposito", Quantity: 1},
		{Product: "Camisa", Assignment: "Deposito", Quantity: 2},
	}

	lines := GroupLines(entries)
	require.Len(t, lines, 1)
	assert.Equal(t, "Dep: Camisa x3", lines[0])
}

func TestGroupLines_QuantityOneHasNoSuffix(t *testing.T) {
	lines := GroupLines([]Entry{{Product: "Camisa", Assignment: "Deposito", Quantity: 1}})
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "x1")
}

func TestGroupLines_SentinelAbbreviations(t *testing.T) {
	entries := []Entry{
		{Product: "Camisa", Assignment: "Sin asignación", Quantity: 1},
		{Product: "Pantalon", Assignment: "Sin stock", Quantity: 1},
	}

	lines := GroupLines(entries)
	require.Len(t, lines, 2)
	assert.Equal(t, "SA: Camisa", lines[0])
	assert.Equal(t, "SS: Pantalon", lines[1])
}

func TestGroupLines_NineProductsStayDetailed(t *testing.T) {
	var entries []Entry
	for i := 0; i < 9; i++ {
		entries = append(entries, Entry{
			Product:    fmt.Sprintf("Producto %d", i),
			Assignment: "Deposito",
			Quantity:   1,
		})
	}

	lines := GroupLines(entries)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "Restante")
	for i := 0; i < 9; i++ {
		assert.Contains(t, lines[0], fmt.Sprintf("Producto %d", i))
	}
}

func TestGroupLines_TenProductsCollapseLargestGroup(t *testing.T) {
	var entries []Entry
	for i := 0; i < 8; i++ {
		entries = append(entries, Entry{
			Product:    fmt.Sprintf("Producto %d", i),
			Assignment: "Deposito",
			Quantity:   1,
		})
	}
	entries = append(entries,
		Entry{Product: "Extra 1", Assignment: "Sucursal Centro", Quantity: 1},
		Entry{Product: "Extra 2", Assignment: "Sucursal Centro", Quantity: 1},
	)

	lines := GroupLines(entries)
	require.Len(t, lines, 2)

	// smaller group first, largest collapsed
	assert.Equal(t, "Suc: Extra 1 + Extra 2", lines[0])
	assert.Equal(t, "Dep: Restante", lines[1])
}

func TestGroupLines_BlankProductsAreDropped(t *testing.T) {
	entries := []Entry{
		{Product: "  ", Assignment: "Deposito", Quantity: 1},
		{Product: "Camisa", Assignment: "Deposito", Quantity: 1},
	}

	lines := GroupLines(entries)
	require.Len(t, lines, 1)
	assert.Equal(t, "Dep: Camisa", lines[0])
}

func TestAbbrevAssignment(t *testing.T) {
	assert.Equal(t, "SA", AbbrevAssignment("Sin asignación"))
	assert.Equal(t, "SA", AbbrevAssignment("sin asignacion"))
	assert.Equal(t, "SS", AbbrevAssignment("Sin stock"))
	assert.Equal(t, "Dep", AbbrevAssignment("Deposito"))
	assert.Equal(t, "Suc", AbbrevAssignment("Sucursal Centro"))
	assert.Equal(t, "AB", AbbrevAssignment("AB"))
	assert.Equal(t, "", AbbrevAssignment("  "))
}

func TestBuildFinalNote_PrefixAndCap(t *testing.T) {
	final := BuildFinalNote("Dep: Camisa")
	assert.Equal(t, "[AUTO] Dep: Camisa", final)

	long := strings.Repeat("a", 400)
	final = BuildFinalNote(long)
	assert.LessOrEqual(t, len([]rune(final)), MaxNoteLength)
	assert.True(t, strings.HasPrefix(final, "[AUTO] "))
}

func TestBuildFinalNote_DoesNotDoubleTag(t *testing.T) {
	final := BuildFinalNote("[AUTO] Dep: Camisa")
	assert.Equal(t, "[AUTO] Dep: Camisa", final)
}

func TestBuildFinalNote_CompactsBlankLines(t *testing.T) {
	final := BuildFinalNote("Dep: Camisa\n\n  \n(Palermo, CABA)")
	assert.Equal(t, "[AUTO] Dep: Camisa\n(Palermo, CABA)", final)
}

func TestIsAutoNote(t *testing.T) {
	assert.True(t, IsAutoNote("[AUTO] algo"))
	assert.True(t, IsAutoNote("[AUTO]algo"))
	assert.False(t, IsAutoNote("algo [AUTO]"))
	assert.False(t, IsAutoNote(""))
	assert.False(t, IsAutoNote("   "))
}

func TestContainsAutoNote(t *testing.T) {
	assert.True(t, ContainsAutoNote([]string{"manual", "[AUTO] x"}))
	assert.False(t, ContainsAutoNote([]string{"manual"}))
	assert.False(t, ContainsAutoNote(nil))
}

func TestEnsureAutoPrefix_NormalizesMissingSpace(t *testing.T) {
	assert.Equal(t, "[AUTO] x", EnsureAutoPrefix("x"))
	assert.Equal(t, "[AUTO] x", EnsureAutoPrefix("[AUTO]x"))
	assert.Equal(t, "[AUTO] x", EnsureAutoPrefix("[AUTO] x"))
}
