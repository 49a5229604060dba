// Package color derives deterministic per-user colors for presence
// rendering.
//
// Colors are a pure function of the user id given a fixed palette, so two
// independent coordinator instances assign the same color to the same id
// absent collisions. The assigner is owned by one coordinator instance and
// scoped to one room session; there is no process-wide state.
package color

import (
	"fmt"

	"github.com/qiming97/iinterview/types"
)

// palette holds 30 curated high-contrast colors, grouped by hue so that
// adjacent palette indexes differ visibly.
var palette = []types.Color{
	"#E53E3E", "#FF8C00", "#FFD700", "#38A169", "#00B5D8",
	"#3182CE", "#805AD5", "#D53F8C",

	"#C53030", "#ED8936", "#ECC94B", "#48BB78", "#0BC5EA",
	"#4299E1", "#9F7AEA", "#ED64A6",

	"#E2E8F0", "#2D3748", "#B7791F", "#276749", "#2C5282",
	"#553C9A", "#97266D", "#744210",

	"#F56565", "#68D391", "#63B3ED", "#F687B3", "#FBB6CE", "#C6F6D5",
}

// primeJump spreads clustered ids across the palette so that sequentially
// allocated ids do not land on adjacent colors.
const primeJump = 13

// Assigner maps user ids to colors for the lifetime of a room session.
//
// Once assigned, a color is cached and never reassigned while the user stays
// online, even if a later collision would have chosen differently for a new
// joiner. Entries are released on leave so the slot can be reused.
//
// Assigner is not safe for concurrent use; the coordinator mutates it only
// from its event goroutine and read access goes through the coordinator's
// snapshot path.
type Assigner struct {
	assigned map[string]types.Color
}

// NewAssigner creates an empty color assigner.
func NewAssigner() *Assigner {
	return &Assigner{
		assigned: make(map[string]types.Color),
	}
}

// ColorFor returns the color for id, assigning one on first use.
//
// The primary pick hashes the id into the fixed palette. If that color is
// already held by a different id, a secondary HSL generator guarantees a
// visually distinct color even when the small palette is exhausted. This
// function is total; it never fails.
func (a *Assigner) ColorFor(id string) types.Color {
	if c, ok := a.assigned[id]; ok {
		return c
	}

	// The hash maps through unsigned space: negating math.MinInt32 overflows
	// back to itself, so an absolute value cannot keep the index in range.
	h := uint64(uint32(hashID(id)))
	idx := (h * primeJump) % uint64(len(palette))
	c := palette[idx]

	if a.taken(c, id) {
		c = hslColor(id)
	}

	a.assigned[id] = c

	return c
}

// Release drops the cached color for id. Called when the user goes offline;
// a rejoin recomputes the color and may pick a different one.
func (a *Assigner) Release(id string) {
	delete(a.assigned, id)
}

// PruneExcept drops every cached color whose id is not in keep. Called after
// a full presence resync.
func (a *Assigner) PruneExcept(keep map[string]struct{}) {
	for id := range a.assigned {
		if _, ok := keep[id]; !ok {
			delete(a.assigned, id)
		}
	}
}

// Len returns the number of cached assignments.
func (a *Assigner) Len() int {
	return len(a.assigned)
}

// taken reports whether c is already assigned to an id other than self.
func (a *Assigner) taken(c types.Color, self string) bool {
	for id, existing := range a.assigned {
		if existing == c && id != self {
			return true
		}
	}

	return false
}

// hashID computes a 32-bit polynomial hash over the id's bytes using shift-5
// accumulation (h = h*31 + b), plus length and first-byte mixing to spread
// ids that share long common prefixes.
func hashID(id string) int32 {
	var h int32
	for i := 0; i < len(id); i++ {
		h = (h << 5) - h + int32(id[i])
	}

	if len(id) > 0 {
		h += int32(len(id))*31 + int32(id[0])*17
	}

	return h
}

// hslColor generates a deterministic HSL triple from the id: hue from the
// hash mod 360, saturation 70-95%, lightness 45-65%.
func hslColor(id string) types.Color {
	var h int32
	for i := 0; i < len(id); i++ {
		h = (h << 5) - h + int32(id[i])
	}
	if len(id) > 0 {
		h += int32(len(id))*1000 + int32(id[len(id)-1])*100
	}

	u := uint32(h)
	hue := (u * 7) % 360
	saturation := 70 + (u>>8)%25
	lightness := 45 + (u>>16)%20

	return types.Color(fmt.Sprintf("hsl(%d, %d%%, %d%%)", hue, saturation, lightness))
}
