package prompt

import (
	"crypto/md5"
	"math/big"
)

// Variety is the deterministic per-card styling triple.
type Variety struct {
	Perspective string
	Lighting    string
	Palette     string
}

func (v Variety) String() string {
	return v.Perspective + ", " + v.Lighting + ", " + v.Palette
}

// Variety derives the styling triple from the MD5 hash of the card id,
// interpreted as one big integer. Three byte-shifted windows of the
// hash index the three lists independently, so adjacent ids land on
// unrelated combinations while the same id always maps to the same
// triple, on every machine and run.
func (b *Builder) Variety(cardID string) Variety {
	sum := md5.Sum([]byte(cardID))
	h := new(big.Int).SetBytes(sum[:])
	return Variety{
		Perspective: pick(b.perspectives, h, 0),
		Lighting:    pick(b.lightings, h, 8),
		Palette:     pick(b.palettes, h, 16),
	}
}

// pick indexes list by (h >> shift) mod len(list).
func pick(list []string, h *big.Int, shift uint) string {
	shifted := new(big.Int).Rsh(h, shift)
	idx := new(big.Int).Mod(shifted, big.NewInt(int64(len(list))))
	return list[idx.Int64()]
}
