package domain

import (
	"strings"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"
)

// DeriveEntityID returns the stable entity id for a (production, company)
// pair: the murmur3 128-bit digest of the lowercased "production:companyId"
// key, mapped onto a UUID. Any process derives the same id for the same
// pair, so entity creation needs no coordination beyond an idempotent
// insert. This is an identifier derivation, not a security boundary.
func DeriveEntityID(production string, companyID uuid.UUID) uuid.UUID {
	key := strings.ToLower(production + ":" + companyID.String())
	h1, h2 := murmur3.Sum128([]byte(key))

	var b [16]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(h1 >> (8 * (7 - i)))
		b[8+i] = byte(h2 >> (8 * (7 - i)))
	}
	id, _ := uuid.FromBytes(b[:]) // 16 bytes, cannot fail
	return id
}
