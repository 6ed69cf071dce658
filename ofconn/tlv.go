package ofconn

import "math/bits"

// TLVTableSize is the number of tunnel-metadata slots the NX TLV table
// supports (spec §4.5 "bitmap over 64 slots").
const TLVTableSize = 64

// FindMapping returns the mapping in mappings whose class/type/length
// match the requested tuple, if any (spec §4.5 "accept a reply that
// enumerates an existing mapping with the expected class/type/length").
func FindMapping(mappings []TLVMapping, class uint16, typ uint8, length uint8) (TLVMapping, bool) {
	for _, m := range mappings {
		if m.Class == class && m.Type == typ && m.Length == length {
			return m, true
		}
	}
	return TLVMapping{}, false
}

// UsedSlotsBitmap returns a bitmap with bit i set for each mapping whose
// Index equals i, for i in [0, TLVTableSize).
func UsedSlotsBitmap(mappings []TLVMapping) uint64 {
	var used uint64
	for _, m := range mappings {
		if int(m.Index) < TLVTableSize {
			used |= 1 << uint(m.Index)
		}
	}
	return used
}

// AllocateSlot returns the lowest-index free slot in used's complement,
// scanning [0, TLVTableSize). ok is false if every slot is taken (spec
// §4.5 "if no free slot exists ... disable tunnel metadata").
func AllocateSlot(used uint64) (slot uint8, ok bool) {
	free := ^used
	if free == 0 {
		return 0, false
	}
	return uint8(bits.TrailingZeros64(free)), true
}
