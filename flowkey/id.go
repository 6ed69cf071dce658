package flowkey

// DesiredID and InstalledID are stable slab indices used by the desired
// and installed flow tables to reference each other without raw
// pointers or intrusive lists, per spec §9 ("arena + stable indices").
// They live in this leaf package so the desired and installed packages
// can each depend on flowkey without depending on one another.
type (
	DesiredID   uint64
	InstalledID uint64
)
