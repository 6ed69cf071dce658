package desired

import "github.com/google/uuid"

// SourceID is the opaque, stable identifier for a logical source entity
// (an ACL, a load balancer VIP, a logical router port, ...) that caused
// one or more desired flows to exist. It is UUID-shaped per the
// specification's glossary.
type SourceID = uuid.UUID

// sourceEntry is the desired table's second index: for a given SourceID,
// the set of desired flows it currently references. Destroyed once its
// flow set becomes empty (spec §3 "Source-to-flow entry").
type sourceEntry struct {
	id    SourceID
	flows map[DesiredID]*Flow
}
