package types

import "errors"

// ChangeKind classifies the outcome of diffing one logical chunk
type ChangeKind string

const (
	ChangeAdded     ChangeKind = "added"
	ChangeModified  ChangeKind = "modified"
	ChangeDeleted   ChangeKind = "deleted"
	ChangeUnchanged ChangeKind = "unchanged"
)

// ChunkChange is the differ's verdict for a single logical chunk.
//
// OldChunk is present for modified/deleted/unchanged; NewChunk is present for
// added/modified/unchanged. NeedsReembedding is true exactly for added and
// modified changes.
type ChunkChange struct {
	Kind             ChangeKind
	OldChunk         *CodeChunk
	NewChunk         *CodeChunk
	NeedsReembedding bool
}

// Validate checks the change against the presence rules for its kind
func (cc *ChunkChange) Validate() error {
	switch cc.Kind {
	case ChangeAdded:
		if cc.NewChunk == nil {
			return errors.New("added change requires a new chunk")
		}
		if cc.OldChunk != nil {
			return errors.New("added change must not carry an old chunk")
		}
	case ChangeDeleted:
		if cc.OldChunk == nil {
			return errors.New("deleted change requires an old chunk")
		}
		if cc.NewChunk != nil {
			return errors.New("deleted change must not carry a new chunk")
		}
	case ChangeModified, ChangeUnchanged:
		if cc.OldChunk == nil || cc.NewChunk == nil {
			return errors.New("paired change requires both old and new chunks")
		}
	default:
		return errors.New("invalid change kind")
	}

	wantReembed := cc.Kind == ChangeAdded || cc.Kind == ChangeModified
	if cc.NeedsReembedding != wantReembed {
		return errors.New("needs-reembedding flag inconsistent with change kind")
	}

	return nil
}
