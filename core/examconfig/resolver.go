package examconfig

import (
	"context"
	"net/url"

	"github.com/invigilo/invigilo/core/entity"
)

// NodeResolver hooks configuration nodes into bulk-action processing:
// deleting an institution or a user cascades to the nodes they hold.
// Nodes carry no active flag, so activation toggles are no-ops here.
type NodeResolver struct {
	nodes NodeRepository
}

var _ entity.Resolver = (*NodeResolver)(nil)

func NewNodeResolver(nodes NodeRepository) *NodeResolver {
	return &NodeResolver{nodes: nodes}
}

func (r *NodeResolver) EntityType() entity.Type { return entity.TypeConfigurationNode }

func (r *NodeResolver) Dependencies(ctx context.Context, key entity.Key) ([]entity.Key, error) {
	params := make(url.Values)
	switch key.Type {
	case entity.TypeInstitution:
		params.Set(entity.FilterAttrInstitution, key.ModelID)
	case entity.TypeUser:
		params.Set(FilterAttrNodeOwner, key.ModelID)
	default:
		return nil, nil
	}

	nodes, err := r.nodes.AllMatching(ctx, entity.FilterMapOf(params), nil)
	if err != nil {
		return nil, err
	}
	keys := make([]entity.Key, 0, len(nodes))
	for _, node := range nodes {
		keys = append(keys, entity.NewKey(entity.TypeConfigurationNode, node.ModelID()))
	}
	return keys, nil
}

func (r *NodeResolver) Apply(ctx context.Context, action entity.BulkActionType, modelID string) error {
	if action == entity.BulkHardDelete {
		// configurations and values go with the node
		return r.nodes.Delete(ctx, modelID)
	}
	return nil
}
