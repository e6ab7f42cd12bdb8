package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/neurobridge-curriculum/internal/data/repos"
	types "github.com/yungbote/neurobridge-curriculum/internal/domain"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

type NodePropertiesService interface {
	MergeProperties(dbc dbctx.Context, node *types.CurriculumNode, newProps map[string]any) (*types.CurriculumNode, error)
	SetProperties(dbc dbctx.Context, node *types.CurriculumNode, props map[string]any) (*types.CurriculumNode, error)
	RemoveProperty(dbc dbctx.Context, node *types.CurriculumNode, dottedKey string) (*types.CurriculumNode, error)
	AddContent(dbc dbctx.Context, node *types.CurriculumNode, contentType, url string, metadata map[string]any) (*types.CurriculumNode, error)
	AddAttachment(dbc dbctx.Context, node *types.CurriculumNode, attachment map[string]any) (*types.CurriculumNode, error)

	GetProperty(node *types.CurriculumNode, dottedKey string, def any) any
	HasProperty(node *types.CurriculumNode, dottedKey string) bool
	ValidateRequiredProperties(node *types.CurriculumNode) []string
}

type nodePropertiesService struct {
	log      *logger.Logger
	nodes    repos.CurriculumNodeRepo
	required RequiredProperties
}

// NewNodePropertiesService persists through nodes; a nil nodes repo keeps
// every change in memory. A nil required table falls back to the embedded one.
func NewNodePropertiesService(baseLog *logger.Logger, nodes repos.CurriculumNodeRepo, required RequiredProperties) NodePropertiesService {
	if required == nil {
		required = DefaultRequiredProperties()
	}
	return &nodePropertiesService{
		log:      baseLog.With("service", "NodePropertiesService"),
		nodes:    nodes,
		required: required,
	}
}

// MergeProperties deep-merges newProps into the node's bag. Nested objects
// merge key by key; any other value in newProps replaces the old one.
func (s *nodePropertiesService) MergeProperties(dbc dbctx.Context, node *types.CurriculumNode, newProps map[string]any) (*types.CurriculumNode, error) {
	if node == nil {
		return nil, fmt.Errorf("node is required")
	}
	merged := deepMerge(node.PropertyMap(), newProps)
	return s.persist(dbc, node, merged)
}

func (s *nodePropertiesService) SetProperties(dbc dbctx.Context, node *types.CurriculumNode, props map[string]any) (*types.CurriculumNode, error) {
	if node == nil {
		return nil, fmt.Errorf("node is required")
	}
	if props == nil {
		props = map[string]any{}
	}
	return s.persist(dbc, node, props)
}

func (s *nodePropertiesService) RemoveProperty(dbc dbctx.Context, node *types.CurriculumNode, dottedKey string) (*types.CurriculumNode, error) {
	if node == nil {
		return nil, fmt.Errorf("node is required")
	}
	props := node.PropertyMap()
	if !removePath(props, splitPath(dottedKey)) {
		return node, nil
	}
	return s.persist(dbc, node, props)
}

// AddContent records a content reference as <type>_url and, when given,
// <type>_metadata.
func (s *nodePropertiesService) AddContent(dbc dbctx.Context, node *types.CurriculumNode, contentType, url string, metadata map[string]any) (*types.CurriculumNode, error) {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return nil, fmt.Errorf("content type is required")
	}
	patch := map[string]any{contentType + "_url": url}
	if len(metadata) > 0 {
		patch[contentType+"_metadata"] = metadata
	}
	return s.MergeProperties(dbc, node, patch)
}

// AddAttachment appends to the attachments list, creating it when absent.
func (s *nodePropertiesService) AddAttachment(dbc dbctx.Context, node *types.CurriculumNode, attachment map[string]any) (*types.CurriculumNode, error) {
	if node == nil {
		return nil, fmt.Errorf("node is required")
	}
	props := node.PropertyMap()
	list, _ := props["attachments"].([]any)
	props["attachments"] = append(list, attachment)
	return s.persist(dbc, node, props)
}

func (s *nodePropertiesService) GetProperty(node *types.CurriculumNode, dottedKey string, def any) any {
	if node == nil {
		return def
	}
	v, ok := lookupPath(node.PropertyMap(), splitPath(dottedKey))
	if !ok {
		return def
	}
	return v
}

func (s *nodePropertiesService) HasProperty(node *types.CurriculumNode, dottedKey string) bool {
	if node == nil {
		return false
	}
	_, ok := lookupPath(node.PropertyMap(), splitPath(dottedKey))
	return ok
}

// ValidateRequiredProperties returns the required keys that are absent, null
// or blank; an empty result means the node is complete.
func (s *nodePropertiesService) ValidateRequiredProperties(node *types.CurriculumNode) []string {
	missing := []string{}
	if node == nil {
		return missing
	}
	props := node.PropertyMap()
	for _, key := range s.required.For(node.NodeType) {
		v, ok := lookupPath(props, splitPath(key))
		if !ok || v == nil {
			missing = append(missing, key)
			continue
		}
		if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

func (s *nodePropertiesService) persist(dbc dbctx.Context, node *types.CurriculumNode, props map[string]any) (*types.CurriculumNode, error) {
	raw, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("encode properties: %w", err)
	}
	node.Properties = datatypes.JSON(raw)
	if s.nodes == nil || node.ID == uuid.Nil {
		return node, nil
	}
	if err := s.nodes.UpdateFields(dbc, node.ID, map[string]interface{}{
		"properties": node.Properties,
	}); err != nil {
		s.log.Warn("Persist node properties failed", "error", err, "node_id", node.ID)
		return nil, err
	}
	return node, nil
}

// deepMerge returns a fresh map; neither input is modified.
func deepMerge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, pv := range patch {
		pm, patchIsMap := pv.(map[string]any)
		bm, baseIsMap := out[k].(map[string]any)
		if patchIsMap && baseIsMap {
			out[k] = deepMerge(bm, pm)
			continue
		}
		out[k] = pv
	}
	return out
}

func splitPath(dotted string) []string {
	dotted = strings.TrimSpace(dotted)
	if dotted == "" {
		return nil
	}
	return strings.Split(dotted, ".")
}

// lookupPath walks objects by key and arrays by numeric index.
func lookupPath(root map[string]any, path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	var cur any = root
	for _, seg := range path {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(c) {
				return nil, false
			}
			cur = c[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func removePath(root map[string]any, path []string) bool {
	if len(path) == 0 {
		return false
	}
	parent := root
	for _, seg := range path[:len(path)-1] {
		next, ok := parent[seg].(map[string]any)
		if !ok {
			return false
		}
		parent = next
	}
	last := path[len(path)-1]
	if _, ok := parent[last]; !ok {
		return false
	}
	delete(parent, last)
	return true
}
