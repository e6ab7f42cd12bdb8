package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/neurobridge-curriculum/internal/data/repos"
	types "github.com/yungbote/neurobridge-curriculum/internal/domain"
	"github.com/yungbote/neurobridge-curriculum/internal/modules/curriculum/validation"
	domainerr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

// BlueprintExportVersion is stamped on every exported document.
const BlueprintExportVersion = "1.0"

const defaultExportConcurrency = 4

type BlueprintSerializationService interface {
	SerializeToJSON(bp *types.AcademicBlueprint) (string, error)
	DeserializeFromJSON(raw string) (*types.AcademicBlueprint, error)
	ImportFromJSON(dbc dbctx.Context, raw string) (*types.AcademicBlueprint, error)
	ExportToFile(bp *types.AcademicBlueprint, path string) error
	ImportFromFile(dbc dbctx.Context, path string) (*types.AcademicBlueprint, error)
	ExportAllToDir(dbc dbctx.Context, dir string) ([]string, error)
}

// BlueprintDocument is the export format. Field order is the key order of
// the written JSON.
type BlueprintDocument struct {
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	HierarchyStructure  json.RawMessage `json:"hierarchy_structure"`
	GradingLogic        json.RawMessage `json:"grading_logic"`
	ProgressionRules    json.RawMessage `json:"progression_rules"`
	GamificationEnabled bool            `json:"gamification_enabled"`
	CertificateEnabled  bool            `json:"certificate_enabled"`
	Version             string          `json:"version"`
	ExportedAt          string          `json:"exported_at"`
}

type blueprintSerializationService struct {
	log         *logger.Logger
	blueprints  repos.AcademicBlueprintRepo
	concurrency int
	now         func() time.Time
}

func NewBlueprintSerializationService(baseLog *logger.Logger, blueprints repos.AcademicBlueprintRepo, exportConcurrency int) BlueprintSerializationService {
	if exportConcurrency <= 0 {
		exportConcurrency = defaultExportConcurrency
	}
	return &blueprintSerializationService{
		log:         baseLog.With("service", "BlueprintSerializationService"),
		blueprints:  blueprints,
		concurrency: exportConcurrency,
		now:         time.Now,
	}
}

func (s *blueprintSerializationService) SerializeToJSON(bp *types.AcademicBlueprint) (string, error) {
	if bp == nil {
		return "", fmt.Errorf("blueprint is required")
	}
	doc := BlueprintDocument{
		Name:                bp.Name,
		Description:         bp.Description,
		HierarchyStructure:  rawOrNull(bp.HierarchyStructure),
		GradingLogic:        rawOrNull(bp.GradingLogic),
		ProgressionRules:    rawOrNull(bp.ProgressionRules),
		GamificationEnabled: bp.GamificationEnabled,
		CertificateEnabled:  bp.CertificateEnabled,
		Version:             BlueprintExportVersion,
		ExportedAt:          s.now().UTC().Format(time.RFC3339),
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode blueprint %q: %w", bp.Name, err)
	}
	return string(out), nil
}

// DeserializeFromJSON builds an unsaved blueprint. Shape problems are
// invalid_argument; content problems come back from the validators as is.
func (s *blueprintSerializationService) DeserializeFromJSON(raw string) (*types.AcademicBlueprint, error) {
	const op = "BlueprintSerializationService.DeserializeFromJSON"

	decoded, err := decodeStrict(raw)
	if err != nil {
		return nil, domainerr.Wrap(domainerr.CodeInvalidArgument, op, err, "Invalid JSON format: %s", err.Error())
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, domainerr.InvalidArgument(op, "Invalid JSON format: expected an object at the top level")
	}
	for _, field := range []string{"name", "hierarchy_structure", "grading_logic"} {
		if _, present := obj[field]; !present {
			return nil, domainerr.InvalidArgument(op, "Missing required field: %s", field)
		}
	}

	name, ok := obj["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return nil, domainerr.InvalidArgument(op, "Field name must be a non-empty string")
	}
	for _, field := range []string{"hierarchy_structure", "grading_logic"} {
		switch obj[field].(type) {
		case []any, map[string]any:
		default:
			return nil, domainerr.InvalidArgument(op, "Field %s must be an array or object", field)
		}
	}

	if err := validation.ValidateHierarchyStructure(obj["hierarchy_structure"]); err != nil {
		return nil, err
	}
	if err := validation.ValidateGradingLogic(obj["grading_logic"]); err != nil {
		return nil, err
	}

	description, err := optionalString(obj, "description")
	if err != nil {
		return nil, domainerr.InvalidArgument(op, "%s", err.Error())
	}
	gamification, err := optionalBool(obj, "gamification_enabled")
	if err != nil {
		return nil, domainerr.InvalidArgument(op, "%s", err.Error())
	}
	certificate, err := optionalBool(obj, "certificate_enabled")
	if err != nil {
		return nil, domainerr.InvalidArgument(op, "%s", err.Error())
	}

	hierarchy, err := json.Marshal(obj["hierarchy_structure"])
	if err != nil {
		return nil, err
	}
	grading, err := json.Marshal(obj["grading_logic"])
	if err != nil {
		return nil, err
	}
	var progression datatypes.JSON
	if v, present := obj["progression_rules"]; present && v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		progression = datatypes.JSON(b)
	}

	return &types.AcademicBlueprint{
		Name:                name,
		Description:         description,
		HierarchyStructure:  datatypes.JSON(hierarchy),
		GradingLogic:        datatypes.JSON(grading),
		ProgressionRules:    progression,
		GamificationEnabled: gamification,
		CertificateEnabled:  certificate,
	}, nil
}

func (s *blueprintSerializationService) ImportFromJSON(dbc dbctx.Context, raw string) (*types.AcademicBlueprint, error) {
	bp, err := s.DeserializeFromJSON(raw)
	if err != nil {
		return nil, err
	}
	if _, err := s.blueprints.Create(dbc, []*types.AcademicBlueprint{bp}); err != nil {
		s.log.Warn("Import blueprint failed", "error", err, "name", bp.Name)
		return nil, err
	}
	s.log.Info("Imported blueprint", "blueprint_id", bp.ID, "name", bp.Name)
	return bp, nil
}

func (s *blueprintSerializationService) ExportToFile(bp *types.AcademicBlueprint, path string) error {
	out, err := s.SerializeToJSON(bp)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(out+"\n"), 0o644); err != nil {
		return fmt.Errorf("write blueprint export: %w", err)
	}
	return nil
}

func (s *blueprintSerializationService) ImportFromFile(dbc dbctx.Context, path string) (*types.AcademicBlueprint, error) {
	const op = "BlueprintSerializationService.ImportFromFile"
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domainerr.Wrap(domainerr.CodeInvalidArgument, op, err, "File not found: %s", path)
		}
		return nil, domainerr.Wrap(domainerr.CodeInvalidArgument, op, err, "Unable to read file %s: %v", path, err)
	}
	return s.ImportFromJSON(dbc, string(data))
}

// ExportAllToDir writes <slug>.json for every live blueprint and returns the
// written paths in name order.
func (s *blueprintSerializationService) ExportAllToDir(dbc dbctx.Context, dir string) ([]string, error) {
	rows, err := s.blueprints.List(dbc)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	paths := make([]string, len(rows))
	used := map[string]bool{}
	for i, bp := range rows {
		name := fileSlug(bp.Name)
		if name == "" || used[name] {
			name = strings.Trim(name+"-"+bp.ID.String()[:8], "-")
		}
		used[name] = true
		paths[i] = filepath.Join(dir, name+".json")
	}

	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, bp := range rows {
		i, bp := i, bp
		g.Go(func() error {
			// stop once any export has failed
			if err := gctx.Err(); err != nil {
				return err
			}
			return s.ExportToFile(bp, paths[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.log.Info("Exported blueprints", "count", len(rows), "dir", dir)
	return paths, nil
}

// decodeStrict parses exactly one JSON value, keeping numbers as json.Number
// so they re-encode unchanged.
func decodeStrict(raw string) (any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("empty input")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level value")
	}
	return v, nil
}

func optionalString(obj map[string]any, key string) (string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("Field %s must be a string", key)
	}
	return s, nil
}

func optionalBool(obj map[string]any, key string) (bool, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("Field %s must be a boolean", key)
	}
	return b, nil
}

func rawOrNull(raw datatypes.JSON) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(raw)
}

func fileSlug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
