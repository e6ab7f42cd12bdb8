package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/neurobridge-curriculum/internal/data/db"
	"github.com/yungbote/neurobridge-curriculum/internal/data/repos"
	types "github.com/yungbote/neurobridge-curriculum/internal/domain"
	"github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/modules/curriculum/validation"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

// LegacyBlueprintName names the blueprint every migrated course is bound to.
const LegacyBlueprintName = "Legacy Theology"

var legacyLevels = []string{"Course", "Section", "Lesson"}

const (
	nodeTypeCourse  = "course"
	nodeTypeSection = "section"
	nodeTypeLesson  = "lesson"
)

type ItemError struct {
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
}

type PhaseReport struct {
	Total    int         `json:"total"`
	Migrated int         `json:"migrated"`
	Skipped  int         `json:"skipped"`
	Errors   []ItemError `json:"errors"`
}

func (p *PhaseReport) fail(id uuid.UUID, err error) {
	p.Errors = append(p.Errors, ItemError{ID: id, Message: err.Error()})
}

type MigrationReport struct {
	DryRun      bool        `json:"dry_run"`
	BlueprintID uuid.UUID   `json:"blueprint_id"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  time.Time   `json:"finished_at"`
	Courses     PhaseReport `json:"courses"`
	Sections    PhaseReport `json:"sections"`
	Lessons     PhaseReport `json:"lessons"`
}

func (r *MigrationReport) ErrorCount() int {
	return len(r.Courses.Errors) + len(r.Sections.Errors) + len(r.Lessons.Errors)
}

type RollbackReport struct {
	NodesDeleted      int64 `json:"nodes_deleted"`
	CoursesCleared    int64 `json:"courses_cleared"`
	BlueprintsDeleted int64 `json:"blueprints_deleted"`
}

type LegacyMigrationService interface {
	Migrate(dbc dbctx.Context, dryRun bool) (*MigrationReport, error)
	RollbackMigration(dbc dbctx.Context) (*RollbackReport, error)
}

type legacyMigrationService struct {
	txr        db.TxRunner
	log        *logger.Logger
	blueprints repos.AcademicBlueprintRepo
	nodes      repos.CurriculumNodeRepo
	courses    repos.CourseRepo
	sections   repos.CourseSectionRepo
	lessons    repos.LessonRepo
	tracer     trace.Tracer
}

func NewLegacyMigrationService(
	txr db.TxRunner,
	baseLog *logger.Logger,
	blueprints repos.AcademicBlueprintRepo,
	nodes repos.CurriculumNodeRepo,
	courses repos.CourseRepo,
	sections repos.CourseSectionRepo,
	lessons repos.LessonRepo,
) LegacyMigrationService {
	return &legacyMigrationService{
		txr:        txr,
		log:        baseLog.With("service", "LegacyMigrationService"),
		blueprints: blueprints,
		nodes:      nodes,
		courses:    courses,
		sections:   sections,
		lessons:    lessons,
		tracer:     otel.Tracer("curriculum"),
	}
}

// migrationRun is the state one Migrate call threads through its phases.
type migrationRun struct {
	dbc       dbctx.Context
	dryRun    bool
	blueprint *types.AcademicBlueprint

	// courses governed by the legacy blueprint, in course order
	courseOrder  []uuid.UUID
	courseRoots  map[uuid.UUID]uuid.UUID
	sectionNodes map[uuid.UUID]sectionRef

	report *MigrationReport
}

// sectionRef is the curriculum node built for a legacy section.
type sectionRef struct {
	node   uuid.UUID
	course uuid.UUID
}

// Migrate converts legacy courses, sections and lessons into curriculum
// trees. A real run is one transaction with a savepoint per item, so a bad
// record is reported and skipped while any other failure rolls everything
// back. A dry run writes nothing and reports what a real run would do.
func (s *legacyMigrationService) Migrate(dbc dbctx.Context, dryRun bool) (*MigrationReport, error) {
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := s.tracer.Start(ctx, "legacy_migration.migrate", trace.WithAttributes(attribute.Bool("dry_run", dryRun)))
	defer span.End()

	run := &migrationRun{
		dryRun:       dryRun,
		courseRoots:  map[uuid.UUID]uuid.UUID{},
		sectionNodes: map[uuid.UUID]sectionRef{},
		report:       &MigrationReport{DryRun: dryRun, StartedAt: time.Now().UTC()},
	}

	phases := func(inner dbctx.Context) error {
		run.dbc = inner
		if err := s.ensureBlueprint(run); err != nil {
			return fmt.Errorf("ensure legacy blueprint: %w", err)
		}
		if err := s.tracePhase(run, "courses", &run.report.Courses, s.migrateCourses); err != nil {
			return fmt.Errorf("migrate courses: %w", err)
		}
		if err := s.tracePhase(run, "sections", &run.report.Sections, s.migrateSections); err != nil {
			return fmt.Errorf("migrate sections: %w", err)
		}
		if err := s.tracePhase(run, "lessons", &run.report.Lessons, s.migrateLessons); err != nil {
			return fmt.Errorf("migrate lessons: %w", err)
		}
		return nil
	}

	var err error
	if dryRun {
		err = phases(dbctx.Context{Ctx: ctx, Tx: dbc.Tx})
	} else {
		err = s.txr.InTx(dbctx.Context{Ctx: ctx, Tx: dbc.Tx}, phases)
	}
	run.report.FinishedAt = time.Now().UTC()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error("Legacy migration aborted", "error", err, "dry_run", dryRun)
		return nil, err
	}

	r := run.report
	s.log.Info("Legacy migration finished",
		"dry_run", dryRun,
		"blueprint_id", r.BlueprintID,
		"courses_total", r.Courses.Total, "courses_migrated", r.Courses.Migrated, "courses_skipped", r.Courses.Skipped,
		"sections_total", r.Sections.Total, "sections_migrated", r.Sections.Migrated, "sections_skipped", r.Sections.Skipped,
		"lessons_total", r.Lessons.Total, "lessons_migrated", r.Lessons.Migrated, "lessons_skipped", r.Lessons.Skipped,
		"errors", r.ErrorCount(),
		"duration", r.FinishedAt.Sub(r.StartedAt).String(),
	)
	return r, nil
}

func (s *legacyMigrationService) tracePhase(run *migrationRun, name string, phase *PhaseReport, fn func(*migrationRun) error) error {
	ctx, span := s.tracer.Start(run.dbc.Ctx, "legacy_migration."+name)
	defer span.End()
	outer := run.dbc
	run.dbc = dbctx.Context{Ctx: ctx, Tx: outer.Tx}
	defer func() { run.dbc = outer }()

	err := fn(run)
	span.SetAttributes(
		attribute.Int("total", phase.Total),
		attribute.Int("migrated", phase.Migrated),
		attribute.Int("skipped", phase.Skipped),
		attribute.Int("errors", len(phase.Errors)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func legacyBlueprint() (*types.AcademicBlueprint, error) {
	grading := map[string]any{
		"type":      validation.GradingWeighted,
		"pass_mark": 40,
		"components": []any{
			map[string]any{"name": "Assignments", "weight": 40},
			map[string]any{"name": "Final Exam", "weight": 60},
		},
	}
	return curriculum.NewAcademicBlueprint(LegacyBlueprintName, "Default blueprint for courses migrated from the legacy course/section/lesson schema.", legacyLevels, grading, nil)
}

func (s *legacyMigrationService) ensureBlueprint(run *migrationRun) error {
	defaults, err := legacyBlueprint()
	if err != nil {
		return err
	}
	if run.dryRun {
		existing, err := s.blueprints.GetByName(run.dbc, LegacyBlueprintName)
		if err != nil {
			return err
		}
		if existing == nil {
			if err := defaults.Validate(); err != nil {
				return err
			}
			existing = defaults
		}
		run.blueprint = existing
		run.report.BlueprintID = existing.ID
		return nil
	}
	bp, created, err := s.blueprints.FirstOrCreateByName(run.dbc, defaults)
	if err != nil {
		return err
	}
	if created {
		s.log.Info("Created legacy blueprint", "blueprint_id", bp.ID)
	}
	run.blueprint = bp
	run.report.BlueprintID = bp.ID
	return nil
}

// governedByLegacy reports whether the course is, or would become, bound to
// the legacy blueprint. Unsaved (dry-run) blueprints have a nil id.
func (run *migrationRun) governedByLegacy(c *types.Course) bool {
	if c.BlueprintID == nil {
		return false
	}
	return run.blueprint.ID != uuid.Nil && *c.BlueprintID == run.blueprint.ID
}

func (s *legacyMigrationService) migrateCourses(run *migrationRun) error {
	phase := &run.report.Courses
	courses, err := s.courses.ListAll(run.dbc)
	if err != nil {
		return err
	}
	for _, c := range courses {
		phase.Total++

		nodeCount, err := s.nodes.CountByCourseID(run.dbc, c.ID)
		if err != nil {
			return err
		}

		if nodeCount > 0 {
			phase.Skipped++
			switch {
			case run.governedByLegacy(c):
				rootID, err := s.findCourseRoot(run, c.ID)
				if err != nil {
					return err
				}
				run.courseOrder = append(run.courseOrder, c.ID)
				run.courseRoots[c.ID] = rootID
			case c.BlueprintID == nil:
				phase.fail(c.ID, fmt.Errorf("course has %d curriculum node(s) but no blueprint; assign one before migrating", nodeCount))
				s.log.Warn("Legacy course skipped", "course_id", c.ID, "reason", "nodes without blueprint")
			}
			continue
		}

		// no nodes yet: migrate, rebinding any other blueprint to the legacy one
		if run.dryRun {
			phase.Migrated++
			run.courseOrder = append(run.courseOrder, c.ID)
			run.courseRoots[c.ID] = uuid.Nil
			continue
		}

		var root *types.CurriculumNode
		err = s.txr.InTx(run.dbc, func(inner dbctx.Context) error {
			bpID := run.blueprint.ID
			if err := s.courses.AssignBlueprint(inner, []uuid.UUID{c.ID}, &bpID); err != nil {
				return err
			}
			props, err := encodeJSON(courseProperties(c))
			if err != nil {
				return err
			}
			root = &types.CurriculumNode{
				CourseID:    c.ID,
				NodeType:    nodeTypeCourse,
				Title:       c.Title,
				Code:        c.Slug,
				Description: c.Description,
				Properties:  props,
				Position:    c.Position,
				IsPublished: c.IsPublished,
			}
			_, err = s.nodes.Create(inner, []*types.CurriculumNode{root})
			return err
		})
		if err != nil {
			phase.fail(c.ID, err)
			s.log.Warn("Legacy course migration failed", "course_id", c.ID, "error", err)
			continue
		}
		phase.Migrated++
		run.courseOrder = append(run.courseOrder, c.ID)
		run.courseRoots[c.ID] = root.ID
	}
	return nil
}

func (s *legacyMigrationService) findCourseRoot(run *migrationRun, courseID uuid.UUID) (uuid.UUID, error) {
	marked, err := s.nodes.FindByLegacyMarker(run.dbc, courseID, legacyCourseKey, courseID.String())
	if err != nil {
		return uuid.Nil, err
	}
	if marked != nil {
		return marked.ID, nil
	}
	roots, err := s.nodes.GetRootNodes(run.dbc, courseID)
	if err != nil {
		return uuid.Nil, err
	}
	if len(roots) == 0 {
		return uuid.Nil, nil
	}
	return roots[0].ID, nil
}

func (s *legacyMigrationService) migrateSections(run *migrationRun) error {
	phase := &run.report.Sections
	sections, err := s.sections.GetByCourseIDs(run.dbc, run.courseOrder)
	if err != nil {
		return err
	}
	for _, sec := range sections {
		phase.Total++

		existing, err := s.nodes.FindByLegacyMarker(run.dbc, sec.CourseID, legacySectionKey, sec.ID.String())
		if err != nil {
			return err
		}
		if existing != nil {
			phase.Skipped++
			run.sectionNodes[sec.ID] = sectionRef{node: existing.ID, course: sec.CourseID}
			continue
		}

		if run.dryRun {
			phase.Migrated++
			continue
		}

		rootID := run.courseRoots[sec.CourseID]
		if rootID == uuid.Nil {
			phase.fail(sec.ID, fmt.Errorf("course %s has no root curriculum node", sec.CourseID))
			continue
		}

		var node *types.CurriculumNode
		err = s.txr.InTx(run.dbc, func(inner dbctx.Context) error {
			props, err := encodeJSON(sectionProperties(sec))
			if err != nil {
				return err
			}
			node = &types.CurriculumNode{
				CourseID:    sec.CourseID,
				ParentID:    &rootID,
				NodeType:    nodeTypeSection,
				Title:       sec.Title,
				Description: sec.Description,
				Properties:  props,
				Position:    sec.Order,
				IsPublished: sec.IsPublished,
			}
			_, err = s.nodes.Create(inner, []*types.CurriculumNode{node})
			return err
		})
		if err != nil {
			phase.fail(sec.ID, err)
			s.log.Warn("Legacy section migration failed", "section_id", sec.ID, "course_id", sec.CourseID, "error", err)
			continue
		}
		phase.Migrated++
		run.sectionNodes[sec.ID] = sectionRef{node: node.ID, course: sec.CourseID}
	}
	return nil
}

func (s *legacyMigrationService) migrateLessons(run *migrationRun) error {
	phase := &run.report.Lessons
	lessons, err := s.lessons.GetByCourseIDs(run.dbc, run.courseOrder)
	if err != nil {
		return err
	}
	for _, l := range lessons {
		phase.Total++

		existing, err := s.nodes.FindByLegacyMarker(run.dbc, l.CourseID, legacyLessonKey, l.ID.String())
		if err != nil {
			return err
		}
		if existing != nil {
			phase.Skipped++
			continue
		}

		if run.dryRun {
			phase.Migrated++
			continue
		}

		parentID, err := s.lessonParent(run, l)
		if err != nil {
			return err
		}
		if parentID == uuid.Nil {
			phase.fail(l.ID, fmt.Errorf("course %s has no root curriculum node", l.CourseID))
			continue
		}

		err = s.txr.InTx(run.dbc, func(inner dbctx.Context) error {
			props, err := encodeJSON(lessonProperties(l))
			if err != nil {
				return err
			}
			rules, err := encodeJSON(lessonCompletionRules(l))
			if err != nil {
				return err
			}
			node := &types.CurriculumNode{
				CourseID:        l.CourseID,
				ParentID:        &parentID,
				NodeType:        nodeTypeLesson,
				Title:           l.Title,
				Code:            l.Slug,
				Description:     l.ShortDescription,
				Properties:      props,
				CompletionRules: rules,
				Position:        l.Order,
				IsPublished:     l.IsPublished,
			}
			_, err = s.nodes.Create(inner, []*types.CurriculumNode{node})
			return err
		})
		if err != nil {
			phase.fail(l.ID, err)
			s.log.Warn("Legacy lesson migration failed", "lesson_id", l.ID, "course_id", l.CourseID, "error", err)
			continue
		}
		phase.Migrated++
	}
	return nil
}

// lessonParent resolves the section node for a lesson: this run's map, then
// the section marker, then the course root. A section of another course
// never matches.
func (s *legacyMigrationService) lessonParent(run *migrationRun, l *types.Lesson) (uuid.UUID, error) {
	if l.CourseSectionID != nil {
		if ref, ok := run.sectionNodes[*l.CourseSectionID]; ok && ref.course == l.CourseID {
			return ref.node, nil
		}
		marked, err := s.nodes.FindByLegacyMarker(run.dbc, l.CourseID, legacySectionKey, l.CourseSectionID.String())
		if err != nil {
			return uuid.Nil, err
		}
		if marked != nil {
			return marked.ID, nil
		}
	}
	return run.courseRoots[l.CourseID], nil
}

// RollbackMigration removes every curriculum node, detaches every course and
// purges the legacy blueprint in one transaction. It bypasses the in-use
// guard on purpose.
func (s *legacyMigrationService) RollbackMigration(dbc dbctx.Context) (*RollbackReport, error) {
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := s.tracer.Start(ctx, "legacy_migration.rollback")
	defer span.End()

	report := &RollbackReport{}
	err := s.txr.InTx(dbctx.Context{Ctx: ctx, Tx: dbc.Tx}, func(inner dbctx.Context) error {
		var err error
		if report.NodesDeleted, err = s.nodes.FullDeleteAll(inner); err != nil {
			return fmt.Errorf("delete curriculum nodes: %w", err)
		}
		if report.CoursesCleared, err = s.courses.ClearAllBlueprints(inner); err != nil {
			return fmt.Errorf("clear course blueprints: %w", err)
		}
		if report.BlueprintsDeleted, err = s.blueprints.FullDeleteByName(inner, LegacyBlueprintName); err != nil {
			return fmt.Errorf("delete legacy blueprint: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error("Legacy migration rollback failed", "error", err)
		return nil, err
	}
	s.log.Info("Legacy migration rolled back",
		"nodes_deleted", report.NodesDeleted,
		"courses_cleared", report.CoursesCleared,
		"blueprints_deleted", report.BlueprintsDeleted,
	)
	return report, nil
}
