package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-curriculum/internal/data/db"
	"github.com/yungbote/neurobridge-curriculum/internal/data/repos"
	"github.com/yungbote/neurobridge-curriculum/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-curriculum/internal/domain"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/dbctx"
)

type migrationEnv struct {
	ctx        context.Context
	gdb        *gorm.DB
	tx         *gorm.DB
	dbc        dbctx.Context
	svc        LegacyMigrationService
	blueprints repos.AcademicBlueprintRepo
	nodes      repos.CurriculumNodeRepo
	courses    repos.CourseRepo
	props      NodePropertiesService
}

func newMigrationEnv(t *testing.T) *migrationEnv {
	t.Helper()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	log := testutil.Logger(t)
	ctx := context.Background()

	e := &migrationEnv{
		ctx:        ctx,
		gdb:        gdb,
		tx:         tx,
		dbc:        dbctx.Context{Ctx: ctx, Tx: tx},
		blueprints: repos.NewAcademicBlueprintRepo(gdb, log),
		nodes:      repos.NewCurriculumNodeRepo(gdb, log),
		courses:    repos.NewCourseRepo(gdb, log),
		props:      NewNodePropertiesService(log, nil, nil),
	}
	e.svc = NewLegacyMigrationService(db.NewGormTxRunner(gdb), log, e.blueprints, e.nodes, e.courses,
		repos.NewCourseSectionRepo(gdb, log), repos.NewLessonRepo(gdb, log))
	return e
}

type legacyFixture struct {
	course   *types.Course
	sections []*types.CourseSection
	lessons  [][]*types.Lesson
}

// seedLegacyCourse writes one course with sections of lessonsPer lessons each.
// Section orders are stored shuffled. Lesson 0 of section 0 carries video and
// attachments, lesson 1 of section 0 a live stream.
func seedLegacyCourse(t *testing.T, e *migrationEnv, sections, lessonsPer int) legacyFixture {
	t.Helper()
	c := &types.Course{
		ID:          uuid.New(),
		Title:       "Systematic Theology",
		Slug:        "systematic-theology",
		Description: "Foundations",
		Price:       49.5,
		Level:       "beginner",
		Tags:        []byte(`["doctrine","history"]`),
		Position:    3,
		IsPublished: true,
	}
	require.NoError(t, e.tx.Create(c).Error)

	fx := legacyFixture{course: c}
	for i := 0; i < sections; i++ {
		order := (i + 2) % sections
		s := testutil.SeedSection(t, e.ctx, e.tx, c.ID, order)
		fx.sections = append(fx.sections, s)
		var ls []*types.Lesson
		for j := 0; j < lessonsPer; j++ {
			l := testutil.SeedLesson(t, e.ctx, e.tx, c.ID, testutil.PtrUUID(s.ID), j)
			ls = append(ls, l)
		}
		fx.lessons = append(fx.lessons, ls)
	}

	video := fx.lessons[0][0]
	require.NoError(t, e.tx.Model(video).Updates(map[string]any{
		"lesson_type":        "video",
		"video_url":          "https://videos.example.com/intro.mp4",
		"video_source":       "upload",
		"auto_play":          true,
		"require_completion": true,
	}).Error)
	require.NoError(t, e.tx.Create(&[]types.LessonAttachment{
		{LessonID: video.ID, Name: "notes.pdf", URL: "https://files.example.com/notes.pdf", Type: "pdf"},
		{LessonID: video.ID, Name: "map.png", URL: "https://files.example.com/map.png", Type: "image"},
	}).Error)

	if lessonsPer > 1 {
		start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
		require.NoError(t, e.tx.Model(fx.lessons[0][1]).Updates(map[string]any{
			"lesson_type":       "live",
			"stream_url":        "https://live.example.com/room",
			"stream_start_time": start,
			"is_recorded":       true,
		}).Error)
	}
	return fx
}

func (e *migrationEnv) markedNode(t *testing.T, courseID uuid.UUID, key string, id uuid.UUID) *types.CurriculumNode {
	t.Helper()
	n, err := e.nodes.FindByLegacyMarker(e.dbc, courseID, key, id.String())
	require.NoError(t, err)
	require.NotNil(t, n, "no node marked %s=%s", key, id)
	return n
}

func TestLegacyMigrationBuildsTree(t *testing.T) {
	e := newMigrationEnv(t)
	fx := seedLegacyCourse(t, e, 3, 3)

	report, err := e.svc.Migrate(e.dbc, false)
	require.NoError(t, err)
	assert.False(t, report.DryRun)
	assert.Equal(t, PhaseReport{Total: 1, Migrated: 1}, report.Courses)
	assert.Equal(t, PhaseReport{Total: 3, Migrated: 3}, report.Sections)
	assert.Equal(t, PhaseReport{Total: 9, Migrated: 9}, report.Lessons)
	assert.Zero(t, report.ErrorCount())

	count, err := e.nodes.CountByCourseID(e.dbc, fx.course.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 13, count)

	bp, err := e.blueprints.GetByName(e.dbc, LegacyBlueprintName)
	require.NoError(t, err)
	require.NotNil(t, bp)
	assert.Equal(t, report.BlueprintID, bp.ID)
	assert.Equal(t, []string{"Course", "Section", "Lesson"}, bp.Levels())
	assert.Equal(t, "weighted", bp.GradingType())

	course, err := e.courses.GetByID(e.dbc, fx.course.ID)
	require.NoError(t, err)
	require.NotNil(t, course.BlueprintID)
	assert.Equal(t, bp.ID, *course.BlueprintID)

	roots, err := e.nodes.GetRootNodes(e.dbc, fx.course.ID)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	root := roots[0]
	assert.Equal(t, "course", root.NodeType)
	assert.Equal(t, "Systematic Theology", root.Title)
	assert.Equal(t, "systematic-theology", root.Code)
	assert.Equal(t, 3, root.Position)
	assert.True(t, root.IsPublished)
	assert.Equal(t, fx.course.ID.String(), e.props.GetProperty(root, legacyCourseKey, nil))
	assert.Equal(t, 49.5, e.props.GetProperty(root, "price", nil))
	assert.Equal(t, []any{"doctrine", "history"}, e.props.GetProperty(root, "tags", nil))

	sections, err := e.nodes.GetChildren(e.dbc, root.ID)
	require.NoError(t, err)
	require.Len(t, sections, 3)
	for i, sn := range sections {
		assert.Equal(t, i, sn.Position)
		assert.Equal(t, "section", sn.NodeType)
	}
	for i, s := range fx.sections {
		sn := e.markedNode(t, fx.course.ID, legacySectionKey, s.ID)
		assert.Equal(t, s.Order, sn.Position)
		require.NotNil(t, sn.ParentID)
		assert.Equal(t, root.ID, *sn.ParentID)

		lessons, err := e.nodes.GetChildren(e.dbc, sn.ID)
		require.NoError(t, err)
		require.Len(t, lessons, 3)
		for j, l := range fx.lessons[i] {
			assert.Equal(t, e.markedNode(t, fx.course.ID, legacyLessonKey, l.ID).ID, lessons[j].ID)
			assert.Equal(t, j, lessons[j].Position)
		}
	}

	video := e.markedNode(t, fx.course.ID, legacyLessonKey, fx.lessons[0][0].ID)
	assert.Equal(t, "lesson", video.NodeType)
	assert.Equal(t, "https://videos.example.com/intro.mp4", e.props.GetProperty(video, "video_url", nil))
	assert.Equal(t, true, e.props.GetProperty(video, "auto_play", nil))
	assert.Equal(t, "notes.pdf", e.props.GetProperty(video, "attachments.0.name", nil))
	assert.Equal(t, "https://files.example.com/map.png", e.props.GetProperty(video, "attachments.1.url", nil))
	assert.False(t, e.props.HasProperty(video, "stream_url"))
	assert.Equal(t, true, video.CompletionRuleMap()["require_completion"])

	stream := e.markedNode(t, fx.course.ID, legacyLessonKey, fx.lessons[0][1].ID)
	assert.Equal(t, "https://live.example.com/room", e.props.GetProperty(stream, "stream_url", nil))
	assert.Equal(t, "2026-05-01T18:00:00Z", e.props.GetProperty(stream, "stream_start_time", nil))
	assert.False(t, e.props.HasProperty(stream, "video_url"))
	assert.False(t, e.props.HasProperty(stream, "attachments"))

	text := e.markedNode(t, fx.course.ID, legacyLessonKey, fx.lessons[2][2].ID)
	assert.Equal(t, "content", e.props.GetProperty(text, "content", nil))
	assert.False(t, e.props.HasProperty(text, "video_url"))
	assert.Equal(t, false, text.CompletionRuleMap()["require_completion"])
}

func TestLegacyMigrationIsIdempotent(t *testing.T) {
	e := newMigrationEnv(t)
	fx := seedLegacyCourse(t, e, 3, 3)

	first, err := e.svc.Migrate(e.dbc, false)
	require.NoError(t, err)

	second, err := e.svc.Migrate(e.dbc, false)
	require.NoError(t, err)
	assert.Equal(t, first.BlueprintID, second.BlueprintID)
	assert.Equal(t, PhaseReport{Total: 1, Skipped: 1}, second.Courses)
	assert.Equal(t, PhaseReport{Total: 3, Skipped: 3}, second.Sections)
	assert.Equal(t, PhaseReport{Total: 9, Skipped: 9}, second.Lessons)

	count, _ := e.nodes.CountByCourseID(e.dbc, fx.course.ID)
	assert.EqualValues(t, 13, count)

	// a lesson added after the first run attaches to its existing section node
	late := testutil.SeedLesson(t, e.ctx, e.tx, fx.course.ID, testutil.PtrUUID(fx.sections[1].ID), 9)
	third, err := e.svc.Migrate(e.dbc, false)
	require.NoError(t, err)
	assert.Equal(t, PhaseReport{Total: 10, Migrated: 1, Skipped: 9}, third.Lessons)
	node := e.markedNode(t, fx.course.ID, legacyLessonKey, late.ID)
	section := e.markedNode(t, fx.course.ID, legacySectionKey, fx.sections[1].ID)
	require.NotNil(t, node.ParentID)
	assert.Equal(t, section.ID, *node.ParentID)
}

func TestLegacyMigrationDryRunWritesNothing(t *testing.T) {
	e := newMigrationEnv(t)
	fx := seedLegacyCourse(t, e, 2, 3)

	report, err := e.svc.Migrate(e.dbc, true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, uuid.Nil, report.BlueprintID)
	assert.Equal(t, PhaseReport{Total: 1, Migrated: 1}, report.Courses)
	assert.Equal(t, PhaseReport{Total: 2, Migrated: 2}, report.Sections)
	assert.Equal(t, PhaseReport{Total: 6, Migrated: 6}, report.Lessons)

	var nodes, blueprints int64
	e.tx.Unscoped().Model(&types.CurriculumNode{}).Count(&nodes)
	e.tx.Unscoped().Model(&types.AcademicBlueprint{}).Count(&blueprints)
	assert.Zero(t, nodes)
	assert.Zero(t, blueprints)

	course, err := e.courses.GetByID(e.dbc, fx.course.ID)
	require.NoError(t, err)
	assert.Nil(t, course.BlueprintID)
}

func TestLegacyMigrationScopesCourses(t *testing.T) {
	e := newMigrationEnv(t)

	other := testutil.SeedBlueprint(t, e.ctx, e.tx, "Modular", nil)
	rebound := testutil.SeedCourse(t, e.ctx, e.tx, testutil.PtrUUID(other.ID))
	reboundSection := testutil.SeedSection(t, e.ctx, e.tx, rebound.ID, 0)

	governed := testutil.SeedCourse(t, e.ctx, e.tx, testutil.PtrUUID(other.ID))
	testutil.SeedNode(t, e.ctx, e.tx, governed.ID, nil, "course", 0)
	testutil.SeedSection(t, e.ctx, e.tx, governed.ID, 0)

	stray := testutil.SeedCourse(t, e.ctx, e.tx, nil)
	testutil.SeedNode(t, e.ctx, e.tx, stray.ID, nil, "course", 0)

	loose := testutil.SeedCourse(t, e.ctx, e.tx, nil)
	sectionless := testutil.SeedLesson(t, e.ctx, e.tx, loose.ID, nil, 0)

	report, err := e.svc.Migrate(e.dbc, false)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Courses.Total)
	assert.Equal(t, 2, report.Courses.Migrated)
	assert.Equal(t, 2, report.Courses.Skipped)
	require.Len(t, report.Courses.Errors, 1)
	assert.Equal(t, stray.ID, report.Courses.Errors[0].ID)
	assert.Contains(t, report.Courses.Errors[0].Message, "no blueprint")
	assert.Equal(t, PhaseReport{Total: 1, Migrated: 1}, report.Sections)
	assert.Equal(t, PhaseReport{Total: 1, Migrated: 1}, report.Lessons)

	// a course bound to another blueprint but without nodes is rebound and built
	c, _ := e.courses.GetByID(e.dbc, rebound.ID)
	require.NotNil(t, c.BlueprintID)
	assert.Equal(t, report.BlueprintID, *c.BlueprintID)
	count, _ := e.nodes.CountByCourseID(e.dbc, rebound.ID)
	assert.EqualValues(t, 2, count)
	roots, err := e.nodes.GetRootNodes(e.dbc, rebound.ID)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	sn := e.markedNode(t, rebound.ID, legacySectionKey, reboundSection.ID)
	require.NotNil(t, sn.ParentID)
	assert.Equal(t, roots[0].ID, *sn.ParentID)

	// a course with its own tree keeps its blueprint and nodes
	count, _ = e.nodes.CountByCourseID(e.dbc, governed.ID)
	assert.EqualValues(t, 1, count)
	c, _ = e.courses.GetByID(e.dbc, governed.ID)
	assert.Equal(t, other.ID, *c.BlueprintID)

	roots, err = e.nodes.GetRootNodes(e.dbc, loose.ID)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	lesson := e.markedNode(t, loose.ID, legacyLessonKey, sectionless.ID)
	require.NotNil(t, lesson.ParentID)
	assert.Equal(t, roots[0].ID, *lesson.ParentID)
}

func TestLegacyMigrationIgnoresSectionsOfOtherCourses(t *testing.T) {
	e := newMigrationEnv(t)
	fx := seedLegacyCourse(t, e, 2, 3)

	misfiled := testutil.SeedCourse(t, e.ctx, e.tx, nil)
	lesson := testutil.SeedLesson(t, e.ctx, e.tx, misfiled.ID, testutil.PtrUUID(fx.sections[0].ID), 0)

	report, err := e.svc.Migrate(e.dbc, false)
	require.NoError(t, err)
	assert.Equal(t, PhaseReport{Total: 7, Migrated: 7}, report.Lessons)
	assert.Zero(t, report.ErrorCount())

	roots, err := e.nodes.GetRootNodes(e.dbc, misfiled.ID)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	node := e.markedNode(t, misfiled.ID, legacyLessonKey, lesson.ID)
	require.NotNil(t, node.ParentID)
	assert.Equal(t, roots[0].ID, *node.ParentID)

	count, _ := e.nodes.CountByCourseID(e.dbc, misfiled.ID)
	assert.EqualValues(t, 2, count)
	count, _ = e.nodes.CountByCourseID(e.dbc, fx.course.ID)
	assert.EqualValues(t, 9, count)
}

func TestLegacyMigrationRecordsItemFailures(t *testing.T) {
	e := newMigrationEnv(t)
	fx := seedLegacyCourse(t, e, 2, 3)
	spare := testutil.SeedSection(t, e.ctx, e.tx, fx.course.ID, 5)

	_, err := e.svc.Migrate(e.dbc, false)
	require.NoError(t, err)

	// an editor moved the empty section under another one, so it now sits
	// at lesson depth and cannot take children
	spareNode := e.markedNode(t, fx.course.ID, legacySectionKey, spare.ID)
	host := e.markedNode(t, fx.course.ID, legacySectionKey, fx.sections[0].ID)
	moved, err := e.nodes.MoveNode(e.dbc, spareNode.ID, &host.ID)
	require.NoError(t, err)
	require.True(t, moved)

	stuck := testutil.SeedLesson(t, e.ctx, e.tx, fx.course.ID, testutil.PtrUUID(spare.ID), 0)
	fine := testutil.SeedLesson(t, e.ctx, e.tx, fx.course.ID, testutil.PtrUUID(fx.sections[1].ID), 9)
	fresh := testutil.SeedCourse(t, e.ctx, e.tx, nil)
	freshSection := testutil.SeedSection(t, e.ctx, e.tx, fresh.ID, 0)
	freshLesson := testutil.SeedLesson(t, e.ctx, e.tx, fresh.ID, testutil.PtrUUID(freshSection.ID), 0)

	report, err := e.svc.Migrate(e.dbc, false)
	require.NoError(t, err)
	assert.Equal(t, PhaseReport{Total: 2, Migrated: 1, Skipped: 1}, report.Courses)
	assert.Equal(t, PhaseReport{Total: 4, Migrated: 1, Skipped: 3}, report.Sections)
	assert.Equal(t, 9, report.Lessons.Total)
	assert.Equal(t, 2, report.Lessons.Migrated)
	assert.Equal(t, 6, report.Lessons.Skipped)
	require.Len(t, report.Lessons.Errors, 1)
	assert.Equal(t, stuck.ID, report.Lessons.Errors[0].ID)
	assert.Contains(t, report.Lessons.Errors[0].Message, "exceeds the maximum depth")

	missing, err := e.nodes.FindByLegacyMarker(e.dbc, fx.course.ID, legacyLessonKey, stuck.ID.String())
	require.NoError(t, err)
	assert.Nil(t, missing)
	e.markedNode(t, fx.course.ID, legacyLessonKey, fine.ID)
	e.markedNode(t, fresh.ID, legacyLessonKey, freshLesson.ID)

	count, _ := e.nodes.CountByCourseID(e.dbc, fx.course.ID)
	assert.EqualValues(t, 11, count)
	count, _ = e.nodes.CountByCourseID(e.dbc, fresh.ID)
	assert.EqualValues(t, 3, count)
}

// failingLessons lets the course and section phases write, then breaks the
// lesson phase outside any per-item savepoint.
type failingLessons struct {
	repos.LessonRepo
	err error
}

func (f failingLessons) GetByCourseIDs(dbctx.Context, []uuid.UUID) ([]*types.Lesson, error) {
	return nil, f.err
}

func TestLegacyMigrationAbortRollsBackEverything(t *testing.T) {
	e := newMigrationEnv(t)
	fx := seedLegacyCourse(t, e, 2, 2)

	log := testutil.Logger(t)
	boom := errors.New("lesson store unavailable")
	svc := NewLegacyMigrationService(db.NewGormTxRunner(e.gdb), log, e.blueprints, e.nodes, e.courses,
		repos.NewCourseSectionRepo(e.gdb, log), failingLessons{err: boom})

	report, err := svc.Migrate(e.dbc, false)
	require.ErrorIs(t, err, boom)
	assert.Nil(t, report)

	var nodes, blueprints int64
	e.tx.Unscoped().Model(&types.CurriculumNode{}).Count(&nodes)
	e.tx.Unscoped().Model(&types.AcademicBlueprint{}).Count(&blueprints)
	assert.Zero(t, nodes)
	assert.Zero(t, blueprints)
	course, err := e.courses.GetByID(e.dbc, fx.course.ID)
	require.NoError(t, err)
	assert.Nil(t, course.BlueprintID)
}

func TestLegacyMigrationAbortsWhenBlueprintSetupFails(t *testing.T) {
	e := newMigrationEnv(t)
	fx := seedLegacyCourse(t, e, 1, 1)

	// a soft-deleted row still holds the unique name
	retired := testutil.SeedBlueprint(t, e.ctx, e.tx, LegacyBlueprintName, nil)
	require.NoError(t, e.tx.Delete(retired).Error)

	report, err := e.svc.Migrate(e.dbc, false)
	require.Error(t, err)
	assert.Nil(t, report)

	var nodes int64
	e.tx.Unscoped().Model(&types.CurriculumNode{}).Count(&nodes)
	assert.Zero(t, nodes)
	course, err := e.courses.GetByID(e.dbc, fx.course.ID)
	require.NoError(t, err)
	assert.Nil(t, course.BlueprintID)
}

func TestLegacyMigrationRollback(t *testing.T) {
	e := newMigrationEnv(t)
	fx := seedLegacyCourse(t, e, 3, 3)

	_, err := e.svc.Migrate(e.dbc, false)
	require.NoError(t, err)

	rb, err := e.svc.RollbackMigration(e.dbc)
	require.NoError(t, err)
	assert.EqualValues(t, 13, rb.NodesDeleted)
	assert.EqualValues(t, 1, rb.CoursesCleared)
	assert.EqualValues(t, 1, rb.BlueprintsDeleted)

	var nodes int64
	e.tx.Unscoped().Model(&types.CurriculumNode{}).Count(&nodes)
	assert.Zero(t, nodes)
	bp, err := e.blueprints.GetByName(e.dbc, LegacyBlueprintName)
	require.NoError(t, err)
	assert.Nil(t, bp)
	course, _ := e.courses.GetByID(e.dbc, fx.course.ID)
	assert.Nil(t, course.BlueprintID)

	var lessons int64
	e.tx.Model(&types.Lesson{}).Where("course_id = ?", fx.course.ID).Count(&lessons)
	assert.EqualValues(t, 9, lessons)

	report, err := e.svc.Migrate(e.dbc, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Courses.Migrated)
	count, _ := e.nodes.CountByCourseID(e.dbc, fx.course.ID)
	assert.EqualValues(t, 13, count)
}
