package services

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/neurobridge-curriculum/internal/domain"
)

// Node properties written by the legacy migration. The marker keys are also
// how re-runs recognise rows that were already migrated.
const (
	legacyCourseKey  = "legacy_course_id"
	legacySectionKey = "legacy_section_id"
	legacyLessonKey  = "legacy_lesson_id"
)

func courseProperties(c *types.Course) map[string]any {
	return map[string]any{
		legacyCourseKey:       c.ID.String(),
		"thumbnail_path":      c.ThumbnailPath,
		"price":               c.Price,
		"pricing_type":        c.PricingType,
		"level":               c.Level,
		"language":            c.Language,
		"requirements":        jsonValue(c.Requirements),
		"what_you_will_learn": jsonValue(c.WhatYouWillLearn),
		"tags":                jsonValue(c.Tags),
		"duration_in_minutes": c.DurationInMinutes,
		"is_featured":         c.IsFeatured,
		"category_id":         uuidValue(c.CategoryID),
		"subject_id":          uuidValue(c.SubjectID),
		"grade_level_id":      uuidValue(c.GradeLevelID),
	}
}

func sectionProperties(s *types.CourseSection) map[string]any {
	var unlockAfter any
	if s.UnlockAfterDays != nil {
		unlockAfter = *s.UnlockAfterDays
	}
	return map[string]any{
		legacySectionKey:    s.ID.String(),
		"unlock_date":       timeValue(s.UnlockDate),
		"unlock_after_days": unlockAfter,
	}
}

// lessonProperties includes the video and stream groups only when their URL
// is set, and attachments only when there are any.
func lessonProperties(l *types.Lesson) map[string]any {
	props := map[string]any{
		legacyLessonKey:      l.ID.String(),
		"lesson_type":        l.LessonType,
		"content":            l.Content,
		"lesson_duration":    l.LessonDuration,
		"is_preview_allowed": l.IsPreviewAllowed,
	}
	if l.VideoURL != "" {
		props["video_url"] = l.VideoURL
		props["video_source"] = l.VideoSource
		props["video_upload_path"] = l.VideoUploadPath
		props["video_embed_code"] = l.VideoEmbedCode
		props["enable_p_in_p"] = l.EnablePInP
		props["auto_play"] = l.AutoPlay
		props["show_controls"] = l.ShowControls
	}
	if l.StreamURL != "" {
		props["stream_url"] = l.StreamURL
		props["stream_password"] = l.StreamPassword
		props["stream_start_time"] = timeValue(l.StreamStartTime)
		props["stream_details"] = l.StreamDetails
		props["is_recorded"] = l.IsRecorded
		props["recording_url"] = l.RecordingURL
	}
	if len(l.Attachments) > 0 {
		list := make([]any, 0, len(l.Attachments))
		for _, a := range l.Attachments {
			list = append(list, map[string]any{
				"name": a.Name,
				"url":  a.URL,
				"type": a.Type,
			})
		}
		props["attachments"] = list
	}
	return props
}

func lessonCompletionRules(l *types.Lesson) map[string]any {
	return map[string]any{
		"require_completion": l.RequireCompletion,
		"enable_download":    l.EnableDownload,
		"allow_download":     l.AllowDownload,
	}
}

func encodeJSON(v map[string]any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// jsonValue embeds a stored JSON column as is; a column holding invalid JSON
// is carried as its raw text.
func jsonValue(raw datatypes.JSON) any {
	if len(raw) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		return string(raw)
	}
	return json.RawMessage(raw)
}

func uuidValue(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
