package course

type (
	AccessDecision struct {
		HasAccess  bool        `json:"has_access"`
		IsPreview  bool        `json:"is_preview"`
		Enrollment *Enrollment `json:"enrollment"`
	}

	// PreviewContent is the free subset of a course.
	// FreeChapterIDs & FreeLessonIDs are computed independently: a lesson is free when it is in
	// FreeLessonIDs OR when its chapter is in FreeChapterIDs.
	PreviewContent struct {
		FreeChapterIDs []string `json:"free_chapter_ids"`
		FreeLessonIDs  []string `json:"free_lesson_ids"`
	}
)

// Preview computes the free preview content of c.
// Free chapters are those with an OrderIndex below freeChapterCount; free lessons are all
// the lessons not manually locked, whatever their chapter.
func Preview(c Course, freeChapterCount int) PreviewContent {
	preview := PreviewContent{
		FreeChapterIDs: make([]string, 0),
		FreeLessonIDs:  make([]string, 0),
	}
	chapters := c.OrderedChapters()
	for _, ch := range chapters {
		if ch.OrderIndex < freeChapterCount {
			preview.FreeChapterIDs = append(preview.FreeChapterIDs, ch.ID)
		}
	}
	for _, ch := range chapters {
		for _, l := range ch.Lessons {
			if !l.IsLocked {
				preview.FreeLessonIDs = append(preview.FreeLessonIDs, l.ID)
			}
		}
	}
	return preview
}

// IsLessonFree reports whether a lesson is part of the preview, by itself or through its chapter.
func (p PreviewContent) IsLessonFree(lessonID, chapterID string) bool {
	return contains(p.FreeLessonIDs, lessonID) || contains(p.FreeChapterIDs, chapterID)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
