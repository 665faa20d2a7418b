package dummydb

import (
	"sync"

	"github.com/trezcool/dripfeed/core/course"
)

type (
	DB struct {
		course     *courseTable
		enrollment *enrollmentTable
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string]*course.Enrollment
	}
)

func Open() (*DB, error) {
	db := &DB{
		course:     &courseTable{table: make(map[string]*course.Course)},
		enrollment: &enrollmentTable{table: make(map[string]*course.Enrollment)},
	}
	return db, nil
}

// Reset empties all the tables.
func (db *DB) Reset() {
	db.course.Lock()
	db.course.table = make(map[string]*course.Course)
	db.course.Unlock()

	db.enrollment.Lock()
	db.enrollment.table = make(map[string]*course.Enrollment)
	db.enrollment.Unlock()
}

// snapshot deep copies the course table.
func (t *courseTable) snapshot() map[string]*course.Course {
	snap := make(map[string]*course.Course, len(t.table))
	for id, c := range t.table {
		cp := copyCourse(*c)
		snap[id] = &cp
	}
	return snap
}

func copyCourse(c course.Course) course.Course {
	if c.FreePreviewChapterCount != nil {
		n := *c.FreePreviewChapterCount
		c.FreePreviewChapterCount = &n
	}
	chapters := make([]course.Chapter, len(c.Chapters))
	for i, ch := range c.Chapters {
		lessons := make([]course.Lesson, len(ch.Lessons))
		copy(lessons, ch.Lessons)
		ch.Lessons = lessons
		chapters[i] = ch
	}
	c.Chapters = chapters
	return c
}
