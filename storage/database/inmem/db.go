// Package inmemdb backs the repositories with in-memory maps for tests.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jkazadi/kampus/core/catalog"
	"github.com/jkazadi/kampus/core/enroll"
	"github.com/jkazadi/kampus/core/event"
	"github.com/jkazadi/kampus/core/forum"
	"github.com/jkazadi/kampus/core/user"
)

type DB struct {
	mu sync.RWMutex

	users     map[string]*user.User
	programs  map[string]*catalog.Program
	courses   map[string]*catalog.Course
	lessons   map[string]*catalog.Lesson
	materials map[string]*catalog.Material

	enrollments       map[string]*enroll.Enrollment
	courseEnrollments map[string]*enroll.CourseEnrollment
	lessonProgress    map[string]*enroll.LessonProgress
	assignments       map[string]*enroll.Assignment

	events        map[string]*event.Event
	notifications map[string]*event.Notification

	posts   map[string]*forum.Post
	replies map[string]*forum.Reply
}

func NewDB() *DB {
	return &DB{
		users:             make(map[string]*user.User),
		programs:          make(map[string]*catalog.Program),
		courses:           make(map[string]*catalog.Course),
		lessons:           make(map[string]*catalog.Lesson),
		materials:         make(map[string]*catalog.Material),
		enrollments:       make(map[string]*enroll.Enrollment),
		courseEnrollments: make(map[string]*enroll.CourseEnrollment),
		lessonProgress:    make(map[string]*enroll.LessonProgress),
		assignments:       make(map[string]*enroll.Assignment),
		events:            make(map[string]*event.Event),
		notifications:     make(map[string]*event.Notification),
		posts:             make(map[string]*forum.Post),
		replies:           make(map[string]*forum.Reply),
	}
}

func newID() string {
	return uuid.New().String()
}
