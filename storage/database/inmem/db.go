// Package inmemdb implements the repositories in memory, for tests and running without a database.
package inmemdb

import (
	"sync"

	"github.com/trezcool/academy/core/assessment"
	"github.com/trezcool/academy/core/catalog"
	"github.com/trezcool/academy/core/certification"
	"github.com/trezcool/academy/core/progress"
	"github.com/trezcool/academy/core/user"
)

type completionKey struct {
	userID   string
	moduleID int
}

type progressKey struct {
	userID   string
	courseID int
}

// DB holds all tables behind one lock.
type DB struct {
	mu  sync.RWMutex
	seq int

	users          map[string]user.User
	courses        map[int]catalog.Course
	modules        map[int]catalog.Module
	assessments    map[int]catalog.Assessment // without questions
	questions      map[int]catalog.Question   // without options
	options        map[int]catalog.Option
	offices        map[int]catalog.Office
	completions    map[completionKey]progress.ModuleCompletion
	courseProgress map[progressKey]progress.CourseProgress
	attempts       map[string]assessment.Attempt // without responses
	responses      map[string][]assessment.Response
	certifications map[string]certification.Certification
}

func NewDB() *DB {
	db := new(DB)
	db.Reset()
	return db
}

// Reset empties all tables.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.seq = 0
	db.users = make(map[string]user.User)
	db.courses = make(map[int]catalog.Course)
	db.modules = make(map[int]catalog.Module)
	db.assessments = make(map[int]catalog.Assessment)
	db.questions = make(map[int]catalog.Question)
	db.options = make(map[int]catalog.Option)
	db.offices = make(map[int]catalog.Office)
	db.completions = make(map[completionKey]progress.ModuleCompletion)
	db.courseProgress = make(map[progressKey]progress.CourseProgress)
	db.attempts = make(map[string]assessment.Attempt)
	db.responses = make(map[string][]assessment.Response)
	db.certifications = make(map[string]certification.Certification)
}

// nextID must be called with the write lock held.
func (db *DB) nextID() int {
	db.seq++
	return db.seq
}
