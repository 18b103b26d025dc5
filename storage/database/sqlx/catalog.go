package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/catalog"
)

type (
	courseRow struct {
		ID                       int       `db:"id"`
		Title                    string    `db:"title"`
		Description              string    `db:"description"`
		Difficulty               string    `db:"difficulty"`
		IsActive                 bool      `db:"is_active"`
		IsMandatory              bool      `db:"is_mandatory"`
		Order                    int       `db:"order"`
		EstimatedDurationMinutes int       `db:"estimated_duration_minutes"`
		TotalModules             int       `db:"total_modules"`
		CreatedAt                time.Time `db:"created_at"`
		UpdatedAt                time.Time `db:"updated_at"`
	}

	moduleRow struct {
		ID              int         `db:"id"`
		CourseID        int         `db:"course_id"`
		Title           string      `db:"title"`
		Description     string      `db:"description"`
		ContentType     string      `db:"content_type"`
		Order           int         `db:"order"`
		VideoURL        null.String `db:"video_url"`
		PDFURL          null.String `db:"pdf_url"`
		TextContent     string      `db:"text_content"`
		DurationMinutes int         `db:"duration_minutes"`
		IsRequired      bool        `db:"is_required"`
		CreatedAt       time.Time   `db:"created_at"`
		UpdatedAt       time.Time   `db:"updated_at"`
	}

	assessmentRow struct {
		ID                 int       `db:"id"`
		Title              string    `db:"title"`
		Description        string    `db:"description"`
		PassingScore       int       `db:"passing_score"`
		TotalQuestions     int       `db:"total_questions"`
		TimeLimitMinutes   null.Int  `db:"time_limit_minutes"`
		RandomizeQuestions bool      `db:"randomize_questions"`
		RandomizeOptions   bool      `db:"randomize_options"`
		IsActive           bool      `db:"is_active"`
		IsMandatory        bool      `db:"is_mandatory"`
		CreatedAt          time.Time `db:"created_at"`
		UpdatedAt          time.Time `db:"updated_at"`
	}

	questionRow struct {
		ID           int    `db:"id"`
		AssessmentID int    `db:"assessment_id"`
		Text         string `db:"text"`
		Difficulty   string `db:"difficulty"`
		Explanation  string `db:"explanation"`
		Order        int    `db:"order"`
	}

	officeRow struct {
		ID           int    `db:"id"`
		Name         string `db:"name"`
		Code         string `db:"code"`
		AddressLine1 string `db:"address_line1"`
		AddressLine2 string `db:"address_line2"`
		City         string `db:"city"`
		State        string `db:"state"`
		ZipCode      string `db:"zip_code"`
		Timezone     string `db:"timezone"`
		Phone        string `db:"phone"`
		Email        string `db:"email"`
		Notes        string `db:"notes"`
		IsActive     bool   `db:"is_active"`
		Order        int    `db:"order"`
	}

	officeHoursRow struct {
		OfficeID   int         `db:"office_id"`
		DayOfWeek  int         `db:"day_of_week"`
		IsOpen     bool        `db:"is_open"`
		OpenTime   null.String `db:"open_time"`
		CloseTime  null.String `db:"close_time"`
		BreakStart null.String `db:"break_start"`
		BreakEnd   null.String `db:"break_end"`
	}
)

const (
	courseColumns = `c.id, c.title, c.description, c.difficulty, c.is_active, c.is_mandatory, c."order",
		c.estimated_duration_minutes, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM modules m WHERE m.course_id = c.id) AS total_modules`
	moduleColumns = `m.id, m.course_id, m.title, m.description, m.content_type, m."order", m.video_url, m.pdf_url,
		m.text_content, m.duration_minutes, m.is_required, m.created_at, m.updated_at`
	assessmentColumns = `id, title, description, passing_score, total_questions, time_limit_minutes,
		randomize_questions, randomize_options, is_active, is_mandatory, created_at, updated_at`
	officeColumns = `id, name, code, address_line1, address_line2, city, state, zip_code, timezone, phone, email,
		notes, is_active, "order"`
)

type catalogRepository struct {
	db core.DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db core.DB) catalog.Repository {
	return &catalogRepository{db: db}
}

func unboilCourse(row courseRow) catalog.Course {
	return catalog.Course{
		ID:                       row.ID,
		Title:                    row.Title,
		Description:              row.Description,
		Difficulty:               row.Difficulty,
		IsActive:                 row.IsActive,
		IsMandatory:              row.IsMandatory,
		Order:                    row.Order,
		EstimatedDurationMinutes: row.EstimatedDurationMinutes,
		TotalModules:             row.TotalModules,
		CreatedAt:                row.CreatedAt.UTC(),
		UpdatedAt:                row.UpdatedAt.UTC(),
	}
}

func boilModule(m catalog.Module) moduleRow {
	return moduleRow{
		ID:              m.ID,
		CourseID:        m.CourseID,
		Title:           m.Title,
		Description:     m.Description,
		ContentType:     m.ContentType,
		Order:           m.Order,
		VideoURL:        null.NewString(m.VideoURL, m.VideoURL != ""),
		PDFURL:          null.NewString(m.PDFURL, m.PDFURL != ""),
		TextContent:     m.TextContent,
		DurationMinutes: m.DurationMinutes,
		IsRequired:      m.IsRequired,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

func unboilModule(row moduleRow) catalog.Module {
	return catalog.Module{
		ID:              row.ID,
		CourseID:        row.CourseID,
		Title:           row.Title,
		Description:     row.Description,
		ContentType:     row.ContentType,
		Order:           row.Order,
		VideoURL:        row.VideoURL.String,
		PDFURL:          row.PDFURL.String,
		TextContent:     row.TextContent,
		DurationMinutes: row.DurationMinutes,
		IsRequired:      row.IsRequired,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

func boilAssessment(a catalog.Assessment) assessmentRow {
	return assessmentRow{
		ID:                 a.ID,
		Title:              a.Title,
		Description:        a.Description,
		PassingScore:       a.PassingScore,
		TotalQuestions:     a.TotalQuestions,
		TimeLimitMinutes:   null.IntFromPtr(a.TimeLimitMinutes),
		RandomizeQuestions: a.RandomizeQuestions,
		RandomizeOptions:   a.RandomizeOptions,
		IsActive:           a.IsActive,
		IsMandatory:        a.IsMandatory,
		CreatedAt:          a.CreatedAt.UTC(),
		UpdatedAt:          a.UpdatedAt.UTC(),
	}
}

func unboilAssessment(row assessmentRow) catalog.Assessment {
	return catalog.Assessment{
		ID:                 row.ID,
		Title:              row.Title,
		Description:        row.Description,
		PassingScore:       row.PassingScore,
		TotalQuestions:     row.TotalQuestions,
		TimeLimitMinutes:   row.TimeLimitMinutes.Ptr(),
		RandomizeQuestions: row.RandomizeQuestions,
		RandomizeOptions:   row.RandomizeOptions,
		IsActive:           row.IsActive,
		IsMandatory:        row.IsMandatory,
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
	}
}

// Courses

func (repo catalogRepository) CreateCourse(ctx context.Context, c catalog.Course) (catalog.Course, error) {
	q := `INSERT INTO courses (title, description, difficulty, is_active, is_mandatory, "order", estimated_duration_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	err := repo.db.GetContext(ctx, &c.ID, q,
		c.Title, c.Description, c.Difficulty, c.IsActive, c.IsMandatory, c.Order, c.EstimatedDurationMinutes,
		c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return catalog.Course{}, errors.Wrap(err, "inserting course")
	}
	c.TotalModules = 0
	return c, nil
}

func (repo catalogRepository) UpdateCourse(ctx context.Context, c catalog.Course) (catalog.Course, error) {
	q := `UPDATE courses SET title = $2, description = $3, difficulty = $4, is_active = $5, is_mandatory = $6,
		"order" = $7, estimated_duration_minutes = $8, updated_at = $9 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q,
		c.ID, c.Title, c.Description, c.Difficulty, c.IsActive, c.IsMandatory, c.Order, c.EstimatedDurationMinutes,
		c.UpdatedAt.UTC())
	if err != nil {
		return catalog.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	return repo.GetCourse(ctx, c.ID)
}

func (repo catalogRepository) deleteByID(ctx context.Context, table string, id int, notFound error) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound
	}
	return nil
}

func (repo catalogRepository) DeleteCourse(ctx context.Context, id int) error {
	return repo.deleteByID(ctx, "courses", id, catalog.ErrCourseNotFound)
}

func (repo catalogRepository) GetCourse(ctx context.Context, id int) (catalog.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+courseColumns+" FROM courses c WHERE c.id = $1", id); err != nil {
		return catalog.Course{}, trapNoRowsErr(err, catalog.ErrCourseNotFound, "getting course")
	}
	return unboilCourse(row), nil
}

func (repo catalogRepository) QueryCourses(ctx context.Context, filter catalog.CourseFilter) ([]catalog.Course, error) {
	w := new(where)
	if filter.ActiveOnly {
		w.add("c.is_active")
	}
	if filter.Query != "" {
		val := "%" + filter.Query + "%"
		w.add("(c.title ILIKE ? OR c.description ILIKE ?)", val, val)
	}
	if filter.Difficulty != "" {
		w.add("c.difficulty = ?", filter.Difficulty)
	}
	if filter.ContentType != "" {
		w.add("EXISTS (SELECT 1 FROM modules m WHERE m.course_id = c.id AND m.content_type = ?)", filter.ContentType)
	}

	var rows []courseRow
	q := "SELECT " + courseColumns + " FROM courses c" + w.String() + ` ORDER BY c."order", c.id`
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]catalog.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, unboilCourse(row))
	}
	return courses, nil
}

// Modules

func (repo catalogRepository) CreateModule(ctx context.Context, m catalog.Module) (catalog.Module, error) {
	q := `INSERT INTO modules (course_id, title, description, content_type, "order", video_url, pdf_url, text_content,
			duration_minutes, is_required, created_at, updated_at)
		VALUES (:course_id, :title, :description, :content_type, :order, :video_url, :pdf_url, :text_content,
			:duration_minutes, :is_required, :created_at, :updated_at)
		RETURNING id`
	q, args, err := repo.db.BindNamed(q, boilModule(m))
	if err != nil {
		return catalog.Module{}, errors.Wrap(err, "binding module")
	}
	if err = repo.db.GetContext(ctx, &m.ID, q, args...); err != nil {
		if uniqueViolated(err, "") {
			return catalog.Module{}, catalog.ErrDuplicateOrder
		}
		return catalog.Module{}, errors.Wrap(err, "inserting module")
	}
	return m, nil
}

func (repo catalogRepository) UpdateModule(ctx context.Context, m catalog.Module) (catalog.Module, error) {
	q := `UPDATE modules SET course_id = :course_id, title = :title, description = :description,
		content_type = :content_type, "order" = :order, video_url = :video_url, pdf_url = :pdf_url,
		text_content = :text_content, duration_minutes = :duration_minutes, is_required = :is_required,
		updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, boilModule(m))
	if err != nil {
		if uniqueViolated(err, "") {
			return catalog.Module{}, catalog.ErrDuplicateOrder
		}
		return catalog.Module{}, errors.Wrap(err, "updating module")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return catalog.Module{}, catalog.ErrModuleNotFound
	}
	return m, nil
}

func (repo catalogRepository) DeleteModule(ctx context.Context, id int) error {
	return repo.deleteByID(ctx, "modules", id, catalog.ErrModuleNotFound)
}

func (repo catalogRepository) GetModule(ctx context.Context, id int) (catalog.Module, error) {
	var row moduleRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+moduleColumns+" FROM modules m WHERE m.id = $1", id); err != nil {
		return catalog.Module{}, trapNoRowsErr(err, catalog.ErrModuleNotFound, "getting module")
	}
	return unboilModule(row), nil
}

func (repo catalogRepository) QueryModules(ctx context.Context, courseID int) ([]catalog.Module, error) {
	w := new(where)
	if courseID != 0 {
		w.add("m.course_id = ?", courseID)
	}
	q := "SELECT " + moduleColumns + " FROM modules m JOIN courses c ON c.id = m.course_id" + w.String() +
		` ORDER BY c."order", c.id, m."order", m.id`

	var rows []moduleRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	modules := make([]catalog.Module, 0, len(rows))
	for _, row := range rows {
		modules = append(modules, unboilModule(row))
	}
	return modules, nil
}

// Assessments

func insertQuestion(ctx context.Context, tx *sqlx.Tx, q catalog.Question) (catalog.Question, error) {
	err := tx.GetContext(ctx, &q.ID,
		`INSERT INTO questions (assessment_id, text, difficulty, explanation, "order") VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		q.AssessmentID, q.Text, q.Difficulty, q.Explanation, q.Order)
	if err != nil {
		if uniqueViolated(err, "") {
			return catalog.Question{}, catalog.ErrDuplicateOrder
		}
		return catalog.Question{}, errors.Wrap(err, "inserting question")
	}
	for i := range q.Options {
		opt := &q.Options[i]
		opt.QuestionID = q.ID
		err = tx.GetContext(ctx, &opt.ID,
			`INSERT INTO options (question_id, text, is_correct, "order") VALUES ($1, $2, $3, $4) RETURNING id`,
			opt.QuestionID, opt.Text, opt.IsCorrect, opt.Order)
		if err != nil {
			if uniqueViolated(err, "") {
				return catalog.Question{}, catalog.ErrDuplicateOrder
			}
			return catalog.Question{}, errors.Wrap(err, "inserting option")
		}
	}
	return q, nil
}

func (repo catalogRepository) CreateAssessment(ctx context.Context, a catalog.Assessment) (catalog.Assessment, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO assessments (title, description, passing_score, total_questions, time_limit_minutes,
				randomize_questions, randomize_options, is_active, is_mandatory, created_at, updated_at)
			VALUES (:title, :description, :passing_score, :total_questions, :time_limit_minutes,
				:randomize_questions, :randomize_options, :is_active, :is_mandatory, :created_at, :updated_at)
			RETURNING id`
		q, args, err := tx.BindNamed(q, boilAssessment(a))
		if err != nil {
			return errors.Wrap(err, "binding assessment")
		}
		if err = tx.GetContext(ctx, &a.ID, q, args...); err != nil {
			return errors.Wrap(err, "inserting assessment")
		}
		for i := range a.Questions {
			a.Questions[i].AssessmentID = a.ID
			if a.Questions[i], err = insertQuestion(ctx, tx, a.Questions[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return catalog.Assessment{}, err
	}
	return a, nil
}

func (repo catalogRepository) UpdateAssessment(ctx context.Context, a catalog.Assessment) (catalog.Assessment, error) {
	q := `UPDATE assessments SET title = :title, description = :description, passing_score = :passing_score,
		total_questions = :total_questions, time_limit_minutes = :time_limit_minutes,
		randomize_questions = :randomize_questions, randomize_options = :randomize_options,
		is_active = :is_active, is_mandatory = :is_mandatory, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, boilAssessment(a))
	if err != nil {
		return catalog.Assessment{}, errors.Wrap(err, "updating assessment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return catalog.Assessment{}, catalog.ErrAssessmentNotFound
	}
	a.Questions = nil
	return a, nil
}

func (repo catalogRepository) DeleteAssessment(ctx context.Context, id int) error {
	return repo.deleteByID(ctx, "assessments", id, catalog.ErrAssessmentNotFound)
}

func (repo catalogRepository) questionsOf(ctx context.Context, assessmentID int) ([]catalog.Question, error) {
	var qRows []questionRow
	err := repo.db.SelectContext(ctx, &qRows,
		`SELECT id, assessment_id, text, difficulty, explanation, "order" FROM questions WHERE assessment_id = $1 ORDER BY "order", id`,
		assessmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	var opts []struct {
		ID         int    `db:"id"`
		QuestionID int    `db:"question_id"`
		Text       string `db:"text"`
		IsCorrect  bool   `db:"is_correct"`
		Order      int    `db:"order"`
	}
	err = repo.db.SelectContext(ctx, &opts,
		`SELECT o.id, o.question_id, o.text, o.is_correct, o."order" FROM options o
		JOIN questions q ON q.id = o.question_id WHERE q.assessment_id = $1 ORDER BY o."order", o.id`,
		assessmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying options")
	}

	byQuestion := make(map[int][]catalog.Option, len(qRows))
	for _, o := range opts {
		byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], catalog.Option{
			ID: o.ID, QuestionID: o.QuestionID, Text: o.Text, IsCorrect: o.IsCorrect, Order: o.Order,
		})
	}
	questions := make([]catalog.Question, 0, len(qRows))
	for _, row := range qRows {
		q := catalog.Question{
			ID:           row.ID,
			AssessmentID: row.AssessmentID,
			Text:         row.Text,
			Difficulty:   row.Difficulty,
			Explanation:  row.Explanation,
			Order:        row.Order,
			Options:      byQuestion[row.ID],
		}
		if q.Options == nil {
			q.Options = []catalog.Option{}
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (repo catalogRepository) GetAssessment(ctx context.Context, id int, withQuestions bool) (catalog.Assessment, error) {
	var row assessmentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+assessmentColumns+" FROM assessments WHERE id = $1", id); err != nil {
		return catalog.Assessment{}, trapNoRowsErr(err, catalog.ErrAssessmentNotFound, "getting assessment")
	}
	a := unboilAssessment(row)
	if withQuestions {
		questions, err := repo.questionsOf(ctx, id)
		if err != nil {
			return catalog.Assessment{}, err
		}
		a.Questions = questions
	}
	return a, nil
}

func (repo catalogRepository) QueryAssessments(ctx context.Context, activeOnly bool) ([]catalog.Assessment, error) {
	q := "SELECT " + assessmentColumns + " FROM assessments"
	if activeOnly {
		q += " WHERE is_active"
	}
	var rows []assessmentRow
	if err := repo.db.SelectContext(ctx, &rows, q+" ORDER BY id"); err != nil {
		return nil, errors.Wrap(err, "querying assessments")
	}
	assessments := make([]catalog.Assessment, 0, len(rows))
	for _, row := range rows {
		assessments = append(assessments, unboilAssessment(row))
	}
	return assessments, nil
}

func (repo catalogRepository) CreateQuestion(ctx context.Context, q catalog.Question) (catalog.Question, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM assessments WHERE id = $1)", q.AssessmentID); err != nil {
			return errors.Wrap(err, "checking assessment")
		}
		if !exists {
			return catalog.ErrAssessmentNotFound
		}
		var err error
		q, err = insertQuestion(ctx, tx, q)
		return err
	})
	if err != nil {
		return catalog.Question{}, err
	}
	return q, nil
}

func (repo catalogRepository) DeleteQuestion(ctx context.Context, id int) error {
	return repo.deleteByID(ctx, "questions", id, catalog.ErrQuestionNotFound)
}

// Offices

func boilOfficeHours(officeID int, h catalog.OfficeHours) officeHoursRow {
	return officeHoursRow{
		OfficeID:   officeID,
		DayOfWeek:  h.DayOfWeek,
		IsOpen:     h.IsOpen,
		OpenTime:   null.NewString(h.OpenTime, h.OpenTime != ""),
		CloseTime:  null.NewString(h.CloseTime, h.CloseTime != ""),
		BreakStart: null.NewString(h.BreakStart, h.BreakStart != ""),
		BreakEnd:   null.NewString(h.BreakEnd, h.BreakEnd != ""),
	}
}

func (repo catalogRepository) officeRow(o catalog.Office) officeRow {
	return officeRow{
		ID:           o.ID,
		Name:         o.Name,
		Code:         o.Code,
		AddressLine1: o.AddressLine1,
		AddressLine2: o.AddressLine2,
		City:         o.City,
		State:        o.State,
		ZipCode:      o.ZipCode,
		Timezone:     o.Timezone,
		Phone:        o.Phone,
		Email:        o.Email,
		Notes:        o.Notes,
		IsActive:     o.IsActive,
		Order:        o.Order,
	}
}

func replaceHours(ctx context.Context, tx *sqlx.Tx, o catalog.Office) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM office_hours WHERE office_id = $1", o.ID); err != nil {
		return errors.Wrap(err, "deleting office hours")
	}
	for _, h := range o.Hours {
		q := `INSERT INTO office_hours (office_id, day_of_week, is_open, open_time, close_time, break_start, break_end)
			VALUES (:office_id, :day_of_week, :is_open, :open_time, :close_time, :break_start, :break_end)`
		if _, err := tx.NamedExecContext(ctx, q, boilOfficeHours(o.ID, h)); err != nil {
			return errors.Wrap(err, "inserting office hours")
		}
	}
	return nil
}

func (repo catalogRepository) CreateOffice(ctx context.Context, o catalog.Office) (catalog.Office, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO offices (name, code, address_line1, address_line2, city, state, zip_code, timezone, phone,
				email, notes, is_active, "order")
			VALUES (:name, :code, :address_line1, :address_line2, :city, :state, :zip_code, :timezone, :phone,
				:email, :notes, :is_active, :order)
			RETURNING id`
		q, args, err := tx.BindNamed(q, repo.officeRow(o))
		if err != nil {
			return errors.Wrap(err, "binding office")
		}
		if err = tx.GetContext(ctx, &o.ID, q, args...); err != nil {
			if uniqueViolated(err, "offices_code_key") {
				return catalog.ErrDuplicateCode
			}
			return errors.Wrap(err, "inserting office")
		}
		return replaceHours(ctx, tx, o)
	})
	if err != nil {
		return catalog.Office{}, err
	}
	return o, nil
}

func (repo catalogRepository) UpdateOffice(ctx context.Context, o catalog.Office) (catalog.Office, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `UPDATE offices SET name = :name, code = :code, address_line1 = :address_line1,
			address_line2 = :address_line2, city = :city, state = :state, zip_code = :zip_code, timezone = :timezone,
			phone = :phone, email = :email, notes = :notes, is_active = :is_active, "order" = :order
			WHERE id = :id`
		res, err := tx.NamedExecContext(ctx, q, repo.officeRow(o))
		if err != nil {
			if uniqueViolated(err, "offices_code_key") {
				return catalog.ErrDuplicateCode
			}
			return errors.Wrap(err, "updating office")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return catalog.ErrOfficeNotFound
		}
		return replaceHours(ctx, tx, o)
	})
	if err != nil {
		return catalog.Office{}, err
	}
	return repo.GetOffice(ctx, o.ID)
}

func (repo catalogRepository) DeleteOffice(ctx context.Context, id int) error {
	return repo.deleteByID(ctx, "offices", id, catalog.ErrOfficeNotFound)
}

func (repo catalogRepository) queryOffices(ctx context.Context, cond string, args ...interface{}) ([]catalog.Office, error) {
	var rows []officeRow
	q := "SELECT " + officeColumns + " FROM offices" + cond + ` ORDER BY "order", name`
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying offices")
	}
	if len(rows) == 0 {
		return []catalog.Office{}, nil
	}

	ids := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	hq, hargs, err := sqlx.In("SELECT * FROM office_hours WHERE office_id IN (?) ORDER BY day_of_week", ids)
	if err != nil {
		return nil, errors.Wrap(err, "binding office ids")
	}
	var hours []officeHoursRow
	if err = repo.db.SelectContext(ctx, &hours, repo.db.Rebind(hq), hargs...); err != nil {
		return nil, errors.Wrap(err, "querying office hours")
	}
	byOffice := make(map[int][]catalog.OfficeHours, len(rows))
	for _, h := range hours {
		byOffice[h.OfficeID] = append(byOffice[h.OfficeID], catalog.OfficeHours{
			DayOfWeek:  h.DayOfWeek,
			IsOpen:     h.IsOpen,
			OpenTime:   h.OpenTime.String,
			CloseTime:  h.CloseTime.String,
			BreakStart: h.BreakStart.String,
			BreakEnd:   h.BreakEnd.String,
		})
	}

	offices := make([]catalog.Office, 0, len(rows))
	for _, row := range rows {
		o := catalog.Office{
			ID:           row.ID,
			Name:         row.Name,
			Code:         row.Code,
			AddressLine1: row.AddressLine1,
			AddressLine2: row.AddressLine2,
			City:         row.City,
			State:        row.State,
			ZipCode:      row.ZipCode,
			Timezone:     row.Timezone,
			Phone:        row.Phone,
			Email:        row.Email,
			Notes:        row.Notes,
			IsActive:     row.IsActive,
			Order:        row.Order,
			Hours:        byOffice[row.ID],
		}
		if o.Hours == nil {
			o.Hours = []catalog.OfficeHours{}
		}
		offices = append(offices, o)
	}
	return offices, nil
}

func (repo catalogRepository) GetOffice(ctx context.Context, id int) (catalog.Office, error) {
	offices, err := repo.queryOffices(ctx, " WHERE id = $1", id)
	if err != nil {
		return catalog.Office{}, err
	}
	if len(offices) == 0 {
		return catalog.Office{}, catalog.ErrOfficeNotFound
	}
	return offices[0], nil
}

func (repo catalogRepository) QueryOffices(ctx context.Context, activeOnly bool) ([]catalog.Office, error) {
	if activeOnly {
		return repo.queryOffices(ctx, " WHERE is_active")
	}
	return repo.queryOffices(ctx, "")
}
