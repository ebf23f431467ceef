package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"forohub/pkg/domain"
)

const migrateLockID int64 = 48714871

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &CourseModel{}, &EnrollmentModel{}, &TopicModel{}, &ReplyModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'course_models'
					AND constraint_name = 'course_models_teacher_id_fkey'
				) THEN
					ALTER TABLE course_models
					ADD CONSTRAINT course_models_teacher_id_fkey
					FOREIGN KEY (teacher_id) REFERENCES user_models(id);
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'enrollment_models'
					AND constraint_name = 'enrollment_models_course_id_fkey'
				) THEN
					ALTER TABLE enrollment_models
					ADD CONSTRAINT enrollment_models_course_id_fkey
					FOREIGN KEY (course_id) REFERENCES course_models(id);
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'enrollment_models'
					AND constraint_name = 'enrollment_models_student_id_fkey'
				) THEN
					ALTER TABLE enrollment_models
					ADD CONSTRAINT enrollment_models_student_id_fkey
					FOREIGN KEY (student_id) REFERENCES user_models(id);
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'topic_models'
					AND constraint_name = 'topic_models_course_id_fkey'
				) THEN
					ALTER TABLE topic_models
					ADD CONSTRAINT topic_models_course_id_fkey
					FOREIGN KEY (course_id) REFERENCES course_models(id);
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'reply_models'
					AND constraint_name = 'reply_models_topic_id_fkey'
				) THEN
					ALTER TABLE reply_models
					ADD CONSTRAINT reply_models_topic_id_fkey
					FOREIGN KEY (topic_id) REFERENCES topic_models(id);
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure foreign keys: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_name", "email", "password_hash", "role", "active", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByIDAndRole returns an active user matching both id and role.
func (s *GormStore) GetUserByIDAndRole(id string, role domain.UserRole) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("id = ? AND role = ? AND active", id, string(role)).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListActiveUsersByRole returns a page of active users ordered by user name.
func (s *GormStore) ListActiveUsersByRole(role domain.UserRole, offset, limit int) ([]domain.User, int64, error) {
	query := s.db.Model(&UserModel{}).Where("role = ? AND active", string(role))
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []UserModel
	if err := query.Order("user_name ASC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	users := make([]domain.User, 0, len(models))
	for _, m := range models {
		users = append(users, userFromModel(m))
	}
	return users, total, nil
}

// SaveCourse registers or updates a course.
func (s *GormStore) SaveCourse(c domain.Course) error {
	model := courseToModel(c)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "category", "teacher_id", "updated_at"}),
	}).Create(&model).Error
}

// HasCourseName checks if a course name is taken.
func (s *GormStore) HasCourseName(name string) (bool, error) {
	var count int64
	if err := s.db.Model(&CourseModel{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetCourseByID retrieves a course.
func (s *GormStore) GetCourseByID(id string) (domain.Course, bool, error) {
	var model CourseModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Course{}, false, nil
		}
		return domain.Course{}, false, err
	}
	return courseFromModel(model), true, nil
}

// ListCourses returns a page of courses ordered by creation time.
func (s *GormStore) ListCourses(offset, limit int) ([]domain.Course, int64, error) {
	return s.listCourses(s.db.Model(&CourseModel{}), offset, limit)
}

// ListCoursesByTeacher returns courses owned by a teacher.
func (s *GormStore) ListCoursesByTeacher(teacherID string, offset, limit int) ([]domain.Course, int64, error) {
	return s.listCourses(s.db.Model(&CourseModel{}).Where("teacher_id = ?", teacherID), offset, limit)
}

// ListCoursesByStudent returns courses a student is enrolled in.
func (s *GormStore) ListCoursesByStudent(studentID string, offset, limit int) ([]domain.Course, int64, error) {
	query := s.db.Model(&CourseModel{}).
		Joins("JOIN enrollment_models ON enrollment_models.course_id = course_models.id").
		Where("enrollment_models.student_id = ?", studentID)
	return s.listCourses(query, offset, limit)
}

func (s *GormStore) listCourses(query *gorm.DB, offset, limit int) ([]domain.Course, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []CourseModel
	if err := query.Order("course_models.created_at ASC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	courses := make([]domain.Course, 0, len(models))
	for _, m := range models {
		courses = append(courses, courseFromModel(m))
	}
	return courses, total, nil
}

// EnrollStudent inserts the enrollment row and bumps the student count in
// one transaction. The composite primary key makes the insert a no-op for
// duplicates, and the count is only incremented when a row was inserted, so
// concurrent enrollments cannot double-count.
func (s *GormStore) EnrollStudent(courseID, studentID string) (bool, error) {
	enrolled := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&EnrollmentModel{
			CourseID:  courseID,
			StudentID: studentID,
			CreatedAt: time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		enrolled = true
		return tx.Model(&CourseModel{}).
			Where("id = ?", courseID).
			UpdateColumn("student_count", gorm.Expr("student_count + 1")).Error
	})
	return enrolled, err
}

// SaveTopic registers or updates a topic.
func (s *GormStore) SaveTopic(t domain.Topic) error {
	model := topicToModel(t)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "message", "resolved"}),
	}).Create(&model).Error
}

// GetTopicByID retrieves a topic.
func (s *GormStore) GetTopicByID(id string) (domain.Topic, bool, error) {
	var model TopicModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Topic{}, false, nil
		}
		return domain.Topic{}, false, err
	}
	return topicFromModel(model), true, nil
}

// ListTopics returns a page of topics in creation order, optionally
// filtered by resolved state.
func (s *GormStore) ListTopics(resolved *bool, offset, limit int) ([]domain.Topic, int64, error) {
	query := s.db.Model(&TopicModel{})
	if resolved != nil {
		query = query.Where("resolved = ?", *resolved)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []TopicModel
	if err := query.Order("created_at ASC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	topics := make([]domain.Topic, 0, len(models))
	for _, m := range models {
		topics = append(topics, topicFromModel(m))
	}
	return topics, total, nil
}

// SaveReply records a reply.
func (s *GormStore) SaveReply(r domain.Reply) error {
	model := replyToModel(r)
	return s.db.Create(&model).Error
}

// ListRepliesByTopic returns replies to a topic in creation order.
func (s *GormStore) ListRepliesByTopic(topicID string, offset, limit int) ([]domain.Reply, int64, error) {
	return s.listReplies(s.db.Model(&ReplyModel{}).Where("topic_id = ?", topicID), offset, limit)
}

// ListRepliesByAuthor returns replies written by a user.
func (s *GormStore) ListRepliesByAuthor(authorID string, offset, limit int) ([]domain.Reply, int64, error) {
	return s.listReplies(s.db.Model(&ReplyModel{}).Where("author_id = ?", authorID), offset, limit)
}

// ListRepliesForOpenTopics returns replies whose topic is still open.
func (s *GormStore) ListRepliesForOpenTopics(offset, limit int) ([]domain.Reply, int64, error) {
	query := s.db.Model(&ReplyModel{}).
		Joins("JOIN topic_models ON topic_models.id = reply_models.topic_id").
		Where("NOT topic_models.resolved")
	return s.listReplies(query, offset, limit)
}

func (s *GormStore) listReplies(query *gorm.DB, offset, limit int) ([]domain.Reply, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []ReplyModel
	if err := query.Order("reply_models.created_at ASC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	replies := make([]domain.Reply, 0, len(models))
	for _, m := range models {
		replies = append(replies, replyFromModel(m))
	}
	return replies, total, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		UserName:     u.UserName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Active:       u.Active,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		UserName:     m.UserName,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func courseToModel(c domain.Course) CourseModel {
	return CourseModel{
		ID:           c.ID,
		Name:         c.Name,
		Category:     string(c.Category),
		TeacherID:    c.TeacherID,
		StudentCount: c.StudentCount,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func courseFromModel(m CourseModel) domain.Course {
	return domain.Course{
		ID:           m.ID,
		Name:         m.Name,
		Category:     domain.CourseCategory(m.Category),
		TeacherID:    m.TeacherID,
		StudentCount: m.StudentCount,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func topicToModel(t domain.Topic) TopicModel {
	return TopicModel{
		ID:        t.ID,
		Title:     t.Title,
		Message:   t.Message,
		Resolved:  t.Resolved,
		AuthorID:  t.AuthorID,
		CourseID:  t.CourseID,
		CreatedAt: t.CreatedAt,
	}
}

func topicFromModel(m TopicModel) domain.Topic {
	return domain.Topic{
		ID:        m.ID,
		Title:     m.Title,
		Message:   m.Message,
		Resolved:  m.Resolved,
		AuthorID:  m.AuthorID,
		CourseID:  m.CourseID,
		CreatedAt: m.CreatedAt,
	}
}

func replyToModel(r domain.Reply) ReplyModel {
	return ReplyModel{
		ID:        r.ID,
		TopicID:   r.TopicID,
		AuthorID:  r.AuthorID,
		Body:      r.Body,
		CreatedAt: r.CreatedAt,
	}
}

func replyFromModel(m ReplyModel) domain.Reply {
	return domain.Reply{
		ID:        m.ID,
		TopicID:   m.TopicID,
		AuthorID:  m.AuthorID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}
