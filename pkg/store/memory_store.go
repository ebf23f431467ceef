package store

import (
	"sort"
	"sync"
	"time"

	"forohub/pkg/domain"
)

// MemoryStore is an in-process Store used by tests.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	email       map[string]string // email -> user ID
	courses     map[string]domain.Course
	courseOrder []string
	enrollments map[string]map[string]time.Time // course ID -> student ID -> enrolled at
	topics      map[string]domain.Topic
	topicOrder  []string
	replies     map[string]domain.Reply
	replyOrder  []string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]domain.User),
		email:       make(map[string]string),
		courses:     make(map[string]domain.Course),
		enrollments: make(map[string]map[string]time.Time),
		topics:      make(map[string]domain.Topic),
		replies:     make(map[string]domain.Reply),
	}
}

// SaveUser registers or replaces a user.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByIDAndRole returns an active user matching both id and role.
func (m *MemoryStore) GetUserByIDAndRole(id string, role domain.UserRole) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok || u.Role != role || !u.Active {
		return domain.User{}, false, nil
	}
	return u, true, nil
}

// ListActiveUsersByRole returns a page of active users ordered by user name.
func (m *MemoryStore) ListActiveUsersByRole(role domain.UserRole, offset, limit int) ([]domain.User, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		if u.Role == role && u.Active {
			matched = append(matched, u)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UserName < matched[j].UserName })
	return pageOf(matched, offset, limit), int64(len(matched)), nil
}

// SaveCourse registers or replaces a course.
func (m *MemoryStore) SaveCourse(c domain.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.courses[c.ID]; !exists {
		m.courseOrder = append(m.courseOrder, c.ID)
	}
	m.courses[c.ID] = c
	return nil
}

// HasCourseName checks if a course name is taken.
func (m *MemoryStore) HasCourseName(name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.courses {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// GetCourseByID retrieves a course.
func (m *MemoryStore) GetCourseByID(id string) (domain.Course, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	return c, ok, nil
}

// ListCourses returns a page of courses in insertion order.
func (m *MemoryStore) ListCourses(offset, limit int) ([]domain.Course, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCoursesLocked(func(domain.Course) bool { return true }, offset, limit)
}

// ListCoursesByTeacher returns courses owned by a teacher.
func (m *MemoryStore) ListCoursesByTeacher(teacherID string, offset, limit int) ([]domain.Course, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCoursesLocked(func(c domain.Course) bool { return c.TeacherID == teacherID }, offset, limit)
}

// ListCoursesByStudent returns courses a student is enrolled in.
func (m *MemoryStore) ListCoursesByStudent(studentID string, offset, limit int) ([]domain.Course, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCoursesLocked(func(c domain.Course) bool {
		_, ok := m.enrollments[c.ID][studentID]
		return ok
	}, offset, limit)
}

func (m *MemoryStore) listCoursesLocked(match func(domain.Course) bool, offset, limit int) ([]domain.Course, int64, error) {
	matched := make([]domain.Course, 0, len(m.courseOrder))
	for _, id := range m.courseOrder {
		if c, ok := m.courses[id]; ok && match(c) {
			matched = append(matched, c)
		}
	}
	return pageOf(matched, offset, limit), int64(len(matched)), nil
}

// EnrollStudent records the enrollment and bumps the student count unless
// the pair already exists.
func (m *MemoryStore) EnrollStudent(courseID, studentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	course, ok := m.courses[courseID]
	if !ok {
		return false, nil
	}
	byStudent := m.enrollments[courseID]
	if byStudent == nil {
		byStudent = make(map[string]time.Time)
		m.enrollments[courseID] = byStudent
	}
	if _, exists := byStudent[studentID]; exists {
		return false, nil
	}
	byStudent[studentID] = time.Now().UTC()
	course.StudentCount++
	m.courses[courseID] = course
	return true, nil
}

// SaveTopic registers or replaces a topic.
func (m *MemoryStore) SaveTopic(t domain.Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.topics[t.ID]; !exists {
		m.topicOrder = append(m.topicOrder, t.ID)
	}
	m.topics[t.ID] = t
	return nil
}

// GetTopicByID retrieves a topic.
func (m *MemoryStore) GetTopicByID(id string) (domain.Topic, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.topics[id]
	return t, ok, nil
}

// ListTopics returns a page of topics in insertion order, optionally
// filtered by resolved state.
func (m *MemoryStore) ListTopics(resolved *bool, offset, limit int) ([]domain.Topic, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.Topic, 0, len(m.topicOrder))
	for _, id := range m.topicOrder {
		t, ok := m.topics[id]
		if !ok {
			continue
		}
		if resolved != nil && t.Resolved != *resolved {
			continue
		}
		matched = append(matched, t)
	}
	return pageOf(matched, offset, limit), int64(len(matched)), nil
}

// SaveReply records a reply.
func (m *MemoryStore) SaveReply(r domain.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.replies[r.ID]; !exists {
		m.replyOrder = append(m.replyOrder, r.ID)
	}
	m.replies[r.ID] = r
	return nil
}

// ListRepliesByTopic returns replies to a topic in insertion order.
func (m *MemoryStore) ListRepliesByTopic(topicID string, offset, limit int) ([]domain.Reply, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRepliesLocked(func(r domain.Reply) bool { return r.TopicID == topicID }, offset, limit)
}

// ListRepliesByAuthor returns replies written by a user.
func (m *MemoryStore) ListRepliesByAuthor(authorID string, offset, limit int) ([]domain.Reply, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRepliesLocked(func(r domain.Reply) bool { return r.AuthorID == authorID }, offset, limit)
}

// ListRepliesForOpenTopics returns replies whose topic is still open.
func (m *MemoryStore) ListRepliesForOpenTopics(offset, limit int) ([]domain.Reply, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRepliesLocked(func(r domain.Reply) bool {
		t, ok := m.topics[r.TopicID]
		return ok && !t.Resolved
	}, offset, limit)
}

func (m *MemoryStore) listRepliesLocked(match func(domain.Reply) bool, offset, limit int) ([]domain.Reply, int64, error) {
	matched := make([]domain.Reply, 0, len(m.replyOrder))
	for _, id := range m.replyOrder {
		if r, ok := m.replies[id]; ok && match(r) {
			matched = append(matched, r)
		}
	}
	return pageOf(matched, offset, limit), int64(len(matched)), nil
}

func pageOf[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}
