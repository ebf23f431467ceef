package app

import (
	"fmt"
	"strings"
	"time"

	"forohub/internal/util"
	"forohub/pkg/domain"
)

// CreateTopic opens a new discussion topic on a course.
func (a *App) CreateTopic(title, message, authorID, courseID string) (domain.Topic, error) {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if title == "" || message == "" {
		return domain.Topic{}, integrityError(reasonTopicFieldsMissing)
	}
	author, ok, err := a.store.GetUserByID(authorID)
	if err != nil {
		return domain.Topic{}, fmt.Errorf("fetch author: %w", err)
	}
	if !ok || !author.Active {
		return domain.Topic{}, integrityError(reasonInvalidUser)
	}
	if _, ok, err = a.store.GetCourseByID(courseID); err != nil {
		return domain.Topic{}, fmt.Errorf("fetch course: %w", err)
	} else if !ok {
		return domain.Topic{}, integrityError(reasonInvalidCourse)
	}
	topic := domain.Topic{
		ID:        util.NewID(),
		Title:     title,
		Message:   message,
		AuthorID:  authorID,
		CourseID:  courseID,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.SaveTopic(topic); err != nil {
		return domain.Topic{}, fmt.Errorf("save topic: %w", err)
	}
	return topic, nil
}

// ListTopics returns a page of topics ordered by creation time. A nil
// resolved filter lists every topic.
func (a *App) ListTopics(resolved *bool, page, size int) ([]domain.Topic, int64, error) {
	offset, limit := pageBounds(page, size)
	topics, total, err := a.store.ListTopics(resolved, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list topics: %w", err)
	}
	return topics, total, nil
}

// GetTopicByID returns a single topic.
func (a *App) GetTopicByID(id string) (domain.Topic, error) {
	topic, ok, err := a.store.GetTopicByID(id)
	if err != nil {
		return domain.Topic{}, fmt.Errorf("fetch topic: %w", err)
	}
	if !ok {
		return domain.Topic{}, integrityError(reasonInvalidTopic)
	}
	return topic, nil
}

// CloseTopic marks a topic as resolved. The row is kept.
func (a *App) CloseTopic(id string) (domain.Topic, error) {
	topic, ok, err := a.store.GetTopicByID(id)
	if err != nil {
		return domain.Topic{}, fmt.Errorf("fetch topic: %w", err)
	}
	if !ok {
		return domain.Topic{}, integrityError(reasonInvalidTopic)
	}
	if !topic.Resolved {
		topic.Resolved = true
		if err := a.store.SaveTopic(topic); err != nil {
			return domain.Topic{}, fmt.Errorf("save topic: %w", err)
		}
	}
	return topic, nil
}

// CreateReply posts a reply to an existing topic.
func (a *App) CreateReply(topicID, authorID, body string) (domain.Reply, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Reply{}, integrityError(reasonReplyBodyMissing)
	}
	if _, ok, err := a.store.GetTopicByID(topicID); err != nil {
		return domain.Reply{}, fmt.Errorf("fetch topic: %w", err)
	} else if !ok {
		return domain.Reply{}, integrityError(reasonInvalidTopic)
	}
	author, ok, err := a.store.GetUserByID(authorID)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("fetch author: %w", err)
	}
	if !ok || !author.Active {
		return domain.Reply{}, integrityError(reasonInvalidUser)
	}
	reply := domain.Reply{
		ID:        util.NewID(),
		TopicID:   topicID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.SaveReply(reply); err != nil {
		return domain.Reply{}, fmt.Errorf("save reply: %w", err)
	}
	return reply, nil
}

// ListRepliesByTopic returns a page of replies to a topic.
func (a *App) ListRepliesByTopic(topicID string, page, size int) ([]domain.Reply, int64, error) {
	if _, ok, err := a.store.GetTopicByID(topicID); err != nil {
		return nil, 0, fmt.Errorf("fetch topic: %w", err)
	} else if !ok {
		return nil, 0, integrityError(reasonInvalidTopic)
	}
	offset, limit := pageBounds(page, size)
	replies, total, err := a.store.ListRepliesByTopic(topicID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list replies: %w", err)
	}
	return replies, total, nil
}

// ListRepliesByAuthor returns a page of replies written by a user.
func (a *App) ListRepliesByAuthor(authorID string, page, size int) ([]domain.Reply, int64, error) {
	if _, ok, err := a.store.GetUserByID(authorID); err != nil {
		return nil, 0, fmt.Errorf("fetch author: %w", err)
	} else if !ok {
		return nil, 0, integrityError(reasonInvalidUser)
	}
	offset, limit := pageBounds(page, size)
	replies, total, err := a.store.ListRepliesByAuthor(authorID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list replies: %w", err)
	}
	return replies, total, nil
}

// ListRepliesForOpenTopics returns replies whose topic is still open.
func (a *App) ListRepliesForOpenTopics(page, size int) ([]domain.Reply, int64, error) {
	offset, limit := pageBounds(page, size)
	replies, total, err := a.store.ListRepliesForOpenTopics(offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list replies: %w", err)
	}
	return replies, total, nil
}
