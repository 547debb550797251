// Package fixtures provides test-data factories for TaskFlow AI browser tests.
// Every factory returns a record populated with sensible defaults; callers
// shadow individual fields through an Overrides map. Generated titles and ids
// are unique enough for the lifetime of one test run so that UI lists keyed
// by display text never collide.
package fixtures

import (
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Overrides shadows factory defaults by field name. Keys must match the
// documented field names exactly; an unknown key panics rather than being
// silently dropped or renamed.
type Overrides map[string]any

// Task is a task record as the TaskFlow UI displays it.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      string
	Priority    string
	ProjectID   string
	DueDate     time.Time
	CreatedAt   time.Time
}

// Project groups tasks under a display name and color.
type Project struct {
	ID          string
	Name        string
	Description string
	Color       string
	CreatedAt   time.Time
}

// User carries the credentials and profile a login flow needs.
type User struct {
	ID       string
	Email    string
	Name     string
	Password string
	Role     string
}

// ChatMessage is one turn of an assistant conversation.
type ChatMessage struct {
	ID        string
	Role      string
	Content   string
	Timestamp time.Time
}

// chatPrompts is the fixed pool NewChatMessage draws content from when no
// override is given.
var chatPrompts = []string{
	"What should I work on next?",
	"Summarize my overdue tasks",
	"Break this project into smaller steps",
	"Which tasks are blocking the release?",
	"Draft a plan for this week",
}

// NewTask returns a task with defaults, applying any overrides.
// Recognized keys: id, title, description, status, priority, project_id,
// due_date, created_at.
func NewTask(ov Overrides) Task {
	now := time.Now()
	task := Task{
		ID:          uuid.NewString(),
		Title:       UniqueTitle("Test Task"),
		Description: "Created by automated browser test",
		Status:      "todo",
		Priority:    "medium",
		ProjectID:   "",
		DueDate:     now.Add(7 * 24 * time.Hour),
		CreatedAt:   now,
	}
	for key, value := range ov {
		switch key {
		case "id":
			task.ID = value.(string)
		case "title":
			task.Title = value.(string)
		case "description":
			task.Description = value.(string)
		case "status":
			task.Status = value.(string)
		case "priority":
			task.Priority = value.(string)
		case "project_id":
			task.ProjectID = value.(string)
		case "due_date":
			task.DueDate = value.(time.Time)
		case "created_at":
			task.CreatedAt = value.(time.Time)
		default:
			panic(fmt.Sprintf("fixtures: unknown task override key %q", key))
		}
	}
	return task
}

// NewProject returns a project with defaults, applying any overrides.
// Recognized keys: id, name, description, color, created_at.
func NewProject(ov Overrides) Project {
	project := Project{
		ID:          uuid.NewString(),
		Name:        UniqueTitle("Test Project"),
		Description: "Created by automated browser test",
		Color:       "#4f46e5",
		CreatedAt:   time.Now(),
	}
	for key, value := range ov {
		switch key {
		case "id":
			project.ID = value.(string)
		case "name":
			project.Name = value.(string)
		case "description":
			project.Description = value.(string)
		case "color":
			project.Color = value.(string)
		case "created_at":
			project.CreatedAt = value.(time.Time)
		default:
			panic(fmt.Sprintf("fixtures: unknown project override key %q", key))
		}
	}
	return project
}

// NewUser returns a user with defaults, applying any overrides.
// Recognized keys: id, email, name, password, role.
func NewUser(ov Overrides) User {
	user := User{
		ID:       uuid.NewString(),
		Email:    UniqueEmail("test-user"),
		Name:     "Test User",
		Password: "TestPassword123!",
		Role:     "member",
	}
	for key, value := range ov {
		switch key {
		case "id":
			user.ID = value.(string)
		case "email":
			user.Email = value.(string)
		case "name":
			user.Name = value.(string)
		case "password":
			user.Password = value.(string)
		case "role":
			user.Role = value.(string)
		default:
			panic(fmt.Sprintf("fixtures: unknown user override key %q", key))
		}
	}
	return user
}

// NewChatMessage returns a chat message with defaults, applying any
// overrides. Content defaults to a uniformly random prompt from a fixed
// pool. Recognized keys: id, role, content, timestamp.
func NewChatMessage(ov Overrides) ChatMessage {
	msg := ChatMessage{
		ID:        uuid.NewString(),
		Role:      "user",
		Content:   chatPrompts[rand.Intn(len(chatPrompts))],
		Timestamp: time.Now(),
	}
	for key, value := range ov {
		switch key {
		case "id":
			msg.ID = value.(string)
		case "role":
			msg.Role = value.(string)
		case "content":
			msg.Content = value.(string)
		case "timestamp":
			msg.Timestamp = value.(time.Time)
		default:
			panic(fmt.Sprintf("fixtures: unknown chat message override key %q", key))
		}
	}
	return msg
}

// ChatPrompts returns the fixed prompt pool. Tests use it to assert that
// unoverridden content always comes from the pool.
func ChatPrompts() []string {
	out := make([]string, len(chatPrompts))
	copy(out, chatPrompts)
	return out
}

// UniqueTitle generates a display title unique for the current test run:
// "<prefix> <unix-millis>-<hex>".
func UniqueTitle(prefix string) string {
	suffix := make([]byte, 4)
	if _, err := crand.Read(suffix); err != nil {
		panic(fmt.Sprintf("fixtures: failed to generate title suffix: %v", err))
	}
	return fmt.Sprintf("%s %d-%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(suffix))
}

// UniqueEmail generates a unique email for test isolation.
func UniqueEmail(prefix string) string {
	suffix := make([]byte, 8)
	if _, err := crand.Read(suffix); err != nil {
		panic(fmt.Sprintf("fixtures: failed to generate email suffix: %v", err))
	}
	return fmt.Sprintf("%s-%s@example.com", prefix, hex.EncodeToString(suffix))
}
