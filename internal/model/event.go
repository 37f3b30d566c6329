package model

// EventType is the kind of change carried by a board broadcast.
type EventType string

const (
	EventTaskCreated EventType = "TASK_CREATED"
	EventTaskUpdated EventType = "TASK_UPDATED"
	EventTaskDeleted EventType = "TASK_DELETED"
)

// ChangeEvent is published to a board channel after a task write commits.
type ChangeEvent struct {
	Type    EventType    `json:"type"`
	BoardID string       `json:"boardId"`
	Task    TaskResponse `json:"task"`
}

// NotificationKind identifies why a user received a private notification.
type NotificationKind string

const (
	NotificationAssignment      NotificationKind = "ASSIGNMENT"
	NotificationDeadlineWarning NotificationKind = "DEADLINE_WARNING"
)

// Notification is delivered to a single user's private channel.
type Notification struct {
	// Message is the human-readable text.
	Message string `json:"message"`

	// TaskID references the task the notification is about.
	TaskID string `json:"taskId"`

	// BoardID references the board holding that task.
	BoardID string `json:"boardId"`

	Kind NotificationKind `json:"type"`
}
