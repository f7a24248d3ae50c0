package config

const (
	// TopicIndexTask is the NSQ topic for document indexing tasks.
	TopicIndexTask = "index.task"
)
