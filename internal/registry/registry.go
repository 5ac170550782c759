package registry

// Registry tracks which students each guardian may query.
type Registry interface {
	// ListStudents returns the guardian's student ids in registration order.
	ListStudents(senderID string) []string
	// AddRelation registers a student for a guardian. Adding an existing
	// relation is a no-op.
	AddRelation(senderID, studentID string) error
	// RemoveRelation unregisters a student, reporting whether a relation
	// existed and was removed.
	RemoveRelation(senderID, studentID string) bool
	Close() error
}
